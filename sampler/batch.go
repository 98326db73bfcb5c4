package sampler

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/shapegen/utils"
)

// SampleBatch runs every request in parallel. Each request owns its sequence and random
// source; the model is shared and serialized by the sampler when it is not reentrant. The
// result slice is aligned with reqs and holds nil for failed requests, whose errors are
// combined.
func SampleBatch(ctx context.Context, s Sampler, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	err := utils.ForEachParallel(ctx, len(reqs), func(ctx context.Context, i int) error {
		res, err := s.Sample(ctx, reqs[i])
		if err != nil {
			return errors.Wrapf(err, "request %d", i)
		}
		results[i] = res
		return nil
	})
	return results, err
}
