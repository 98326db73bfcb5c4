package ml

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// PaddingIndex is the vocabulary entry that is never sampled.
const PaddingIndex = 0

// Softmax returns softmax(logits/temperature) with the padding entry forced to zero
// probability. A temperature of 0 is the greedy limit (all mass on the largest non padding
// logit), as is any temperature small enough to overflow the scaled logits. +Inf spreads the
// mass uniformly over every non padding entry.
func Softmax(logits []float64, temperature float64) ([]float64, error) {
	if len(logits) <= PaddingIndex+1 {
		return nil, errors.Errorf("need at least one non padding logit, got %d logits", len(logits))
	}
	if temperature < 0 || math.IsNaN(temperature) {
		return nil, errors.Errorf("temperature must be non negative, got %v", temperature)
	}
	candidates := logits[PaddingIndex+1:]
	probs := make([]float64, len(logits))
	greedy := func() ([]float64, error) {
		probs[PaddingIndex+1+floats.MaxIdx(candidates)] = 1
		return probs, nil
	}
	switch {
	case temperature == 0 || math.IsInf(1/temperature, 1):
		return greedy()
	case math.IsInf(temperature, 1):
		for i := PaddingIndex + 1; i < len(probs); i++ {
			probs[i] = 1 / float64(len(candidates))
		}
		return probs, nil
	}

	scaled := make([]float64, len(candidates))
	floats.ScaleTo(scaled, 1/temperature, candidates)
	for _, s := range scaled {
		if math.IsInf(s, 1) {
			return greedy()
		}
	}
	norm := floats.LogSumExp(scaled)
	if math.IsInf(norm, 0) || math.IsNaN(norm) {
		return nil, errors.Errorf("logits do not normalize at temperature %v", temperature)
	}
	for i, s := range scaled {
		probs[PaddingIndex+1+i] = math.Exp(s - norm)
	}
	return probs, nil
}

// SampleCategorical draws an index from the unnormalized weights. The padding entry is never
// returned.
func SampleCategorical(weights []float64, src rand.Source) (int, error) {
	w := append([]float64(nil), weights...)
	if len(w) <= PaddingIndex+1 {
		return 0, errors.Errorf("need at least one non padding weight, got %d weights", len(w))
	}
	w[PaddingIndex] = 0
	if floats.Sum(w) <= 0 {
		return 0, errors.New("weights sum to zero")
	}
	idx := int(distuv.NewCategorical(w, src).Rand())
	if idx == PaddingIndex {
		// only reachable through rounding in the categorical heap
		idx = floats.MaxIdx(w)
	}
	return idx, nil
}

// SampleLogits draws one token from a row of logits at the given temperature.
func SampleLogits(logits []float64, temperature float64, src rand.Source) (int, error) {
	probs, err := Softmax(logits, temperature)
	if err != nil {
		return 0, err
	}
	return SampleCategorical(probs, src)
}
