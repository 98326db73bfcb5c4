package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestFromReaderValidate(t *testing.T) {
	ctx := context.Background()
	logger := golog.NewTestLogger(t)

	_, err := FromReader(ctx, "somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader(ctx, "somepath", strings.NewReader(`{"spatial_dim": "two"}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	_, err = FromReader(ctx, "somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"spatial_dim" is required`)

	_, err = FromReader(ctx, "somepath", strings.NewReader(`{"spatial_dim": 3}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"max_resolution" is required`)

	_, err = FromReader(ctx, "somepath", strings.NewReader(`{"spatial_dim": 3, "max_resolution": 12}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not a power of two")

	conf, err := FromReader(ctx, "somepath", strings.NewReader(`{"spatial_dim": 2, "max_resolution": 32}`), logger)
	test.That(t, err, test.ShouldBeNil)
	temperature := DefaultTemperature
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		SpatialDim:     2,
		MaxResolution:  32,
		NumVocab:       DefaultNumVocab,
		EmbedDim:       DefaultEmbedDim,
		MaxTokens:      DefaultMaxTokens,
		ConvSize:       4,
		Architecture:   DefaultArchitecture,
		Embedding:      DefaultEmbedding,
		Head:           DefaultHead,
		Model:          DefaultModel,
		ChunkSize:      4,
		TokensPerGroup: 4,
		Temperature:    &temperature,
	})

	conf, err = FromReader(ctx, "somepath", strings.NewReader(`{
		"spatial_dim": 3,
		"max_resolution": 16,
		"temperature": 0,
		"head": "single_conv",
		"attributes": {"logit_scale": 2}
	}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.TemperatureOrDefault(), test.ShouldEqual, 0.0)
	test.That(t, conf.ChunkSize, test.ShouldEqual, 8)
	test.That(t, conf.Head, test.ShouldEqual, "single_conv")
	var attrs struct {
		LogitScale float64 `json:"logit_scale"`
	}
	test.That(t, conf.Attributes.Decode(&attrs), test.ShouldBeNil)
	test.That(t, attrs.LogitScale, test.ShouldEqual, 2.0)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = FromReader(cancelled, "somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestRead(t *testing.T) {
	logger := golog.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "shapegen.json")
	err := os.WriteFile(path, []byte(`{"spatial_dim": 2, "max_resolution": ${SHAPEGEN_TEST_RES}, "seed": 7}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	t.Setenv("SHAPEGEN_TEST_RES", "64")
	conf, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.MaxResolution, test.ShouldEqual, 64)
	test.That(t, conf.Seed, test.ShouldEqual, uint64(7))
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)

	_, err = Read(context.Background(), filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
