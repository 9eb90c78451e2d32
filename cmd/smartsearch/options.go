package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch"
	"github.com/kailas-cloud/smartsearch/internal/config"
	openaiCorr "github.com/kailas-cloud/smartsearch/internal/transport/openai"
)

// clientOptions maps the config file onto client options.
func clientOptions(cfg config.Config, logger *zap.Logger) ([]smartsearch.Option, error) {
	cc := cfg.Client
	opts := []smartsearch.Option{
		smartsearch.WithLogger(logger),
		smartsearch.WithRateLimit(cc.RateLimit),
		smartsearch.WithStreaming(cc.Streaming),
		smartsearch.WithMaxQueryRunes(cc.MaxQueryRunes),
		smartsearch.WithPageSize(cc.PageSize),
		smartsearch.WithAdmin(cc.Admin),
	}
	if cc.TimeoutSec > 0 {
		opts = append(opts, smartsearch.WithTimeout(time.Duration(cc.TimeoutSec)*time.Second))
	}
	if cc.StreamChunkSize > 0 {
		opts = append(opts, smartsearch.WithStreamChunkSize(cc.StreamChunkSize))
	}
	if cc.CacheTTLSec > 0 {
		opts = append(opts, smartsearch.WithCacheTTL(time.Duration(cc.CacheTTLSec)*time.Second))
	}

	switch cc.Transport {
	case "mock":
		opts = append(opts, smartsearch.WithMock(
			time.Duration(cfg.Mock.LatencyMs)*time.Millisecond,
			time.Duration(cfg.Mock.StreamDelayMs)*time.Millisecond,
		))
		if corr := mockCorrector(cfg.Correction, logger); corr != nil {
			opts = append(opts, smartsearch.WithMockCorrector(corr))
		}
	default:
		opts = append(opts, smartsearch.WithHTTP(cc.BaseURL, cc.Token))
	}

	switch cfg.Telemetry.Store {
	case "file":
		opts = append(opts, smartsearch.WithMarkerFile(cfg.Telemetry.Path))
	case "redis":
		if len(cfg.Database.Addrs) == 0 {
			return nil, fmt.Errorf("telemetry.store redis requires database.addrs")
		}
		addr := cfg.Database.Addrs[0]
		if cfg.Database.Driver == "redis" {
			opts = append(opts, smartsearch.WithRedis(addr, cfg.Database.Password))
		} else {
			opts = append(opts, smartsearch.WithValkey(addr, cfg.Database.Password))
		}
	}
	return opts, nil
}

// mockCorrector returns nil for the demo backend's own vocabulary corrector.
func mockCorrector(cfg config.CorrectionConfig, logger *zap.Logger) smartsearch.Corrector {
	switch cfg.Provider {
	case "openai":
		return openaiCorr.NewCorrector(&openaiCorr.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: "openai",
			Logger:   logger,
		})
	case "none":
		return passthrough{}
	default:
		return nil
	}
}

type passthrough struct{}

func (passthrough) Correct(_ context.Context, text string) (smartsearch.Correction, error) {
	return smartsearch.Correction{Text: text}, nil
}
