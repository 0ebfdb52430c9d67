package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/ingest"
	"github.com/sells-group/billscan/internal/metrics"
	"github.com/sells-group/billscan/internal/ocr"
	"github.com/sells-group/billscan/internal/provider"
	"github.com/sells-group/billscan/internal/storage"
	"github.com/sells-group/billscan/internal/store"
)

// pipelineEnv holds the initialized collaborators used by the parse, batch,
// export and serve commands.
type pipelineEnv struct {
	Pipeline *ingest.Pipeline
	Store    store.Store         // nil unless requested
	Gatherer prometheus.Gatherer // backs Pipeline.Metrics
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// envOptions selects the optional collaborators a command needs.
type envOptions struct {
	Storage bool
	Store   bool
}

// loadRegistry returns the built-in providers plus any from
// providers.extra_dir.
func loadRegistry() (*provider.Registry, error) {
	reg, err := provider.Builtin()
	if err != nil {
		return nil, err
	}
	if cfg.Providers.ExtraDir != "" {
		n, err := reg.LoadDir(cfg.Providers.ExtraDir)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("extra providers loaded",
			zap.String("dir", cfg.Providers.ExtraDir),
			zap.Int("count", n),
		)
	}
	return reg, nil
}

// initPipeline validates cfg for mode and builds the ingest pipeline. Callers
// should defer env.Close().
func initPipeline(ctx context.Context, mode string, opts envOptions) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	env := &pipelineEnv{
		Pipeline: &ingest.Pipeline{
			Registry:  reg,
			Extractor: extractor,
			Metrics:   metrics.New(promReg),
		},
		Gatherer: promReg,
	}

	if opts.Storage {
		fs, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, eris.Wrap(err, "init storage")
		}
		env.Pipeline.Storage = fs
	}

	if opts.Store {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "init store")
		}
		env.Store = st
		env.Pipeline.Store = st
	}

	zap.L().Info("pipeline ready",
		zap.Int("providers", len(reg.Names())),
		zap.String("extractor", extractor.Name()),
		zap.Bool("storage", opts.Storage),
		zap.Bool("store", opts.Store),
	)
	return env, nil
}
