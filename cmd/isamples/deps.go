package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/config"
	"github.com/c360studio/isamples/taxonomy"
	"github.com/c360studio/isamples/transform"
	"github.com/c360studio/isamples/vocabulary"
)

func newVocabularySet(cfg *config.Config, logger *slog.Logger) *vocabulary.Set {
	var source vocabulary.Source = vocabulary.DirSource{Dir: cfg.Vocabulary.Dir}
	if cfg.Vocabulary.RepositoryURL != "" {
		source = vocabulary.NewHTTPSource(cfg.Vocabulary.RepositoryURL, vocabulary.WithSourceLogger(logger))
	}
	return vocabulary.NewSet(source, vocabulary.WithSetLogger(logger))
}

// buildDependencies creates the collaborators named in cfg. The returned
// func releases them. reg may be nil.
func buildDependencies(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (transform.Dependencies, func(), error) {
	deps := transform.Dependencies{
		Vocabularies: newVocabularySet(cfg, logger),
		Logger:       logger,
	}
	var closers []func() error
	closeAll := func() {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		if err := errors.Join(errs...); err != nil {
			logger.Warn("Failed to release resources", slog.String("error", err.Error()))
		}
	}

	if cfg.ModelServer.URL != "" {
		opts := []classify.ClientOption{
			classify.WithCacheSize(cfg.ModelServer.CacheSize),
			classify.WithLogger(logger),
		}
		if cfg.ModelServer.Timeout > 0 {
			opts = append(opts, classify.WithHTTPClient(&http.Client{Timeout: cfg.ModelServer.Timeout}))
		}
		if reg != nil {
			metrics, err := classify.NewMetrics(reg)
			if err != nil {
				closeAll()
				return deps, func() {}, fmt.Errorf("classifier metrics: %w", err)
			}
			opts = append(opts, classify.WithMetrics(metrics))
		}
		client, err := classify.NewClient(cfg.ModelServer.URL, opts...)
		if err != nil {
			closeAll()
			return deps, func() {}, fmt.Errorf("classifier: %w", err)
		}
		closers = append(closers, client.Close)
		deps.Classifier = client
	}

	if cfg.Taxonomy.GBIFURL != "" {
		opts := []taxonomy.Option{
			taxonomy.WithCacheSize(cfg.Taxonomy.CacheSize),
			taxonomy.WithRateLimit(cfg.Taxonomy.RequestsPerSecond),
			taxonomy.WithLogger(logger),
		}
		if cfg.Taxonomy.DBPath != "" {
			store, err := taxonomy.OpenStore(cfg.Taxonomy.DBPath)
			if err != nil {
				closeAll()
				return deps, func() {}, fmt.Errorf("taxonomy store: %w", err)
			}
			closers = append(closers, store.Close)
			opts = append(opts, taxonomy.WithStore(store))
		}
		client, err := taxonomy.NewClient(cfg.Taxonomy.GBIFURL, opts...)
		if err != nil {
			closeAll()
			return deps, func() {}, fmt.Errorf("taxonomy: %w", err)
		}
		closers = append(closers, client.Close)
		deps.Taxonomy = client
	}

	return deps, closeAll, nil
}
