package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/config"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/extractor"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/logger"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/pipeline"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/store"
)

// services is everything a command needs, built from the configuration.
type services struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     store.RecordStore
	processor *pipeline.Processor
}

func (s *services) Close() error {
	return s.store.Close()
}

// setup loads the configuration and builds the store, the OCR engine and
// the processor. Logs go to logOut.
func setup(ctx context.Context, logOut io.Writer) (*services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, Format: cfg.Log.Format, Out: logOut})

	policy, err := parser.ParseFlushPolicy(cfg.Pipeline.FlushPolicy)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var mirrors []store.Mirror
	if len(cfg.Elasticsearch.Addresses) > 0 {
		es, err := store.NewElasticsearchMirror(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index, log)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("elasticsearch mirror: %w", err)
		}
		mirrors = append(mirrors, es)
	}

	recognizer := newRecognizer(ctx, cfg)
	if status := extractor.StatusOf(recognizer); !status.Available {
		log.Warn().Str("engine", status.Name).Str("reason", status.Reason).
			Msg("OCR engine unavailable; only text and text-layer PDF receipts can be read")
	}

	return &services{
		cfg:   cfg,
		log:   log,
		store: st,
		processor: &pipeline.Processor{
			Recognizer: recognizer,
			Classifier: extractor.NewKeywordClassifier(),
			Scanner:    &parser.Scanner{Registry: parser.DefaultRegistry(), Policy: policy},
			Store:      st,
			Mirrors:    mirrors,
			Workers:    cfg.Pipeline.Workers,
			Timeout:    time.Duration(cfg.Pipeline.TimeoutSeconds) * time.Second,
			Log:        log,
		},
	}, nil
}

func openStore(cfg *config.Config) (store.RecordStore, error) {
	if cfg.Storage.Driver == "sqlite" {
		return store.OpenSQLite(cfg.Storage.SQLitePath)
	}
	return store.NewMemory(), nil
}

// newRecognizer routes plain text and text-layer PDFs around the configured
// OCR engine, which is retried on transient failures.
func newRecognizer(ctx context.Context, cfg *config.Config) extractor.Recognizer {
	var ocr extractor.Recognizer
	switch cfg.OCR.Engine {
	case "gemini":
		ocr = extractor.NewGemini(ctx, cfg.OCR.GeminiModel)
	default:
		ocr = extractor.NewTesseract(extractor.TesseractOptions{
			Binary:   cfg.OCR.TesseractPath,
			Language: cfg.OCR.Language,
			PSM:      cfg.OCR.PSM,
		})
	}
	return extractor.NewRouter(extractor.Retrying{Recognizer: ocr, Attempts: uint64(cfg.OCR.Retries)})
}
