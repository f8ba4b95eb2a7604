// Package pipeline drives an upload through recognition, extraction,
// persistence and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/aggregate"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/extractor"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/store"
)

// recordNamespace seeds the deterministic transaction IDs.
var recordNamespace = uuid.MustParse("6f1c1f3e-8a2b-4b7e-9d3c-5a0e2f7b9c41")

// Processor owns the collaborators used to process an upload.
type Processor struct {
	Recognizer extractor.Recognizer
	Classifier extractor.Classifier
	Scanner    *parser.Scanner
	Store      store.RecordStore
	Mirrors    []store.Mirror
	Workers    int           // concurrent files; defaults to 4
	Timeout    time.Duration // per file; zero means none
	Log        zerolog.Logger

	Now   func() time.Time
	NewID func() string
}

// Result is what one upload produced.
type Result struct {
	Batch        models.UploadBatch
	Files        []models.FileOutcome
	Transactions []models.Transaction
}

// fileResult is one worker's output, slotted by input index.
type fileResult struct {
	outcome models.FileOutcome
	txns    []models.Transaction
}

// ProcessUpload creates a batch for docs, processes every file, stores the
// transactions and then the summary. A non-empty bank label skips
// classification and is applied to every file.
//
// Files that fail recognition contribute no transactions; the failure is
// reported in their outcome and the rest of the batch continues. Store
// failures and aggregation inconsistencies are returned.
func (p *Processor) ProcessUpload(ctx context.Context, docs []extractor.Document, bank string) (*Result, error) {
	batch := models.UploadBatch{
		UploadID:   p.newID(),
		UploadDate: p.now().UTC(),
		TotalFiles: len(docs),
	}
	log := p.Log.With().Str("upload_id", batch.UploadID).Logger()

	if err := p.Store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	log.Info().Int("files", len(docs)).Msg("batch created")

	results := p.runFiles(ctx, docs, bank)

	res := &Result{Batch: batch, Files: make([]models.FileOutcome, len(results))}
	for i, r := range results {
		res.Files[i] = r.outcome
		for seq, t := range r.txns {
			t.ID = recordID(batch.UploadID, r.outcome.Checksum, i, seq)
			t.UploadID = batch.UploadID
			res.Transactions = append(res.Transactions, t)
		}
	}

	if err := p.Store.ReplaceTransactions(ctx, batch.UploadID, res.Transactions); err != nil {
		return nil, fmt.Errorf("store transactions: %w", err)
	}
	summary := aggregate.Aggregate(batch.UploadID, res.Transactions)
	if err := p.Store.UpdateSummary(ctx, batch.UploadID, summary); err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	if err := p.verify(ctx, batch.UploadID, summary); err != nil {
		log.Error().Err(err).Msg("aggregation inconsistency")
		return nil, err
	}
	res.Batch.Summary = &summary

	for _, m := range p.Mirrors {
		if err := m.Mirror(ctx, res.Batch, res.Transactions); err != nil {
			log.Warn().Err(err).Msg("mirror failed")
		}
	}

	log.Info().
		Int("transactions", summary.TotalTransactions).
		Int("missing_info", summary.MissingInfoCount).
		Msg("batch complete")
	return res, nil
}

// verify re-reads the batch and checks the stored summary against the stored
// transactions.
func (p *Processor) verify(ctx context.Context, uploadID string, want models.BatchSummary) error {
	stored, err := p.Store.GetBatch(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("reload batch: %w", err)
	}
	if stored.Summary == nil {
		return fmt.Errorf("%w: batch %s has no stored summary", models.ErrAggregationInconsistency, uploadID)
	}
	txns, err := p.Store.ListTransactions(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("reload transactions: %w", err)
	}
	if err := aggregate.Verify(uploadID, *stored.Summary, txns); err != nil {
		return err
	}
	return aggregate.Verify(uploadID, want, txns)
}

func (p *Processor) runFiles(ctx context.Context, docs []extractor.Document, bank string) []fileResult {
	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}
	results := make([]fileResult, len(docs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range docs {
		if err := acquire(ctx, sem); err != nil {
			results[i] = p.skipFile(docs[i], err)
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.processFile(ctx, docs[i], bank)
		}(i)
	}
	wg.Wait()
	return results
}

// acquire takes a worker slot, giving up once ctx is done.
func acquire(ctx context.Context, sem chan<- struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// skipFile records a file that was never started.
func (p *Processor) skipFile(doc extractor.Document, err error) fileResult {
	res := fileResult{outcome: models.FileOutcome{
		FileName: doc.Name,
		Checksum: doc.Fingerprint(),
		Dialect:  models.DialectUnknown,
		Error:    collaboratorError("dispatch", err).Error(),
	}}
	p.logOutcome(res.outcome)
	return res
}

// processFile never fails; problems end up in the outcome.
func (p *Processor) processFile(ctx context.Context, doc extractor.Document, bank string) (res fileResult) {
	res.outcome = models.FileOutcome{
		FileName: doc.Name,
		Checksum: doc.Fingerprint(),
		Dialect:  models.DialectUnknown,
	}
	defer func() {
		if rec := recover(); rec != nil {
			res.txns = nil
			res.outcome.Error = fmt.Sprintf("internal error: %v", rec)
		}
		p.logOutcome(res.outcome)
	}()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	text, err := p.Recognizer.Recognize(ctx, doc)
	if err != nil {
		res.outcome.Error = collaboratorError("recognize", err).Error()
		return res
	}

	label := bank
	if label == "" {
		dialect, err := p.Classifier.Classify(ctx, doc, text)
		if err != nil {
			res.outcome.Error = collaboratorError("classify", err).Error()
			return res
		}
		label = string(dialect)
	}

	fr := p.Scanner.Process(text, label)
	if !fr.Recognized {
		res.outcome.Error = fmt.Errorf("%w: %q", models.ErrDialectUnrecognized, label).Error()
	}
	for i := range fr.Transactions {
		fr.Transactions[i].SourceFile = doc.Name
	}
	res.txns = fr.Transactions
	res.outcome.Dialect = fr.Dialect
	res.outcome.Recognized = fr.Recognized
	res.outcome.FieldsMatched = fr.FieldsMatched
	res.outcome.Transactions = len(fr.Transactions)
	res.outcome.Valid = fr.Valid()
	res.outcome.Invalid = len(fr.Transactions) - fr.Valid()
	res.outcome.DebugLines = fr.DebugLines
	return res
}

func (p *Processor) logOutcome(o models.FileOutcome) {
	ev := p.Log.Info()
	if o.Error != "" {
		ev = p.Log.Warn().Str("error", o.Error)
	}
	ev.Str("file", o.FileName).
		Str("dialect", string(o.Dialect)).
		Int("fields_matched", o.FieldsMatched).
		Int("transactions", o.Transactions).
		Int("valid", o.Valid).
		Int("invalid", o.Invalid).
		Msg("file processed")
}

func collaboratorError(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s cancelled: %v", models.ErrCollaboratorFailure, stage, err)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrCollaboratorFailure, stage, err)
}

// recordID derives a transaction ID from the batch, the file contents and the
// transaction's position, so rewriting a batch yields the same IDs.
func recordID(uploadID, checksum string, file, seq int) string {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%s/%s/%d/%d", uploadID, checksum, file, seq))).String()
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}
