// Package store persists upload batches and their extracted transactions.
package store

import (
	"context"
	"fmt"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// RecordStore is the persistence contract for batches and transactions.
//
// CreateBatch is idempotent: creating an existing batch is a no-op and never
// overwrites it. ReplaceTransactions sets the complete transaction list of a
// batch, so retrying it cannot double count. UpdateSummary is the only way a
// summary is written.
type RecordStore interface {
	CreateBatch(ctx context.Context, batch models.UploadBatch) error
	ReplaceTransactions(ctx context.Context, uploadID string, txns []models.Transaction) error
	UpdateSummary(ctx context.Context, uploadID string, summary models.BatchSummary) error
	GetBatch(ctx context.Context, uploadID string) (*models.UploadBatch, error)
	// ListBatches returns every batch, newest first.
	ListBatches(ctx context.Context) ([]models.UploadBatch, error)
	// ListTransactions returns a batch's transactions in insertion order.
	ListTransactions(ctx context.Context, uploadID string) ([]models.Transaction, error)
	Close() error
}

// Mirror receives a copy of every finished batch, for search or analytics.
// Mirror failures never affect the stored batch.
type Mirror interface {
	Mirror(ctx context.Context, batch models.UploadBatch, txns []models.Transaction) error
}

func checkOwnership(uploadID string, txns []models.Transaction) error {
	for i, t := range txns {
		if t.UploadID != uploadID {
			return fmt.Errorf("transaction %d has upload_id %q, want %q", i, t.UploadID, uploadID)
		}
	}
	return nil
}

func notFound(uploadID string) error {
	return fmt.Errorf("%w: %s", models.ErrBatchNotFound, uploadID)
}
