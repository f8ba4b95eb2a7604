package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// Memory is an in-memory RecordStore, safe for concurrent use.
// Data is lost on restart; use SQLite for persistence.
type Memory struct {
	mu      sync.RWMutex
	batches map[string]models.UploadBatch
	txns    map[string][]models.Transaction
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		batches: make(map[string]models.UploadBatch),
		txns:    make(map[string][]models.Transaction),
	}
}

// CreateBatch implements RecordStore.
func (m *Memory) CreateBatch(ctx context.Context, batch models.UploadBatch) error {
	if batch.UploadID == "" {
		return fmt.Errorf("upload ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.batches[batch.UploadID]; exists {
		return nil
	}
	m.batches[batch.UploadID] = batch.Clone()
	return nil
}

// ReplaceTransactions implements RecordStore.
func (m *Memory) ReplaceTransactions(ctx context.Context, uploadID string, txns []models.Transaction) error {
	if err := checkOwnership(uploadID, txns); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.batches[uploadID]; !exists {
		return notFound(uploadID)
	}
	stored := make([]models.Transaction, len(txns))
	for i, t := range txns {
		stored[i] = t.Clone()
	}
	m.txns[uploadID] = stored
	return nil
}

// UpdateSummary implements RecordStore.
func (m *Memory) UpdateSummary(ctx context.Context, uploadID string, summary models.BatchSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, exists := m.batches[uploadID]
	if !exists {
		return notFound(uploadID)
	}
	batch.Summary = &summary
	m.batches[uploadID] = batch.Clone()
	return nil
}

// GetBatch implements RecordStore.
func (m *Memory) GetBatch(ctx context.Context, uploadID string) (*models.UploadBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	batch, exists := m.batches[uploadID]
	if !exists {
		return nil, notFound(uploadID)
	}
	out := batch.Clone()
	return &out, nil
}

// ListBatches implements RecordStore.
func (m *Memory) ListBatches(ctx context.Context) ([]models.UploadBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.UploadBatch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].UploadID < out[j].UploadID
		}
		return out[i].UploadDate.After(out[j].UploadDate)
	})
	return out, nil
}

// ListTransactions implements RecordStore.
func (m *Memory) ListTransactions(ctx context.Context, uploadID string) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.batches[uploadID]; !exists {
		return nil, notFound(uploadID)
	}
	stored := m.txns[uploadID]
	out := make([]models.Transaction, len(stored))
	for i, t := range stored {
		out[i] = t.Clone()
	}
	return out, nil
}

// Close implements RecordStore.
func (m *Memory) Close() error { return nil }

var _ RecordStore = (*Memory)(nil)
