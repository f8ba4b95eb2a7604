package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

const esFlushBytes = 2048

// ElasticsearchMirror indexes finished batches so receipts can be searched.
type ElasticsearchMirror struct {
	client *elasticsearch.Client
	index  string
	log    zerolog.Logger
}

// searchDoc is a transaction flattened with its batch metadata.
type searchDoc struct {
	models.Transaction
	UploadDate time.Time `json:"upload_date"`
	Invalid    bool      `json:"invalid"`
}

// NewElasticsearchMirror builds a client for addresses. Throttled and
// unavailable responses are retried with exponential backoff.
func NewElasticsearchMirror(addresses []string, index string, log zerolog.Logger) (*ElasticsearchMirror, error) {
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     addresses,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &ElasticsearchMirror{client: es, index: index, log: log}, nil
}

// Mirror implements Mirror. Documents are keyed by transaction ID so a
// repeated mirror of the same batch overwrites rather than duplicates.
func (e *ElasticsearchMirror) Mirror(ctx context.Context, batch models.UploadBatch, txns []models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         e.index,
		FlushBytes:    esFlushBytes,
		Client:        e.client,
		NumWorkers:    2,
		FlushInterval: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating bulk indexer: %w", err)
	}

	if res, err := e.client.Indices.Create(e.index); err != nil {
		e.log.Debug().Err(err).Str("index", e.index).Msg("index create failed")
	} else {
		res.Body.Close()
	}

	for _, t := range txns {
		data, err := json.Marshal(searchDoc{Transaction: t, UploadDate: batch.UploadDate, Invalid: t.Invalid()})
		if err != nil {
			return fmt.Errorf("encoding transaction %s: %w", t.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: t.ID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				ev := e.log.Warn().Str("upload_id", batch.UploadID).Str("doc", item.DocumentID)
				if err != nil {
					ev.Err(err).Msg("failed to index transaction")
					return
				}
				ev.Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("failed to index transaction")
			},
		})
		if err != nil {
			return fmt.Errorf("queueing transaction %s: %w", t.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flushing bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d transactions", stats.NumFailed, len(txns))
	}
	e.log.Info().Str("upload_id", batch.UploadID).Uint64("indexed", stats.NumFlushed).Msg("batch mirrored to elasticsearch")
	return nil
}

var _ Mirror = (*ElasticsearchMirror)(nil)
