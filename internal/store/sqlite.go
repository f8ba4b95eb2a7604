package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02 15:04:05.000000000"

const schemaSQL = `
-- extraction_batches: one row per upload
CREATE TABLE IF NOT EXISTS extraction_batches (
    upload_id TEXT PRIMARY KEY,
    upload_date TEXT NOT NULL,
    total_files INTEGER NOT NULL,
    extraction_summary TEXT
);

-- extracted_transactions: every committed or flushed receipt record
CREATE TABLE IF NOT EXISTS extracted_transactions (
    id TEXT PRIMARY KEY,
    upload_id TEXT NOT NULL REFERENCES extraction_batches(upload_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    source_file TEXT,
    dialect TEXT,
    transaction_id TEXT,
    date TEXT,
    time TEXT,
    amount TEXT,
    currency TEXT,
    description TEXT,
    extras TEXT,
    missing_fields TEXT
);

CREATE INDEX IF NOT EXISTS idx_extraction_batches_date ON extraction_batches(upload_date);
CREATE INDEX IF NOT EXISTS idx_extracted_transactions_upload ON extracted_transactions(upload_id, seq);
`

// SQLite is a RecordStore backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// CreateBatch implements RecordStore.
func (s *SQLite) CreateBatch(ctx context.Context, batch models.UploadBatch) error {
	if batch.UploadID == "" {
		return fmt.Errorf("upload ID is required")
	}
	summary, err := encodeSummary(batch.Summary)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extraction_batches (upload_id, upload_date, total_files, extraction_summary)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(upload_id) DO NOTHING`,
		batch.UploadID, batch.UploadDate.UTC().Format(timeLayout), batch.TotalFiles, summary)
	if err != nil {
		return fmt.Errorf("creating batch %s: %w", batch.UploadID, err)
	}
	return nil
}

// ReplaceTransactions implements RecordStore.
func (s *SQLite) ReplaceTransactions(ctx context.Context, uploadID string, txns []models.Transaction) error {
	if err := checkOwnership(uploadID, txns); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM extraction_batches WHERE upload_id = ?`, uploadID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(uploadID)
	}
	if err != nil {
		return fmt.Errorf("checking batch %s: %w", uploadID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_transactions WHERE upload_id = ?`, uploadID); err != nil {
		return fmt.Errorf("clearing transactions for %s: %w", uploadID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO extracted_transactions
		(id, upload_id, seq, source_file, dialect, transaction_id, date, time, amount, currency, description, extras, missing_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txns {
		extras, err := encodeJSON(t.Extras)
		if err != nil {
			return err
		}
		var missing sql.NullString
		if t.Info != nil {
			if missing, err = encodeJSON(t.Info.MissingFields); err != nil {
				return err
			}
		}
		var amount sql.NullString
		if t.Amount != nil {
			amount = sql.NullString{String: t.Amount.String(), Valid: true}
		}
		var currency sql.NullString
		if t.Currency != nil {
			currency = sql.NullString{String: string(*t.Currency), Valid: true}
		}
		_, err = stmt.ExecContext(ctx, t.ID, uploadID, i, t.SourceFile, string(t.Dialect),
			nullable(t.TransactionID), nullable(t.Date), nullable(t.Time), amount, currency,
			nullable(t.Description), extras, missing)
		if err != nil {
			return fmt.Errorf("inserting transaction %d of %s: %w", i, uploadID, err)
		}
	}
	return tx.Commit()
}

// UpdateSummary implements RecordStore.
func (s *SQLite) UpdateSummary(ctx context.Context, uploadID string, summary models.BatchSummary) error {
	encoded, err := encodeSummary(&summary)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_batches SET extraction_summary = ? WHERE upload_id = ?`, encoded, uploadID)
	if err != nil {
		return fmt.Errorf("updating summary for %s: %w", uploadID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(uploadID)
	}
	return nil
}

// GetBatch implements RecordStore.
func (s *SQLite) GetBatch(ctx context.Context, uploadID string) (*models.UploadBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT upload_id, upload_date, total_files, extraction_summary
		FROM extraction_batches WHERE upload_id = ?`, uploadID)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(uploadID)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBatches implements RecordStore.
func (s *SQLite) ListBatches(ctx context.Context) ([]models.UploadBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT upload_id, upload_date, total_files, extraction_summary
		FROM extraction_batches ORDER BY upload_date DESC, upload_id`)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var out []models.UploadBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListTransactions implements RecordStore.
func (s *SQLite) ListTransactions(ctx context.Context, uploadID string) ([]models.Transaction, error) {
	if _, err := s.GetBatch(ctx, uploadID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, upload_id, source_file, dialect, transaction_id, date, time, amount, currency, description, extras, missing_fields
		FROM extracted_transactions WHERE upload_id = ? ORDER BY seq`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", uploadID, err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var (
			t                               models.Transaction
			sourceFile, dialect             sql.NullString
			id, date, tm, amount, cur, desc sql.NullString
			extras, missing                 sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UploadID, &sourceFile, &dialect, &id, &date, &tm, &amount, &cur, &desc, &extras, &missing); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.SourceFile = sourceFile.String
		t.Dialect = models.Dialect(dialect.String)
		t.TransactionID, t.Date, t.Time, t.Description = ptr(id), ptr(date), ptr(tm), ptr(desc)
		if amount.Valid {
			d, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("stored amount %q: %w", amount.String, err)
			}
			t.Amount = &d
		}
		if cur.Valid {
			c := models.Currency(cur.String)
			t.Currency = &c
		}
		if extras.Valid {
			if err := json.Unmarshal([]byte(extras.String), &t.Extras); err != nil {
				return nil, fmt.Errorf("stored extras: %w", err)
			}
		}
		if missing.Valid {
			info := &models.TransactionInfo{}
			if err := json.Unmarshal([]byte(missing.String), &info.MissingFields); err != nil {
				return nil, fmt.Errorf("stored missing fields: %w", err)
			}
			t.Info = info
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close implements RecordStore.
func (s *SQLite) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (models.UploadBatch, error) {
	var (
		b       models.UploadBatch
		date    string
		summary sql.NullString
	)
	if err := row.Scan(&b.UploadID, &date, &b.TotalFiles, &summary); err != nil {
		return b, err
	}
	t, err := time.Parse(timeLayout, date)
	if err != nil {
		return b, fmt.Errorf("stored upload_date %q: %w", date, err)
	}
	b.UploadDate = t.UTC()
	if summary.Valid {
		var s models.BatchSummary
		if err := json.Unmarshal([]byte(summary.String), &s); err != nil {
			return b, fmt.Errorf("stored summary for %s: %w", b.UploadID, err)
		}
		b.Summary = &s
	}
	return b, nil
}

func encodeSummary(s *models.BatchSummary) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	return encodeJSON(s)
}

func encodeJSON(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case map[string]string:
		if x == nil {
			return sql.NullString{}, nil
		}
	case []models.Field:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding %T: %w", v, err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

var _ RecordStore = (*SQLite)(nil)
