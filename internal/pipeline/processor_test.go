package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/extractor"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/store"
)

const abaReceipt = "ABA BANK\nTrx. ID: 123456\nTransaction date: Jan 5, 2024 10:00 AM\n50.00 USD"

// textOCR returns the document bytes as text, or the error keyed by file name.
type textOCR struct {
	fail map[string]error
}

func (textOCR) Name() string { return "text" }

func (o textOCR) Recognize(ctx context.Context, doc extractor.Document) (string, error) {
	if err := o.fail[doc.Name]; err != nil {
		return "", err
	}
	return string(doc.Data), nil
}

// countingStore records how often each write happens.
type countingStore struct {
	*store.Memory
	mu       sync.Mutex
	creates  int
	replaces int
	updates  int
	corrupt  bool
}

func (s *countingStore) CreateBatch(ctx context.Context, b models.UploadBatch) error {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return s.Memory.CreateBatch(ctx, b)
}

func (s *countingStore) ReplaceTransactions(ctx context.Context, id string, txns []models.Transaction) error {
	s.mu.Lock()
	s.replaces++
	s.mu.Unlock()
	return s.Memory.ReplaceTransactions(ctx, id, txns)
}

func (s *countingStore) UpdateSummary(ctx context.Context, id string, sum models.BatchSummary) error {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	if s.corrupt {
		sum.TotalTransactions++
	}
	return s.Memory.UpdateSummary(ctx, id, sum)
}

type recordingMirror struct {
	batches []models.UploadBatch
	err     error
}

func (m *recordingMirror) Mirror(_ context.Context, b models.UploadBatch, _ []models.Transaction) error {
	m.batches = append(m.batches, b)
	return m.err
}

func newProcessor(st store.RecordStore, ocr extractor.Recognizer, buf *bytes.Buffer) *Processor {
	return &Processor{
		Recognizer: ocr,
		Classifier: extractor.NewKeywordClassifier(),
		Scanner:    parser.NewScanner(parser.FlushPartial),
		Store:      st,
		Workers:    2,
		Log:        zerolog.New(buf),
		Now:        func() time.Time { return time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC) },
		NewID:      func() string { return "batch-1" },
	}
}

func doc(name, text string) extractor.Document {
	return extractor.Document{Name: name, ContentType: "text/plain", Data: []byte(text)}
}

func TestProcessUploadHappyPath(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	var logs bytes.Buffer
	p := newProcessor(st, textOCR{}, &logs)
	mirror := &recordingMirror{}
	p.Mirrors = []store.Mirror{mirror}

	docs := []extractor.Document{
		doc("a.txt", abaReceipt),
		doc("b.txt", "ABA BANK\nTrx. ID: 777\nTransaction date: Feb 1, 2024\n10,000 KHR"),
		doc("c.txt", "ABA BANK\nTrx. ID: 888\n5.00 USD"),
	}
	res, err := p.ProcessUpload(context.Background(), docs, "")
	require.NoError(t, err)

	assert.Equal(t, 1, st.creates)
	assert.Equal(t, 1, st.replaces)
	assert.Equal(t, 1, st.updates)

	assert.Equal(t, "batch-1", res.Batch.UploadID)
	assert.Equal(t, 3, res.Batch.TotalFiles)
	require.Len(t, res.Files, 3)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		assert.Equal(t, name, res.Files[i].FileName)
		assert.Equal(t, models.DialectABA, res.Files[i].Dialect)
	}
	assert.Equal(t, 1, res.Files[2].Invalid)

	require.Len(t, res.Transactions, 3)
	for _, txn := range res.Transactions {
		assert.Equal(t, "batch-1", txn.UploadID)
		assert.NotEmpty(t, txn.ID)
	}
	assert.Equal(t, "b.txt", res.Transactions[1].SourceFile)

	sum := res.Batch.Summary
	require.NotNil(t, sum)
	assert.Equal(t, 3, sum.TotalTransactions)
	assert.Equal(t, 1, sum.MissingInfoCount)
	assert.True(t, sum.TotalAmountByCurrency[models.USD].Equal(decimal.RequireFromString("55")))
	assert.True(t, sum.TotalAmountByCurrency[models.KHR].Equal(decimal.RequireFromString("10000")))

	stored, err := st.GetBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, 3, stored.Summary.TotalTransactions)

	require.Len(t, mirror.batches, 1)
	assert.Contains(t, logs.String(), `"message":"file processed"`)
	assert.Contains(t, logs.String(), `"fields_matched"`)
}

func TestProcessUploadIsolatesCollaboratorFailure(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	var logs bytes.Buffer
	ocr := textOCR{fail: map[string]error{"broken.png": errors.New("engine crashed")}}
	p := newProcessor(st, ocr, &logs)

	docs := []extractor.Document{
		doc("good.txt", abaReceipt),
		doc("broken.png", ""),
	}
	res, err := p.ProcessUpload(context.Background(), docs, "")
	require.NoError(t, err)

	assert.Empty(t, res.Files[0].Error)
	assert.Contains(t, res.Files[1].Error, models.ErrCollaboratorFailure.Error())
	assert.Contains(t, res.Files[1].Error, "engine crashed")
	assert.Equal(t, 0, res.Files[1].Transactions)
	assert.Len(t, res.Transactions, 1)
	assert.Equal(t, 1, res.Batch.Summary.TotalTransactions)
}

// waitingOCR blocks every call until its context is done.
type waitingOCR struct {
	calls atomic.Int32
}

func (*waitingOCR) Name() string { return "waiting" }

func (o *waitingOCR) Recognize(ctx context.Context, _ extractor.Document) (string, error) {
	o.calls.Add(1)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestProcessUploadCancelledBeforeDispatch(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	var logs bytes.Buffer
	ocr := &waitingOCR{}
	p := newProcessor(st, ocr, &logs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []extractor.Document{doc("a.txt", abaReceipt), doc("b.txt", abaReceipt), doc("c.txt", abaReceipt)}
	res, err := p.ProcessUpload(ctx, docs, "")
	require.NoError(t, err)

	assert.Zero(t, ocr.calls.Load())
	require.Len(t, res.Files, 3)
	for i, f := range res.Files {
		assert.Equal(t, docs[i].Name, f.FileName)
		assert.Contains(t, f.Error, models.ErrCollaboratorFailure.Error())
		assert.Contains(t, f.Error, "cancelled")
		assert.NotEmpty(t, f.Checksum)
	}
	assert.Empty(t, res.Transactions)
	assert.Equal(t, 3, strings.Count(logs.String(), `"file processed"`))
}

func TestProcessUploadCancelledWhileWorkersBusy(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	ocr := &waitingOCR{}
	p := newProcessor(st, ocr, &bytes.Buffer{})
	p.Workers = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	docs := make([]extractor.Document, 5)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("%d.txt", i), abaReceipt)
	}

	done := make(chan struct{})
	var res *Result
	go func() {
		defer close(done)
		var err error
		res, err = p.ProcessUpload(ctx, docs, "")
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not return after cancellation")
	}

	require.NotNil(t, res)
	require.Len(t, res.Files, len(docs))
	for _, f := range res.Files {
		assert.Contains(t, f.Error, "cancelled")
	}
	assert.Empty(t, res.Transactions)
	assert.Less(t, int(ocr.calls.Load()), len(docs))
}

func TestProcessUploadUnrecognizedDialect(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	p := newProcessor(st, textOCR{}, &bytes.Buffer{})

	res, err := p.ProcessUpload(context.Background(), []extractor.Document{doc("x.txt", "hello world")}, "")
	require.NoError(t, err)

	assert.Equal(t, models.DialectUnknown, res.Files[0].Dialect)
	assert.False(t, res.Files[0].Recognized)
	assert.Contains(t, res.Files[0].Error, models.ErrDialectUnrecognized.Error())
	assert.Empty(t, res.Transactions)
	assert.Equal(t, 0, res.Batch.Summary.TotalTransactions)
}

func TestProcessUploadBankLabelSkipsClassifier(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	p := newProcessor(st, textOCR{}, &bytes.Buffer{})
	p.Classifier = extractor.Unavailable{Engine: "classifier", Reason: errors.New("down")}

	text := "Trx. ID: 123456\nTransaction date: Jan 5, 2024\n50.00 USD"
	res, err := p.ProcessUpload(context.Background(), []extractor.Document{doc("a.txt", text)}, "ABA")
	require.NoError(t, err)
	assert.Equal(t, models.DialectABA, res.Files[0].Dialect)
	assert.Len(t, res.Transactions, 1)
}

func TestProcessUploadPreservesInputOrder(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	p := newProcessor(st, textOCR{}, &bytes.Buffer{})
	p.Workers = 8

	var docs []extractor.Document
	for i := 0; i < 20; i++ {
		docs = append(docs, doc(fmt.Sprintf("r%02d.txt", i),
			fmt.Sprintf("ABA BANK\nTrx. ID: %d\nTransaction date: Jan 5, 2024\n1.00 USD", 1000+i)))
	}
	res, err := p.ProcessUpload(context.Background(), docs, "")
	require.NoError(t, err)

	require.Len(t, res.Transactions, 20)
	for i, txn := range res.Transactions {
		assert.Equal(t, fmt.Sprint(1000+i), *txn.TransactionID)
		assert.Equal(t, docs[i].Name, res.Files[i].FileName)
	}
	stored, err := st.ListTransactions(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, res.Transactions, stored)
}

func TestProcessUploadDetectsInconsistency(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory(), corrupt: true}
	var logs bytes.Buffer
	p := newProcessor(st, textOCR{}, &logs)
	mirror := &recordingMirror{}
	p.Mirrors = []store.Mirror{mirror}

	_, err := p.ProcessUpload(context.Background(), []extractor.Document{doc("a.txt", abaReceipt)}, "")
	require.ErrorIs(t, err, models.ErrAggregationInconsistency)
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Empty(t, mirror.batches)
}

func TestProcessUploadMirrorFailureIsLogged(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	var logs bytes.Buffer
	p := newProcessor(st, textOCR{}, &logs)
	p.Mirrors = []store.Mirror{&recordingMirror{err: errors.New("es down")}}

	_, err := p.ProcessUpload(context.Background(), []extractor.Document{doc("a.txt", abaReceipt)}, "")
	require.NoError(t, err)
	assert.True(t, strings.Contains(logs.String(), "es down"))
}

func TestRecordIDIsDeterministic(t *testing.T) {
	a := recordID("batch-1", "abc", 0, 1)
	assert.Equal(t, a, recordID("batch-1", "abc", 0, 1))
	assert.NotEqual(t, a, recordID("batch-1", "abc", 0, 2))
	assert.NotEqual(t, a, recordID("batch-2", "abc", 0, 1))
}
