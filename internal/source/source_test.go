package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://receipts/2024/jan.pdf", "receipts", "2024/jan.pdf", false},
		{"gs://receipts/2024/", "receipts", "2024/", false},
		{"gs://receipts", "receipts", "", false},
		{"gs:///x.pdf", "", "", true},
		{"s3://receipts/x.pdf", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}
	write("b.txt", "Trx. ID: 2")
	write("a.TXT", "Trx. ID: 1")
	write("notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
	single := write("c.pdf", "%PDF-1.4")

	var l Loader
	defer l.Close()

	docs, err := l.Load(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a.TXT", docs[0].Name)
	assert.Equal(t, "b.txt", docs[1].Name)
	assert.Equal(t, "c.pdf", docs[2].Name)
	assert.Equal(t, "Trx. ID: 2", string(docs[1].Data))

	docs, err = l.Load(context.Background(), []string{single})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "application/pdf", docs[0].ContentType)

	_, err = l.Load(context.Background(), []string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}
