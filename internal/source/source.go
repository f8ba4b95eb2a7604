// Package source loads receipt files for the scan command from local paths
// and Google Cloud Storage.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/extractor"
)

// receiptExts are the file extensions picked up when a directory or bucket
// prefix is scanned.
var receiptExts = map[string]bool{
	".txt": true, ".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// Loader reads documents. The storage client is created on first use of a
// gs:// location.
type Loader struct {
	CredentialsFile string

	client *storage.Client
}

// Close releases the storage client, if one was opened.
func (l *Loader) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// Load reads every location in order. A location is a file, a directory
// (its receipt files, not recursive), a gs://bucket/object URI, or a
// gs://bucket/prefix/ URI ending in a slash.
func (l *Loader) Load(ctx context.Context, locations []string) ([]extractor.Document, error) {
	var docs []extractor.Document
	for _, loc := range locations {
		var (
			got []extractor.Document
			err error
		)
		if strings.HasPrefix(loc, "gs://") {
			got, err = l.loadGCS(ctx, loc)
		} else {
			got, err = loadLocal(loc)
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, got...)
	}
	return docs, nil
}

func loadLocal(p string) ([]extractor.Document, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", p, err)
	}
	if !info.IsDir() {
		doc, err := readLocal(p)
		if err != nil {
			return nil, err
		}
		return []extractor.Document{doc}, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", p, err)
	}
	var docs []extractor.Document
	for _, e := range entries {
		if e.IsDir() || !isReceiptFile(e.Name()) {
			continue
		}
		doc, err := readLocal(filepath.Join(p, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readLocal(p string) (extractor.Document, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return extractor.Document{}, fmt.Errorf("read %q: %w", p, err)
	}
	return extractor.Document{
		Name:        filepath.Base(p),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p))),
		Data:        data,
	}, nil
}

func isReceiptFile(name string) bool {
	return receiptExts[strings.ToLower(path.Ext(name))]
}

// ParseGCSURI splits gs://bucket/object into its bucket and object names.
// The object is empty for a bare bucket.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], parts[1], nil
}

func (l *Loader) storageClient(ctx context.Context) (*storage.Client, error) {
	if l.client != nil {
		return l.client, nil
	}
	var opts []option.ClientOption
	if l.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(l.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	l.client = client
	return client, nil
}

func (l *Loader) loadGCS(ctx context.Context, uri string) ([]extractor.Document, error) {
	bucketName, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := l.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	bkt := client.Bucket(bucketName)

	if object != "" && !strings.HasSuffix(object, "/") {
		doc, err := readObject(ctx, bkt.Object(object))
		if err != nil {
			return nil, err
		}
		return []extractor.Document{doc}, nil
	}

	var names []string
	it := bkt.Objects(ctx, &storage.Query{Prefix: object})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", uri, err)
		}
		if isReceiptFile(attrs.Name) {
			names = append(names, attrs.Name)
		}
	}
	sort.Strings(names)

	docs := make([]extractor.Document, 0, len(names))
	for _, name := range names {
		doc, err := readObject(ctx, bkt.Object(name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readObject(ctx context.Context, obj *storage.ObjectHandle) (extractor.Document, error) {
	r, err := obj.NewReader(ctx)
	if err != nil {
		return extractor.Document{}, fmt.Errorf("open GCS object reader %q: %w", obj.ObjectName(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return extractor.Document{}, fmt.Errorf("read GCS object %q: %w", obj.ObjectName(), err)
	}
	return extractor.Document{
		Name:        path.Base(obj.ObjectName()),
		ContentType: r.Attrs.ContentType,
		Data:        data,
	}, nil
}
