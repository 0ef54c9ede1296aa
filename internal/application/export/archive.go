package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"
)

// Content types of the rendered exports
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrArchiveDisabled is returned when no object store is configured
var ErrArchiveDisabled = errors.New("export archive is not configured")

// ObjectStore is the slice of object storage the archiver needs
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Link points at an archived export
type Link struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int       `json:"size"`
}

// Format selects how a table is rendered
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", defaulting to csv
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Archiver renders tables and uploads them under a dated key
type Archiver struct {
	store  ObjectStore
	prefix string
	expiry time.Duration
	now    func() time.Time
}

// NewArchiver returns an archiver; a nil store yields ErrArchiveDisabled on use
func NewArchiver(store ObjectStore, prefix string, expiry time.Duration) *Archiver {
	return &Archiver{store: store, prefix: prefix, expiry: expiry, now: time.Now}
}

// Enabled reports whether uploads are possible
func (a *Archiver) Enabled() bool {
	return a != nil && a.store != nil
}

// Archive renders the table in the given format and uploads it
func (a *Archiver) Archive(ctx context.Context, name string, t Table, format Format) (Link, error) {
	if !a.Enabled() {
		return Link{}, ErrArchiveDisabled
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case FormatXLSX:
		var buf bytes.Buffer
		if err := t.WriteXLSX(&buf); err != nil {
			return Link{}, err
		}
		data, contentType = buf.Bytes(), ContentTypeXLSX
	default:
		data, contentType = []byte(t.CSVAllQuoted()), ContentTypeCSV
		format = FormatCSV
	}

	key := a.Key(name, format)
	if err := a.store.Upload(ctx, key, data, contentType); err != nil {
		return Link{}, fmt.Errorf("upload %s: %w", key, err)
	}
	url, expiresAt, err := a.store.GenerateDownloadURL(ctx, key, a.expiry)
	if err != nil {
		return Link{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return Link{Key: key, URL: url, ExpiresAt: expiresAt, Size: len(data)}, nil
}

// Key builds prefix/YYYY/MM/DD/name-HHMMSS.ext
func (a *Archiver) Key(name string, format Format) string {
	now := a.now().UTC()
	file := fmt.Sprintf("%s-%s.%s", name, now.Format("150405"), format)
	return path.Join(a.prefix, now.Format("2006/01/02"), file)
}
