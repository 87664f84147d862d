package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/bububa/smart-shop/components"
)

// Record is the audit entry kept for every extraction
type Record struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Model     string               `json:"model,omitempty"`
	Usage     *components.ApiUsage `json:"usage,omitempty"`
	Receipt   *Receipt             `json:"receipt"`
}

// NewRecord wraps r into a Record with a fresh ID
func NewRecord(r *Receipt) *Record {
	return &Record{
		ID:        xid.New().String(),
		CreatedAt: time.Now().UTC(),
		Model:     r.Model,
		Usage:     r.Usage,
		Receipt:   r,
	}
}

// Name returns the archive object name
func (r *Record) Name() string {
	return "receipt_" + r.ID + ".json"
}

// Archive stores extraction records
type Archive interface {
	// Put stores rec and returns its location
	Put(ctx context.Context, rec *Record) (string, error)
}

// Dir archives records as JSON files in a local directory
type Dir struct {
	dir string
}

var _ Archive = (*Dir)(nil)

// NewDir returns a directory archive
func NewDir(dir string) *Dir {
	return &Dir{dir: dir}
}

// Put implements Archive
func (d *Dir) Put(ctx context.Context, rec *Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	bs, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(d.dir, rec.Name())
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		return "", fmt.Errorf("write receipt archive: %w", err)
	}
	return path, nil
}

// Discard drops records
type Discard struct{}

var _ Archive = Discard{}

// Put implements Archive
func (Discard) Put(context.Context, *Record) (string, error) {
	return "", nil
}
