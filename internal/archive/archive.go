// Package archive keeps a copy of the exact markdown delivered by each send
// run, either in S3 or in a local directory.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Config selects the archive backend. An empty bucket and dir disables
// archiving.
type Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	Dir    string `yaml:"dir"`
}

// Enabled reports whether any backend is configured.
func (c Config) Enabled() bool { return c.Bucket != "" || c.Dir != "" }

// Key is the object key of a run: <prefix>/<issueId>/<runId>.md.
func Key(prefix, issueID, runID string) string {
	return path.Join(strings.Trim(prefix, "/"), issueID, runID+".md")
}

// Dir archives into a local directory tree.
type Dir struct {
	root   string
	prefix string
}

// NewDir creates a directory archive rooted at root.
func NewDir(root, prefix string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Dir{root: root, prefix: prefix}, nil
}

// Archive writes body and returns the file path.
func (d *Dir) Archive(_ context.Context, issueID, runID string, body []byte) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(Key(d.prefix, issueID, runID)))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return p, nil
}

// Archiver stores one run body and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, issueID, runID string, body []byte) (string, error)
}

// New builds the configured backend, S3 first.
func New(ctx context.Context, cfg Config) (Archiver, error) {
	if cfg.Bucket != "" {
		s, err := NewS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	d, err := NewDir(cfg.Dir, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	return d, nil
}
