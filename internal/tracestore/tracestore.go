// Package tracestore writes each pipeline run's stage-by-stage trace
// files to disk and, when configured, mirrors the completed run
// directory to a GCS bucket for long-term audit retention. This
// archival behavior is additive — spec.md never requires it, and
// nothing downstream of a run depends on the mirror succeeding.
package tracestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Writer writes a single run's trace files under root/runID/files/filename
// and, when gcsBucket is non-empty, mirrors a completed run directory
// into that bucket under a matching object prefix.
type Writer struct {
	root      string
	gcsBucket string
}

// New builds a Writer rooted at root. An empty gcsBucket disables GCS
// archival entirely — ArchiveRun becomes a no-op.
func New(root, gcsBucket string) *Writer {
	return &Writer{root: root, gcsBucket: gcsBucket}
}

// FileDir returns the directory a single file's trace artifacts for
// run runID live under.
func (w *Writer) FileDir(runID, filename string) string {
	return filepath.Join(w.root, runID, "files", filename)
}

// RunDir returns the root directory for run runID, where manifest.json
// and summary.json live (spec §3, §4.10) — one level up from any
// individual file's FileDir.
func (w *Writer) RunDir(runID string) string {
	return filepath.Join(w.root, runID)
}

// WriteText writes content to name inside dir, creating dir if needed.
func (w *Writer) WriteText(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tracestore: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("tracestore: write %s: %w", path, err)
	}
	return nil
}

// WriteJSON marshals v as indented JSON and writes it to name inside dir.
func (w *Writer) WriteJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("tracestore: marshal %s: %w", name, err)
	}
	return w.WriteText(dir, name, string(data))
}

// ArchiveRun mirrors root/runID to gs://gcsBucket/runID/... when GCS
// archival is configured. A mirror failure is reported but never
// undoes or invalidates the on-disk trace the pipeline already wrote
// and already used to compute a verdict.
func (w *Writer) ArchiveRun(ctx context.Context, runID string) error {
	if w.gcsBucket == "" {
		return nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("tracestore: gcs client: %w", err)
	}
	defer client.Close()

	bucket := client.Bucket(w.gcsBucket)
	runDir := filepath.Join(w.root, runID)

	return filepath.WalkDir(runDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		objectName := filepath.ToSlash(rel)
		return w.uploadObject(ctx, bucket, path, strings.TrimPrefix(objectName, "/"))
	})
}

func (w *Writer) uploadObject(ctx context.Context, bucket *storage.BucketHandle, localPath, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("tracestore: open %s: %w", localPath, err)
	}
	defer f.Close()

	obj := bucket.Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(obj, f); err != nil {
		_ = obj.Close()
		return fmt.Errorf("tracestore: upload %s: %w", objectName, err)
	}
	return obj.Close()
}
