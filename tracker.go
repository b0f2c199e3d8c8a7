package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// FileTracker remembers when each file was last processed so unchanged files
// can be skipped on later runs. State is a JSON map of file path to mtime in
// seconds, kept human-inspectable on purpose. Every mutation rewrites the
// whole file immediately, so an interrupted run loses none of its recorded
// progress. Not safe for concurrent mutation.
type FileTracker struct {
	log     *slog.Logger
	path    string
	tracked map[string]float64
}

// NewFileTracker loads prior state from path. A missing file starts empty; a
// corrupt file logs a warning and also starts empty, which at worst causes
// files to be reprocessed (the store's dedup keeps the output stable).
func NewFileTracker(log *slog.Logger, path string) (*FileTracker, error) {
	t := &FileTracker{
		log:     log,
		path:    path,
		tracked: make(map[string]float64),
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no tracker file found, starting fresh", "path", path)
			return t, nil
		}
		return nil, fmt.Errorf("reading tracker file %s: %w", path, err)
	}

	if err := json.Unmarshal(buf, &t.tracked); err != nil {
		log.Warn("tracker file is corrupt, starting fresh", "path", path, "error", err)
		t.tracked = make(map[string]float64)
		return t, nil
	}

	log.Info("loaded tracker state", "path", path, "entries", len(t.tracked))
	return t, nil
}

// NeedsUpdate reports whether the file should be (re)processed. Files that
// no longer exist are never due. A file is due iff its current mtime is
// strictly greater than the recorded value; an exact match counts as already
// processed.
func (t *FileTracker) NeedsUpdate(path string) bool {
	mtime, err := fileMtime(path)
	if err != nil {
		return false
	}

	return mtime > t.tracked[path]
}

// MarkProcessed records the file's current mtime as its last-processed time
// and persists the full mapping immediately.
func (t *FileTracker) MarkProcessed(path string) error {
	mtime, err := fileMtime(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	t.tracked[path] = mtime
	return t.save()
}

// Forget drops the path from tracking so the next run reprocesses it.
// A no-op if the path was never tracked.
func (t *FileTracker) Forget(path string) error {
	if _, ok := t.tracked[path]; !ok {
		return nil
	}

	delete(t.tracked, path)
	return t.save()
}

func (t *FileTracker) save() error {
	buf, err := json.MarshalIndent(t.tracked, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing tracker state: %w", err)
	}

	if err := os.WriteFile(t.path, buf, 0o644); err != nil {
		return fmt.Errorf("writing tracker file %s: %w", t.path, err)
	}

	return nil
}

// fileMtime returns the file's modification time as fractional seconds since
// epoch. Both sides of every comparison derive from this same arithmetic, so
// the float conversion never produces a spurious "modified" result.
func fileMtime(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return float64(info.ModTime().UnixNano()) / 1e9, nil
}
