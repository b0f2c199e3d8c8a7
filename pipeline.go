package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/SA-Media/Data-Pipeline/xmlstore"
)

// FileReader extracts plain text from a document file.
type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// EntryStore is the pipeline's view of the aggregate store.
type EntryStore interface {
	AddEntry(category xmlstore.Category, filename, text string, metadata map[string]string) error
	SaveAll() error
}

// Tracker decides which files are due and records processed ones.
type Tracker interface {
	NeedsUpdate(path string) bool
	MarkProcessed(path string) error
}

// Report holds the per-run outcome counts.
type Report struct {
	Processed int
	Skipped   int
	Errored   int
}

type fileStatus int

const (
	statusProcessed fileStatus = iota
	statusSkipped
	statusErrored
)

// fileResult is the three-way outcome of handling a single file. Skips carry
// a reason, errors carry a cause; neither ever aborts the run, except for
// ErrInvalidCategory which indicates a bug rather than a bad file.
type fileResult struct {
	status fileStatus
	reason string
	err    error
}

func skipped(reason string) fileResult {
	return fileResult{status: statusSkipped, reason: reason}
}

func errored(err error) fileResult {
	return fileResult{status: statusErrored, err: err}
}

// Pipeline walks the root folder, classifies due documents by folder path,
// extracts their text and appends it to the per-category aggregates.
type Pipeline struct {
	log      *slog.Logger
	root     string
	folders  map[xmlstore.Category]string
	docExts  map[string]bool
	ignore   map[string]bool
	tracker  Tracker
	store    EntryStore
	readers  []FileReader
	progress func(done, total int)
	now      func() time.Time
}

// Run processes every regular file under the root once, then saves all
// aggregates and reports the outcome counts. Per-file failures are contained:
// they are logged, counted and the walk continues.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	files, err := p.collectFiles()
	if err != nil {
		return Report{}, fmt.Errorf("walking %s: %w", p.root, err)
	}

	p.log.Info("starting run", "root", p.root, "files", len(files))

	var rep Report
	for i, path := range files {
		if ctx.Err() != nil {
			p.log.Warn("run cancelled", "remaining", len(files)-i)
			break
		}

		res := p.processFile(path)
		switch res.status {
		case statusProcessed:
			rep.Processed++
			p.log.Info("processed file", "path", path)
		case statusSkipped:
			rep.Skipped++
			p.log.Debug("skipped file", "path", path, "reason", res.reason)
		case statusErrored:
			if errors.Is(res.err, xmlstore.ErrInvalidCategory) {
				p.log.Error("category set mismatch between config and store", "path", path, "error", res.err)
				return rep, res.err
			}
			rep.Errored++
			p.log.Error("failed to process file", "path", path, "error", res.err)
		}

		if p.progress != nil {
			p.progress(i+1, len(files))
		}
	}

	if err := p.store.SaveAll(); err != nil {
		p.log.Error("run finished with save failures", "error", err)
	}

	p.log.Info("run complete",
		"processed", rep.Processed, "skipped", rep.Skipped, "errored", rep.Errored)

	return rep, nil
}

func (p *Pipeline) collectFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (p *Pipeline) processFile(path string) fileResult {
	ext := strings.ToLower(filepath.Ext(path))
	if p.ignore[ext] {
		return skipped("ignored extension " + ext)
	}
	if !p.docExts[ext] {
		return skipped("unsupported extension " + ext)
	}
	if !p.tracker.NeedsUpdate(path) {
		return skipped("already processed")
	}

	category, ok := classifyPath(filepath.Dir(path), p.folders)
	if !ok {
		return skipped("no matching category folder")
	}

	reader := p.findReader(path)
	if reader == nil {
		return errored(fmt.Errorf("no reader registered for %s", ext))
	}

	text, err := reader.ReadText(path)
	if err != nil {
		return errored(fmt.Errorf("extracting text: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		// A document that yields no text signals something wrong with the
		// document itself, e.g. a scanned PDF without a text layer. The
		// tracker stays untouched so the file is retried next run.
		return errored(errors.New("document yielded no text"))
	}

	meta := map[string]string{
		"processed_date": p.timestamp().Format(time.RFC3339),
	}
	if err := p.store.AddEntry(category, filepath.Base(path), text, meta); err != nil {
		return errored(err)
	}

	if err := p.tracker.MarkProcessed(path); err != nil {
		return errored(fmt.Errorf("recording processed state: %w", err))
	}

	return fileResult{status: statusProcessed}
}

func (p *Pipeline) findReader(path string) FileReader {
	for _, r := range p.readers {
		if r.CanRead(path) {
			return r
		}
	}

	return nil
}

func (p *Pipeline) timestamp() time.Time {
	if p.now != nil {
		return p.now()
	}

	return time.Now()
}

// classifyPath matches the containing directory against the configured
// folder names, case-insensitively and with separators normalized to "/".
// Categories are checked in xmlstore.Categories order; the first match wins.
func classifyPath(dir string, folders map[xmlstore.Category]string) (xmlstore.Category, bool) {
	norm := strings.ToLower(strings.ReplaceAll(dir, `\`, "/"))
	for _, cat := range xmlstore.Categories {
		name := strings.ToLower(strings.ReplaceAll(folders[cat], `\`, "/"))
		if name != "" && strings.Contains(norm, name) {
			return cat, true
		}
	}

	return "", false
}
