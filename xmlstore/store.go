package xmlstore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// ErrInvalidCategory is returned when a category outside the fixed set is
// used. Configuration and code disagreeing on the category set is a
// programmer error, so callers should treat this as fatal rather than
// counting it as an ordinary per-file failure.
var ErrInvalidCategory = errors.New("invalid category")

// AggregateStore owns one in-memory XML document per category for the
// lifetime of the process. Documents are loaded from any previously saved
// aggregates at construction time and written back by SaveAll. It is not
// safe for concurrent mutation.
type AggregateStore struct {
	log   *slog.Logger
	dir   string
	files map[Category]string
	docs  map[Category]*document
	seen  map[Category]map[string]bool
}

// NewAggregateStore creates the output directory if needed and loads any
// pre-existing aggregate document for each category. A missing file yields a
// fresh empty document; a present-but-unparseable file logs a warning and
// also falls back to a fresh document, so a damaged aggregate never blocks a
// run.
func NewAggregateStore(log *slog.Logger, dir string, files map[Category]string) (*AggregateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	s := &AggregateStore{
		log:   log,
		dir:   dir,
		files: make(map[Category]string, len(Categories)),
		docs:  make(map[Category]*document, len(Categories)),
		seen:  make(map[Category]map[string]bool, len(Categories)),
	}

	for _, cat := range Categories {
		name := files[cat]
		if name == "" {
			return nil, fmt.Errorf("%w: no output file configured for %q", ErrInvalidCategory, cat)
		}

		doc := s.loadDocument(cat, filepath.Join(dir, name))
		s.files[cat] = name
		s.docs[cat] = doc
		s.seen[cat] = make(map[string]bool, len(doc.Entries))
		for _, e := range doc.Entries {
			s.seen[cat][e.Filename] = true
		}
	}

	return s, nil
}

func (s *AggregateStore) loadDocument(cat Category, path string) *document {
	buf, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("unable to read existing aggregate, starting fresh",
				"category", cat, "path", path, "error", err)
		}
		return &document{}
	}

	doc := &document{}
	if err := xml.Unmarshal(buf, doc); err != nil {
		s.log.Warn("unable to parse existing aggregate, starting fresh",
			"category", cat, "path", path, "error", err)
		return &document{}
	}

	s.log.Info("loaded existing aggregate", "category", cat, "entries", len(doc.Entries))
	return doc
}

// AddEntry appends a new entry to the category's document. Entries are keyed
// by filename within a category: re-adding an existing filename is a silent
// no-op regardless of text or metadata, so re-runs never duplicate entries.
// Metadata attributes are written in sorted key order.
func (s *AggregateStore) AddEntry(category Category, filename, text string, metadata map[string]string) error {
	doc, ok := s.docs[category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	if s.seen[category][filename] {
		s.log.Debug("entry already present", "category", category, "filename", filename)
		return nil
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	meta := make([]xml.Attr, 0, len(keys))
	for _, k := range keys {
		meta = append(meta, xml.Attr{Name: xml.Name{Local: k}, Value: metadata[k]})
	}

	doc.Entries = append(doc.Entries, Entry{
		Filename: filename,
		Meta:     meta,
		Text:     text,
	})
	s.seen[category][filename] = true
	s.log.Info("added entry", "category", category, "filename", filename)

	return nil
}

// Entries returns the category's entries in document order.
func (s *AggregateStore) Entries(category Category) ([]Entry, error) {
	doc, ok := s.docs[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	return slices.Clone(doc.Entries), nil
}

// SaveAll serializes every category document to its configured file with
// two-space indentation. Each document is written atomically via a temp file
// rename; a failure for one category is logged and does not stop the others.
func (s *AggregateStore) SaveAll() error {
	var errs []error
	for _, cat := range Categories {
		path := filepath.Join(s.dir, s.files[cat])
		if err := s.saveDocument(s.docs[cat], path); err != nil {
			s.log.Error("failed to save aggregate", "category", cat, "path", path, "error", err)
			errs = append(errs, fmt.Errorf("saving %s aggregate: %w", cat, err))
			continue
		}

		s.log.Info("saved aggregate", "category", cat, "path", path, "entries", len(s.docs[cat].Entries))
	}

	return errors.Join(errs...)
}

func (s *AggregateStore) saveDocument(doc *document, path string) error {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	_, err = tmp.WriteString(xml.Header + string(body) + "\n")
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing document: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing document: %w", err)
	}

	return nil
}
