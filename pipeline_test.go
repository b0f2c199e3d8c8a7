package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SA-Media/Data-Pipeline/xmlstore"
)

// scriptedReader treats pdf/docx files as plain text, optionally failing for
// specific basenames.
type scriptedReader struct {
	fails map[string]error
}

func (r *scriptedReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || ext == ".docx"
}

func (r *scriptedReader) ReadText(path string) (string, error) {
	if err, ok := r.fails[filepath.Base(path)]; ok {
		return "", err
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(buf), nil
}

type fakeStore struct {
	added []string
	saves int
}

func (s *fakeStore) AddEntry(category xmlstore.Category, filename, text string, metadata map[string]string) error {
	s.added = append(s.added, string(category)+"/"+filename)
	return nil
}

func (s *fakeStore) SaveAll() error {
	s.saves++
	return nil
}

type fakeTracker struct {
	notDue map[string]bool
	marked []string
}

func (t *fakeTracker) NeedsUpdate(path string) bool {
	return !t.notDue[path]
}

func (t *fakeTracker) MarkProcessed(path string) error {
	t.marked = append(t.marked, path)
	return nil
}

func testFolders() map[xmlstore.Category]string {
	return map[xmlstore.Category]string{
		xmlstore.External: "external",
		xmlstore.Internal: "internal",
		xmlstore.Client:   "client",
	}
}

func testOutputs() map[xmlstore.Category]string {
	return map[xmlstore.Category]string{
		xmlstore.External: "external.xml",
		xmlstore.Internal: "internal.xml",
		xmlstore.Client:   "client.xml",
	}
}

func newTestPipeline(root string, tracker Tracker, store EntryStore) *Pipeline {
	return &Pipeline{
		log:     testLogger(),
		root:    root,
		folders: testFolders(),
		docExts: map[string]bool{".pdf": true, ".docx": true},
		ignore:  map[string]bool{".tmp": true},
		tracker: tracker,
		store:   store,
		readers: []FileReader{&scriptedReader{}},
	}
}

// newRealPipeline wires a pipeline to a real tracker and store rooted in a
// fresh output directory, returning both for assertions.
func newRealPipeline(t *testing.T, root, out string) (*Pipeline, *FileTracker, *xmlstore.AggregateStore) {
	t.Helper()

	tracker, err := NewFileTracker(testLogger(), filepath.Join(out, "tracker.json"))
	require.NoError(t, err)

	store, err := xmlstore.NewAggregateStore(testLogger(), out, testOutputs())
	require.NoError(t, err)

	return newTestPipeline(root, tracker, store), tracker, store
}

func Test_Run_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "external/readme.md", "not a document")
	writeFile(t, root, "external/junk.tmp", "ignored")

	store := &fakeStore{}
	tracker := &fakeTracker{}
	p := newTestPipeline(root, tracker, store)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Skipped: 2}, rep)
	// Filtered files never touch the tracker or the store.
	assert.Empty(t, tracker.marked)
	assert.Empty(t, store.added)
	assert.Equal(t, 1, store.saves)
}

func Test_Run_ProcessesNewSkipsTracked(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeFile(t, root, "external/report.pdf", "quarterly numbers")
	tracked := writeFile(t, root, "internal/notes.docx", "meeting notes")

	p, tracker, store := newRealPipeline(t, root, out)
	require.NoError(t, tracker.MarkProcessed(tracked))

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Processed: 1, Skipped: 1}, rep)

	entries, err := store.Entries(xmlstore.External)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.pdf", entries[0].Filename)
	assert.Equal(t, "quarterly numbers", entries[0].Text)
	require.Len(t, entries[0].Meta, 1)
	assert.Equal(t, "processed_date", entries[0].Meta[0].Name.Local)

	entries, err = store.Entries(xmlstore.Internal)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func Test_Run_NoCategoryMatchIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "unsorted/memo.pdf", "uncategorized")

	store := &fakeStore{}
	tracker := &fakeTracker{}
	p := newTestPipeline(root, tracker, store)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Skipped: 1}, rep)
	assert.Empty(t, store.added)
	assert.Empty(t, tracker.marked)
}

func Test_Run_EmptyExtractionIsError(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	scan := writeFile(t, root, "client/scan.pdf", "   \n\t ")

	p, tracker, store := newRealPipeline(t, root, out)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Errored: 1}, rep)

	entries, err := store.Entries(xmlstore.Client)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The tracker was not updated, so the file is retried next run.
	assert.True(t, tracker.NeedsUpdate(scan))
}

func Test_Run_ExtractionFailureContinues(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeFile(t, root, "external/broken.pdf", "unreadable")
	writeFile(t, root, "external/fine.pdf", "good text")

	p, _, store := newRealPipeline(t, root, out)
	p.readers = []FileReader{&scriptedReader{
		fails: map[string]error{"broken.pdf": errors.New("parse failure")},
	}}

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Processed: 1, Errored: 1}, rep)

	entries, err := store.Entries(xmlstore.External)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fine.pdf", entries[0].Filename)
}

func Test_Run_SecondRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeFile(t, root, "external/report.pdf", "text")
	writeFile(t, root, "client/contract.docx", "terms")

	p, _, _ := newRealPipeline(t, root, out)
	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Processed: 2}, rep)

	firstExternal, err := os.ReadFile(filepath.Join(out, "external.xml"))
	require.NoError(t, err)

	// A fresh process reloads tracker and aggregates from disk.
	p2, _, _ := newRealPipeline(t, root, out)
	rep, err = p2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 2}, rep)

	secondExternal, err := os.ReadFile(filepath.Join(out, "external.xml"))
	require.NoError(t, err)
	assert.Equal(t, firstExternal, secondExternal)
}

func Test_Run_SameBasenameCollapsesToOneEntry(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeFile(t, root, "external/a/report.pdf", "first copy")
	writeFile(t, root, "external/b/report.pdf", "second copy")

	p, _, store := newRealPipeline(t, root, out)
	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	// Both files count as processed, but dedup keys on basename: the first
	// one written wins and the second adds no entry.
	assert.Equal(t, Report{Processed: 2}, rep)

	entries, err := store.Entries(xmlstore.External)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func Test_Run_ReportsProgress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "external/a.pdf", "a")
	writeFile(t, root, "external/b.pdf", "b")

	p := newTestPipeline(root, &fakeTracker{}, &fakeStore{})

	var calls [][2]int
	p.progress = func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func Test_classifyPath(t *testing.T) {
	folders := testFolders()

	cases := []struct {
		dir   string
		want  xmlstore.Category
		match bool
	}{
		{dir: "/docs/external/reports", want: xmlstore.External, match: true},
		{dir: "/docs/INTERNAL", want: xmlstore.Internal, match: true},
		{dir: `C:\docs\Client\2026`, want: xmlstore.Client, match: true},
		{dir: "/docs/unsorted", match: false},
		// Precedence: external wins over client when both names appear.
		{dir: "/docs/external/client", want: xmlstore.External, match: true},
	}

	for _, c := range cases {
		cat, ok := classifyPath(c.dir, folders)
		assert.Equal(t, c.match, ok, c.dir)
		if c.match {
			assert.Equal(t, c.want, cat, c.dir)
		}
	}
}
