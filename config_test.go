package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SA-Media/Data-Pipeline/xmlstore"
)

const validConfig = `
log: pipeline.log
paths:
  root_folder: /data/docs
  output_folder: /data/out
file_types:
  documents: [.pdf, .docx]
  ignore: [.tmp, DS_Store]
folders:
  external: external
  internal: internal
  client: client
xml:
  external_file: external.xml
  internal_file: internal.xml
  client_file: client.xml
`

func Test_readConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", validConfig)

	cfg, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/docs", cfg.Paths.RootFolder)
	assert.Equal(t, "/data/out", cfg.Paths.OutputFolder)
	assert.Equal(t, map[xmlstore.Category]string{
		xmlstore.External: "external",
		xmlstore.Internal: "internal",
		xmlstore.Client:   "client",
	}, cfg.FolderNames())
	assert.Equal(t, "external.xml", cfg.OutputFiles()[xmlstore.External])

	// Defaults fill in what the file omits.
	assert.Equal(t, "file_tracker.json", cfg.TrackerFile)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)
	assert.NotEmpty(t, cfg.ServerAddr)
}

func Test_readConfig_MissingFile(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func Test_readConfig_MissingRequiredFields(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log: pipeline.log\n")

	_, err := readConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root_folder")
}

func Test_ExtensionSets(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", validConfig)

	cfg, err := readConfig(path)
	require.NoError(t, err)

	// Extensions are lowercased and dot-prefixed.
	assert.Equal(t, map[string]bool{".pdf": true, ".docx": true}, cfg.DocumentSet())
	assert.Equal(t, map[string]bool{".tmp": true, ".ds_store": true}, cfg.IgnoreSet())
}
