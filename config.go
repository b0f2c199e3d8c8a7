package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SA-Media/Data-Pipeline/xmlstore"
)

type Config struct {
	LogFile string `yaml:"log"`
	Paths   struct {
		RootFolder   string `yaml:"root_folder"`
		OutputFolder string `yaml:"output_folder"`
	} `yaml:"paths"`
	TrackerFile string `yaml:"tracker"`
	FileTypes   struct {
		Documents []string `yaml:"documents"`
		Ignore    []string `yaml:"ignore"`
	} `yaml:"file_types"`
	Folders struct {
		External string `yaml:"external"`
		Internal string `yaml:"internal"`
		Client   string `yaml:"client"`
	} `yaml:"folders"`
	XML struct {
		ExternalFile string `yaml:"external_file"`
		InternalFile string `yaml:"internal_file"`
		ClientFile   string `yaml:"client_file"`
	} `yaml:"xml"`
	Watch struct {
		DebounceMs int `yaml:"debounce_ms"`
	} `yaml:"watch"`
	ServerAddr string `yaml:"server_addr"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TrackerFile == "" {
		c.TrackerFile = "file_tracker.json"
	}
	if len(c.FileTypes.Documents) == 0 {
		c.FileTypes.Documents = []string{".pdf", ".docx"}
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = 500
	}
	if c.ServerAddr == "" {
		c.ServerAddr = "localhost:8085"
	}
}

// Validate reports the first missing required field. Configuration problems
// are fatal at startup; nothing later in the pipeline tolerates them.
func (c *Config) Validate() error {
	if c.Paths.RootFolder == "" {
		return errors.New("paths.root_folder is required")
	}
	if c.Paths.OutputFolder == "" {
		return errors.New("paths.output_folder is required")
	}
	if c.Folders.External == "" || c.Folders.Internal == "" || c.Folders.Client == "" {
		return errors.New("folders.external, folders.internal and folders.client are all required")
	}
	if c.XML.ExternalFile == "" || c.XML.InternalFile == "" || c.XML.ClientFile == "" {
		return errors.New("xml.external_file, xml.internal_file and xml.client_file are all required")
	}

	return nil
}

// FolderNames maps each category to its configured folder-name substring, in
// the store's precedence order semantics.
func (c *Config) FolderNames() map[xmlstore.Category]string {
	return map[xmlstore.Category]string{
		xmlstore.External: c.Folders.External,
		xmlstore.Internal: c.Folders.Internal,
		xmlstore.Client:   c.Folders.Client,
	}
}

// OutputFiles maps each category to its aggregate document filename.
func (c *Config) OutputFiles() map[xmlstore.Category]string {
	return map[xmlstore.Category]string{
		xmlstore.External: c.XML.ExternalFile,
		xmlstore.Internal: c.XML.InternalFile,
		xmlstore.Client:   c.XML.ClientFile,
	}
}

// DocumentSet returns the configured document extensions as a normalized
// lookup set (lowercased, leading dot).
func (c *Config) DocumentSet() map[string]bool {
	return extSet(c.FileTypes.Documents)
}

// IgnoreSet returns the configured ignore extensions as a normalized set.
func (c *Config) IgnoreSet() map[string]bool {
	return extSet(c.FileTypes.Ignore)
}

func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}

	return set
}
