// Package yaml reads vawk configuration and writes promoted job specs as
// YAML documents.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwojciec/vawk"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".vawk/config.yaml"

// Providers lists the accepted model.provider values.
var Providers = []string{"stub", "anthropic", "gemini"}

// Config is the on-disk configuration. Unset fields keep their defaults.
type Config struct {
	Model   Model   `yaml:"model"`
	Ledger  Ledger  `yaml:"ledger"`
	RAG     RAG     `yaml:"rag"`
	Prompts Prompts `yaml:"prompts"`
	Log     Log     `yaml:"log"`
	Jobs    Jobs    `yaml:"jobs"`
}

type Model struct {
	Provider  string `yaml:"provider"`
	Name      string `yaml:"name"`
	MaxTokens int    `yaml:"max_tokens"`
	History   int    `yaml:"history"`
}

type Ledger struct {
	Dir string `yaml:"dir"`
}

type RAG struct {
	Disabled bool    `yaml:"disabled"`
	Root     string  `yaml:"root"`
	Limit    int     `yaml:"limit"`
	MaxLines int     `yaml:"max_lines"`
	MaxChars int     `yaml:"max_chars"`
	Indexes  []Index `yaml:"indexes"`
}

// Index pairs an index-file glob with the group its entries belong to.
type Index struct {
	Glob  string `yaml:"glob"`
	Group string `yaml:"group"`
}

// Prompts locates the layered prompt files and overrides the request
// templates. Empty templates keep the built-in ones.
type Prompts struct {
	Dir        string `yaml:"dir"`
	Structured string `yaml:"structured"`
	Correction string `yaml:"correction"`
}

type Log struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type Jobs struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Model: Model{
			Provider:  "stub",
			MaxTokens: 4096,
			History:   vawk.DefaultMaxHistory,
		},
		Ledger: Ledger{Dir: ".vawk/chat"},
		RAG: RAG{
			Root:     "docs",
			Limit:    3,
			MaxLines: 20,
			MaxChars: 1000,
			Indexes: []Index{
				{Glob: "examples/*-index.md", Group: "snippets"},
				{Glob: "book/*-index.md", Group: "book"},
			},
		},
		Prompts: Prompts{Dir: "prompts"},
		Log:     Log{File: ".vawk/logs/vawk.log", Level: "info"},
		Jobs:    Jobs{Dir: "vawk/jobs"},
	}
}

// Parse decodes a YAML document over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the config file at path. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding alone.
func (c Config) Validate() error {
	if !isProvider(c.Model.Provider) {
		return fmt.Errorf("model.provider %q: want one of %s", c.Model.Provider, strings.Join(Providers, ", "))
	}
	if c.Model.History < 0 {
		return fmt.Errorf("model.history must not be negative")
	}
	for _, f := range []struct {
		key string
		val int
	}{
		{"rag.limit", c.RAG.Limit},
		{"rag.max_lines", c.RAG.MaxLines},
		{"rag.max_chars", c.RAG.MaxChars},
	} {
		if f.val <= 0 {
			return fmt.Errorf("%s must be positive", f.key)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Prompts.Structured != "" && !strings.Contains(c.Prompts.Structured, vawk.TaskPlaceholder) {
		return fmt.Errorf("prompts.structured must contain %s", vawk.TaskPlaceholder)
	}
	for i, ix := range c.RAG.Indexes {
		if ix.Glob == "" {
			return fmt.Errorf("rag.indexes[%d]: glob is empty", i)
		}
	}
	return nil
}

// Templates returns the request templates with config overrides applied.
func (c Config) Templates() vawk.Templates {
	t := vawk.DefaultTemplates()
	if c.Prompts.Structured != "" {
		t.Structured = c.Prompts.Structured
	}
	if c.Prompts.Correction != "" {
		t.Correction = c.Prompts.Correction
	}
	return t
}

func isProvider(p string) bool {
	for _, v := range Providers {
		if p == v {
			return true
		}
	}
	return false
}
