// Package rag retrieves reference documents from a local AWK corpus and
// formats them as bounded prompt context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/vawk"
	"go.uber.org/zap"
)

// Defaults for chat retrieval.
const (
	DefaultLimit    = 3
	DefaultMaxLines = 20
	DefaultMaxChars = 1000
)

// Entry is one document listed in a corpus index. Path is relative to Dir,
// the index file's directory relative to the corpus root.
type Entry struct {
	ID          string
	Description string
	Path        string
	Group       string
	Dir         string
}

// Index selects index files by glob, relative to the corpus root, and tags
// their entries with Group.
type Index struct {
	Glob  string
	Group string
}

// DefaultIndexes are the snippet and book indexes of the bundled corpus.
func DefaultIndexes() []Index {
	return []Index{
		{Glob: "examples/*-index.md", Group: "snippets"},
		{Glob: "book/*-index.md", Group: "book"},
	}
}

// Document is an entry together with its (possibly truncated) content.
type Document struct {
	Entry   Entry
	Content string
}

// Interface compliance check.
var _ vawk.ContextSource = (*Repository)(nil)

// Repository answers relevance queries over the corpus rooted at root.
type Repository struct {
	root     string
	indexes  []Index
	limit    int
	maxLines int
	maxChars int
	logger   *zap.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLimit sets how many documents Context includes.
func WithLimit(n int) Option {
	return func(r *Repository) {
		r.limit = n
	}
}

// WithMaxLines sets the per-document line bound.
func WithMaxLines(n int) Option {
	return func(r *Repository) {
		r.maxLines = n
	}
}

// WithMaxChars sets the per-document character bound.
func WithMaxChars(n int) Option {
	return func(r *Repository) {
		r.maxChars = n
	}
}

// WithLogger sets the logger used to report skipped documents.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// New creates a Repository over root using indexes.
func New(root string, indexes []Index, opts ...Option) *Repository {
	r := &Repository{
		root:     root,
		indexes:  indexes,
		limit:    DefaultLimit,
		maxLines: DefaultMaxLines,
		maxChars: DefaultMaxChars,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Context returns the reference block for query, or "" when no document
// could be read.
func (r *Repository) Context(ctx context.Context, query string) (string, error) {
	docs, err := r.SearchForChat(ctx, query, r.limit)
	if err != nil {
		return "", err
	}
	return FormatContext(docs), nil
}

// FormatContext renders documents as the reference block sent to the model.
func FormatContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("# Reference context for this question\n\n")
	b.WriteString("Below are a few relevant AWK references. Use them if helpful.\n\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "## Doc %d: %s\n%s\n\n", i+1, d.Entry.Description, d.Content)
	}
	return strings.TrimSpace(b.String())
}
