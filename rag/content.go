package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/vawk"
	"github.com/rivo/uniseg"
	"go.uber.org/zap"
)

// resolve returns the absolute file path of e, failing with
// vawk.ErrPathSecurity when it would leave the corpus root.
func (r *Repository) resolve(e Entry) (string, error) {
	if unsafePath(e.Path) || strings.Contains(e.Dir, "..") || filepath.IsAbs(e.Dir) {
		return "", fmt.Errorf("entry %s path %q: %w", e.ID, e.Path, vawk.ErrPathSecurity)
	}
	root, err := filepath.Abs(r.root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(e.Dir), filepath.FromSlash(e.Path))
	if !within(root, target) {
		return "", fmt.Errorf("entry %s path %q: %w", e.ID, e.Path, vawk.ErrPathSecurity)
	}

	// Symlinks inside the corpus must not lead out of it either.
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	realTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", err
	}
	if !within(realRoot, realTarget) {
		return "", fmt.Errorf("entry %s resolves outside corpus: %w", e.ID, vawk.ErrPathSecurity)
	}
	return realTarget, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// ReadContent returns the full text of the entry's document.
func (r *Repository) ReadContent(e Entry) (string, error) {
	p, err := r.resolve(e)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", e.ID, err)
	}
	return string(data), nil
}

// SearchForChat returns up to limit relevant documents with content
// truncated to the configured bounds. Documents that cannot be read,
// including those rejected for path security, are skipped.
func (r *Repository) SearchForChat(ctx context.Context, query string, limit int) ([]Document, error) {
	entries, err := r.FindRelevant(query, limit)
	if err != nil {
		return nil, err
	}
	var docs []Document
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := r.ReadContent(e)
		if err != nil {
			level := zap.WarnLevel
			if errors.Is(err, vawk.ErrPathSecurity) {
				level = zap.ErrorLevel
			}
			r.logger.Log(level, "skipping reference document", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		docs = append(docs, Document{Entry: e, Content: TruncateHead(content, r.maxLines, r.maxChars)})
	}
	return docs, nil
}

// TruncateHead keeps at most maxLines leading lines and at most maxChars
// user-perceived characters of s, trimmed of surrounding whitespace.
func TruncateHead(s string, maxLines, maxChars int) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	head := strings.TrimSpace(strings.Join(lines, "\n"))
	if uniseg.GraphemeClusterCount(head) <= maxChars {
		return head
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(head)
	for n := 0; n < maxChars && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return b.String()
}
