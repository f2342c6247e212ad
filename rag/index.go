package rag

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// indexLine matches "- `id` – description (relative/path.md)". En dash, em
// dash and hyphen separators are accepted.
var indexLine = regexp.MustCompile("-\\s+`([^`]+)`\\s+[–—-]\\s+(.*)\\(([^)]+)\\)")

// ParseIndex reads index lines from r. Entries whose path is absolute or
// contains ".." are dropped.
func ParseIndex(r io.Reader, group, dir string) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := indexLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		p := strings.TrimSpace(m[3])
		if unsafePath(p) {
			continue
		}
		entries = append(entries, Entry{
			ID:          strings.TrimSpace(m[1]),
			Description: strings.TrimSpace(m[2]),
			Path:        p,
			Group:       group,
			Dir:         dir,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func unsafePath(p string) bool {
	return p == "" || strings.Contains(p, "..") || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) || path.IsAbs(p) || hasVolume(p)
}

// hasVolume reports a Windows drive prefix such as "C:".
func hasVolume(p string) bool {
	return len(p) >= 2 && p[1] == ':'
}

// Entries lists every entry of every configured index, in index order and
// then file order. Missing indexes contribute nothing.
func (r *Repository) Entries() ([]Entry, error) {
	fsys := os.DirFS(r.root)
	var all []Entry
	for _, idx := range r.indexes {
		matches, err := doublestar.Glob(fsys, idx.Glob)
		if err != nil {
			return nil, fmt.Errorf("index glob %q: %w", idx.Glob, err)
		}
		sort.Strings(matches)
		for _, name := range matches {
			entries, err := parseIndexFile(fsys, name, idx.Group)
			if err != nil {
				r.logger.Warn("skipping unreadable index", zap.String("index", name), zap.Error(err))
				continue
			}
			all = append(all, entries...)
		}
	}
	return all, nil
}

func parseIndexFile(fsys fs.FS, name, group string) ([]Entry, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseIndex(f, group, path.Dir(name))
}
