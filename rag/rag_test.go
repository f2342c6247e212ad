package rag_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/vawk"
	"github.com/fwojciec/vawk/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snippetsIndex = "# AWK snippets\n\n" +
	"- `sum-column` – Sum a numeric column (snippets/sum-column.md)\n" +
	"- `count-levels` – Count log levels in a log file (snippets/count-levels.md)\n" +
	"- `dedup-lines` – Remove duplicate lines (snippets/dedup-lines.md)\n" +
	"- `escape` – Tries to escape the corpus (../../secret.md)\n" +
	"- `absolute` – Absolute path (/etc/passwd)\n" +
	"not an entry line\n"

const bookIndex = "- `ch01-fields` — Fields and records in awk (learn.awk/ch01.md)\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// corpus builds a docs tree and returns its root.
func corpus(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "docs")
	writeFile(t, filepath.Join(root, "examples", "awk-snippets-index.md"), snippetsIndex)
	writeFile(t, filepath.Join(root, "examples", "snippets", "sum-column.md"), "{ s += $2 } END { print s }\n")
	writeFile(t, filepath.Join(root, "examples", "snippets", "count-levels.md"), "{ c[$3]++ }\n")
	writeFile(t, filepath.Join(root, "book", "learn.awk-index.md"), bookIndex)
	writeFile(t, filepath.Join(root, "book", "learn.awk", "ch01.md"), "Fields are $1..$NF.\n")
	return root
}

func ids(entries []rag.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestParseIndex(t *testing.T) {
	t.Parallel()

	entries, err := rag.ParseIndex(strings.NewReader(snippetsIndex), "snippets", "examples")
	require.NoError(t, err)

	assert.Equal(t, []string{"sum-column", "count-levels", "dedup-lines"}, ids(entries))
	assert.Equal(t, rag.Entry{
		ID:          "sum-column",
		Description: "Sum a numeric column",
		Path:        "snippets/sum-column.md",
		Group:       "snippets",
		Dir:         "examples",
	}, entries[0])
}

func TestRepository_Entries(t *testing.T) {
	t.Parallel()

	t.Run("reads every configured index", func(t *testing.T) {
		t.Parallel()
		repo := rag.New(corpus(t), rag.DefaultIndexes())
		entries, err := repo.Entries()
		require.NoError(t, err)
		assert.Equal(t, []string{"sum-column", "count-levels", "dedup-lines", "ch01-fields"}, ids(entries))
		assert.Equal(t, "book", entries[3].Group)
	})

	t.Run("missing corpus has no entries", func(t *testing.T) {
		t.Parallel()
		repo := rag.New(filepath.Join(t.TempDir(), "nope"), rag.DefaultIndexes())
		entries, err := repo.Entries()
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"count", "log", "levels"}, rag.Tokenize("Count LOG-levels, count log!"))
	assert.Empty(t, rag.Tokenize("  ?! "))
}

func TestScore(t *testing.T) {
	t.Parallel()
	e := rag.Entry{ID: "count-levels", Description: "Count log levels in a log file"}
	assert.Equal(t, 2, rag.Score(e, rag.Tokenize("log levels")))
	assert.Equal(t, 2, rag.Score(e, rag.Tokenize("log log levels")), "duplicates count once")
	assert.Equal(t, 0, rag.Score(e, rag.Tokenize("json")))
}

func TestRepository_FindRelevant(t *testing.T) {
	t.Parallel()

	repo := rag.New(corpus(t), rag.DefaultIndexes())

	t.Run("best match first and limit respected", func(t *testing.T) {
		t.Parallel()
		got, err := repo.FindRelevant("count log levels", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "count-levels", got[0].ID)
	})

	t.Run("ties keep index order", func(t *testing.T) {
		t.Parallel()
		got, err := repo.FindRelevant("zzz", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"sum-column", "count-levels", "dedup-lines", "ch01-fields"}, ids(got))
	})

	t.Run("stable across calls", func(t *testing.T) {
		t.Parallel()
		a, err := repo.FindRelevant("lines column", 3)
		require.NoError(t, err)
		b, err := repo.FindRelevant("lines column", 3)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("query without tokens keeps index order", func(t *testing.T) {
		t.Parallel()
		got, err := repo.FindRelevant("?!", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"sum-column", "count-levels"}, ids(got))
		got, err = repo.FindRelevant("   ", 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"sum-column", "count-levels", "dedup-lines"}, ids(got))
	})

	t.Run("zero limit yields nothing", func(t *testing.T) {
		t.Parallel()
		got, err := repo.FindRelevant("sum", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("traversal entries never surface", func(t *testing.T) {
		t.Parallel()
		got, err := repo.FindRelevant("escape corpus absolute", 10)
		require.NoError(t, err)
		assert.NotContains(t, ids(got), "escape")
		assert.NotContains(t, ids(got), "absolute")
	})
}

func TestRepository_ReadContent(t *testing.T) {
	t.Parallel()

	root := corpus(t)
	repo := rag.New(root, rag.DefaultIndexes())

	t.Run("reads relative to the index directory", func(t *testing.T) {
		t.Parallel()
		got, err := repo.ReadContent(rag.Entry{ID: "ch01", Path: "learn.awk/ch01.md", Dir: "book"})
		require.NoError(t, err)
		assert.Equal(t, "Fields are $1..$NF.\n", got)
	})

	t.Run("dot-dot path is a path security error", func(t *testing.T) {
		t.Parallel()
		_, err := repo.ReadContent(rag.Entry{ID: "x", Path: "../secret.md", Dir: "examples"})
		assert.ErrorIs(t, err, vawk.ErrPathSecurity)
	})

	t.Run("absolute path is a path security error", func(t *testing.T) {
		t.Parallel()
		_, err := repo.ReadContent(rag.Entry{ID: "x", Path: "/etc/passwd"})
		assert.ErrorIs(t, err, vawk.ErrPathSecurity)
	})

	t.Run("symlink out of the corpus is a path security error", func(t *testing.T) {
		t.Parallel()
		outside := filepath.Join(t.TempDir(), "outside.md")
		writeFile(t, outside, "secret")
		link := filepath.Join(root, "examples", "snippets", "link.md")
		if err := os.Symlink(outside, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		_, err := repo.ReadContent(rag.Entry{ID: "x", Path: "snippets/link.md", Dir: "examples"})
		assert.ErrorIs(t, err, vawk.ErrPathSecurity)
	})
}

func TestRepository_SearchForChat(t *testing.T) {
	t.Parallel()

	t.Run("skips entries whose file is missing", func(t *testing.T) {
		t.Parallel()
		repo := rag.New(corpus(t), rag.DefaultIndexes())
		docs, err := repo.SearchForChat(context.Background(), "remove duplicate lines", 1)
		require.NoError(t, err)
		assert.Empty(t, docs, "dedup-lines has no file")
	})

	t.Run("content is bounded", func(t *testing.T) {
		t.Parallel()
		root := corpus(t)
		writeFile(t, filepath.Join(root, "examples", "snippets", "sum-column.md"), strings.Repeat("line\n", 50))
		repo := rag.New(root, rag.DefaultIndexes(), rag.WithMaxLines(5))
		docs, err := repo.SearchForChat(context.Background(), "sum numeric column", 1)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, 5, strings.Count(docs[0].Content, "line"))
	})

	t.Run("cancelled context stops reading", func(t *testing.T) {
		t.Parallel()
		repo := rag.New(corpus(t), rag.DefaultIndexes())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := repo.SearchForChat(ctx, "sum", 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRepository_Context(t *testing.T) {
	t.Parallel()

	repo := rag.New(corpus(t), rag.DefaultIndexes(), rag.WithLimit(2))

	got, err := repo.Context(context.Background(), "count log levels")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "# Reference context for this question\n\n"))
	assert.Contains(t, got, "## Doc 1: Count log levels in a log file\n{ c[$3]++ }")
	assert.Contains(t, got, "## Doc 2: ")
	assert.NotContains(t, got, "## Doc 3: ")

	unscored, err := repo.Context(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, unscored, "## Doc 1: Sum a numeric column\n")
	assert.Contains(t, unscored, "## Doc 2: Count log levels in a log file\n")
}

func TestTruncateHead(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\nb", rag.TruncateHead("a\nb\nc\n", 2, 100))
	assert.Equal(t, "abc", rag.TruncateHead("abcdef", 10, 3))
	assert.Equal(t, "héé", rag.TruncateHead("hééllo", 10, 3), "counts characters, not bytes")
	assert.Equal(t, "👍🏽x", rag.TruncateHead("👍🏽xyz", 10, 2), "keeps grapheme clusters whole")
	assert.Equal(t, "short", rag.TruncateHead("  short \n", 20, 1000))
}
