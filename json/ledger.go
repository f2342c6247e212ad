package json

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/vawk"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ext is the file extension of session ledgers.
const Ext = ".vawk"

// DefaultDir is the ledger directory relative to the working directory.
const DefaultDir = ".vawk/chat"

// Interface compliance check.
var _ vawk.Ledger = (*Ledger)(nil)

// Ledger stores each session as <dir>/<id>.vawk. It assumes a single writer
// per session.
type Ledger struct {
	dir    string
	cwd    string
	logger *zap.Logger
	now    func() time.Time
	write  func(*os.File, []byte) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for repair and listing diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(led *Ledger) {
		led.logger = l
	}
}

// WithClock sets the time source for session creation.
func WithClock(now func() time.Time) Option {
	return func(led *Ledger) {
		led.now = now
	}
}

// WithCwd sets the working directory recorded on new sessions. The process
// working directory is used when unset.
func WithCwd(cwd string) Option {
	return func(led *Ledger) {
		led.cwd = cwd
	}
}

// New creates a Ledger rooted at dir. The directory is created on the first
// CreateSession.
func New(dir string, opts ...Option) *Ledger {
	led := &Ledger{
		dir:    dir,
		logger: zap.NewNop(),
		now:    time.Now,
		write:  writeSync,
	}
	for _, opt := range opts {
		opt(led)
	}
	return led
}

// Dir returns the directory holding the ledgers.
func (l *Ledger) Dir() string { return l.dir }

// Path returns the file backing the session with the given id.
func (l *Ledger) Path(id string) string {
	return filepath.Join(l.dir, id+Ext)
}

// CreateSession writes the meta record of a new session and returns it.
func (l *Ledger) CreateSession(title string) (vawk.Session, error) {
	cwd := l.cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	s := vawk.Session{
		ID:        uuid.NewString(),
		CreatedAt: l.now().UTC(),
		Cwd:       cwd,
		Title:     strings.TrimSpace(title),
		Version:   vawk.Version,
	}
	line, err := marshalMeta(s)
	if err != nil {
		return vawk.Session{}, fmt.Errorf("encode meta: %w", err)
	}
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return vawk.Session{}, fmt.Errorf("create ledger directory: %w: %w", vawk.ErrStorage, err)
	}
	f, err := os.OpenFile(l.Path(s.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return vawk.Session{}, fmt.Errorf("create ledger: %w: %w", vawk.ErrStorage, err)
	}
	if err := l.write(f, line); err != nil {
		if rmErr := os.Remove(f.Name()); rmErr != nil {
			l.logger.Warn("could not remove partial ledger", zap.String("file", f.Name()), zap.Error(rmErr))
		}
		return vawk.Session{}, fmt.Errorf("write meta: %w: %w", vawk.ErrStorage, err)
	}
	return s, nil
}

// LoadSession reads the ledger of the session with the given id.
func (l *Ledger) LoadSession(id string) (vawk.Conversation, error) {
	if err := validateID(id); err != nil {
		return vawk.Conversation{}, err
	}
	f, err := os.Open(l.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return vawk.Conversation{}, fmt.Errorf("session %s: %w", id, vawk.ErrNotFound)
	}
	if err != nil {
		return vawk.Conversation{}, fmt.Errorf("open ledger: %w: %w", vawk.ErrStorage, err)
	}
	defer f.Close()

	conv, err := Decode(f)
	if err != nil {
		return vawk.Conversation{}, fmt.Errorf("session %s: %w", id, err)
	}
	if conv.Session.ID != id {
		return vawk.Conversation{}, fmt.Errorf("session %s: meta names %q: %w", id, conv.Session.ID, vawk.ErrCorrupt)
	}
	return conv, nil
}

// AppendTurn appends one turn record and syncs it to disk before returning.
// A torn final line left by an interrupted append is cut off first so the
// new record starts on its own line.
func (l *Ledger) AppendTurn(sessionID string, turn vawk.Turn) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	line, err := marshalTurn(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	f, err := os.OpenFile(l.Path(sessionID), os.O_RDWR|os.O_APPEND, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session %s: %w", sessionID, vawk.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("open ledger: %w: %w", vawk.ErrStorage, err)
	}
	if err := l.repairTail(f); err != nil {
		f.Close()
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := l.write(f, line); err != nil {
		return fmt.Errorf("append turn %d: %w: %w", turn.Idx, vawk.ErrStorage, err)
	}
	return nil
}

// writeSync writes data, flushes it to stable storage and closes f.
func writeSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// tailChunk is the read size used when scanning backwards for a newline.
const tailChunk = 4096

// repairTail truncates f after its last newline when the final byte is not
// one. A file without any newline has lost its meta record.
func (l *Ledger) repairTail(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w: %w", vawk.ErrStorage, err)
	}
	size := info.Size()
	if size == 0 {
		return fmt.Errorf("empty ledger: %w", vawk.ErrCorrupt)
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("read ledger tail: %w: %w", vawk.ErrStorage, err)
	}
	if last[0] == '\n' {
		return nil
	}

	buf := make([]byte, tailChunk)
	for end := size; end > 0; {
		start := max(end-tailChunk, 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read ledger tail: %w: %w", vawk.ErrStorage, err)
		}
		if i := lastNewline(chunk); i >= 0 {
			keep := start + int64(i) + 1
			if err := f.Truncate(keep); err != nil {
				return fmt.Errorf("truncate torn record: %w: %w", vawk.ErrStorage, err)
			}
			l.logger.Warn("removed torn ledger record",
				zap.String("file", f.Name()),
				zap.Int64("bytes", size-keep))
			return nil
		}
		end = start
	}
	return fmt.Errorf("no complete record: %w", vawk.ErrCorrupt)
}

func lastNewline(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '\n' {
			return i
		}
	}
	return -1
}

// validateID rejects ids that could not have been issued by CreateSession,
// which also keeps lookups inside the ledger directory.
func validateID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("session %q: %w", id, vawk.ErrNotFound)
	}
	return nil
}

// Summary describes one stored session for listings.
type Summary struct {
	Session vawk.Session
	Turns   int
	Updated time.Time // timestamp of the last turn, or creation time
}

// List returns a summary of every readable ledger in the directory, oldest
// first. Unreadable ledgers are logged and skipped. A missing directory
// yields no sessions.
func (l *Ledger) List() ([]Summary, error) {
	matches, err := doublestar.Glob(os.DirFS(l.dir), "*"+Ext)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	var out []Summary
	for _, name := range matches {
		id := strings.TrimSuffix(name, Ext)
		conv, err := l.LoadSession(id)
		if err != nil {
			l.logger.Warn("skipping unreadable ledger", zap.String("file", name), zap.Error(err))
			continue
		}
		sum := Summary{Session: conv.Session, Turns: len(conv.Turns), Updated: conv.Session.CreatedAt}
		if n := len(conv.Turns); n > 0 {
			sum.Updated = conv.Turns[n-1].Timestamp
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Session.CreatedAt.Before(out[j].Session.CreatedAt)
	})
	return out, nil
}
