// Package json persists chat sessions as newline-delimited JSON ledgers,
// one file per session, one record per line.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/vawk"
)

// Record kinds.
const (
	kindMeta = "meta"
	kindTurn = "turn"
)

// metaRecord is the wire format of the first line of every ledger.
type metaRecord struct {
	Kind        string `json:"kind"`
	SessionID   string `json:"sessionId"`
	CreatedAt   string `json:"createdAt"`
	Cwd         string `json:"cwd"`
	VawkVersion string `json:"vawkVersion,omitempty"`
	Title       string `json:"title,omitempty"`
}

// turnRecord is the wire format of every line after the meta record.
type turnRecord struct {
	Kind  string `json:"kind"`
	Idx   int    `json:"idx"`
	TS    string `json:"ts"`
	Role  string `json:"role"`
	Msg   string `json:"msg"`
	Model string `json:"model,omitempty"`
}

func marshalMeta(s vawk.Session) ([]byte, error) {
	return encodeLine(metaRecord{
		Kind:        kindMeta,
		SessionID:   s.ID,
		CreatedAt:   formatTime(s.CreatedAt),
		Cwd:         s.Cwd,
		VawkVersion: s.Version,
		Title:       s.Title,
	})
}

func marshalTurn(t vawk.Turn) ([]byte, error) {
	if !t.Role.Valid() {
		return nil, fmt.Errorf("turn %d: unsupported role %q", t.Idx, t.Role)
	}
	return encodeLine(turnRecord{
		Kind:  kindTurn,
		Idx:   t.Idx,
		TS:    formatTime(t.Timestamp),
		Role:  string(t.Role),
		Msg:   t.Msg,
		Model: t.Model,
	})
}

// encodeLine renders v as one newline-terminated JSON line. HTML escaping is
// off so stored messages stay readable with plain text tools.
func encodeLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Decode reads a ledger from r. The first record must be the meta record and
// every later record a turn. Blank lines are skipped. An unterminated final
// line is the remnant of a torn append and is ignored. Layout violations
// wrap vawk.ErrCorrupt.
func Decode(r io.Reader) (vawk.Conversation, error) {
	var (
		conv    vawk.Conversation
		sawMeta bool
		lineNo  int
		maxIdx  int
	)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return vawk.Conversation{}, fmt.Errorf("read ledger: %w: %w", vawk.ErrStorage, err)
		}
		if errors.Is(err, io.EOF) {
			// Anything left here has no terminating newline.
			break
		}
		lineNo++
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var head struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(line, &head); err != nil {
			return vawk.Conversation{}, corrupt(lineNo, "undecodable record: %v", err)
		}

		switch head.Kind {
		case kindMeta:
			if sawMeta {
				return vawk.Conversation{}, corrupt(lineNo, "second meta record")
			}
			s, err := decodeMeta(line)
			if err != nil {
				return vawk.Conversation{}, corrupt(lineNo, "%v", err)
			}
			conv.Session = s
			sawMeta = true
		case kindTurn:
			if !sawMeta {
				return vawk.Conversation{}, corrupt(lineNo, "turn before meta record")
			}
			t, err := decodeTurn(line)
			if err != nil {
				return vawk.Conversation{}, corrupt(lineNo, "%v", err)
			}
			conv.Turns = append(conv.Turns, t)
			maxIdx = max(maxIdx, t.Idx)
		default:
			if !sawMeta {
				return vawk.Conversation{}, corrupt(lineNo, "first record is %q, not meta", head.Kind)
			}
			return vawk.Conversation{}, corrupt(lineNo, "unknown record kind %q", head.Kind)
		}
	}
	if !sawMeta {
		return vawk.Conversation{}, fmt.Errorf("missing meta record: %w", vawk.ErrCorrupt)
	}
	conv.NextIdx = maxIdx + 1
	return conv, nil
}

func decodeMeta(line []byte) (vawk.Session, error) {
	var m metaRecord
	if err := json.Unmarshal(line, &m); err != nil {
		return vawk.Session{}, fmt.Errorf("meta record: %w", err)
	}
	created, err := parseTime(m.CreatedAt)
	if err != nil {
		return vawk.Session{}, fmt.Errorf("meta createdAt: %w", err)
	}
	return vawk.Session{
		ID:        m.SessionID,
		CreatedAt: created,
		Cwd:       m.Cwd,
		Title:     m.Title,
		Version:   m.VawkVersion,
	}, nil
}

func decodeTurn(line []byte) (vawk.Turn, error) {
	var r turnRecord
	if err := json.Unmarshal(line, &r); err != nil {
		return vawk.Turn{}, fmt.Errorf("turn record: %w", err)
	}
	role := vawk.Role(r.Role)
	if !role.Valid() {
		return vawk.Turn{}, fmt.Errorf("turn %d: unknown role %q", r.Idx, r.Role)
	}
	ts, err := parseTime(r.TS)
	if err != nil {
		return vawk.Turn{}, fmt.Errorf("turn %d ts: %w", r.Idx, err)
	}
	return vawk.Turn{
		Idx:       r.Idx,
		Role:      role,
		Msg:       r.Msg,
		Model:     r.Model,
		Timestamp: ts,
	}, nil
}

func corrupt(line int, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", line, fmt.Sprintf(format, args...), vawk.ErrCorrupt)
}
