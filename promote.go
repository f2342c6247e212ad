package vawk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Job is a validated assistant reply promoted into a reusable script.
type Job struct {
	Name        string
	SessionID   string
	TurnIdx     int
	PromotedAt  time.Time
	Script      string // CODE section without fences
	Plan        string
	Tests       []string
	ProgramHash string // hex sha256 of Script
}

// JobName returns the default job name for a session turn.
func JobName(sessionID string, turnIdx int) string {
	prefix := "job"
	if len(sessionID) > 8 {
		prefix = sessionID[:8]
	}
	return fmt.Sprintf("job-%s-%d", prefix, turnIdx)
}

// PromoteTurn builds a Job from the assistant turn with index turnIdx. The
// reply must satisfy the structured contract. An empty name selects
// JobName.
func PromoteTurn(conv Conversation, turnIdx int, name string, now time.Time) (Job, error) {
	if name == "" {
		name = JobName(conv.Session.ID, turnIdx)
	}
	if err := validateJobName(name); err != nil {
		return Job{}, err
	}

	var reply *Turn
	for i := range conv.Turns {
		t := &conv.Turns[i]
		if t.Idx == turnIdx && t.Role == RoleAssistant {
			reply = t
			break
		}
	}
	if reply == nil {
		return Job{}, fmt.Errorf("assistant turn %d: %w", turnIdx, ErrNotFound)
	}

	v := Validate(reply.Msg)
	if !v.OK() {
		return Job{}, fmt.Errorf("turn %d: %w", turnIdx, v.Err)
	}
	sum := sha256.Sum256([]byte(v.Sections.Code))
	return Job{
		Name:        name,
		SessionID:   conv.Session.ID,
		TurnIdx:     turnIdx,
		PromotedAt:  now.UTC(),
		Script:      v.Sections.Code,
		Plan:        v.Sections.Plan,
		Tests:       ParseTestsList(v.Sections.Tests),
		ProgramHash: hex.EncodeToString(sum[:]),
	}, nil
}

func validateJobName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.TrimSpace(name) != name {
		return fmt.Errorf("job name %q: %w", name, ErrPathSecurity)
	}
	return nil
}
