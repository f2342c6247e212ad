package vawk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/vawk"
	"github.com/fwojciec/vawk/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	turns []vawk.Turn
	calls [][]vawk.Message
	orch  *vawk.Orchestrator
	conv  vawk.Conversation
}

func newHarness(t *testing.T, replies ...string) *harness {
	t.Helper()
	h := &harness{}
	ledger := &mock.Ledger{AppendTurnFn: mock.Recorder(&h.turns)}
	model := &mock.Model{
		CallFn:  mock.Replies(&h.calls, replies...),
		LabelFn: func() string { return "test-model" },
	}
	h.orch = vawk.NewOrchestrator(ledger, model, vawk.WithClock(func() time.Time { return fixedNow }))
	h.conv = vawk.NewConversation(vawk.Session{ID: "s1"})
	return h
}

func roles(turns []vawk.Turn) []vawk.Role {
	out := make([]vawk.Role, len(turns))
	for i, t := range turns {
		out[i] = t.Role
	}
	return out
}

func TestOrchestrator_Handle(t *testing.T) {
	t.Parallel()

	t.Run("explain turns are sent verbatim and not validated", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "NR counts records across all files.")

		out, err := h.orch.Handle(context.Background(), &h.conv, "Explain NR vs FNR")
		require.NoError(t, err)

		assert.True(t, out.OK())
		assert.Equal(t, vawk.IntentExplain, out.Intent)
		assert.Equal(t, 1, out.Attempts)
		require.Len(t, h.turns, 2)
		assert.Equal(t, "Explain NR vs FNR", h.turns[0].Msg)
		assert.Equal(t, vawk.Turn{
			Idx: 2, Role: vawk.RoleAssistant, Msg: "NR counts records across all files.",
			Model: "test-model", Timestamp: fixedNow,
		}, h.turns[1])
		assert.Empty(t, h.turns[0].Model)
		assert.Equal(t, 3, h.conv.NextIdx)
	})

	t.Run("valid structured reply needs no retry", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, validReply())

		out, err := h.orch.Handle(context.Background(), &h.conv, "write awk to count levels")
		require.NoError(t, err)

		assert.True(t, out.OK())
		assert.Equal(t, vawk.IntentCode, out.Intent)
		assert.Equal(t, 1, out.Attempts)
		assert.Equal(t, "- count", out.Sections.Plan)
		require.Len(t, h.turns, 2)
		assert.Equal(t, vawk.DefaultTemplates().Wrap("write awk to count levels"), h.turns[0].Msg)
		assert.Equal(t, validReply(), h.turns[1].Msg)
	})

	t.Run("invalid reply is corrected by one retry", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "just use awk", validReply())

		out, err := h.orch.Handle(context.Background(), &h.conv, "sum column two")
		require.NoError(t, err)

		assert.True(t, out.OK())
		assert.Equal(t, vawk.IntentMixed, out.Intent)
		assert.Equal(t, 2, out.Attempts)
		require.Len(t, h.turns, 4)
		assert.Equal(t, []vawk.Role{vawk.RoleUser, vawk.RoleAssistant, vawk.RoleUser, vawk.RoleAssistant}, roles(h.turns))
		assert.Equal(t, vawk.DefaultTemplates().Correction, h.turns[2].Msg)
		assert.Equal(t, "just use awk", h.turns[1].Msg)
		for i, turn := range h.turns {
			assert.Equal(t, i+1, turn.Idx)
		}

		// The correction call replays the failed exchange before the correction.
		require.Len(t, h.calls, 2)
		retry := h.calls[1]
		n := len(retry)
		assert.Equal(t, vawk.UserMessage{Text: vawk.DefaultTemplates().Wrap("sum column two")}, retry[n-3])
		assert.Equal(t, vawk.AssistantMessage{Text: "just use awk"}, retry[n-2])
		assert.Equal(t, vawk.UserMessage{Text: vawk.DefaultTemplates().Correction}, retry[n-1])
	})

	t.Run("second invalid reply is a failure without a further retry", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t,
			"PLAN:\n- x\nCODE:\n{ print }\nTESTS:\n- t\nNOTES:\n- n",
			"PLAN:\n- x\nCODE:\n```awk\n{ print }\n```\nTESTS:\n- t\nNOTES:\n- n",
			"never requested",
		)

		out, err := h.orch.Handle(context.Background(), &h.conv, "write awk to print lines")
		require.NoError(t, err)

		require.False(t, out.OK())
		assert.Equal(t, vawk.FailureHeaderMissing, out.Failure.Kind)
		assert.Equal(t, vawk.FailureReason(vawk.FailureHeaderMissing), out.Failure.Reason)
		assert.Equal(t, 2, out.Attempts)
		assert.Len(t, h.turns, 4)
		assert.Len(t, h.calls, 2)
	})

	t.Run("failure kind reflects the final reply", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "PLAN:\n- only a plan", "no sections at all")

		out, err := h.orch.Handle(context.Background(), &h.conv, "awk script please")
		require.NoError(t, err)
		require.NotNil(t, out.Failure)
		assert.Equal(t, vawk.FailureUnparseable, out.Failure.Kind)
	})

	t.Run("indexes continue from a resumed conversation", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "answer")
		h.conv.Turns = []vawk.Turn{{Idx: 1, Role: vawk.RoleUser, Msg: "old"}, {Idx: 2, Role: vawk.RoleAssistant, Msg: "old reply"}}
		h.conv.NextIdx = 3

		_, err := h.orch.Handle(context.Background(), &h.conv, "what is FS")
		require.NoError(t, err)
		assert.Equal(t, 3, h.turns[0].Idx)
		assert.Equal(t, 4, h.turns[1].Idx)
		require.Len(t, h.calls, 1)
		assert.Contains(t, h.calls[0], vawk.Message(vawk.AssistantMessage{Text: "old reply"}))
	})

	t.Run("ledger failure is returned and stops the exchange", func(t *testing.T) {
		t.Parallel()
		storageErr := errors.New("disk full")
		var calls [][]vawk.Message
		ledger := &mock.Ledger{AppendTurnFn: func(string, vawk.Turn) error { return storageErr }}
		model := &mock.Model{CallFn: mock.Replies(&calls, "unused")}
		orch := vawk.NewOrchestrator(ledger, model)
		conv := vawk.NewConversation(vawk.Session{ID: "s1"})

		_, err := orch.Handle(context.Background(), &conv, "explain awk")
		assert.ErrorIs(t, err, storageErr)
		assert.Empty(t, calls)
		assert.Equal(t, 1, conv.NextIdx)
	})

	t.Run("model failure is returned after the prompt is committed", func(t *testing.T) {
		t.Parallel()
		var turns []vawk.Turn
		apiErr := errors.New("unavailable")
		ledger := &mock.Ledger{AppendTurnFn: mock.Recorder(&turns)}
		model := &mock.Model{CallFn: func(context.Context, []vawk.Message) (string, error) { return "", apiErr }}
		orch := vawk.NewOrchestrator(ledger, model)
		conv := vawk.NewConversation(vawk.Session{ID: "s1"})

		_, err := orch.Handle(context.Background(), &conv, "explain awk")
		assert.ErrorIs(t, err, apiErr)
		assert.Len(t, turns, 1)
	})
}

func TestOrchestrator_Open(t *testing.T) {
	t.Parallel()

	ledger := &mock.Ledger{
		CreateSessionFn: func(title string) (vawk.Session, error) {
			return vawk.Session{ID: "new", Title: title}, nil
		},
		LoadSessionFn: func(id string) (vawk.Conversation, error) {
			if id != "old" {
				return vawk.Conversation{}, vawk.ErrNotFound
			}
			return vawk.Conversation{Session: vawk.Session{ID: "old"}, NextIdx: 5}, nil
		},
	}
	orch := vawk.NewOrchestrator(ledger, &mock.Model{})

	conv, resumed, err := orch.Open("", "logs")
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, "logs", conv.Session.Title)
	assert.Equal(t, 1, conv.NextIdx)

	conv, resumed, err = orch.Open("old", "")
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, 5, conv.NextIdx)

	_, _, err = orch.Open("missing", "")
	assert.ErrorIs(t, err, vawk.ErrNotFound)
}

func TestFailureReason(t *testing.T) {
	t.Parallel()
	assert.Contains(t, vawk.FailureReason(vawk.FailureHeaderMissing), "AWK header")
	assert.Equal(t, "Missing PLAN/CODE/TESTS/NOTES sections.", vawk.FailureReason(vawk.FailureMissingSection))
	assert.Equal(t, "Could not parse structured PLAN/CODE/TESTS/NOTES reply.", vawk.FailureReason(vawk.FailureUnparseable))
}
