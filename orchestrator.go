package vawk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// retryBudget is the number of correction round-trips allowed per input.
const retryBudget = 1

// Failure describes a structured turn that stayed invalid after the retry.
type Failure struct {
	Kind   FailureKind
	Reason string // plain-language, suitable for display
}

// Outcome is the result of handling one user input.
type Outcome struct {
	Intent   Intent
	Reply    string   // last assistant reply
	Sections Sections // parsed reply, structured turns only
	Attempts int      // model calls made
	Failure  *Failure
}

// OK reports whether the input was handled without a structured failure.
func (o Outcome) OK() bool { return o.Failure == nil }

// Orchestrator drives one user input through classification, the model call,
// validation and at most one correction round-trip. Every prompt and reply is
// appended to the ledger before Handle returns.
type Orchestrator struct {
	ledger    Ledger
	model     Model
	builder   *PromptBuilder
	templates Templates
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPromptBuilder sets the prompt assembly used for each call.
func WithPromptBuilder(b *PromptBuilder) Option {
	return func(o *Orchestrator) {
		o.builder = b
	}
}

// WithTemplates overrides the structured and correction templates.
func WithTemplates(t Templates) Option {
	return func(o *Orchestrator) {
		o.templates = t
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithClock sets the time source used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator writing to ledger and calling model.
func NewOrchestrator(ledger Ledger, model Model, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:    ledger,
		model:     model,
		templates: DefaultTemplates(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.builder == nil {
		o.builder = NewPromptBuilder(Prompts{System: DefaultSystemPrompt}, WithPromptLogger(o.logger))
	}
	return o
}

// Open resumes the session with the given id, or creates a new one titled
// title when id is empty. The boolean reports whether a session was resumed.
func (o *Orchestrator) Open(id, title string) (Conversation, bool, error) {
	if id == "" {
		s, err := o.ledger.CreateSession(title)
		if err != nil {
			return Conversation{}, false, err
		}
		o.logger.Info("session created", zap.String("session", s.ID))
		return NewConversation(s), false, nil
	}
	conv, err := o.ledger.LoadSession(id)
	if err != nil {
		return Conversation{}, false, err
	}
	o.logger.Info("session resumed", zap.String("session", id), zap.Int("turns", len(conv.Turns)))
	return conv, true, nil
}

// Handle processes one user input against conv, which is updated in place
// with every committed turn. The returned error is non-nil only for ledger
// or model failures; a structured reply that stays invalid is reported
// through Outcome.Failure.
func (o *Orchestrator) Handle(ctx context.Context, conv *Conversation, text string) (Outcome, error) {
	intent := Classify(text)
	log := o.logger.With(zap.String("session", conv.Session.ID), zap.Stringer("intent", intent))
	log.Debug("intent classified")

	if !intent.Structured() {
		reply, err := o.exchange(ctx, conv, text, text)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Intent: intent, Reply: reply, Attempts: 1}, nil
	}

	out := Outcome{Intent: intent}
	prompt := o.templates.Wrap(text)
	for attempt := 0; attempt <= retryBudget; attempt++ {
		if attempt > 0 {
			log.Info("requesting corrected reply", zap.Int("attempt", attempt+1))
			prompt = o.templates.Correction
		}
		reply, err := o.exchange(ctx, conv, prompt, text)
		if err != nil {
			return Outcome{}, err
		}
		out.Attempts++
		out.Reply = reply
		v := Validate(reply)
		out.Sections = v.Sections
		if v.OK() {
			out.Failure = nil
			return out, nil
		}
		log.Warn("reply failed validation",
			zap.String("kind", string(v.Err.Kind)),
			zap.String("reason", v.Err.Reason),
			zap.Int("attempt", attempt+1))
		out.Failure = &Failure{Kind: v.Err.Kind, Reason: FailureReason(v.Err.Kind)}
	}
	return out, nil
}

// exchange commits userMsg, calls the model with the prior history, and
// commits the reply. query drives retrieval.
func (o *Orchestrator) exchange(ctx context.Context, conv *Conversation, userMsg, query string) (string, error) {
	history := conv.Turns
	if err := o.commit(conv, Turn{Role: RoleUser, Msg: userMsg}); err != nil {
		return "", err
	}

	msgs := o.builder.Build(ctx, history, query, userMsg)
	start := o.now()
	reply, err := o.model.Call(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", o.model.Label(), err)
	}
	o.logger.Debug("model replied",
		zap.String("model", o.model.Label()),
		zap.Duration("latency", o.now().Sub(start)),
		zap.Int("messages", len(msgs)))

	if err := o.commit(conv, Turn{Role: RoleAssistant, Msg: reply, Model: o.model.Label()}); err != nil {
		return "", err
	}
	return reply, nil
}

func (o *Orchestrator) commit(conv *Conversation, t Turn) error {
	t.Idx = conv.NextIdx
	t.Timestamp = o.now().UTC()
	if err := o.ledger.AppendTurn(conv.Session.ID, t); err != nil {
		return err
	}
	conv.Turns = append(conv.Turns, t)
	conv.NextIdx++
	return nil
}

// FailureReason returns the user-facing explanation for a failure kind.
func FailureReason(kind FailureKind) string {
	switch kind {
	case FailureHeaderMissing:
		return "CODE section missing required AWK header (# VAWK / Purpose / Intent / Input / Output)."
	case FailureMissingSection:
		return "Missing PLAN/CODE/TESTS/NOTES sections."
	default:
		return "Could not parse structured PLAN/CODE/TESTS/NOTES reply."
	}
}
