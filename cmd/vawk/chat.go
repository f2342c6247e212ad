package main

import (
	"os"

	"github.com/fwojciec/vawk"
	"github.com/fwojciec/vawk/console"
	vjson "github.com/fwojciec/vawk/json"
	"github.com/fwojciec/vawk/rag"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	session  string
	title    string
	oneShot  string
	provider string
	model    string
	plain    bool
}

func newChatCmd(a *app) *cobra.Command {
	var o chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start or resume a chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, o, cmd.Flags().Changed("one-shot"))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.session, "session", "", "existing session id")
	f.StringVar(&o.title, "title", "", "title for a new session")
	f.StringVar(&o.oneShot, "one-shot", "", "send a single message and exit")
	f.StringVar(&o.provider, "provider", "", "model provider: stub, anthropic, gemini")
	f.StringVar(&o.model, "model", "", "model id (provider-specific)")
	f.BoolVar(&o.plain, "plain", false, "disable styled output")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, o chatOptions, oneShot bool) error {
	ctx := cmd.Context()
	model, err := resolveModel(ctx, o.provider, o.model, a.cfg, a.env)
	if err != nil {
		return err
	}
	prompts, err := loadPrompts(a.abs(a.cfg.Prompts.Dir), a.cwd)
	if err != nil {
		return err
	}

	builderOpts := []vawk.PromptOption{
		vawk.WithMaxHistory(a.cfg.Model.History),
		vawk.WithPromptLogger(a.logger),
	}
	if !a.cfg.RAG.Disabled {
		builderOpts = append(builderOpts, vawk.WithContextSource(a.repository()))
	}
	orch := vawk.NewOrchestrator(a.ledger(), model,
		vawk.WithPromptBuilder(vawk.NewPromptBuilder(prompts, builderOpts...)),
		vawk.WithTemplates(a.cfg.Templates()),
		vawk.WithLogger(a.logger),
	)

	c := console.New(orch,
		console.WithInput(a.stdin),
		console.WithOutput(a.stdout),
		console.WithStyled(!o.plain && a.isTerminal()),
	)
	if !oneShot {
		return c.Interactive(ctx, o.session, o.title)
	}
	code, err := c.OneShot(ctx, o.session, o.title, o.oneShot)
	if err != nil {
		return err
	}
	if code != 0 {
		return exitError{code: code}
	}
	return nil
}

func (a *app) ledger() *vjson.Ledger {
	return vjson.New(a.abs(a.cfg.Ledger.Dir),
		vjson.WithLogger(a.logger),
		vjson.WithCwd(a.cwd),
		vjson.WithClock(a.now),
	)
}

func (a *app) repository() *rag.Repository {
	indexes := make([]rag.Index, len(a.cfg.RAG.Indexes))
	for i, ix := range a.cfg.RAG.Indexes {
		indexes[i] = rag.Index{Glob: ix.Glob, Group: ix.Group}
	}
	return rag.New(a.abs(a.cfg.RAG.Root), indexes,
		rag.WithLimit(a.cfg.RAG.Limit),
		rag.WithMaxLines(a.cfg.RAG.MaxLines),
		rag.WithMaxChars(a.cfg.RAG.MaxChars),
		rag.WithLogger(a.logger),
	)
}

func (a *app) isTerminal() bool {
	f, ok := a.stdout.(*os.File)
	return ok && console.IsTerminal(f)
}
