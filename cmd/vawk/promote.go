package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fwojciec/vawk"
	vyaml "github.com/fwojciec/vawk/yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type promoteOptions struct {
	session string
	turn    int
	name    string
}

func newPromoteCmd(a *app) *cobra.Command {
	var o promoteOptions
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote a structured chat turn into a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPromote(o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.session, "session", "", "session id")
	f.IntVar(&o.turn, "turn", 0, "assistant turn index to promote")
	f.StringVar(&o.name, "name", "", "job name (default job-<session prefix>-<turn>)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("turn")
	return cmd
}

func (a *app) runPromote(o promoteOptions) error {
	conv, err := a.ledger().LoadSession(o.session)
	if err != nil {
		return err
	}
	job, err := vawk.PromoteTurn(conv, o.turn, o.name, a.now())
	var verr *vawk.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(a.stderr, "[vawk] Error: turn %d is not a valid PLAN/CODE/TESTS/NOTES reply.\n", o.turn)
		fmt.Fprintf(a.stderr, "[vawk] Reason: %s\n", verr.Reason)
		return exitError{code: 1}
	}
	if err != nil {
		return err
	}

	root := a.cfg.Jobs.Dir
	dir, err := vyaml.SaveJob(a.abs(root), job)
	if err != nil {
		return err
	}
	a.logger.Info("turn promoted",
		zap.String("session", o.session),
		zap.Int("turn", o.turn),
		zap.String("dir", dir),
		zap.String("programHash", job.ProgramHash))
	fmt.Fprintf(a.stdout, "[vawk] Promoted chat turn %d from session %s into %s\n", o.turn, o.session, filepath.ToSlash(filepath.Join(root, job.Name)))
	return nil
}
