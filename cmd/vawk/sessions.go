package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// titleWidth is the display width titles are truncated to in listings.
const titleWidth = 40

func newSessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSessions()
		},
	}
}

func (a *app) runSessions() error {
	summaries, err := a.ledger().List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(a.stdout, "No chat sessions found.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTURNS\tTITLE")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			s.Session.ID,
			s.Session.CreatedAt.Local().Format(time.DateTime),
			s.Turns,
			runewidth.Truncate(oneLine(s.Session.Title), titleWidth, "…"),
		)
	}
	return tw.Flush()
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print every turn of a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShow(args[0])
		},
	}
}

func (a *app) runShow(id string) error {
	conv, err := a.ledger().LoadSession(id)
	if err != nil {
		return err
	}
	s := conv.Session
	fmt.Fprintf(a.stdout, "Session: %s\n", s.ID)
	if s.Title != "" {
		fmt.Fprintf(a.stdout, "Title: %s\n", s.Title)
	}
	fmt.Fprintf(a.stdout, "Created: %s\n", s.CreatedAt.Format(time.RFC3339))
	for _, t := range conv.Turns {
		fmt.Fprintln(a.stdout)
		if t.Model != "" {
			fmt.Fprintf(a.stdout, "[%d] %s (%s)\n", t.Idx, t.Role, t.Model)
		} else {
			fmt.Fprintf(a.stdout, "[%d] %s\n", t.Idx, t.Role)
		}
		fmt.Fprintln(a.stdout, t.Msg)
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
