// Command vawk is a chat assistant for writing AWK scripts.
//
// Usage:
//
//	vawk chat [--session ID] [--title T] [--one-shot MSG] [--provider P] [--model M] [--plain]
//	vawk sessions
//	vawk show <session-id>
//	vawk promote --session ID --turn N [--name NAME]
//
// Provider selection: --provider, then VAWK_PROVIDER, then model.provider in
// .vawk/config.yaml, then the offline stub. ANTHROPIC_API_KEY and
// GEMINI_API_KEY supply credentials for the live providers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fwojciec/vawk"
	vyaml "github.com/fwojciec/vawk/yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	// Env vars are read here and passed as values.
	a := &app{
		env: env{
			provider:     os.Getenv("VAWK_PROVIDER"),
			anthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			geminiKey:    os.Getenv("GEMINI_API_KEY"),
		},
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		cwd:    wd,
		now:    time.Now,
	}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		var exit exitError
		if !errors.As(err, &exit) {
			fmt.Fprintf(os.Stderr, "vawk: %v\n", err)
		}
		os.Exit(1)
	}
}

// exitError ends the process with a failure status after the command has
// already reported the problem itself.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type env struct {
	provider     string
	anthropicKey string
	geminiKey    string
}

// app carries process state shared by all subcommands.
type app struct {
	env    env
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cwd    string
	now    func() time.Time

	configPath string
	verbose    bool

	cfg    vyaml.Config
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vawk",
		Short:         "AWK chat assistant with plan-first structured replies",
		Version:       vawk.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags().Changed("config"))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", vyaml.DefaultPath, "config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newChatCmd(a),
		newSessionsCmd(a),
		newShowCmd(a),
		newPromoteCmd(a),
	)
	return root
}

// setup loads configuration and builds the file logger.
func (a *app) setup(configRequired bool) error {
	path := a.abs(a.configPath)
	cfg, err := vyaml.Load(path, configRequired)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := a.newLogger()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) newLogger() (*zap.Logger, error) {
	if a.cfg.Log.File == "" {
		return zap.NewNop(), nil
	}
	file := a.abs(a.cfg.Log.File)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, err
	}
	level, err := zapcore.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{file}
	config.ErrorOutputPaths = []string{file}
	return config.Build()
}

// abs resolves p against the working directory captured at startup.
func (a *app) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cwd, p)
}
