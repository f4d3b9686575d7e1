// Package cli implements todoctl, a command-line client for the todo API.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/todo/internal/controller"
	"github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/pkg/todoclient"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg    Config
	logger *zap.Logger
	stdout io.Writer
}

// Execute runs todoctl with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, logger: zap.NewNop()}

	var (
		configPath string
		server     string
		token      string
		timeout    time.Duration
		logFile    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "todoctl",
		Short:         "Manage todos on a todo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("server") {
				cfg.Server = server
			}
			if flags.Changed("token") {
				cfg.Token = token
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			if flags.Changed("log-file") {
				cfg.LogFile = logFile
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg

			// Without a log file the TUI must stay silent or it would draw
			// over the screen; one-shot commands log to stderr.
			output := cfg.LogFile
			if output == "" {
				if cmd.Name() == "tui" {
					return nil
				}
				output = "stderr"
			}
			log, err := logger.New(logger.Config{
				Level:    cfg.LogLevel,
				Encoding: "console",
				Output:   output,
			})
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			a.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default "+DefaultConfigPath()+")")
	pf.StringVar(&server, "server", "", "todo server base URL")
	pf.StringVar(&token, "token", "", "bearer token for servers with JWT enabled")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newToggleCmd(a),
		newRemoveCmd(a),
		newTUICmd(a),
	)
	return cmd
}

func (a *app) controller() *controller.Controller {
	opts := []todoclient.Option{todoclient.WithTimeout(a.cfg.Timeout)}
	if a.cfg.Token != "" {
		opts = append(opts, todoclient.WithToken(a.cfg.Token))
	}
	client := todoclient.New(a.cfg.Server, opts...)
	return controller.New(client, controller.Config{RequestTimeout: a.cfg.Timeout}, a.logger)
}
