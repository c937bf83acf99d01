package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/esm/internal/config"
	"github.com/roach88/esm/internal/console"
	"github.com/roach88/esm/internal/demo"
	"github.com/roach88/esm/internal/store"
	"github.com/roach88/esm/internal/trace"
)

// ConsoleOptions holds flags for the console command.
type ConsoleOptions struct {
	*RootOptions
	Config   string
	Database string
	Name     string

	// SessionGenerator allows overriding the session id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	SessionGenerator store.SessionIDGenerator
}

// NewConsoleCommand creates the console command.
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	return newConsoleCommand(&ConsoleOptions{RootOptions: rootOpts})
}

func newConsoleCommand(opts *ConsoleOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run the sample state machine interactively",
		Long: `Run the sample handlers on a live main loop and read commands from stdin.

Every callback is printed as it happens, e.g.

  state_1->event_handler->on_timer(0);

Type "help" for the command list and "exit" (or EOF) to stop. With --db
the session is also recorded for "esm trace".

Examples:
  esm console
  esm console --config ./esm.cue
  esm console --db ./esm.db --name timers`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the session to this SQLite database")
	cmd.Flags().StringVar(&opts.Name, "name", "console", "session name when recording")

	return cmd
}

func runConsole(opts *ConsoleOptions, cmd *cobra.Command) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger := newLogger(opts.RootOptions, stderr)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	recOpts := []trace.RecorderOption{trace.WithObserver(trace.NewPrinter(stdout))}

	var writer *store.SessionWriter
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		sess := store.NewSession(opts.SessionGenerator, opts.Name, cfg.Map())
		writer, err = store.NewSessionWriter(ctx, st, sess)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record session", err)
		}
		recOpts = append(recOpts, trace.WithObserver(writer))
		logger.Info("recording session", "id", sess.ID, "db", opts.Database)
		fmt.Fprintf(stderr, "Recording session %s\n", sess.ID)
	}

	rec := trace.NewRecorder(recOpts...)
	driver := console.New(cfg, rec,
		console.WithLogger(logger),
		console.WithHelpOutput(stderr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := driver.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "Failed to initialize esm module", err)
	}

	readCommands(ctx, cmd.InOrStdin(), driver, stderr, logger)

	cancel()
	if err := driver.Wait(); err != nil {
		return WrapExitError(ExitFailure, "main loop error", err)
	}
	if writer != nil {
		if err := writer.Err(); err != nil {
			return WrapExitError(ExitFailure, "failed to record session", err)
		}
	}
	return nil
}

// readCommands executes lines from in until exit, EOF or ctx is cancelled.
func readCommands(ctx context.Context, in io.Reader, d *console.Driver, errOut io.Writer, logger *slog.Logger) {
	lines := make(chan string)
	// A Scan blocked on stdin cannot be interrupted; after ctx is done the
	// reader goroutine exits on its next line or at process exit.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("reading commands", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			argv := strings.Fields(line)
			if len(argv) == 0 {
				continue
			}
			exit, err := d.Exec(argv)
			if exit {
				return
			}
			if err != nil {
				reportCommandError(errOut, argv[0], err)
			}
		}
	}
}

// reportCommandError prints a rejected command the way the console always
// has: the reason, then the command's usage line.
func reportCommandError(w io.Writer, name string, err error) {
	var cmdErr *demo.CommandError
	switch {
	case errors.Is(err, demo.ErrUnknownCommand):
		fmt.Fprintln(w, "Command not found.")
	case errors.As(err, &cmdErr):
		if !cmdErr.Usage {
			fmt.Fprintln(w, cmdErr.Error())
		}
		if spec, ok := demo.Lookup(name); ok {
			console.WriteUsage(w, spec)
		}
	default:
		fmt.Fprintln(w, err.Error())
	}
}

// loadConfig loads path, or returns the defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
