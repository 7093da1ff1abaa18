package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gicmo/home-sync/internal/catalogue"
	"github.com/gicmo/home-sync/internal/config"
	"github.com/gicmo/home-sync/internal/rsync"
	"github.com/gicmo/home-sync/internal/sync"
	"github.com/gicmo/home-sync/internal/ui"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flags holds the parsed command line
type flags struct {
	cfgFile   string
	logLevel  string
	logFormat string
	noColor   bool
	list      bool

	dryRun   bool
	noDelete bool
	sshKey   string
	data     []string
	appdata  []string
}

// env carries the process' side effects so tests can swap them out
type env struct {
	runner rsync.Runner
	stdout io.Writer
	stderr io.Writer
}

// usageError marks errors that stem from the command line itself
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	cmd := newRootCmd(env{
		runner: rsync.NewExecRunner(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	})
	cmd.SetArgs(expandListFlags(os.Args[1:], "data", "appdata"))

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints usage errors and returns the process exit code. Other
// failures have already been logged by runSync.
func reportError(w io.Writer, err error) int {
	var usage *usageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintf(w, "Error: %v\nRun 'home-sync --help' for usage.\n", err)
		return 2
	}
	return 1
}

func newRootCmd(e env) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "home-sync DEST",
		Short: "Mirror selected parts of your home directory to a remote host",
		Long: `home-sync mirrors a catalogue of home directory data groups and flatpak
application data to DEST using rsync over ssh.

Selected paths missing locally are skipped. Remote files that no longer exist
locally are deleted unless --no-delete is given. With --ssh-key, the public key
is installed as the remote authorized_keys before any data is transferred.

--data and --appdata take any number of values and may be repeated. Leaving a
flag out selects everything; giving it without values selects nothing.`,
		Example: `  home-sync host1 --data fonts
  home-sync host1 --no-delete --dry-run
  home-sync host1 --ssh-key ~/.ssh/id_ed25519.pub --data homesick
  home-sync host1 --data --appdata org.mozilla.firefox`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if f.list {
				if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
					return &usageError{err: err}
				}
				return nil
			}
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &usageError{err: fmt.Errorf("%w (DEST is required)", err)}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, f, e)
		},
	}

	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	// Global flags
	cmd.Flags().StringVar(&f.cfgFile, "config", "", "config file (default is $HOME/.config/home-sync/config.yaml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "text", "log format (text, json)")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&f.list, "list", false, "list data groups and discovered applications, then exit")

	// Sync flags
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the commands instead of running them")
	cmd.Flags().StringVar(&f.sshKey, "ssh-key", "", "install `KEYFILE` as remote authorized_keys before syncing")
	cmd.Flags().BoolVar(&f.noDelete, "no-delete", false, "keep remote files that no longer exist locally")
	cmd.Flags().StringSliceVar(&f.data, "data", nil, "data `GROUP`s to sync (default all)")
	cmd.Flags().StringSliceVar(&f.appdata, "appdata", nil, "flatpak application `APP`s to sync (default all discovered)")

	return cmd
}

func runSync(cmd *cobra.Command, args []string, f *flags, e env) error {
	ctx := cmd.Context()

	if f.noColor {
		ui.DisableColors()
	}

	logger := setupLogger(f.logLevel, f.logFormat, e.stderr)

	cfg, err := loadConfig(f.cfgFile, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return fmt.Errorf("failed to load config: %w", err)
	}

	cat, err := cfg.Catalogue()
	if err != nil {
		logger.Error("invalid catalogue", "error", err)
		return fmt.Errorf("invalid catalogue: %w", err)
	}
	apps := discoverApplications(cfg.AppDataRoot, logger)

	out := ui.NewPrinter(e.stdout)
	if f.list {
		printList(out, cat, cfg.AppDataRoot, apps)
		return nil
	}

	items, err := selectItems(cmd.Flags(), f, cat, cfg.AppDataRoot, apps)
	if err != nil {
		return err
	}

	remote := args[0]
	client := rsync.NewClient(e.runner, remote, rsync.Options{
		SSH:       cfg.Transport.SSH,
		Rsync:     cfg.Transport.Rsync,
		ExtraArgs: cfg.Transport.RsyncArgs,
	})
	engine := sync.NewEngine(sync.Options{
		Remote: remote,
		Delete: !f.noDelete,
		DryRun: f.dryRun,
	}, client, out, logger)

	summary, err := engine.Run(ctx, f.sshKey, items)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	logger.Info("sync completed",
		"transferred", summary.Transferred,
		"skipped", summary.Skipped,
		"dry_run", f.dryRun)

	return nil
}

// selectItems resolves --data and --appdata into the ordered list of paths
// to mirror: catalogue groups first, then applications.
func selectItems(fs *pflag.FlagSet, f *flags, cat *catalogue.Catalogue, appRoot string, apps []string) ([]catalogue.PathSpec, error) {
	groupSel := catalogue.FromFlag(fs.Changed("data"), f.data)
	if err := groupSel.Validate("data group", cat.Names()); err != nil {
		return nil, &usageError{err: err}
	}

	appSel := catalogue.FromFlag(fs.Changed("appdata"), f.appdata)
	if err := appSel.Validate("application", apps); err != nil {
		return nil, &usageError{err: err}
	}

	items, err := cat.Paths(groupSel.Resolve(cat.Names()))
	if err != nil {
		return nil, &usageError{err: err}
	}
	return append(items, catalogue.AppPaths(appRoot, appSel.Resolve(apps))...), nil
}

// discoverApplications lists flatpak application data directories. A
// missing root only disables application data sync.
func discoverApplications(root string, logger *slog.Logger) []string {
	apps, err := catalogue.DiscoverApplications(root)
	if err != nil {
		if errors.Is(err, catalogue.ErrDiscoveryRootMissing) {
			logger.Info("no application data found", "root", root)
		} else {
			logger.Warn("failed to discover application data", "root", root, "error", err)
		}
		return nil
	}
	logger.Debug("discovered applications", "root", root, "count", len(apps))
	return apps
}

func printList(out *ui.Printer, cat *catalogue.Catalogue, appRoot string, apps []string) {
	for _, g := range cat.Groups() {
		out.Heading(g.Name)
		for _, p := range g.Paths {
			if p.Target != "" {
				out.Item(p.Source + " -> " + p.Target)
			} else {
				out.Item(p.Source)
			}
		}
	}

	out.Heading("appdata (" + appRoot + ")")
	for _, app := range apps {
		out.Item(app)
	}
}

func setupLogger(logLevel, logFormat string, w io.Writer) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func loadConfig(cfgFile string, logger *slog.Logger) (*config.Config, error) {
	// An explicitly named config file must exist
	if cfgFile != "" {
		logger.Debug("loading configuration", "path", cfgFile)
		return config.Load(cfgFile)
	}

	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}

	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		"path", path,
		"found", found,
		"appdata_root", cfg.AppDataRoot,
		"groups", len(cfg.Groups))

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
