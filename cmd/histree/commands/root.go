// Package commands implements CLI command handlers for histree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/internal/config"
	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/gitlib"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
)

var (
	// ErrUnknownSource indicates a --source value other than auto, csv or git.
	ErrUnknownSource = errors.New("unknown input source")
	// ErrInputNotFound indicates the --input path does not exist.
	ErrInputNotFound = errors.New("input not found")
)

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath  string
	Input       string
	Source      string
	FirstParent bool
	Since       string
	Until       string
	Verbose     bool
	Quiet       bool
	NoColor     bool

	// LogOutput overrides where diagnostics go; nil means stderr.
	LogOutput io.Writer
}

// NewRootCommand builds the histree command tree.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "histree",
		Short: "histree - reconstruct a repository's file tree at any point in its history",
		Long: `histree replays a commit history (a git repository or a CSV change log)
and reconstructs the file tree as it stood at any instant, with per-file
change counts aggregated up the tree.

Commands:
  snapshot      Print or save the tree as of an instant
  contributors  List contributors
  periods       Count commits per day, week or month
  diff          Compare the trees at two instants
  export        Write the history as a CSV change log
  validate      Check a saved snapshot document
  serve         Serve snapshots over HTTP
  mcp           Serve snapshots to AI agents over MCP stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default .histree.yaml in . or $HOME)")
	flags.StringVarP(&opts.Input, "input", "i", "", "git repository or CSV change log (default from config, else .)")
	flags.StringVar(&opts.Source, "source", "", "input source: auto, csv or git")
	flags.BoolVar(&opts.FirstParent, "first-parent", false, "follow only the first parent of merge commits")
	flags.StringVar(&opts.Since, "since", "", "ignore commits before this instant")
	flags.StringVar(&opts.Until, "until", "", "ignore commits at or after this instant")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress warnings")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newSnapshotCommand(opts),
		newContributorsCommand(opts),
		newPeriodsCommand(opts),
		newDiffCommand(opts),
		newExportCommand(opts),
		newValidateCommand(opts),
		newServeCommand(opts),
		newMCPCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// session is the per-invocation state built from config and flags.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
}

// open loads configuration, applies flag overrides and initializes observability.
func (g *GlobalOptions) open(cmd *cobra.Command, mode observability.AppMode) (*session, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	g.override(cmd, cfg)

	obsCfg := cfg.Observability(mode)
	obsCfg.LogOutput = g.LogOutput

	if mode == observability.ModeMCP {
		obsCfg.LogJSON = true
	}

	switch {
	case g.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case g.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &session{cfg: cfg, providers: providers, logger: providers.Logger}, nil
}

func (g *GlobalOptions) override(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("input") {
		cfg.Input.Path = g.Input
	}

	if flags.Changed("source") {
		cfg.Input.Source = g.Source
	}

	if flags.Changed("first-parent") {
		cfg.Input.FirstParent = g.FirstParent
	}

	if flags.Changed("since") {
		cfg.Input.Since = g.Since
	}

	if flags.Changed("until") {
		cfg.Input.Until = g.Until
	}
}

func (s *session) close() {
	shutdownErr := s.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		s.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}

// history reads the configured input, oldest first.
func (s *session) history(ctx context.Context) ([]changelog.Commit, error) {
	since, err := optionalInstant(s.cfg.Input.Since)
	if err != nil {
		return nil, fmt.Errorf("since: %w", err)
	}

	until, err := optionalInstant(s.cfg.Input.Until)
	if err != nil {
		return nil, fmt.Errorf("until: %w", err)
	}

	path := s.cfg.Input.Path

	source, err := resolveSource(s.cfg.Input.Source, path)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	var commits []changelog.Commit

	switch source {
	case config.SourceGit:
		commits, err = gitlib.ReadHistory(ctx, path, gitlib.HistoryOptions{
			LogOptions: gitlib.LogOptions{Since: since, Until: until, FirstParent: s.cfg.Input.FirstParent},
			Logger:     s.logger,
		})
	default:
		commits, err = readCSVFile(path, s.logger)
		commits = changelog.Between(commits, since, until)
	}

	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "history loaded",
		"source", source, "path", path, "commits", len(commits), "elapsed", time.Since(started))

	return commits, nil
}

// service loads the history into a snapshot service.
func (s *session) service(ctx context.Context) (*snapshot.Service, error) {
	commits, err := s.history(ctx)
	if err != nil {
		return nil, err
	}

	cacheSize, err := s.cfg.Snapshot.CacheBytes()
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewSnapshotMetrics(s.providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("snapshot metrics: %w", err)
	}

	return snapshot.NewService(commits, snapshot.Options{
		Logger:    s.logger,
		Tracer:    s.providers.Tracer,
		Metrics:   metrics,
		CacheSize: cacheSize,
		Compress:  s.cfg.Snapshot.CacheCompress,
	}), nil
}

func readCSVFile(path string, logger *slog.Logger) ([]changelog.Commit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	commits, err := changelog.ReadCSV(f, changelog.NewParser(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return commits, nil
}

// resolveSource maps auto to git for directories and csv for files.
func resolveSource(source, path string) (string, error) {
	source = strings.ToLower(source)

	switch source {
	case config.SourceCSV, config.SourceGit:
		return source, nil
	case config.SourceAuto, "":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	if info.IsDir() {
		return config.SourceGit, nil
	}

	return config.SourceCSV, nil
}

func optionalInstant(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil //nolint:nilnil // Absent bound.
	}

	t, err := snapshot.ParseInstant(raw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// useColor reports whether output to w should be colored. Only stdout is
// colored, following fatih/color's terminal and NO_COLOR detection.
func (g *GlobalOptions) useColor(w io.Writer) bool {
	if g.NoColor || color.NoColor {
		return false
	}

	f, ok := w.(*os.File)

	return ok && f == os.Stdout
}
