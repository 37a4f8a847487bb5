package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/johndauphine/go-dm/internal/checkpoint"
	"github.com/johndauphine/go-dm/internal/config"
	"github.com/johndauphine/go-dm/internal/connection"
	"github.com/johndauphine/go-dm/internal/connector"
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/exitcodes"
	"github.com/johndauphine/go-dm/internal/logging"
	"github.com/johndauphine/go-dm/internal/naming"
	"github.com/johndauphine/go-dm/internal/progress"
	"github.com/johndauphine/go-dm/internal/schema"
	"github.com/johndauphine/go-dm/internal/stats"
)

var version = "11.0.4"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("Error: "+err.Error()))
		os.Exit(exitcodes.FromError(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "dmctl",
		Usage:   "Dameng connection, naming and schema tool",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "dmctl.yaml",
				Usage:   "Path to configuration file (YAML or TOML); DB_* variables are used when it is missing",
			},
			&cli.StringFlag{
				Name:    "connection",
				Aliases: []string{"n"},
				Usage:   "Connection name (default: the config's default connection)",
			},
			&cli.StringFlag{
				Name:    "state",
				EnvVars: []string{"DMCTL_STATE"},
				Usage:   "Run history location: a directory for SQLite or a .yaml file (default: ~/.dmctl)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Value: "info",
				Usage: "Log verbosity level (debug, info, warn, error)",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(c.String("verbosity"))
			if err != nil {
				return exitcodes.NewExitError(err, exitcodes.ConfigError)
			}
			logging.SetLevel(level)

			if c.String("log-format") == "json" {
				logging.SetFormat("json")
			}
			// Command output goes to stdout, logs to stderr.
			logging.SetOutput(os.Stderr)
			return nil
		},
		After: func(c *cli.Context) error {
			_ = logging.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "name",
				Usage:  "Generate an index or constraint name",
				Action: generateName,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "table", Aliases: []string{"t"}, Required: true, Usage: "Table name"},
					&cli.StringSliceFlag{Name: "columns", Aliases: []string{"col"}, Required: true, Usage: "Indexed columns, comma separated"},
					&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Value: "index", Usage: "primary, unique, foreign or index"},
					&cli.StringFlag{Name: "prefix", Usage: "Table prefix"},
					&cli.IntFlag{Name: "max-length", Value: naming.DefaultMaxLength, Usage: "Identifier length limit"},
					&cli.BoolFlag{Name: "explain", Usage: "Show every shortening pass"},
					&cli.BoolFlag{Name: "bytes", Usage: "Count the limit in UTF-8 bytes instead of characters"},
				},
			},
			{
				Name:   "dsn",
				Usage:  "Print the connection string for a connection",
				Action: showDSN,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "show-password", Usage: "Print the password instead of redacting it"},
				},
			},
			{
				Name:      "rewrite",
				Usage:     "Apply the dialect's SQL rewrites to a statement",
				ArgsUsage: "[SQL | -]",
				Action:    rewriteSQL,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "driver", Usage: "Driver to rewrite for (default: the connection's driver)"},
				},
			},
			{
				Name:      "ddl",
				Usage:     "Print the DDL for a blueprint file without connecting",
				ArgsUsage: "FILE",
				Action:    printDDL,
			},
			{
				Name:   "query",
				Usage:  "Build a select for the connection's driver and print it, or run it with --run",
				Action: runQuery,
				Flags:  queryFlags(),
			},
			{
				Name:   "ping",
				Usage:  "Connect, apply session settings and report the connection",
				Action: ping,
			},
			{
				Name:      "migrate",
				Usage:     "Create the tables of a blueprint file",
				ArgsUsage: "FILE",
				Action:    migrate,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "drop-first", Usage: "Drop existing tables before creating them"},
					&cli.BoolFlag{Name: "progress-json", Usage: "Write JSON progress updates to stderr instead of a progress bar"},
					&cli.BoolFlag{Name: "resume", Usage: "Skip tables already created by an interrupted run of the same file"},
				},
			},
			{
				Name:   "history",
				Usage:  "List recorded migrate runs",
				Action: history,
			},
		},
	}
}

func generateName(c *cli.Context) error {
	req := naming.Request{
		Prefix:  c.String("prefix"),
		Table:   c.String("table"),
		Columns: c.StringSlice("columns"),
		Kind:    naming.ConstraintKind(strings.ToLower(c.String("kind"))),
	}
	namer := naming.New(c.Int("max-length"))
	namer.Bytes = c.Bool("bytes")
	w := c.App.Writer

	if !c.Bool("explain") {
		name, err := namer.Generate(req)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, name)
		return nil
	}

	steps, err := namer.Trace(req)
	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("%s name for %s%s (%s), limit %d",
		req.Kind, req.Prefix, req.Table, strings.Join(req.Columns, ", "), namer.Limit())))
	for i, step := range steps {
		fmt.Fprintln(w, styleStep.Render(fmt.Sprintf("  %d. %-40s %d", i+1, step, namer.Length(step))))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, styleSuccess.Render("  => "+steps[len(steps)-1]))
	return nil
}

// loadConfig reads the config file, or the DB_* environment when the
// default config file does not exist.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) && !c.IsSet("config") {
		logging.Debug("No %s found, using DB_* environment variables", path)
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, exitcodes.NewExitError(err, exitcodes.ConfigError)
	}

	if cfg.Logging.File != "" {
		if err := logging.SetFile(cfg.Logging.File, cfg.Logging.MaxSizeMB); err != nil {
			return nil, exitcodes.NewExitError(err, exitcodes.IOError)
		}
	}
	if cfg.Logging.Level != "" && !c.IsSet("verbosity") {
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			logging.SetLevel(level)
		}
	}
	if cfg.Logging.Format != "" && !c.IsSet("log-format") {
		logging.SetFormat(cfg.Logging.Format)
	}
	return cfg, nil
}

func loadConnection(c *cli.Context) (config.ConnectionConfig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	conn, err := cfg.Connection(c.String("connection"))
	if err != nil {
		return config.ConnectionConfig{}, exitcodes.NewExitError(err, exitcodes.ConfigError)
	}
	if logging.IsDebug() {
		logging.Debug("Using connection %+v", conn.Sanitized())
	}
	return conn, nil
}

func showDSN(c *cli.Context) error {
	conn, err := loadConnection(c)
	if err != nil {
		return err
	}
	// Sanitized's marker would come out percent-encoded in URL DSNs.
	if !c.Bool("show-password") && conn.Password != "" {
		conn.Password = "xxxxx"
	}
	dsn, err := connector.DSN(conn)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, dsn)
	return nil
}

func rewriteSQL(c *cli.Context) error {
	name := c.String("driver")
	if name == "" {
		conn, err := loadConnection(c)
		if err != nil {
			return err
		}
		name = conn.Driver
	}
	dialect := driver.GetDialect(name)
	if dialect == nil {
		return exitcodes.NewExitError(fmt.Errorf("unknown driver %q (available: %v)", name, driver.Available()), exitcodes.ConfigError)
	}

	stmt := strings.Join(c.Args().Slice(), " ")
	if stmt == "" || stmt == "-" {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return exitcodes.NewExitError(fmt.Errorf("reading SQL: %w", err), exitcodes.IOError)
		}
		stmt = strings.TrimRight(string(data), "\n")
	}
	fmt.Fprintln(c.App.Writer, dialect.RewriteRules().Apply(stmt))
	return nil
}

func loadBlueprints(c *cli.Context) ([]*schema.Blueprint, error) {
	if c.NArg() != 1 {
		return nil, exitcodes.NewExitError(fmt.Errorf("%s needs exactly one blueprint file", c.Command.Name), exitcodes.ConfigError)
	}
	bps, err := schema.LoadFile(c.Args().First())
	if err != nil {
		return nil, exitcodes.NewExitError(err, exitcodes.SchemaError)
	}
	return bps, nil
}

func printDDL(c *cli.Context) error {
	bps, err := loadBlueprints(c)
	if err != nil {
		return err
	}
	cfg, err := loadConnection(c)
	if err != nil {
		return err
	}

	// Compiling needs the connection's settings, not a database.
	conn, err := connection.New(nil, cfg)
	if err != nil {
		return err
	}
	builder, err := schema.NewBuilder(conn)
	if err != nil {
		return err
	}
	for _, bp := range bps {
		bp.SetTablePrefix(conn.TablePrefix())
	}
	compiled, err := builder.Compile(bps...)
	if err != nil {
		return exitcodes.NewExitError(err, exitcodes.SchemaError)
	}

	for _, stmts := range compiled {
		for _, stmt := range stmts {
			fmt.Fprintln(c.App.Writer, stmt+";")
		}
	}
	return nil
}

// open connects and applies the connection's session settings.
func open(ctx context.Context, c *cli.Context) (*connection.Connection, *sql.DB, error) {
	cfg, err := loadConnection(c)
	if err != nil {
		return nil, nil, err
	}
	db, err := connector.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, exitcodes.NewExitError(err, exitcodes.ConnectionError)
	}
	conn, err := connection.New(db, cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := conn.Configure(ctx); err != nil {
		db.Close()
		return nil, nil, exitcodes.NewExitError(err, exitcodes.ConnectionError)
	}
	return conn, db, nil
}

func ping(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	start := time.Now()
	conn, db, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	w := c.App.Writer
	fmt.Fprintln(w, styleSuccess.Render(fmt.Sprintf("Connected to %s in %s", conn.DriverTitle(), time.Since(start).Round(time.Millisecond))))
	fmt.Fprintf(w, "  connection: %s\n", conn.ID())
	fmt.Fprintf(w, "  schema:     %s\n", conn.Schema())
	fmt.Fprintf(w, "  pool:       %s\n", stats.FromDB(conn.Config().Driver, db))
	return nil
}

func openState(c *cli.Context) (checkpoint.Backend, error) {
	path := c.String("state")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, exitcodes.NewExitError(err, exitcodes.IOError)
		}
		path = filepath.Join(home, ".dmctl")
	}
	state, err := checkpoint.Open(path)
	if err != nil {
		return nil, exitcodes.NewExitError(fmt.Errorf("opening run history: %w", err), exitcodes.IOError)
	}
	return state, nil
}

func migrate(c *cli.Context) error {
	bps, err := loadBlueprints(c)
	if err != nil {
		return err
	}
	file, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping after the current statement...")
			cancel()
		case <-ctx.Done():
		}
	}()

	state, err := openState(c)
	if err != nil {
		return err
	}
	defer state.Close()

	conn, db, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	builder, err := schema.NewBuilder(conn)
	if err != nil {
		return err
	}
	for _, bp := range bps {
		bp.SetTablePrefix(conn.TablePrefix())
	}

	runID, resumed := uuid.NewString(), false
	if c.Bool("resume") {
		if c.Bool("drop-first") {
			return exitcodes.NewExitError(errors.New("--resume and --drop-first cannot be combined"), exitcodes.ConfigError)
		}
		prev, err := state.LastIncompleteRun(file, target(conn.Config()))
		if err != nil {
			return err
		}
		if prev != nil {
			done, err := state.CompletedTables(prev.ID)
			if err != nil {
				return err
			}
			partial, err := state.PartialTables(prev.ID)
			if err != nil {
				return err
			}
			bps = pending(bps, done)
			builder.Resume(partial)
			runID, resumed = prev.ID, true
			logging.Info("Resuming run %s: %d tables left", runID, len(bps))
		}
	}
	if !resumed {
		if err := state.CreateRun(runID, file, target(conn.Config()), conn.Schema()); err != nil {
			return exitcodes.NewExitError(fmt.Errorf("recording run: %w", err), exitcodes.IOError)
		}
	}

	if c.Bool("drop-first") {
		// Reverse order so referencing tables go first.
		for i := len(bps) - 1; i >= 0; i-- {
			if err := builder.DropIfExists(ctx, bps[i].Table); err != nil {
				return finishRun(state, runID, exitcodes.NewExitError(err, exitcodes.SchemaError))
			}
		}
	}

	if c.Bool("progress-json") {
		reporter := progress.NewJSONReporter(os.Stderr, time.Second)
		defer reporter.Close()
		builder.WithReporter(reporter)
	} else {
		builder.WithProgress(progress.New())
	}
	builder.OnStatement(func(bp *schema.Blueprint, n int) error {
		return state.MarkStatements(runID, bp.PrefixedTable(), n)
	}).OnCreated(func(bp *schema.Blueprint) error {
		return state.MarkTableComplete(runID, bp.PrefixedTable())
	})

	if err := builder.Build(ctx, bps...); err != nil {
		return finishRun(state, runID, err)
	}
	report(c.App.Writer, bps)
	return finishRun(state, runID, nil)
}

// target identifies a database across runs, without the password.
func target(cfg config.ConnectionConfig) string {
	if cfg.Driver == "sqlite" {
		return "sqlite:" + cfg.Database
	}
	return fmt.Sprintf("%s:%s@%s:%d/%s", cfg.Driver, cfg.Username, cfg.Host, cfg.Port, cfg.Database)
}

// pending drops blueprints whose tables are in done.
func pending(bps []*schema.Blueprint, done map[string]bool) []*schema.Blueprint {
	out := bps[:0:0]
	for _, bp := range bps {
		if !done[bp.PrefixedTable()] {
			out = append(out, bp)
		}
	}
	return out
}

// finishRun records the outcome of runID and returns err. An interrupted
// run stays open so --resume can pick it up.
func finishRun(state checkpoint.Backend, runID string, err error) error {
	status, msg := checkpoint.StatusSuccess, ""
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		status, msg = checkpoint.StatusFailed, err.Error()
	}
	if cerr := state.CompleteRun(runID, status, msg); cerr != nil {
		logging.Warn("Failed to record run %s: %v", runID, cerr)
	}
	return err
}

func report(w io.Writer, bps []*schema.Blueprint) {
	for _, bp := range bps {
		fmt.Fprintln(w, styleSuccess.Render("Created "+bp.PrefixedTable()))
	}
}

func history(c *cli.Context) error {
	state, err := openState(c)
	if err != nil {
		return err
	}
	defer state.Close()

	runs, err := state.AllRuns()
	if err != nil {
		return err
	}
	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %-7s  %s  %s -> %s", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.ID, r.File, r.Connection)
		switch r.Status {
		case checkpoint.StatusSuccess:
			line = styleSuccess.Render(line)
		case checkpoint.StatusFailed:
			line = styleError.Render(line) + "\n    " + styleStep.Render(r.Error)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
