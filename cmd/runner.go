package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/meetingbaas/settings/internal/cache"
	"github.com/meetingbaas/settings/internal/repositories"
	"github.com/meetingbaas/settings/internal/services"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/meetingbaas/settings/internal/tasks"
	"github.com/meetingbaas/settings/internal/unsubscribe"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, catalog cache and engine are opened on first use so commands that do not need them
// (setup, api, open) work without a configured backend.
type Runner struct {
	config     *shared.Config
	configPath string
	api        services.PreferencesAPI
	raw        *services.APIService
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader

	db         *sql.DB
	cacheStore cache.Store
	catalog    *cache.CatalogCache
	engine     *tasks.PreferenceEngine
	progress   chan tasks.ProgressUpdate
	closers    []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        services.PreferencesAPI
	Raw        *services.APIService
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	DB         *sql.DB     // opened from Config.Database when nil
	CacheStore cache.Store // built from Config.Cache when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Raw == nil {
		opts.Raw = services.NewAPIService(opts.Config.API.BaseURL, nil)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		raw:        opts.Raw,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
		db:         opts.DB,
		cacheStore: opts.CacheStore,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, catalogCommand, prefsCommand, apiCommand, serveCommand, tuiCommand, openCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database and cache connections opened by the runner.
func (r *Runner) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

func (r *Runner) catalogCache(ctx context.Context) (*cache.CatalogCache, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	if r.api == nil {
		return nil, fmt.Errorf("%w: preferences API not initialized", shared.ErrServiceUnavailable)
	}

	ttl, err := r.config.Cache.TTLDuration()
	if err != nil {
		return nil, err
	}

	store := r.cacheStore
	if store == nil {
		var db *sql.DB
		if r.config.Cache.Backend == "sqlite" {
			if db, err = r.database(); err != nil {
				return nil, err
			}
		}
		var closeFn func() error
		if store, closeFn, err = cache.NewStore(ctx, r.config.Cache, db); err != nil {
			return nil, err
		}
		r.closers = append(r.closers, closeFn)
	}

	r.catalog = cache.New(store, r.api.EmailTypes, cache.Options{TTL: ttl, Logger: r.logger})
	return r.catalog, nil
}

// preferenceEngine builds and loads the engine on first use.
func (r *Runner) preferenceEngine(ctx context.Context) (*tasks.PreferenceEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	engine, err := r.newEngine(ctx)
	if err != nil {
		return nil, err
	}

	if err := engine.Load(ctx); err != nil {
		return nil, err
	}

	r.engine = engine
	return engine, nil
}

// newEngine wires the engine to the catalog cache and the local repositories without loading it.
func (r *Runner) newEngine(ctx context.Context) (*tasks.PreferenceEngine, error) {
	catalog, err := r.catalogCache(ctx)
	if err != nil {
		return nil, err
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	return tasks.NewPreferenceEngine(r.api, catalog, tasks.EngineOpts{
		Account:   r.config.Account.ID,
		Changes:   repositories.NewChangeRepository(db),
		Snapshots: repositories.NewSnapshotRepository(db),
		Logger:    r.logger,
		Progress:  r.progress,
	}), nil
}

func (r *Runner) machine(ctx context.Context) (*tasks.PreferenceEngine, *unsubscribe.Machine, error) {
	engine, err := r.preferenceEngine(ctx)
	if err != nil {
		return nil, nil, err
	}
	return engine, unsubscribe.NewMachine(engine), nil
}

// confirm resolves the machine's pending target from --yes or a y/N prompt.
func (r *Runner) confirm(ctx context.Context, cmd *cli.Command, m *unsubscribe.Machine) error {
	target, ok := m.Pending()
	if !ok {
		return shared.ErrNothingPending
	}

	if !cmd.Bool("yes") {
		r.writePlain("Unsubscribe from %s? [y/N] ", target.Label)
		answer, err := r.input.ReadString('\n')
		if err != nil && err != io.EOF {
			m.Cancel()
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			m.Cancel()
			r.logger.Info("unsubscribe cancelled", "request_id", target.RequestID)
			return r.writePlain("Cancelled\n")
		}
	}

	confirmed, err := m.Confirm(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Unsubscribed from %s\n", confirmed.Label)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
