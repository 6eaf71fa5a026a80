package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotmirror/spotmirror/internal/repositories"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/spotmirror/spotmirror/internal/shared"
	"github.com/spotmirror/spotmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	remote     services.Service
	db         *sql.DB
	store      *repositories.Store
	cache      *repositories.CacheRepository
	queue      *repositories.QueueRepository
	tokens     *services.TokenManager
	engine     *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Remote     services.Service
	DB         *sql.DB
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		remote:     opts.Remote,
	}

	if opts.DB != nil {
		r.adoptDatabase(opts.DB)
	}

	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, pullCommand, playlistCommand, queueCommand, libraryCommand, organizeCommand, deviceCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) adoptDatabase(db *sql.DB) {
	r.db = db
	r.store = repositories.NewStore(db)
	r.cache = repositories.NewCacheRepository(r.store)
	r.queue = repositories.NewQueueRepository(r.store)
}

// ensureDatabase opens the configured database on first use and builds
// the repository layer over it.
func (r *Runner) ensureDatabase() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.adoptDatabase(db)
	return nil
}

// ensureRemote builds the API client stack (token manager, gateway,
// client) on first use. Tests inject a mock remote instead.
func (r *Runner) ensureRemote() error {
	if r.remote != nil {
		return nil
	}
	if err := r.ensureDatabase(); err != nil {
		return err
	}

	tokens, err := services.NewTokenManager(r.config.Credentials.Spotify, repositories.NewTokenRepository(r.store), r.logger)
	if err != nil {
		return err
	}
	r.tokens = tokens

	gateway := services.NewGateway(services.GatewayOpts{
		BaseURL:     r.config.Gateway.BaseURL,
		HTTPClient:  r.httpClient,
		Tokens:      tokens,
		Logger:      r.logger,
		MaxAttempts: r.config.Gateway.MaxAttempts,
		Backoff:     time.Duration(r.config.Gateway.BackoffMS) * time.Millisecond,
		RateLimit:   r.config.Gateway.RateLimit,
	})
	r.remote = services.NewClient(gateway)
	return nil
}

// ensureEngine wires the change engine over the remote client and the
// local repositories.
func (r *Runner) ensureEngine() error {
	if r.engine != nil {
		return nil
	}
	if err := r.ensureRemote(); err != nil {
		return err
	}
	if err := r.ensureDatabase(); err != nil {
		return err
	}
	r.engine = tasks.NewEngine(r.remote, r.cache, r.queue, r.logger)
	return nil
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

// Close releases the database handle if the runner opened one.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
