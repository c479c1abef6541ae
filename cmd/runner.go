package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cratedig/internal/services"
	"github.com/desertthunder/cratedig/internal/shared"
	"github.com/desertthunder/cratedig/internal/tasks"
	"github.com/desertthunder/cratedig/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	catalog services.Catalog
	logger  *log.Logger
	output  io.Writer
	styles  *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Catalog is built from the Spotify credentials in Config on first use.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	Logger  *log.Logger
	Output  io.Writer
	Styles  *ui.Palette
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
	if opts.Styles == nil {
		opts.Styles = ui.Styles
	}

	return &Runner{
		config:  opts.Config,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		output:  opts.Output,
		styles:  opts.Styles,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, crawlCommand, featuresCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// spotify returns the catalog, building the Spotify service from config when none was injected.
func (r *Runner) spotify() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		r.logger.Warn("set credentials.spotify in config.toml or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET in .env")
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	r.catalog = svc
	return svc, nil
}

// openStore opens the configured database and applies pending migrations.
func (r *Runner) openStore(ctx context.Context) (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// drainProgress logs every update sent on the returned channel.
// Close the channel, then wait on done, once the operation returns.
func (r *Runner) drainProgress() (progress chan tasks.ProgressUpdate, done <-chan struct{}) {
	progress = make(chan tasks.ProgressUpdate, 64)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for u := range progress {
			r.logger.Info(r.styles.Progress(u.Step, u.Total, u.Message), "phase", u.Phase.String())
		}
	}()
	return progress, finished
}

func (r *Runner) writeJSON(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
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
