// Package app wires storage, import, enrichment and publishing together and runs
// the background refresh loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
	"github.com/tartampluch/go-birthday-tracker/internal/feed"
	"github.com/tartampluch/go-birthday-tracker/internal/importer"
	"github.com/tartampluch/go-birthday-tracker/internal/metrics"
	"github.com/tartampluch/go-birthday-tracker/internal/server"
	"github.com/tartampluch/go-birthday-tracker/internal/store"
	"github.com/tartampluch/go-birthday-tracker/internal/view"
)

// Importer reads birth records from an external address book.
type Importer interface {
	Import(ctx context.Context, src importer.Source) ([]engine.BirthRecord, error)
}

// Secrets resolves the password of an import source user.
type Secrets interface {
	Password(user string) (string, error)
}

// Deps are the collaborators of an App. Everything is constructed by the caller;
// the App keeps no global state.
type Deps struct {
	Settings  config.Settings
	Store     store.SeedStore
	Clock     engine.Clock
	Importer  Importer
	Presenter *view.Presenter
	Metrics   *metrics.Metrics
	Secrets   Secrets
}

// App is the running birthday tracker.
type App struct {
	settings  config.Settings
	store     store.SeedStore
	clock     engine.Clock
	importer  Importer
	presenter *view.Presenter
	metrics   *metrics.Metrics
	secrets   Secrets

	calc      engine.Calculator
	generator *feed.Generator
	server    *server.CalendarServer

	// mu serializes refreshes; lastDay is the date of the last published feed.
	mu      sync.Mutex
	lastDay time.Time

	refreshChan chan string
}

// New validates the settings and assembles an App.
func New(d Deps) (*App, error) {
	if d.Store == nil || d.Presenter == nil {
		return nil, errors.New(config.ErrDepMissing)
	}
	if err := d.Settings.Validate(); err != nil {
		return nil, err
	}
	leap, err := engine.ParseLeapDayPolicy(d.Settings.LeapDay)
	if err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = engine.RealClock{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	a := &App{
		settings:    d.Settings,
		store:       d.Store,
		clock:       d.Clock,
		importer:    d.Importer,
		presenter:   d.Presenter,
		metrics:     d.Metrics,
		secrets:     d.Secrets,
		calc:        engine.Calculator{LeapDay: leap},
		refreshChan: make(chan string, config.ChannelBufferSize),
	}
	a.generator = &feed.Generator{
		Calculator:      a.calc,
		FormatSummary:   d.Presenter.Summary(d.Settings.Language),
		ReminderTrigger: d.Settings.ReminderTrigger(),
	}
	a.server = server.NewCalendarServer(d.Settings.Port, a, a.metrics)
	return a, nil
}

// Server exposes the HTTP surface, mainly for tests.
func (a *App) Server() *server.CalendarServer {
	return a.server
}

// Run serves HTTP and refreshes in the background until ctx is cancelled or the
// server fails to start.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, config.ChannelBufferSize)
	go func() {
		serverErr <- a.server.Start(ctx)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.backgroundWorker(ctx)
	}()

	err := <-serverErr
	cancel()
	wg.Wait()
	return err
}

// backgroundWorker refreshes at start, on the configured interval, when the local
// date changes and after API mutations.
func (a *App) backgroundWorker(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	a.refreshLogged(ctx, config.ReasonStartup)

	interval := a.settings.RefreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	dayTicker := time.NewTicker(config.DayCheckInterval)
	defer dayTicker.Stop()

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, interval)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case reason := <-a.refreshChan:
			a.refreshLogged(ctx, reason)

		case <-ticker.C:
			a.refreshLogged(ctx, config.ReasonTicker)

		case <-dayTicker.C:
			if a.DayChanged() {
				log.Info(config.MsgDayChanged)
				a.refreshLogged(ctx, config.ReasonDay)
			}
		}
	}
}

func (a *App) refreshLogged(ctx context.Context, reason string) {
	if err := a.Refresh(ctx, reason); err != nil && ctx.Err() == nil {
		slog.Error(config.MsgSyncFailed,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyReason, reason,
			config.LogKeyError, err)
	}
}

// requestRefresh schedules a refresh without blocking; pending requests coalesce.
func (a *App) requestRefresh(reason string) {
	select {
	case a.refreshChan <- reason:
	default:
	}
}

// DayChanged reports whether the local date moved since the last published feed.
func (a *App) DayChanged() bool {
	today := engine.Today(a.clock)
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.lastDay.Equal(today)
}

// Refresh imports the address book, resyncs the seed file, then recomputes and
// publishes the calendar feed. Import and seed failures are logged and do not
// prevent publishing what the store already holds.
func (a *App) Refresh(ctx context.Context, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompApp, config.LogKeyReason, reason)
	log.Debug(config.MsgSyncStarted)

	// "Today" is read once and shared by the whole pass.
	now := a.clock.Now()
	today := engine.CivilDate(now)

	a.importSource(ctx, log)
	a.syncSeed(ctx, now, log)

	entries, err := a.store.List(ctx)
	a.metrics.ObserveStoreOp(config.OpList, err)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrRefresh, err)
	}

	batch := a.calc.EnrichAndSort(store.Records(entries), today)
	a.metrics.ObserveBatch(batch)

	ics, err := a.generator.Build(batch, now)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrRefresh, err)
	}
	a.server.Update(ics)
	a.lastDay = today
	a.metrics.ObserveRefresh(start)

	log.Info(config.MsgSyncDone,
		config.LogKeyDate, engine.FormatDate(today),
		config.LogKeyFound, len(batch.Records),
		config.LogKeyToday, batch.TodayCount(),
		config.LogKeyDuration, time.Since(start).Milliseconds())
	return nil
}

func (a *App) importSource(ctx context.Context, log *slog.Logger) {
	src := a.source()
	if !src.Enabled() || a.importer == nil {
		return
	}

	records, err := a.importer.Import(ctx, src)
	if err != nil {
		log.Warn(config.MsgImportFailed, config.LogKeyError, err)
		return
	}
	_, err = store.Merge(ctx, a.store, records, config.SourceImport)
	a.metrics.ObserveStoreOp(config.OpMerge, err)
	if err != nil {
		log.Warn(config.MsgImportFailed, config.LogKeyError, err)
	}
}

func (a *App) syncSeed(ctx context.Context, now time.Time, log *slog.Logger) {
	if a.settings.SeedFile == "" {
		return
	}

	seed, err := store.LoadSeedFile(a.settings.SeedFile)
	if err == nil {
		_, err = store.SyncSeed(ctx, a.store, seed, now)
		a.metrics.ObserveStoreOp(config.OpSeed, err)
	}
	if err != nil {
		log.Warn(config.MsgSeedFailed, config.LogKeyFile, a.settings.SeedFile, config.LogKeyError, err)
	}
}

// source assembles the import source, reading the password from the keyring.
func (a *App) source() importer.Source {
	cfg := a.settings.Source
	src := importer.Source{
		Mode:      cfg.Mode,
		LocalPath: cfg.LocalPath,
		URL:       cfg.URL,
		Creds:     importer.Credentials{User: cfg.User},
	}

	if cfg.Mode == config.SourceModeWeb && cfg.User != "" && a.secrets != nil {
		if p, err := a.secrets.Password(cfg.User); err == nil {
			src.Creds.Password = p
		} else {
			slog.Debug(config.MsgPassFail,
				config.LogKeyComponent, config.CompApp,
				config.LogKeyUser, cfg.User,
				config.LogKeyError, err)
		}
	}
	return src
}
