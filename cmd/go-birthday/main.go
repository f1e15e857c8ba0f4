package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/tartampluch/go-birthday-tracker/internal/app"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
	"github.com/tartampluch/go-birthday-tracker/internal/importer"
	"github.com/tartampluch/go-birthday-tracker/internal/metrics"
	"github.com/tartampluch/go-birthday-tracker/internal/store"
	"github.com/tartampluch/go-birthday-tracker/internal/view"
)

// main delegates to runMain so deferred calls (closing the log file and the
// store) run before the process exits; os.Exit skips defers.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	configPath := flag.String(config.FlagConfig, "", config.FlagDescConfig)
	setPassword := flag.Bool(config.FlagSetPassword, false, config.FlagDescSetPass)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Settings
	// -------------------------------------------------------------------------
	settings, appDir, err := loadSettings(*configPath)
	if err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	if *setPassword {
		if err := storePassword(settings.Source.User, os.Stdin); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return config.ExitCodeError
		}
		fmt.Printf(config.MsgPasswordSaved, settings.Source.User)
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 4. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 5. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, settings, appDir); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run wires dependencies and blocks until ctx is cancelled.
func run(ctx context.Context, settings config.Settings, appDir string) error {
	st, closeStore, err := openStore(ctx, settings.Storage, appDir)
	if err != nil {
		return err
	}
	defer closeStore()

	tr, err := view.NewTranslator(settings.Language)
	if err != nil {
		return err
	}

	a, err := app.New(app.Deps{
		Settings:  settings,
		Store:     st,
		Clock:     engine.RealClock{},
		Importer:  &importer.Importer{Fetcher: importer.NewHTTPFetcher()},
		Presenter: view.NewPresenter(tr),
		Metrics:   metrics.New(),
		Secrets:   app.Keyring{},
	})
	if err != nil {
		return err
	}

	return a.Run(ctx)
}

// loadSettings reads the settings file and resolves relative data paths
// against the directory holding it.
func loadSettings(path string) (config.Settings, string, error) {
	if path == "" {
		dir, err := getAppDir(os.UserConfigDir, config.ErrConfigDir)
		if err != nil {
			return config.Settings{}, "", err
		}
		path = filepath.Join(dir, config.SettingsFileName)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Info(config.MsgSettingsNone, config.LogKeyComponent, config.CompSettings, config.LogKeyFile, path)
	}

	s, err := config.LoadSettings(path)
	if err != nil {
		return s, "", err
	}

	dir := filepath.Dir(path)
	s.Storage.Path = resolve(dir, s.Storage.Path)
	s.SeedFile = resolve(dir, s.SeedFile)
	s.Source.LocalPath = resolve(dir, s.Source.LocalPath)

	slog.Info(config.MsgSettingsLoad,
		config.LogKeyComponent, config.CompSettings,
		config.LogKeyFile, path,
		config.LogKeyBackend, s.Storage.Backend,
		config.LogKeyMode, s.Source.Mode,
	)
	return s, dir, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// openStore returns the configured backend and its cleanup function.
func openStore(ctx context.Context, cfg config.StorageConfig, appDir string) (store.SeedStore, func(), error) {
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(ctx, cfg.Path, cfg.Owner)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return store.NewFileStore(cfg.Path), func() {}, nil
	}
}

// storePassword reads one line from r and saves it for user in the OS keyring.
func storePassword(user string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("%s: %w", config.ErrPasswordRead, err)
		}
		return errors.New(config.ErrPasswordRead)
	}
	return app.Keyring{}.SetPassword(user, strings.TrimRight(scanner.Text(), "\r"))
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyBuilt, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stdout)

	if logDir, err := getAppDir(os.UserCacheDir, config.ErrCacheDir); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		logPath := filepath.Join(logDir, config.LogFileName)
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getAppDir returns the application directory under base(), creating it with
// restricted permissions.
func getAppDir(base func() (string, error), errMsg string) (string, error) {
	root, err := base()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errMsg, err)
	}

	appDir := filepath.Join(root, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return appDir, nil
}
