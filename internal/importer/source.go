package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
)

// Source describes where an address book is read from.
type Source struct {
	Mode      string // config.SourceModeLocal or config.SourceModeWeb
	LocalPath string
	URL       string
	Creds     Credentials
}

// Enabled reports whether an import source is configured.
func (s Source) Enabled() bool {
	return s.Mode != config.SourceModeNone
}

// Importer pulls birth records out of a configured address book.
type Importer struct {
	Fetcher Fetcher
}

// Import opens the source and decodes every usable birthday in it.
func (im *Importer) Import(ctx context.Context, src Source) ([]engine.BirthRecord, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompImporter,
		config.LogKeyMode, src.Mode,
	)

	reader, err := im.open(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrImport, err)
	}
	defer func() { _ = reader.Close() }()

	records, stats, err := Decode(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}

	log.Info(config.MsgImported,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.Cards),
			slog.Int(config.LogKeyFound, stats.Birthdays),
			slog.Int(config.LogKeySkipped, stats.Skipped),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds())
	return records, nil
}

// open returns the raw vCard stream for src.
func (im *Importer) open(ctx context.Context, src Source) (io.ReadCloser, error) {
	switch src.Mode {
	case config.SourceModeLocal:
		if src.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(src.LocalPath)
	case config.SourceModeWeb:
		if src.URL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if im.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return im.Fetcher.Fetch(ctx, src.URL, src.Creds)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, src.Mode)
	}
}
