package app

import (
	"context"
	"log/slog"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
	"github.com/tartampluch/go-birthday-tracker/internal/store"
	"github.com/tartampluch/go-birthday-tracker/internal/view"
)

// Page enriches the stored records against one reading of the clock and
// localizes them for the first supported language in prefs.
func (a *App) Page(ctx context.Context, prefs ...string) (view.Page, error) {
	entries, err := a.store.List(ctx)
	a.metrics.ObserveStoreOp(config.OpList, err)
	if err != nil {
		return view.Page{}, err
	}

	batch := a.calc.EnrichAndSort(store.Records(entries), engine.Today(a.clock))
	a.metrics.ObserveBatch(batch)
	return a.presenter.Page(batch, prefs...), nil
}

// Add validates d and stores it as a new user record.
func (a *App) Add(ctx context.Context, d store.Draft) (store.Entry, error) {
	valid, err := d.Validate(engine.Today(a.clock))
	if err != nil {
		return store.Entry{}, err
	}

	e, err := a.store.Create(ctx, store.Entry{BirthRecord: engine.BirthRecord{
		Name:        valid.Name,
		Surname:     valid.Surname,
		DateOfBirth: valid.DateOfBirth,
		Notes:       valid.Notes,
	}})
	a.metrics.ObserveStoreOp(config.OpCreate, err)
	if err != nil {
		return store.Entry{}, err
	}

	slog.Info(config.MsgRecordAdded,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyID, e.ID)
	a.requestRefresh(config.ReasonMutation)
	return e, nil
}

// Update validates d and replaces the editable fields of record id.
func (a *App) Update(ctx context.Context, id string, d store.Draft) (store.Entry, error) {
	valid, err := d.Validate(engine.Today(a.clock))
	if err != nil {
		return store.Entry{}, err
	}

	e, err := a.store.Update(ctx, id, valid)
	a.metrics.ObserveStoreOp(config.OpUpdate, err)
	if err != nil {
		return store.Entry{}, err
	}

	slog.Info(config.MsgRecordUpdated,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyID, id)
	a.requestRefresh(config.ReasonMutation)
	return e, nil
}

// Delete removes record id.
func (a *App) Delete(ctx context.Context, id string) error {
	err := a.store.Delete(ctx, id)
	a.metrics.ObserveStoreOp(config.OpDelete, err)
	if err != nil {
		return err
	}

	slog.Info(config.MsgRecordDeleted,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyID, id)
	a.requestRefresh(config.ReasonMutation)
	return nil
}
