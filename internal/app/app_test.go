package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/engine"
	"github.com/tartampluch/go-birthday-tracker/internal/importer"
	"github.com/tartampluch/go-birthday-tracker/internal/store"
	"github.com/tartampluch/go-birthday-tracker/internal/view"
	"github.com/zalando/go-keyring"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockClock is a settable clock safe for use from the worker goroutine.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(ctx context.Context, src importer.Source) ([]engine.BirthRecord, error) {
	args := m.Called(ctx, src)
	recs, _ := args.Get(0).([]engine.BirthRecord)
	return recs, args.Error(1)
}

type fakeSecrets map[string]string

func (f fakeSecrets) Password(user string) (string, error) {
	if p, ok := f[user]; ok {
		return p, nil
	}
	return "", keyring.ErrNotFound
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type fixture struct {
	app      *App
	store    *store.FileStore
	clock    *MockClock
	importer *MockImporter
}

func newFixture(t *testing.T, edit func(*config.Settings)) *fixture {
	t.Helper()
	dir := t.TempDir()

	s := config.DefaultSettings()
	s.Storage.Path = filepath.Join(dir, "birthdays.json")
	if edit != nil {
		edit(&s)
	}

	tr, err := view.NewTranslator(s.Language)
	require.NoError(t, err)

	f := &fixture{
		store:    store.NewFileStore(s.Storage.Path),
		clock:    &MockClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)},
		importer: new(MockImporter),
	}
	f.app, err = New(Deps{
		Settings:  s,
		Store:     f.store,
		Clock:     f.clock,
		Importer:  f.importer,
		Presenter: view.NewPresenter(tr),
		Secrets:   fakeSecrets{"alice": "s3cret"},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.app.Server().Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), config.FilePermUserRW))
	return path
}

// -----------------------------------------------------------------------------
// Construction
// -----------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	tr, err := view.NewTranslator(config.DefaultLanguage)
	require.NoError(t, err)
	p := view.NewPresenter(tr)
	st := store.NewFileStore(filepath.Join(t.TempDir(), "b.json"))

	_, err = New(Deps{Settings: config.DefaultSettings(), Presenter: p})
	assert.EqualError(t, err, config.ErrDepMissing)

	bad := config.DefaultSettings()
	bad.LeapDay = "mar2"
	_, err = New(Deps{Settings: bad, Store: st, Presenter: p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrLeapDayUnknown)

	a, err := New(Deps{Settings: config.DefaultSettings(), Store: st, Presenter: p})
	require.NoError(t, err)
	assert.NotNil(t, a.clock, "A real clock is used by default")
	assert.NotNil(t, a.metrics)
}

// -----------------------------------------------------------------------------
// Refresh pipeline
// -----------------------------------------------------------------------------

func TestRefresh_ImportsSeedsAndPublishes(t *testing.T) {
	seed := writeSeed(t, `[{"id": 1, "name": "Grandma", "dob": "1940-03-16"}]`)
	f := newFixture(t, func(s *config.Settings) {
		s.SeedFile = seed
		s.Source = config.SourceConfig{Mode: config.SourceModeWeb, URL: "https://dav.example/book", User: "alice"}
	})

	wantSrc := importer.Source{
		Mode:  config.SourceModeWeb,
		URL:   "https://dav.example/book",
		Creds: importer.Credentials{User: "alice", Password: "s3cret"},
	}
	f.importer.On("Import", mock.Anything, wantSrc).Return([]engine.BirthRecord{
		{ID: "card1", Name: "Anna", DateOfBirth: "1990-03-15"},
	}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, f.get(t, config.RouteCalendar).Code, "Nothing is served before the first refresh")

	require.NoError(t, f.app.Refresh(context.Background(), config.ReasonStartup))
	f.importer.AssertExpectations(t)

	entries, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	w := f.get(t, config.RouteCalendar)
	require.Equal(t, http.StatusOK, w.Code)
	ics := w.Body.String()
	assert.Contains(t, ics, "SUMMARY:Birthday: Anna (35)")
	assert.Contains(t, ics, "SUMMARY:Birthday: Grandma (85)")
	assert.Contains(t, ics, "UID:seed_1-2025@"+config.ICalDomain)
	assert.False(t, f.app.DayChanged())
}

func TestRefresh_ImportFailureStillPublishes(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.Source = config.SourceConfig{Mode: config.SourceModeLocal, LocalPath: "/nonexistent.vcf"}
	})
	f.importer.On("Import", mock.Anything, mock.Anything).Return(nil, errors.New("unreachable"))

	_, err := f.store.Create(context.Background(), store.Entry{BirthRecord: engine.BirthRecord{Name: "Kept", DateOfBirth: "1980-01-01"}})
	require.NoError(t, err)

	require.NoError(t, f.app.Refresh(context.Background(), config.ReasonTicker))
	w := f.get(t, config.RouteCalendar)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Kept")
}

func TestRefresh_KeepsUserChangesToImportedRecords(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.Source = config.SourceConfig{Mode: config.SourceModeLocal, LocalPath: "/contacts.vcf"}
	})
	f.importer.On("Import", mock.Anything, mock.Anything).Return([]engine.BirthRecord{
		{ID: "card1", Name: "Ann", DateOfBirth: "1990-01-01"},
		{ID: "card2", Name: "Boris", DateOfBirth: "1985-12-31"},
	}, nil)
	ctx := context.Background()

	require.NoError(t, f.app.Refresh(ctx, config.ReasonStartup))

	_, err := f.app.Update(ctx, "card1", store.Draft{Name: "Anna", DateOfBirth: "1990-01-01"})
	require.NoError(t, err)
	require.NoError(t, f.app.Delete(ctx, "card2"))
	require.NoError(t, f.app.Refresh(ctx, config.ReasonMutation))

	entries, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "Neither a copy of the edited card nor the deleted card comes back")
	assert.Equal(t, "card1", entries[0].ID)
	assert.Equal(t, "Anna", entries[0].Name)
}

func TestRefresh_NoSourceSkipsImport(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.app.Refresh(context.Background(), config.ReasonStartup))
	f.importer.AssertNotCalled(t, "Import", mock.Anything, mock.Anything)

	w := f.get(t, config.RouteCalendar)
	assert.Equal(t, config.StubVCalendar, w.Body.String())
}

func TestRefresh_StoreFailure(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(f.app.settings.Storage.Path, []byte("{broken"), config.FilePermUserRW))

	err := f.app.Refresh(context.Background(), config.ReasonStartup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrRefresh)
}

func TestDayChanged(t *testing.T) {
	f := newFixture(t, nil)
	assert.True(t, f.app.DayChanged(), "Nothing published yet")

	require.NoError(t, f.app.Refresh(context.Background(), config.ReasonStartup))
	assert.False(t, f.app.DayChanged())

	f.clock.Advance(13 * time.Hour)
	assert.False(t, f.app.DayChanged(), "Still 2025-03-15")

	f.clock.Advance(1 * time.Hour)
	assert.True(t, f.app.DayChanged())
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

func TestService_AddListUpdateDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	e, err := f.app.Add(ctx, store.Draft{Name: " Anna ", DateOfBirth: "19900315"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", e.Name)
	assert.Equal(t, "1990-03-15", e.DateOfBirth)
	assert.Len(t, f.app.refreshChan, 1, "Mutations schedule a refresh")

	_, err = f.app.Add(ctx, store.Draft{Name: "Bob", DateOfBirth: "1985-03-20"})
	require.NoError(t, err)
	assert.Len(t, f.app.refreshChan, 1, "Pending refreshes coalesce")

	page, err := f.app.Page(ctx, "ru")
	require.NoError(t, err)
	require.Len(t, page.Cards, 2)
	assert.Equal(t, "Anna", page.Cards[0].Name, "Today's birthday comes first")
	assert.Equal(t, "Сегодня! 🎉", page.Cards[0].Countdown)
	assert.Equal(t, "Через 5 дней", page.Cards[1].Countdown)

	updated, err := f.app.Update(ctx, e.ID, store.Draft{Name: "Anna", Surname: "K", DateOfBirth: "1990-03-15"})
	require.NoError(t, err)
	assert.Equal(t, "K", updated.Surname)

	require.NoError(t, f.app.Delete(ctx, e.ID))
	assert.ErrorIs(t, f.app.Delete(ctx, e.ID), store.ErrNotFound)
	_, err = f.app.Update(ctx, e.ID, store.Draft{Name: "Anna", DateOfBirth: "1990-03-15"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_RejectsInvalidDrafts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.app.Add(ctx, store.Draft{Name: "Future", DateOfBirth: "2025-03-16"})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
	assert.ErrorIs(t, err, engine.ErrFutureDate)

	_, err = f.app.Add(ctx, store.Draft{DateOfBirth: "2000-01-01"})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	assert.Empty(t, f.app.refreshChan)
}

func TestService_OverHTTP(t *testing.T) {
	f := newFixture(t, nil)
	h := f.app.Server().Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, config.RouteBirthdays,
		strings.NewReader(`{"name":"Anna","dob":"1990-03-16"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, config.RouteBirthdays,
		strings.NewReader(`{"name":"Bad","dob":"1990-02-30"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get(t, config.RouteBirthdays+"?lang=en")
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"countdown":"Tomorrow"`)
	assert.Contains(t, string(body), `"birthday":"16 March"`)
}

func TestSource_Password(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.Source = config.SourceConfig{Mode: config.SourceModeWeb, URL: "https://x", User: "bob"}
	})
	assert.Empty(t, f.app.source().Creds.Password, "Unknown users get no password")

	f.app.settings.Source.User = "alice"
	assert.Equal(t, "s3cret", f.app.source().Creds.Password)

	f.app.settings.Source.Mode = config.SourceModeLocal
	assert.Empty(t, f.app.source().Creds.Password, "Local files need no credentials")
}

func TestKeyring(t *testing.T) {
	keyring.MockInit()
	k := Keyring{}

	assert.EqualError(t, k.SetPassword("", "x"), config.ErrUserRequired)

	require.NoError(t, k.SetPassword("alice", "pw"))
	p, err := k.Password("alice")
	require.NoError(t, err)
	assert.Equal(t, "pw", p)

	_, err = k.Password("nobody")
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

func TestRun_Lifecycle(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Port = "18098" })
	_, err := f.store.Create(context.Background(), store.Entry{BirthRecord: engine.BirthRecord{Name: "Anna", DateOfBirth: "1990-03-15"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- f.app.Run(ctx) }()

	url := "http://127.0.0.1:18098" + config.RouteCalendar
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond, "The startup refresh should publish the feed")

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
