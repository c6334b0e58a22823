package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	progress *driving.SyncProgress
}

func (m *mockSyncService) StartSync(context.Context, driving.StartSyncRequest) (*domain.Sync, error) {
	return nil, nil
}
func (m *mockSyncService) Run(context.Context, domain.Job) error                  { return nil }
func (m *mockSyncService) HandleFailure(context.Context, domain.Job, error) error { return nil }
func (m *mockSyncService) Teardown(context.Context, string) error                 { return nil }
func (m *mockSyncService) Resume(context.Context) (int, error)                    { return 0, nil }
func (m *mockSyncService) Progress(string) *driving.SyncProgress                  { return m.progress }

// mockHistory implements driving.SyncHistory for testing.
type mockHistory struct {
	latest  *domain.Sync
	history []domain.Sync
	err     error
}

func (m *mockHistory) Latest(context.Context, string) (*domain.Sync, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.latest == nil {
		return nil, domain.ErrNotFound
	}
	return m.latest, nil
}

func (m *mockHistory) History(context.Context, string, int) ([]domain.Sync, error) {
	return m.history, m.err
}

func (m *mockHistory) Recent(context.Context, string, int) ([]domain.Sync, error) {
	return m.history, m.err
}

func newTestApp(t *testing.T, opts Options) (*App, *mockSyncService, *mockHistory) {
	t.Helper()
	svc := &mockSyncService{}
	hist := &mockHistory{}
	if opts.ConnectionID == "" {
		opts.ConnectionID = "conn-1"
	}
	app, err := NewApp(&Ports{Sync: svc, History: hist}, opts)
	require.NoError(t, err)
	return app, svc, hist
}

func inProgress(id string) *domain.Sync {
	return domain.NewSync(id, "conn-1", "user-1", domain.IntegrationMeta{Name: "Box"},
		[]string{"root"}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewApp_Validation(t *testing.T) {
	_, err := NewApp(nil, Options{ConnectionID: "c"})
	assert.ErrorIs(t, err, ErrInvalidPorts)

	_, err = NewApp(&Ports{History: &mockHistory{}}, Options{ConnectionID: "c"})
	assert.ErrorIs(t, err, ErrMissingSyncService)

	_, err = NewApp(&Ports{Sync: &mockSyncService{}}, Options{ConnectionID: "c"})
	assert.ErrorIs(t, err, ErrMissingSyncHistory)

	_, err = NewApp(&Ports{Sync: &mockSyncService{}, History: &mockHistory{}}, Options{})
	assert.ErrorIs(t, err, ErrMissingConnection)
}

func TestNewApp_Defaults(t *testing.T) {
	app, _, _ := newTestApp(t, Options{})

	assert.Equal(t, DefaultInterval, app.opts.Interval)
	assert.Equal(t, DefaultHistoryLimit, app.opts.HistoryLimit)
	assert.NotNil(t, app.Init())
}

func TestApp_NoSyncYet(t *testing.T) {
	app, _, _ := newTestApp(t, Options{})

	msg := app.loadStatus()()
	loaded, ok := msg.(messages.StatusLoaded)
	require.True(t, ok)
	assert.ErrorIs(t, loaded.Err, domain.ErrNotFound)

	_, cmd := app.Update(loaded)
	assert.NotNil(t, cmd, "keeps polling")
	assert.Nil(t, app.Err())
	assert.Equal(t, status.StateWaiting, app.bar.State())
	assert.Contains(t, app.View(), "No sync yet")
}

func TestApp_ShowsLiveProgress(t *testing.T) {
	app, svc, hist := newTestApp(t, Options{})
	hist.latest = inProgress("s1")
	svc.progress = &driving.SyncProgress{ConnectionID: "conn-1", SyncID: "s1", Running: true, DocumentsSynced: 7, CurrentRoot: "root"}

	_, cmd := app.Update(app.loadStatus()())

	assert.NotNil(t, cmd)
	assert.False(t, app.Done())
	assert.Equal(t, status.StateSyncing, app.bar.State())
	assert.Equal(t, 7, app.bar.DocCount())
	view := app.View()
	assert.Contains(t, view, "in_progress")
	assert.Contains(t, view, "Walking:    root")
}

func TestApp_IgnoresProgressOfAnotherSync(t *testing.T) {
	app, svc, hist := newTestApp(t, Options{})
	hist.latest = inProgress("s2")
	svc.progress = &driving.SyncProgress{SyncID: "s1", DocumentsSynced: 99}

	app.Update(app.loadStatus()())

	assert.Equal(t, 0, app.bar.DocCount())
}

func TestApp_CompletedSync(t *testing.T) {
	app, _, hist := newTestApp(t, Options{})
	s := inProgress("s1")
	s.MarkCompleted(s.StartedAt.Add(time.Minute), []string{"root", "a", "b"}, true)
	hist.latest = s
	hist.history = []domain.Sync{*s}

	_, cmd := app.Update(app.loadStatus()())
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.True(t, app.Done())
	assert.Equal(t, status.StateCompleted, app.bar.State())
	assert.Equal(t, 3, app.bar.DocCount())
	assert.Len(t, app.history, 1)
	assert.Contains(t, app.View(), "Truncated")

	_, cmd = app.Update(messages.Tick{})
	assert.Nil(t, cmd, "stops polling once done")
}

func TestApp_FailedSyncExitsWhenAsked(t *testing.T) {
	app, _, hist := newTestApp(t, Options{ExitOnDone: true})
	s := inProgress("s1")
	s.MarkFailed(s.StartedAt.Add(time.Second), "provider down")
	hist.latest = s

	_, cmd := app.Update(app.loadStatus()())

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, status.StateFailed, app.bar.State())
	assert.Equal(t, "provider down", app.bar.Message())
	assert.Equal(t, "s1", app.Latest().ID)
}

func TestApp_WaitsForWatchedSync(t *testing.T) {
	app, _, hist := newTestApp(t, Options{SyncID: "s2"})
	old := inProgress("s1")
	old.MarkCompleted(old.StartedAt, nil, false)
	hist.latest = old

	app.Update(app.loadStatus()())

	assert.False(t, app.Done())
	assert.Nil(t, app.Latest())
	assert.Equal(t, status.StateWaiting, app.bar.State())
}

func TestApp_ServiceError(t *testing.T) {
	app, _, hist := newTestApp(t, Options{})
	hist.err = errors.New("store closed")

	_, cmd := app.Update(app.loadStatus()())

	assert.NotNil(t, cmd, "retries on the next tick")
	assert.EqualError(t, app.Err(), "store closed")
	assert.Equal(t, status.StateError, app.bar.State())

	app.Update(app.loadHistory()())
	assert.Equal(t, "store closed", app.bar.Message())
}

func TestApp_Keys(t *testing.T) {
	app, _, _ := newTestApp(t, Options{})
	app.Update(messages.HistoryLoaded{Syncs: []domain.Sync{*inProgress("a"), *inProgress("b")}})

	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, app.cursor)
	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, app.cursor, "stays on the last row")
	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, app.cursor)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, app.showHelp)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.NotNil(t, cmd)

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_WindowSize(t *testing.T) {
	app, _, _ := newTestApp(t, Options{})

	app.Update(tea.WindowSizeMsg{Width: 132, Height: 40})

	assert.Equal(t, 132, app.bar.Width())
	assert.Equal(t, 132, app.help.Width)
}
