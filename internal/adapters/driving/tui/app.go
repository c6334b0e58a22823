package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Defaults for Options.
const (
	DefaultInterval     = 500 * time.Millisecond
	DefaultHistoryLimit = 5
)

// Options configures the monitor.
type Options struct {
	// ConnectionID is the connection to watch.
	ConnectionID string

	// SyncID restricts the monitor to one sync. Older syncs of the
	// connection are treated as not started yet.
	SyncID string

	// Interval between status polls.
	Interval time.Duration

	// HistoryLimit bounds the history table.
	HistoryLimit int

	// ExitOnDone quits once the watched sync is terminal.
	ExitOnDone bool
}

// App is the sync monitor following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports
	opts  Options
	ctx   context.Context

	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	help    help.Model
	bar     *status.Bar

	latest   *domain.Sync
	progress *driving.SyncProgress
	history  []domain.Sync
	cursor   int
	showHelp bool
	done     bool
	err      error
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a monitor over ports.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if opts.ConnectionID == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingConnection)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Subtitle))

	return &App{
		ports:   ports,
		opts:    opts,
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		spinner: sp,
		help:    help.New(),
		bar:     status.NewBar(s, km),
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("sercha-sync: "+a.opts.ConnectionID),
		a.spinner.Tick,
		a.loadStatus(),
		a.loadHistory(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.bar.SetWidth(msg.Width)
		a.help.Width = msg.Width
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.Tick:
		if a.done {
			return a, nil
		}
		return a, a.loadStatus()

	case messages.StatusLoaded:
		return a.applyStatus(msg)

	case messages.HistoryLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.bar.SetState(status.StateError)
			a.bar.SetMessage(msg.Err.Error())
			return a, nil
		}
		a.history = msg.Syncs
		if a.cursor >= len(a.history) {
			a.cursor = max(len(a.history)-1, 0)
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keymap.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
	case key.Matches(msg, a.keymap.Refresh):
		return a, tea.Batch(a.loadStatus(), a.loadHistory())
	case key.Matches(msg, a.keymap.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, a.keymap.Down):
		if a.cursor < len(a.history)-1 {
			a.cursor++
		}
	}
	return a, nil
}

func (a *App) applyStatus(msg messages.StatusLoaded) (tea.Model, tea.Cmd) {
	if msg.Err != nil && !errors.Is(msg.Err, domain.ErrNotFound) {
		a.err = msg.Err
		a.bar.SetState(status.StateError)
		a.bar.SetMessage(msg.Err.Error())
		return a, a.tick()
	}
	a.err = nil

	sync := msg.Sync
	if sync == nil || (a.opts.SyncID != "" && sync.ID != a.opts.SyncID) {
		a.bar.SetState(status.StateWaiting)
		return a, a.tick()
	}

	a.latest = sync
	a.progress = msg.Progress
	a.bar.SetDocCount(a.documentsSynced())

	switch sync.Status {
	case domain.SyncInProgress:
		a.bar.SetState(status.StateSyncing)
		return a, a.tick()
	case domain.SyncCompleted:
		a.bar.SetState(status.StateCompleted)
	case domain.SyncFailed:
		a.bar.SetState(status.StateFailed)
		if sync.Error != nil {
			a.bar.SetMessage(*sync.Error)
		}
	}

	a.done = true
	if a.opts.ExitOnDone {
		return a, tea.Quit
	}
	return a, a.loadHistory()
}

// documentsSynced prefers live progress for the running sync.
func (a *App) documentsSynced() int {
	if a.latest == nil {
		return 0
	}
	if a.progress != nil && a.progress.SyncID == a.latest.ID && a.latest.Status == domain.SyncInProgress {
		return a.progress.DocumentsSynced
	}
	return len(a.latest.ActualSyncedDocumentIDs)
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.opts.Interval, func(time.Time) tea.Msg { return messages.Tick{} })
}

func (a *App) loadStatus() tea.Cmd {
	ctx, ports, connID := a.ctx, a.ports, a.opts.ConnectionID
	return func() tea.Msg {
		sync, err := ports.History.Latest(ctx, connID)
		if err != nil {
			return messages.StatusLoaded{Err: err}
		}
		return messages.StatusLoaded{Sync: sync, Progress: ports.Sync.Progress(connID)}
	}
}

func (a *App) loadHistory() tea.Cmd {
	ctx, ports, connID, limit := a.ctx, a.ports, a.opts.ConnectionID, a.opts.HistoryLimit
	return func() tea.Msg {
		syncs, err := ports.History.History(ctx, connID, limit)
		return messages.HistoryLoaded{Syncs: syncs, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Sync monitor"))
	b.WriteString(a.styles.Muted.Render("  " + a.opts.ConnectionID))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Border.Render(a.viewLatest()))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Subtitle.Render("History"))
	b.WriteString("\n")
	b.WriteString(a.viewHistory())
	b.WriteString("\n")

	if a.showHelp {
		b.WriteString(a.help.View(a.keymap))
		b.WriteString("\n")
	}
	b.WriteString(a.bar.View())
	return b.String()
}

func (a *App) viewLatest() string {
	if a.latest == nil {
		return a.spinner.View() + " " + a.styles.Muted.Render("No sync yet")
	}
	s := a.latest

	var lines []string
	state := a.styles.ForStatus(s.Status).Render(string(s.Status))
	if s.Status == domain.SyncInProgress {
		state = a.spinner.View() + " " + state
	}
	lines = append(lines, "Status:     "+state)
	lines = append(lines, fmt.Sprintf("Sync:       %s", s.ID))
	lines = append(lines, fmt.Sprintf("Documents:  %d", a.documentsSynced()))
	if a.progress != nil && a.progress.SyncID == s.ID && a.progress.CurrentRoot != "" {
		lines = append(lines, fmt.Sprintf("Walking:    %s", a.progress.CurrentRoot))
	}
	lines = append(lines, "Started:    "+formatTime(&s.StartedAt))
	if s.CompletedAt != nil {
		lines = append(lines, "Finished:   "+formatTime(s.CompletedAt))
	}
	if s.IsTruncated {
		lines = append(lines, a.styles.Warning.Render("Truncated at the document limit"))
	}
	if s.Error != nil {
		lines = append(lines, a.styles.Error.Render("Error:      "+*s.Error))
	}
	return strings.Join(lines, "\n")
}

func (a *App) viewHistory() string {
	if len(a.history) == 0 {
		return a.styles.Muted.Render("  (none)") + "\n"
	}
	var b strings.Builder
	for i, s := range a.history {
		row := fmt.Sprintf("%-20s %-12s %5d docs  %s",
			formatTime(&s.StartedAt), s.Status, len(s.ActualSyncedDocumentIDs), s.ID)
		if i == a.cursor {
			b.WriteString(a.styles.Selected.Render("> " + row))
		} else {
			b.WriteString("  " + a.styles.ForStatus(s.Status).Render(row))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Latest returns the last sync observed, or nil.
func (a *App) Latest() *domain.Sync {
	return a.latest
}

// Done reports whether the watched sync reached a terminal state.
func (a *App) Done() bool {
	return a.done
}

// Err returns the last error reported by a service call.
func (a *App) Err() error {
	return a.err
}

// Run starts the monitor and blocks until it quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}
