package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateWaiting, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.DocCount())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_Setters(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetState(StateSyncing)
	bar.SetMessage("msg")
	bar.SetDocCount(7)
	bar.SetWidth(120)

	assert.Equal(t, StateSyncing, bar.State())
	assert.Equal(t, "msg", bar.Message())
	assert.Equal(t, 7, bar.DocCount())
	assert.Equal(t, 120, bar.Width())
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		count   int
		want    string
	}{
		{"waiting", StateWaiting, "", 0, "Waiting for sync"},
		{"syncing", StateSyncing, "", 12, "Syncing... 12 documents"},
		{"completed", StateCompleted, "", 40, "Completed: 40 documents"},
		{"failed", StateFailed, "provider down", 0, "Failed: provider down"},
		{"failed without message", StateFailed, "", 0, "Failed"},
		{"error", StateError, "store closed", 0, "Error: store closed"},
		{"help", StateHelp, "", 0, "Help"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetDocCount(tt.count)

			assert.Contains(t, bar.View(), tt.want)
		})
	}
}

func TestStatusBar_View_ShowsKeybindings(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	view := bar.View()

	assert.Contains(t, view, "quit")
	assert.Contains(t, view, "refresh")
}
