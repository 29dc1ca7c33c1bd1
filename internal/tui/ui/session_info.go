package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData is what the header shows about the session.
type SessionData struct {
	Session    string
	Connection string
	Auth       string
	Collection string
	Items      int
	HasMore    bool
	Uptime     time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data.
func (si *SessionInfo) Update(data SessionData) {
	si.Clear()

	fg := colorName(si.theme.FgColor)
	val := colorName(si.theme.CounterColor)
	row := func(label, value string) {
		_, _ = fmt.Fprintf(si, "[%s::b]%-11s[-:-:-] [%s]%s[-]\n", fg, label+":", val, tview.Escape(orDash(value)))
	}

	items := fmt.Sprintf("%d", data.Items)
	if data.HasMore {
		items += "+"
	}
	row("Session", data.Session)
	row("Connection", data.Connection)
	row("Auth", data.Auth)
	row("Collection", data.Collection)
	row("Items", items)
	row("Uptime", formatDuration(data.Uptime))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
