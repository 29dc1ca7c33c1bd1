package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/tui/ui"
)

type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"/", "Ask the search bot"},
		{"?", "Help"},
		{"Esc", "Back"},
		{"q", "Quit"},
	}},
	{"Browse", [][2]string{
		{"Tab", "Switch between collections and media"},
		{"Enter", "Open collection / item details"},
		{"p", "Play video"},
		{"d", "Delete item"},
		{"m", "Load more"},
		{"r", "Reload collection"},
		{"x", "Dismiss error"},
	}},
	{"Details", [][2]string{
		{"p", "Play video"},
		{"l", "Show link as QR code"},
	}},
	{"Search", [][2]string{
		{"Enter", "Search / press result"},
		{"c", "Clear"},
	}},
	{"Commands", [][2]string{
		{":search <query>", "Ask the search bot"},
		{":saved", "Open Saved Messages"},
		{":refresh", "Reload the collection list"},
		{":logout", "Log out"},
		{":help", "Show this help"},
		{":quit", "Quit"},
	}},
}

// HelpView is the key reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	_, _ = fmt.Fprint(tv, renderHelp(ui.Tag(theme.MenuKeyColor)))
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "help" }

func renderHelp(keyColor string) string {
	var sb strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, k := range s.keys {
			fmt.Fprintf(&sb, "  [%s]%-18s[-:-:-] %s\n", keyColor, tview.Escape(k[0]), k[1])
		}
	}
	return sb.String()
}
