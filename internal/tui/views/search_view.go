package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/search"
	"github.com/matheus3301/tele/internal/tui/ui"
)

// SearchView talks to the search bot: a query line, the bot's answer
// state and its result buttons.
type SearchView struct {
	*tview.Flex
	theme    *ui.Theme
	input    *tview.InputField
	status   *tview.TextView
	results  *tview.Table
	snap     search.Snapshot
	onQuery  func(query string)
	onSelect func(index int)
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	status := tview.NewTextView().SetDynamicColors(true)
	status.SetBackgroundColor(theme.BgColor)
	status.SetTextColor(theme.FgColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(status, 1, 0, false).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		status:  status,
		results: results,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(input.GetText())
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if row < len(sv.snap.Results) && sv.onSelect != nil {
			sv.onSelect(row)
		}
	})
	return sv
}

// Name implements ui.Component.
func (sv *SearchView) Name() string { return "search" }

// SetOnQuery sets the callback for Enter in the query line.
func (sv *SearchView) SetOnQuery(fn func(query string)) { sv.onQuery = fn }

// SetOnSelect sets the callback for Enter on a result.
func (sv *SearchView) SetOnSelect(fn func(index int)) { sv.onSelect = fn }

// Update shows s.
func (sv *SearchView) Update(s search.Snapshot) {
	sv.snap = s
	if s.Query != "" && sv.input.GetText() == "" {
		sv.input.SetText(s.Query)
	}

	sv.status.Clear()
	switch {
	case s.Phase == search.Searching:
		_, _ = fmt.Fprintf(sv.status, " [::d]Searching %q…[-:-:-]", s.Query)
	case s.Phase == search.Error:
		_, _ = fmt.Fprintf(sv.status, " [%s]%s[-]", ui.Tag(sv.theme.FlashErrColor), tview.Escape(s.Error))
	case s.HasSearched && len(s.Results) == 0:
		_, _ = fmt.Fprint(sv.status, " No results")
	case len(s.Results) > 0:
		_, _ = fmt.Fprintf(sv.status, " %d results", len(s.Results))
	}

	sv.results.Clear()
	for i, r := range s.Results {
		cell := tview.NewTableCell(label(r.Label)).SetExpansion(1).SetTextColor(sv.theme.FgColor)
		if r.IsPaginationMarker {
			cell.SetTextColor(sv.theme.MenuKeyColor)
		}
		sv.results.SetCell(i, 0, cell)
	}
}

// FocusFirst moves the cursor to the first result.
func (sv *SearchView) FocusFirst() {
	if len(sv.snap.Results) > 0 {
		sv.results.Select(0, 0)
		sv.results.ScrollToBeginning()
	}
}

// Reset empties the query line.
func (sv *SearchView) Reset() {
	sv.input.SetText("")
}

// Input returns the query line.
func (sv *SearchView) Input() *tview.InputField { return sv.input }

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table { return sv.results }
