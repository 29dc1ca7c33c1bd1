package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/tui/ui"
)

// CollectionList is the sidebar of pageable sources: the personal store
// followed by the chats with an active video chat.
type CollectionList struct {
	*tview.Table
	theme    *ui.Theme
	refs     []model.CollectionRef
	active   model.CollectionRef
	onSelect func(ref model.CollectionRef)
}

// NewCollectionList creates an empty sidebar.
func NewCollectionList(theme *ui.Theme) *CollectionList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Collections ")
	table.SetTitleColor(theme.TitleColor)

	cl := &CollectionList{
		Table: table,
		theme: theme,
	}
	table.SetSelectedFunc(func(row, _ int) {
		if ref, ok := cl.At(row); ok && cl.onSelect != nil {
			cl.onSelect(ref)
		}
	})
	return cl
}

// SetOnSelect sets the callback for Enter on a row.
func (cl *CollectionList) SetOnSelect(fn func(ref model.CollectionRef)) {
	cl.onSelect = fn
}

// SetActive marks the collection currently shown.
func (cl *CollectionList) SetActive(ref model.CollectionRef) {
	cl.active = ref
	cl.render()
}

// Update shows s.
func (cl *CollectionList) Update(s collections.State) {
	cl.refs = s.Candidates
	cl.render()
	switch {
	case s.Loading && len(s.Candidates) == 0:
		cl.SetTitle(" Collections (loading) ")
	case s.Error != "":
		cl.SetTitle(fmt.Sprintf(" Collections [%s](%s)[-] ", ui.Tag(cl.theme.FlashErrColor), tview.Escape(s.Error)))
	default:
		cl.SetTitle(fmt.Sprintf(" Collections (%d) ", len(s.Candidates)))
	}
}

func (cl *CollectionList) render() {
	row, _ := cl.GetSelection()
	cl.Clear()
	for i, ref := range cl.refs {
		marker := "  "
		if cl.active.Same(ref) && (cl.active.IsPersonalStore || cl.active.ID != 0) {
			marker = "▸ "
		}
		title := ref.Title
		if title == "" {
			title = fmt.Sprintf("#%d", ref.ID)
		}
		color := cl.theme.FgColor
		if ref.IsPersonalStore {
			color = cl.theme.CounterColor
		}
		cl.SetCell(i, 0, tview.NewTableCell(marker+tview.Escape(sanitizeForTerminal(title))).
			SetExpansion(1).
			SetTextColor(color))
	}
	if row >= len(cl.refs) {
		row = len(cl.refs) - 1
	}
	cl.Select(max(row, 0), 0)
}

// At returns the collection on row.
func (cl *CollectionList) At(row int) (model.CollectionRef, bool) {
	if row < 0 || row >= len(cl.refs) {
		return model.CollectionRef{}, false
	}
	return cl.refs[row], true
}

// Selected returns the collection under the cursor.
func (cl *CollectionList) Selected() (model.CollectionRef, bool) {
	row, _ := cl.GetSelection()
	return cl.At(row)
}
