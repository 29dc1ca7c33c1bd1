package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/tui/ui"
)

// nearEnd is how close to the last item the cursor gets before the next
// page is requested.
const nearEnd = 5

// MediaTable lists the items of the active collection.
type MediaTable struct {
	*tview.Table
	theme     *ui.Theme
	state     media.State
	rendering bool

	onOpen    func(item model.MediaItem)
	onFocus   func(item model.MediaItem)
	onNearEnd func()
}

// NewMediaTable creates an empty media table.
func NewMediaTable(theme *ui.Theme) *MediaTable {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Media ")
	table.SetTitleColor(theme.TitleColor)

	mt := &MediaTable{Table: table, theme: theme}
	table.SetSelectionChangedFunc(func(row, _ int) {
		if !mt.rendering {
			mt.selectionChanged(row)
		}
	})
	table.SetSelectedFunc(func(row, _ int) {
		if item, ok := mt.At(row); ok && mt.onOpen != nil {
			mt.onOpen(item)
		}
	})
	return mt
}

// SetOnOpen sets the callback for Enter on an item.
func (mt *MediaTable) SetOnOpen(fn func(item model.MediaItem)) { mt.onOpen = fn }

// SetOnFocus sets the callback for the cursor landing on an item.
func (mt *MediaTable) SetOnFocus(fn func(item model.MediaItem)) { mt.onFocus = fn }

// SetOnNearEnd sets the callback for the cursor nearing the last item
// while more pages exist.
func (mt *MediaTable) SetOnNearEnd(fn func()) { mt.onNearEnd = fn }

func (mt *MediaTable) selectionChanged(row int) {
	item, ok := mt.At(row)
	if !ok {
		return
	}
	if mt.onFocus != nil {
		mt.onFocus(item)
	}
	if mt.onNearEnd != nil && mt.state.HasMore && !mt.state.Loading && !mt.state.LoadingMore &&
		row-1 >= len(mt.state.Items)-nearEnd {
		mt.onNearEnd()
	}
}

// Update shows s, keeping the cursor on the same item when it survives.
func (mt *MediaTable) Update(s media.State) {
	selected, hadSelection := mt.Selected()
	sameCollection := mt.state.Collection.Same(s.Collection)
	mt.state = s

	mt.rendering = true
	defer func() { mt.rendering = false }()

	mt.Clear()
	mt.renderHeader()
	for i, item := range s.Items {
		mt.renderItem(i+1, item)
	}
	mt.renderFooter(len(s.Items) + 1)
	mt.renderTitle()

	row := 1
	if hadSelection && sameCollection {
		if i := s.Find(selected.ItemID); i >= 0 {
			row = i + 1
		} else if r, _ := mt.GetSelection(); r <= len(s.Items) {
			row = max(r, 1)
		}
	}
	if len(s.Items) > 0 {
		mt.Select(min(row, len(s.Items)), 0)
	}
}

func (mt *MediaTable) renderHeader() {
	headers := []struct {
		text string
		exp  int
	}{
		{" KIND", 0},
		{" TITLE", 1},
		{" LENGTH", 0},
		{" SIZE", 0},
		{" DATE", 0},
		{" ", 0},
	}
	for col, h := range headers {
		mt.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(mt.theme.TableHeaderFg).
			SetBackgroundColor(mt.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}
}

func (mt *MediaTable) renderItem(row int, item model.MediaItem) {
	kind, color := "IMG", mt.theme.ImageColor
	length := ""
	if item.Kind == model.KindVideo {
		kind, color = "VID", mt.theme.VideoColor
		length = model.FormatDuration(item.DurationSeconds)
	}
	thumb := " "
	switch {
	case item.ThumbnailPath != "":
		thumb = "▣"
	case item.ThumbnailRef != "":
		thumb = "□"
	}
	cells := []*tview.TableCell{
		tview.NewTableCell(" " + kind).SetTextColor(color),
		tview.NewTableCell(label(item.Title)).SetExpansion(1).SetTextColor(mt.theme.FgColor),
		tview.NewTableCell(" " + length).SetAlign(tview.AlignRight).SetTextColor(mt.theme.FgColor),
		tview.NewTableCell(" " + model.FormatSize(item.SizeBytes)).SetAlign(tview.AlignRight).SetTextColor(mt.theme.FgColor),
		tview.NewTableCell(" " + model.FormatDate(item.Timestamp)).SetTextColor(mt.theme.FgColor),
		tview.NewTableCell(" " + thumb).SetTextColor(mt.theme.CounterColor),
	}
	for col, c := range cells {
		mt.SetCell(row, col, c)
	}
}

func (mt *MediaTable) renderFooter(row int) {
	s := mt.state
	var text string
	switch {
	case !s.Active:
		text = "Pick a collection"
	case s.Loading && len(s.Items) == 0:
		text = "Loading…"
	case s.LoadingMore:
		text = "Loading more…"
	case len(s.Items) == 0:
		text = "No photos or videos"
	case s.HasMore:
		text = "More below"
	default:
		return
	}
	mt.SetCell(row, 1, tview.NewTableCell(" "+text).
		SetSelectable(false).
		SetAttributes(tcell.AttrDim).
		SetTextColor(mt.theme.FgColor))
}

func (mt *MediaTable) renderTitle() {
	s := mt.state
	if !s.Active {
		mt.SetTitle(" Media ")
		return
	}
	title := fmt.Sprintf(" %s (%d", tview.Escape(sanitizeForTerminal(s.Collection.Title)), len(s.Items))
	if s.HasMore {
		title += "+"
	}
	title += ") "
	if s.Error != "" {
		title += fmt.Sprintf("[%s]%s[-] ", ui.Tag(mt.theme.FlashErrColor), tview.Escape(s.Error))
	}
	mt.SetTitle(title)
}

// At returns the item on row. Row 0 is the header.
func (mt *MediaTable) At(row int) (model.MediaItem, bool) {
	if row < 1 || row > len(mt.state.Items) {
		return model.MediaItem{}, false
	}
	return mt.state.Items[row-1], true
}

// Selected returns the item under the cursor.
func (mt *MediaTable) Selected() (model.MediaItem, bool) {
	row, _ := mt.GetSelection()
	return mt.At(row)
}

// State returns the state last shown.
func (mt *MediaTable) State() media.State {
	return mt.state
}
