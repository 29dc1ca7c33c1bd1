package views

import (
	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/tui/ui"
)

// sidebarWidth is the column width of the collection list.
const sidebarWidth = 32

// Browse is the main page: collections on the left, media on the right.
type Browse struct {
	*tview.Flex
	Collections *CollectionList
	Media       *MediaTable
}

// NewBrowse creates the browse page.
func NewBrowse(theme *ui.Theme) *Browse {
	b := &Browse{
		Collections: NewCollectionList(theme),
		Media:       NewMediaTable(theme),
	}
	b.Flex = tview.NewFlex().
		AddItem(b.Collections, sidebarWidth, 0, false).
		AddItem(b.Media, 0, 1, true)
	return b
}

// Name implements ui.Component.
func (b *Browse) Name() string { return "browse" }

// Other returns the pane that does not hold focus.
func (b *Browse) Other(focused tview.Primitive) tview.Primitive {
	if focused == b.Collections {
		return b.Media
	}
	return b.Collections
}
