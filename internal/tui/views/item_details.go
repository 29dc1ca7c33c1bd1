package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/player"
	"github.com/matheus3301/tele/internal/tui/ui"
)

// ItemDetails shows one item's metadata and, once resolved, its playback
// link as a QR code for watching on another device.
type ItemDetails struct {
	*tview.TextView
	theme *ui.Theme
	item  model.MediaItem
	link  string
}

// NewItemDetails creates an empty details page.
func NewItemDetails(theme *ui.Theme) *ItemDetails {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ItemDetails{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (d *ItemDetails) Name() string { return "details" }

// Item returns the item shown.
func (d *ItemDetails) Item() model.MediaItem { return d.item }

// Show renders item and drops any link of a previous item.
func (d *ItemDetails) Show(item model.MediaItem) {
	d.item = item
	d.link = ""
	d.render()
}

// ShowLink adds the playback link of the item shown.
func (d *ItemDetails) ShowLink(itemID int64, url string) {
	if itemID != d.item.ItemID {
		return
	}
	d.link = url
	d.render()
}

func (d *ItemDetails) render() {
	d.Clear()
	d.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(d.item.Title))))
	_, _ = fmt.Fprintf(d, "\n%s", tview.Escape(sanitizeForTerminal(model.Details(d.item))))
	if d.link == "" {
		return
	}
	_, _ = fmt.Fprintf(d, "\n[%s::b]Link[-:-:-]\n %s\n\n", ui.Tag(d.theme.MenuKeyColor), tview.Escape(d.link))
	qr, err := player.QR(d.link)
	if err != nil {
		_, _ = fmt.Fprintf(d, " (QR generation failed: %s)\n", tview.Escape(err.Error()))
		return
	}
	_, _ = fmt.Fprint(d, qr)
	d.ScrollToBeginning()
}
