// Package tui is the terminal front end of a session daemon.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/tele/internal/api"
	"github.com/matheus3301/tele/internal/auth"
	mediamodel "github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/player"
	"github.com/matheus3301/tele/internal/tui/client"
	"github.com/matheus3301/tele/internal/tui/keys"
	"github.com/matheus3301/tele/internal/tui/model"
	"github.com/matheus3301/tele/internal/tui/ui"
	"github.com/matheus3301/tele/internal/tui/views"
)

const (
	headerHeight = 7
	promptHeight = 3
	watchRetry   = 2 * time.Second
	tickInterval = time.Second
	confirmPage  = "confirm"
)

var pageTitles = map[string]string{
	"auth":    "Login",
	"browse":  "Media",
	"details": "Details",
	"search":  "Search",
	"help":    "Help",
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	client   *client.Client
	player   *player.Player
	registry *keys.Registry
	flash    *ui.FlashModel
	session  string

	root     *tview.Flex
	pages    *ui.Pages
	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt

	authView *views.AuthView
	browse   *views.Browse
	details  *views.ItemDetails
	searchV  *views.SearchView
	help     *views.HelpView

	// statusAt is when the last status snapshot arrived, for the uptime.
	statusAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for one session.
func NewApp(c *client.Client, sessionName string, p *player.Player) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		vm:       model.NewViewModel(c),
		client:   c,
		player:   p,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		session:  sessionName,
		pages:    ui.NewPages(),
		info:     ui.NewSessionInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme, pageTitles),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		authView: views.NewAuthView(theme),
		browse:   views.NewBrowse(theme),
		details:  views.NewItemDetails(theme),
		searchV:  views.NewSearchView(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	rk := func(name string, r rune, desc string, visible bool, fn func()) *keys.Action {
		return &keys.Action{Name: name, Key: tcell.KeyRune, Rune: r, Description: desc, Visible: visible, Handler: fn}
	}

	a.registry.AddGlobal(rk("quit", 'q', "Quit", true, a.Stop))
	a.registry.AddGlobal(rk("help", '?', "Help", true, func() { a.show("help") }))
	a.registry.AddGlobal(rk("command", ':', "Command", true, func() { a.activatePrompt(ui.PromptCommand) }))
	a.registry.AddGlobal(rk("search", '/', "Search bot", true, func() { a.activatePrompt(ui.PromptSearch) }))

	a.registry.AddPage("browse", &keys.Action{Name: "open", Key: tcell.KeyEnter, Description: "Open", Visible: true, Handler: func() {
		a.enterOnBrowse()
	}})
	a.registry.AddPage("browse", rk("play", 'p', "Play", true, func() { a.withSelected(a.play) }))
	a.registry.AddPage("browse", rk("delete", 'd', "Delete", true, func() { a.withSelected(a.confirmDelete) }))
	a.registry.AddPage("browse", rk("more", 'm', "More", true, a.loadMore))
	a.registry.AddPage("browse", rk("reload", 'r', "Reload", true, a.reload))
	a.registry.AddPage("browse", rk("dismiss", 'x', "Dismiss error", false, a.dismissError))
	a.registry.AddPage("browse", &keys.Action{Name: "pane", Key: tcell.KeyTab, Description: "Switch pane", Visible: true, Handler: func() {
		a.app.SetFocus(a.browse.Other(a.app.GetFocus()))
	}})

	a.registry.AddPage("details", rk("play", 'p', "Play", true, func() { a.play(a.details.Item()) }))
	a.registry.AddPage("details", rk("link", 'l', "Link QR", true, func() { a.showLink(a.details.Item()) }))

	a.registry.AddPage("search", rk("clear", 'c', "Clear", true, a.clearSearch))
	a.registry.AddPage("search", &keys.Action{Name: "pane", Key: tcell.KeyTab, Description: "Query/results", Visible: true, Handler: func() {
		if a.app.GetFocus() == a.searchV.Input() {
			a.app.SetFocus(a.searchV.Results())
			return
		}
		a.app.SetFocus(a.searchV.Input())
	}})
}

func (a *App) setupCallbacks() {
	a.authView.SetOnSubmit(func(state auth.State, values []string) {
		a.async("Login failed", func(ctx context.Context) error {
			return a.vm.SubmitAuth(ctx, state, values)
		})
	})

	a.browse.Collections.SetOnSelect(a.openCollection)
	a.browse.Media.SetOnOpen(func(item mediamodel.MediaItem) {
		a.details.Show(item)
		a.show("details")
	})
	a.browse.Media.SetOnFocus(func(item mediamodel.MediaItem) {
		if item.NeedsThumbnail() {
			go func() { _ = a.vm.Focus(a.ctx, item.ItemID) }()
		}
	})
	a.browse.Media.SetOnNearEnd(a.loadMore)

	a.searchV.SetOnQuery(func(query string) {
		a.async("Search failed", func(ctx context.Context) error { return a.vm.Search(ctx, query) })
	})
	a.searchV.SetOnSelect(func(i int) {
		a.async("Selection failed", func(ctx context.Context) error { return a.vm.Select(ctx, i) })
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.deactivatePrompt()
		if mode == ui.PromptSearch {
			a.runSearch(text)
			return
		}
		a.runCommand(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.deactivatePrompt)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		if len(stack) > 0 {
			a.menu.Update(a.registry.Hints(stack[len(stack)-1]))
		}
	})
}

func (a *App) setupLayout() {
	for _, c := range []ui.Component{a.authView, a.browse, a.details, a.searchV, a.help} {
		a.pages.Add(c)
	}

	header := tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
	a.pages.Reset("auth")
}

func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	page := a.pages.Current()
	if front, _ := a.pages.GetFrontPage(); front == confirmPage || a.prompt.HasFocus() {
		return event
	}

	if event.Key() == tcell.KeyEscape {
		if a.pages.Pop() != "" {
			a.focusPage()
			return nil
		}
	}

	// Text input owns every key but Esc; Tab still toggles the search panes.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		if event.Key() == tcell.KeyTab && page == "search" {
			a.registry.HandleEvent(page, event)
			return nil
		}
		return event
	}
	if page == "auth" && event.Key() != tcell.KeyRune {
		return event
	}

	if a.registry.HandleEvent(page, event) {
		return nil
	}
	return event
}

// show pushes page and focuses it.
func (a *App) show(page string) {
	a.pages.Push(page)
	a.focusPage()
}

func (a *App) focusPage() {
	switch page := a.pages.Current(); page {
	case "auth":
		a.app.SetFocus(a.authView.Form())
	case "browse":
		a.app.SetFocus(a.browse.Media)
	case "search":
		if len(a.vm.SearchState().Results) > 0 {
			a.app.SetFocus(a.searchV.Results())
		} else {
			a.app.SetFocus(a.searchV.Input())
		}
	default:
		a.app.SetFocus(a.pages.Component(page))
	}
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) deactivatePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusPage()
}

// async runs fn off the UI goroutine and flashes its error.
func (a *App) async(what string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(a.ctx); err != nil && a.ctx.Err() == nil {
			a.fail(what, err)
		}
	}()
}

// fail flashes err without its gRPC framing.
func (a *App) fail(what string, err error) {
	if st, ok := grpcstatus.FromError(err); ok {
		err = errors.New(st.Message())
	}
	a.flash.Err(what, err)
}

func (a *App) enterOnBrowse() {
	if a.app.GetFocus() == a.browse.Collections {
		if ref, ok := a.browse.Collections.Selected(); ok {
			a.openCollection(ref)
		}
		return
	}
	a.withSelected(func(item mediamodel.MediaItem) {
		a.details.Show(item)
		a.show("details")
	})
}

func (a *App) withSelected(fn func(item mediamodel.MediaItem)) {
	if item, ok := a.browse.Media.Selected(); ok {
		fn(item)
	}
}

func (a *App) openCollection(ref mediamodel.CollectionRef) {
	a.app.SetFocus(a.browse.Media)
	a.async("Load failed", func(ctx context.Context) error { return a.vm.Open(ctx, ref) })
}

func (a *App) loadMore() {
	a.async("Load failed", a.vm.LoadMore)
}

func (a *App) reload() {
	ref := mediamodel.PersonalStore()
	if m := a.vm.Media(); m.Active {
		ref = m.Collection
	}
	a.openCollection(ref)
}

func (a *App) dismissError() {
	a.async("Dismiss failed", a.vm.DismissError)
}

func (a *App) confirmDelete(item mediamodel.MediaItem) {
	modal := tview.NewModal().
		SetText("Delete \"" + item.Title + "\" for everyone?").
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, button string) {
			a.pages.RemovePage(confirmPage)
			a.focusPage()
			if button != "Delete" {
				return
			}
			a.async("Delete failed", func(ctx context.Context) error {
				if err := a.vm.Delete(ctx, item); err != nil {
					return err
				}
				a.flash.Info("Deleted")
				return nil
			})
		})
	a.pages.AddPage(confirmPage, modal, false, true)
	a.app.SetFocus(modal)
}

// play resolves a link for a video and hands it to the player. Without a
// player the link is shown as a QR code instead.
func (a *App) play(item mediamodel.MediaItem) {
	if item.Kind != mediamodel.KindVideo {
		a.flash.Warn("Only videos can be played")
		return
	}
	a.flash.Info("Resolving link…")
	a.async("Playback failed", func(ctx context.Context) error {
		url, err := a.vm.Link(ctx, item.ItemID)
		if err != nil {
			return err
		}
		err = a.player.Launch(url, item.Title)
		if errors.Is(err, player.ErrNoPlayer) {
			a.flash.Warn(player.ErrNoPlayer.Error() + ", scan the code to watch elsewhere")
			a.app.QueueUpdateDraw(func() { a.presentLink(item, url) })
			return nil
		}
		if err != nil {
			return err
		}
		a.flash.Info("Playing " + item.Title)
		return nil
	})
}

func (a *App) showLink(item mediamodel.MediaItem) {
	if item.Kind != mediamodel.KindVideo {
		a.flash.Warn("Only videos have a link")
		return
	}
	a.async("Link failed", func(ctx context.Context) error {
		url, err := a.vm.Link(ctx, item.ItemID)
		if err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.presentLink(item, url) })
		return nil
	})
}

func (a *App) presentLink(item mediamodel.MediaItem, url string) {
	if a.details.Item().ItemID != item.ItemID {
		a.details.Show(item)
	}
	a.details.ShowLink(item.ItemID, url)
	if a.pages.Current() != "details" {
		a.show("details")
	}
}

func (a *App) runSearch(query string) {
	a.searchV.Reset()
	a.searchV.Input().SetText(query)
	a.show("search")
	a.async("Search failed", func(ctx context.Context) error { return a.vm.Search(ctx, query) })
}

func (a *App) clearSearch() {
	a.searchV.Reset()
	a.async("Clear failed", a.vm.ClearSearch)
	a.app.SetFocus(a.searchV.Input())
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	defer a.cancel()
	go a.start()
	return a.app.Run()
}

func (a *App) start() {
	if err := a.vm.Load(a.ctx); err != nil && a.ctx.Err() == nil {
		a.fail("Cannot load state", err)
	}
	a.app.QueueUpdateDraw(func() {
		for _, topic := range api.AllTopics {
			a.render(topic)
		}
	})
	go a.watch()
	a.refreshLoop()
}

// watch applies the daemon's snapshot stream, reconnecting after errors.
func (a *App) watch() {
	for {
		err := a.consume()
		if a.ctx.Err() != nil {
			return
		}
		a.flash.Warn("Lost connection to daemon: " + grpcstatus.Convert(err).Message())
		select {
		case <-time.After(watchRetry):
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) consume() error {
	w, err := a.client.Watch(a.ctx)
	if err != nil {
		return err
	}
	for {
		env, err := w.Recv()
		if err != nil {
			return err
		}
		a.vm.Apply(env)
	}
}

// refreshLoop redraws on snapshot changes, flash messages and a clock tick.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case topic := <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(func() { a.render(topic) })
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(a.renderFlash)
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.renderFlash()
				a.renderInfo()
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) render(topic string) {
	switch topic {
	case api.TopicStatus:
		a.statusAt = time.Now()
		a.renderAuth()
	case api.TopicAuth:
		a.renderAuth()
	case api.TopicMedia:
		m := a.vm.Media()
		a.browse.Media.Update(m)
		a.browse.Collections.SetActive(m.Collection)
	case api.TopicSearch:
		a.renderSearch()
	case api.TopicCandidates:
		a.browse.Collections.Update(a.vm.Candidates())
	}
	a.renderInfo()
}

func (a *App) renderInfo() {
	st := a.vm.Status()
	m := a.vm.Media()
	uptime := time.Duration(st.UptimeMs) * time.Millisecond
	if !a.statusAt.IsZero() {
		uptime += time.Since(a.statusAt)
	}
	collection := ""
	if m.Active {
		collection = m.Collection.Title
	}
	connection := string(st.Connection)
	if st.Reason != "" {
		connection += " (" + st.Reason + ")"
	}
	a.info.Update(ui.SessionData{
		Session:    a.session,
		Connection: connection,
		Auth:       string(a.vm.Auth().State),
		Collection: collection,
		Items:      len(m.Items),
		HasMore:    m.HasMore,
		Uptime:     uptime,
	})
}

func (a *App) renderFlash() {
	a.flashBar.Update(a.flash.Current())
}

// renderAuth keeps the login page in front until the session is
// authorized, then switches to browsing.
func (a *App) renderAuth() {
	s := a.vm.Auth()
	a.authView.Update(s)
	onAuth := a.pages.Current() == "auth"
	switch {
	case s.State != auth.Authorized && !onAuth:
		a.pages.Reset("auth")
		a.focusPage()
	case s.State == auth.Authorized && onAuth:
		a.pages.Reset("browse")
		a.focusPage()
		a.async("Load failed", func(ctx context.Context) error {
			if err := a.vm.LoadIfNeeded(ctx); err != nil {
				return err
			}
			return a.vm.LoadCandidates(ctx)
		})
	}
}

func (a *App) renderSearch() {
	s := a.vm.SearchState()
	a.searchV.Update(s)
	if s.FocusFirstResult {
		a.async("Search failed", func(ctx context.Context) error {
			if a.vm.TakeFocusFirstResult(ctx) {
				a.app.QueueUpdateDraw(func() {
					a.searchV.FocusFirst()
					if a.pages.Current() == "search" {
						a.app.SetFocus(a.searchV.Results())
					}
				})
			}
			return nil
		})
	}
	if s.RefreshMedia {
		a.async("Reload failed", func(ctx context.Context) error {
			reloaded, err := a.vm.ReloadAfterSave(ctx)
			if reloaded {
				a.flash.Info("Saved to " + mediamodel.PersonalStoreTitle)
			}
			return err
		})
	}
}

// Stop shuts the TUI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
