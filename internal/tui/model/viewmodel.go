package model

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/tele/internal/api"
	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/search"
)

// Daemon is the part of the daemon client the TUI drives.
type Daemon interface {
	Status(ctx context.Context) (*api.StatusReply, error)
	QueryAuth(ctx context.Context) (*auth.Snapshot, error)
	SubmitCredentials(ctx context.Context, apiID, apiHash string) (*auth.Snapshot, error)
	SubmitPhone(ctx context.Context, phone string) (*auth.Snapshot, error)
	SubmitCode(ctx context.Context, code string) (*auth.Snapshot, error)
	SubmitPassword(ctx context.Context, password string) (*auth.Snapshot, error)
	LogOut(ctx context.Context) (*auth.Snapshot, error)
	MediaState(ctx context.Context) (*media.State, error)
	LoadFresh(ctx context.Context, ref model.CollectionRef) (*media.State, error)
	LoadIfNeeded(ctx context.Context) (*media.State, error)
	LoadMore(ctx context.Context) (*media.State, error)
	Focus(ctx context.Context, itemID int64) error
	DeleteItem(ctx context.Context, collectionID, itemID int64) (*media.State, error)
	ResolveLink(ctx context.Context, itemID int64) (string, error)
	DismissError(ctx context.Context) (*media.State, error)
	SearchState(ctx context.Context) (*search.Snapshot, error)
	Search(ctx context.Context, query string) (*search.Snapshot, error)
	SelectResult(ctx context.Context, result model.SearchResult) (*search.Snapshot, error)
	ClearSearch(ctx context.Context) (*search.Snapshot, error)
	ConsumeFocusFirstResult(ctx context.Context) (bool, error)
	ConsumeRefreshMedia(ctx context.Context) (bool, error)
	Candidates(ctx context.Context) (*collections.State, error)
	RefreshCandidates(ctx context.Context) (*collections.State, error)
}

// ErrNoResult is returned by Select for an index outside the results.
var ErrNoResult = errors.New("no such result")

// ViewModel caches the daemon's snapshots and signals UI refreshes.
// Snapshots arrive both from RPC replies and from the watch stream; the
// latest one wins.
type ViewModel struct {
	mu sync.RWMutex

	daemon     Daemon
	status     api.StatusReply
	auth       auth.Snapshot
	media      media.State
	search     search.Snapshot
	candidates collections.State

	refreshCh chan string
}

// NewViewModel creates a view model driving the given daemon.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{
		daemon:    d,
		refreshCh: make(chan string, 16),
	}
}

// RefreshCh receives the topic of every snapshot change.
func (vm *ViewModel) RefreshCh() <-chan string {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh(topic string) {
	select {
	case vm.refreshCh <- topic:
	default:
	}
}

// Load fetches every snapshot once and asks for the sidebar and the
// personal store if nothing is shown yet.
func (vm *ViewModel) Load(ctx context.Context) error {
	st, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.setStatus(st)

	s, err := vm.daemon.SearchState(ctx)
	if err != nil {
		return err
	}
	vm.setSearch(s)

	if st.Auth.State == auth.Authorized {
		if err := vm.LoadIfNeeded(ctx); err != nil {
			return err
		}
		return vm.LoadCandidates(ctx)
	}
	m, err := vm.daemon.MediaState(ctx)
	if err != nil {
		return err
	}
	vm.setMedia(m)
	return nil
}

// Apply stores the snapshot carried by env and returns its topic.
func (vm *ViewModel) Apply(env *api.Envelope) string {
	switch {
	case env.Status != nil:
		vm.setStatus(env.Status)
	case env.Auth != nil:
		vm.setAuth(env.Auth)
	case env.Media != nil:
		vm.setMedia(env.Media)
	case env.Search != nil:
		vm.setSearch(env.Search)
	case env.Candidates != nil:
		vm.setCandidates(env.Candidates)
	}
	return env.Topic
}

func (vm *ViewModel) setStatus(st *api.StatusReply) {
	vm.mu.Lock()
	vm.status = *st
	vm.auth = st.Auth
	vm.mu.Unlock()
	vm.signalRefresh(api.TopicStatus)
}

func (vm *ViewModel) setAuth(s *auth.Snapshot) {
	vm.mu.Lock()
	vm.auth = *s
	vm.status.Auth = *s
	vm.mu.Unlock()
	vm.signalRefresh(api.TopicAuth)
}

func (vm *ViewModel) setMedia(s *media.State) {
	vm.mu.Lock()
	vm.media = *s
	vm.mu.Unlock()
	vm.signalRefresh(api.TopicMedia)
}

func (vm *ViewModel) setSearch(s *search.Snapshot) {
	vm.mu.Lock()
	vm.search = *s
	vm.mu.Unlock()
	vm.signalRefresh(api.TopicSearch)
}

func (vm *ViewModel) setCandidates(s *collections.State) {
	vm.mu.Lock()
	vm.candidates = *s
	vm.mu.Unlock()
	vm.signalRefresh(api.TopicCandidates)
}

// authCall runs an auth intent and stores the returned snapshot.
func (vm *ViewModel) authCall(fn func() (*auth.Snapshot, error)) error {
	s, err := fn()
	if err != nil {
		return err
	}
	vm.setAuth(s)
	return nil
}

// SubmitAuth sends the values of the form shown for the current auth state.
func (vm *ViewModel) SubmitAuth(ctx context.Context, state auth.State, values []string) error {
	switch state {
	case auth.AwaitingCredentials:
		if len(values) != 2 {
			return errors.New("api id and hash required")
		}
		return vm.authCall(func() (*auth.Snapshot, error) {
			return vm.daemon.SubmitCredentials(ctx, values[0], values[1])
		})
	case auth.AwaitingPhone, auth.AwaitingCode, auth.AwaitingSecondFactor:
		if len(values) != 1 {
			return errors.New("one value required")
		}
		submit := vm.daemon.SubmitPhone
		switch state {
		case auth.AwaitingCode:
			submit = vm.daemon.SubmitCode
		case auth.AwaitingSecondFactor:
			submit = vm.daemon.SubmitPassword
		}
		return vm.authCall(func() (*auth.Snapshot, error) { return submit(ctx, values[0]) })
	default:
		return vm.authCall(func() (*auth.Snapshot, error) { return vm.daemon.QueryAuth(ctx) })
	}
}

// LogOut ends the remote session.
func (vm *ViewModel) LogOut(ctx context.Context) error {
	return vm.authCall(func() (*auth.Snapshot, error) { return vm.daemon.LogOut(ctx) })
}

func (vm *ViewModel) mediaCall(fn func() (*media.State, error)) error {
	s, err := fn()
	if err != nil {
		return err
	}
	vm.setMedia(s)
	return nil
}

// Open loads the first page of ref.
func (vm *ViewModel) Open(ctx context.Context, ref model.CollectionRef) error {
	return vm.mediaCall(func() (*media.State, error) { return vm.daemon.LoadFresh(ctx, ref) })
}

// LoadIfNeeded shows the personal store unless something is already shown.
func (vm *ViewModel) LoadIfNeeded(ctx context.Context) error {
	return vm.mediaCall(func() (*media.State, error) { return vm.daemon.LoadIfNeeded(ctx) })
}

// LoadMore requests the next page.
func (vm *ViewModel) LoadMore(ctx context.Context) error {
	return vm.mediaCall(func() (*media.State, error) { return vm.daemon.LoadMore(ctx) })
}

// Focus tells the daemon which item is under the cursor.
func (vm *ViewModel) Focus(ctx context.Context, itemID int64) error {
	return vm.daemon.Focus(ctx, itemID)
}

// Delete removes item for everyone and waits for the outcome.
func (vm *ViewModel) Delete(ctx context.Context, item model.MediaItem) error {
	return vm.mediaCall(func() (*media.State, error) {
		return vm.daemon.DeleteItem(ctx, item.CollectionID, item.ItemID)
	})
}

// Link resolves a playback URL for a video item.
func (vm *ViewModel) Link(ctx context.Context, itemID int64) (string, error) {
	return vm.daemon.ResolveLink(ctx, itemID)
}

// DismissError clears the media error banner.
func (vm *ViewModel) DismissError(ctx context.Context) error {
	return vm.mediaCall(func() (*media.State, error) { return vm.daemon.DismissError(ctx) })
}

func (vm *ViewModel) searchCall(fn func() (*search.Snapshot, error)) error {
	s, err := fn()
	if err != nil {
		return err
	}
	vm.setSearch(s)
	return nil
}

// Search asks the search bot. A too short query is reported in the
// snapshot, not as an error.
func (vm *ViewModel) Search(ctx context.Context, query string) error {
	err := vm.searchCall(func() (*search.Snapshot, error) { return vm.daemon.Search(ctx, query) })
	if grpcstatus.Code(err) != codes.InvalidArgument {
		return err
	}
	return vm.searchCall(func() (*search.Snapshot, error) { return vm.daemon.SearchState(ctx) })
}

// Select presses the i-th displayed result.
func (vm *ViewModel) Select(ctx context.Context, i int) error {
	results := vm.SearchState().Results
	if i < 0 || i >= len(results) {
		return ErrNoResult
	}
	return vm.searchCall(func() (*search.Snapshot, error) { return vm.daemon.SelectResult(ctx, results[i]) })
}

// ClearSearch resets the search.
func (vm *ViewModel) ClearSearch(ctx context.Context) error {
	return vm.searchCall(func() (*search.Snapshot, error) { return vm.daemon.ClearSearch(ctx) })
}

// TakeFocusFirstResult consumes the daemon's focus request.
func (vm *ViewModel) TakeFocusFirstResult(ctx context.Context) bool {
	ok, err := vm.daemon.ConsumeFocusFirstResult(ctx)
	return err == nil && ok
}

// ReloadAfterSave consumes the daemon's refresh request and reloads the
// personal store when it is the collection being shown.
func (vm *ViewModel) ReloadAfterSave(ctx context.Context) (bool, error) {
	ok, err := vm.daemon.ConsumeRefreshMedia(ctx)
	if err != nil || !ok {
		return false, err
	}
	m := vm.Media()
	if m.Active && !m.Collection.IsPersonalStore {
		return false, nil
	}
	return true, vm.Open(ctx, model.PersonalStore())
}

// LoadCandidates fills the sidebar unless it already is.
func (vm *ViewModel) LoadCandidates(ctx context.Context) error {
	s, err := vm.daemon.Candidates(ctx)
	if err != nil {
		return err
	}
	vm.setCandidates(s)
	return nil
}

// RefreshCandidates reloads the sidebar from the server.
func (vm *ViewModel) RefreshCandidates(ctx context.Context) error {
	s, err := vm.daemon.RefreshCandidates(ctx)
	if err != nil {
		return err
	}
	vm.setCandidates(s)
	return nil
}

// Status returns the latest daemon status.
func (vm *ViewModel) Status() api.StatusReply {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Auth returns the latest auth snapshot.
func (vm *ViewModel) Auth() auth.Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.auth
}

// Media returns the latest media state.
func (vm *ViewModel) Media() media.State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.media
}

// SearchState returns the latest search snapshot.
func (vm *ViewModel) SearchState() search.Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.search
}

// Candidates returns the latest sidebar state.
func (vm *ViewModel) Candidates() collections.State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.candidates
}
