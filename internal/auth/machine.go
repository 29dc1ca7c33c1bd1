// Package auth drives the login sequence from backend notifications.
//
// The presented state only moves when the backend reports a new state.
// Intents mark the machine pending and wait for that report; an error
// answer surfaces a message without stepping back.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/metrics"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/store"
)

// ErrReadOnly is returned for input while the session is logging out or closed.
var ErrReadOnly = errors.New("session is closing; query again to restart")

// Client is the part of the remote adapter the machine needs.
type Client interface {
	Send(req remote.Request, done remote.Callback) *remote.Call
	Subscribe(onNotification func(remote.Notification), onTransportError func(error)) func()
	Reopen(ctx context.Context) error
}

// CredentialStore persists the API credentials.
type CredentialStore interface {
	LoadCredentials(ctx context.Context) (*store.Credentials, error)
	SaveCredentials(ctx context.Context, apiID int64, apiHash string) error
}

// Credentials are fallback API credentials from config or environment.
type Credentials struct {
	APIID   int64
	APIHash string
}

const storeTimeout = 5 * time.Second

// Machine is the authorization state machine.
type Machine struct {
	client   Client
	creds    CredentialStore
	fallback Credentials
	bus      *bus.Bus
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu    sync.Mutex
	snap  Snapshot
	unsub func()
}

// NewMachine creates a machine in the Uninitialized state.
func NewMachine(client Client, creds CredentialStore, fallback Credentials, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Machine {
	return &Machine{
		client:   client,
		creds:    creds,
		fallback: fallback,
		bus:      b,
		metrics:  m,
		log:      logging.OrNop(logger).Named("auth"),
		snap:     Snapshot{State: Uninitialized, Pending: true},
	}
}

// Start subscribes to backend notifications and issues the first query.
func (m *Machine) Start() {
	unsub := m.client.Subscribe(m.onNotification, m.onTransportError)
	m.mu.Lock()
	m.unsub = unsub
	m.mu.Unlock()
	m.Query()
}

// Stop unsubscribes from backend notifications.
func (m *Machine) Stop() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Snapshot returns the current published state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Authorized reports whether media and search operations are permitted.
func (m *Machine) Authorized() bool {
	return m.Snapshot().State == Authorized
}

// Query asks the backend for its current state. After Closed it opens a
// fresh backend session first.
func (m *Machine) Query() {
	prev := m.update(func(s *Snapshot) {
		s.Pending = true
	})
	if prev.State == Closed {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err := m.client.Reopen(ctx)
		cancel()
		if err != nil {
			m.fail(err)
			return
		}
	}
	m.client.Send(remote.GetAuthState{}, m.onQueryResult)
}

// SubmitCredentials validates and persists API credentials, then queries
// the backend again so it can pick them up.
func (m *Machine) SubmitCredentials(apiID, apiHash string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(apiID), 10, 64)
	if strings.TrimSpace(apiID) == "" || err != nil || id <= 0 {
		return m.reject(model.Invalid("api_id", MsgInvalidAPIID))
	}
	hash := strings.TrimSpace(apiHash)
	if hash == "" {
		return m.reject(model.Invalid("api_hash", MsgInvalidAPIHash))
	}
	if m.Snapshot().State.ReadOnly() {
		return ErrReadOnly
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.creds.SaveCredentials(ctx, id, hash); err != nil {
		m.fail(err)
		return err
	}
	m.log.Info("credentials saved", zap.Int64("api_id", id))
	m.update(func(s *Snapshot) {
		s.APIID = strconv.FormatInt(id, 10)
		s.Pending = true
		s.Message = ""
	})
	m.client.Send(remote.GetAuthState{}, m.onQueryResult)
	return nil
}

// SubmitPhone sends the phone number.
func (m *Machine) SubmitPhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return m.reject(model.Invalid("phone", MsgEnterPhone))
	}
	return m.submit(remote.SetPhone{Phone: phone})
}

// SubmitCode sends the login code.
func (m *Machine) SubmitCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return m.reject(model.Invalid("code", MsgEnterCode))
	}
	return m.submit(remote.CheckCode{Code: code})
}

// SubmitPassword sends the second factor password.
func (m *Machine) SubmitPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return m.reject(model.Invalid("password", MsgEnterPassword))
	}
	return m.submit(remote.CheckPassword{Password: password})
}

// LogOut ends the remote session.
func (m *Machine) LogOut() error {
	return m.submit(remote.LogOut{})
}

func (m *Machine) submit(req remote.Request) error {
	var readOnly bool
	m.update(func(s *Snapshot) {
		if s.State.ReadOnly() {
			readOnly = true
			return
		}
		s.Pending = true
		s.Message = ""
	})
	if readOnly {
		return ErrReadOnly
	}
	m.log.Debug("submit", zap.String("kind", req.Kind()))
	m.client.Send(req, m.onResult)
	return nil
}

func (m *Machine) reject(err error) error {
	m.update(func(s *Snapshot) {
		s.Pending = false
		s.Message = err.Error()
	})
	return err
}

func (m *Machine) fail(err error) {
	m.update(func(s *Snapshot) {
		s.Pending = false
		s.Message = remote.Message(err)
	})
}

func (m *Machine) onQueryResult(resp remote.Response, err error) {
	if err != nil {
		m.fail(err)
		return
	}
	if r, ok := resp.(remote.AuthStateResult); ok {
		m.apply(r.State)
	}
}

func (m *Machine) onResult(_ remote.Response, err error) {
	if err != nil {
		m.log.Info("remote rejected input", zap.Error(err))
		m.fail(err)
	}
}

func (m *Machine) onNotification(n remote.Notification) {
	if change, ok := n.(remote.AuthStateChanged); ok {
		m.apply(change.State)
	}
}

func (m *Machine) onTransportError(err error) {
	m.fail(err)
	m.client.Send(remote.GetAuthState{}, m.onQueryResult)
}

func (m *Machine) apply(rs remote.AuthState) {
	if rs == remote.StateWaitParameters {
		m.supplyParameters()
		return
	}
	next, ok := fromRemote(rs)
	if !ok {
		m.log.Warn("unknown remote auth state", zap.String("state", string(rs)))
		return
	}
	m.update(func(s *Snapshot) {
		if s.State != next {
			s.Message = ""
		}
		s.State = next
		s.Pending = false
		switch next {
		case LoggingOut:
			s.Message, s.Pending = MsgLoggingOut, true
		case Closing:
			s.Message, s.Pending = MsgClosing, true
		case Closed:
			s.Message = MsgClosed
		}
	})
}

// supplyParameters answers WaitParameters with stored credentials, falling
// back to configured ones, or asks the user for them.
func (m *Machine) supplyParameters() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	stored, err := m.creds.LoadCredentials(ctx)
	cancel()
	if err != nil {
		m.log.Warn("load credentials", zap.Error(err))
	}

	creds := m.fallback
	if stored != nil && stored.APIID > 0 && stored.APIHash != "" {
		creds = Credentials{APIID: stored.APIID, APIHash: stored.APIHash}
	}
	if creds.APIID <= 0 || creds.APIHash == "" {
		m.update(func(s *Snapshot) {
			s.State = AwaitingCredentials
			s.Message = MsgEnterCredentials
			s.Pending = false
			if stored != nil && stored.APIID > 0 {
				s.APIID = strconv.FormatInt(stored.APIID, 10)
			}
		})
		return
	}

	m.update(func(s *Snapshot) {
		s.APIID = strconv.FormatInt(creds.APIID, 10)
		s.Pending = true
	})
	m.client.Send(remote.SetParameters{APIID: creds.APIID, APIHash: creds.APIHash}, m.onResult)
}

// update applies fn to a copy of the snapshot, publishes the result and
// returns the previous snapshot.
func (m *Machine) update(fn func(*Snapshot)) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.snap
	next := prev
	fn(&next)
	if next == prev {
		return prev
	}
	m.snap = next
	if next.State != prev.State {
		m.log.Info("auth state changed",
			zap.String("from", string(prev.State)),
			zap.String("to", string(next.State)))
		m.metrics.SetAuthState(string(next.State))
	}
	m.bus.Emit(bus.KindAuthChanged, next)
	return prev
}
