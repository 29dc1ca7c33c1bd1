package daemon

import (
	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/status"
)

// ConnectionHandler drives the status machine from backend notifications.
type ConnectionHandler struct {
	machine *status.Machine
	logger  *zap.Logger
}

// NewConnectionHandler creates a handler for the given machine.
func NewConnectionHandler(machine *status.Machine, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{machine: machine, logger: logger}
}

// HandleNotification is registered with remote.Adapter.Subscribe.
func (h *ConnectionHandler) HandleNotification(n remote.Notification) {
	switch evt := n.(type) {
	case remote.ConnectionChanged:
		switch evt.State {
		case remote.ConnConnecting:
			if h.machine.Current() == status.Online {
				h.move(status.Reconnecting, "")
				return
			}
			h.move(status.Connecting, "")
		case remote.ConnOnline:
			h.logger.Info("remote connected")
			h.move(status.Online, "")
		}
	case remote.AuthStateChanged:
		if evt.State == remote.StateClosed {
			h.logger.Info("remote session closed")
		}
	}
}

// HandleTransportError records a lost connection. The backend reconnects
// on its own and reports ConnConnecting when it does.
func (h *ConnectionHandler) HandleTransportError(err error) {
	h.logger.Warn("remote transport error", zap.Error(err))
	switch h.machine.Current() {
	case status.Online, status.Connecting:
		h.move(status.Reconnecting, remote.Message(err))
	default:
		h.move(status.Error, remote.Message(err))
	}
}

func (h *ConnectionHandler) move(to status.State, reason string) {
	if err := h.machine.TransitionWithReason(to, reason); err != nil {
		h.logger.Debug("status transition skipped", zap.Error(err))
	}
}
