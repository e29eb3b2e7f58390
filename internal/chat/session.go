package chat

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Handler runs the per-connection protocol: handshake, chat loop, departure.
type Handler struct {
	reg          *Registry
	disp         *Dispatcher
	logger       *slog.Logger
	idleTimeout  time.Duration
	writeTimeout time.Duration
}

func NewHandler(reg *Registry, disp *Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		reg:    reg,
		disp:   disp,
		logger: logger,
	}
}

// HandleSession blocks until the connection's read loop ends. The connection
// is always closed on return.
func (h *Handler) HandleSession(conn net.Conn) {
	reader := NewLineReader(conn)
	remote := conn.RemoteAddr().String()

	// Handshake: the first line is the display name.
	h.armReadDeadline(conn)
	line, err := reader.ReadLine()
	if err != nil {
		h.logger.Debug("handshake aborted", "addr", remote, "error", err)
		_ = conn.Close()
		return
	}

	s := NewSession(conn, strings.TrimSpace(line), h.writeTimeout)
	if err := h.reg.Register(s); err != nil {
		h.logger.Error("register failed", "addr", remote, "error", err)
		_ = conn.Close()
		return
	}
	h.logger.Info("user joined", "username", s.Name, "session_id", s.ID, "addr", remote)
	h.broadcast(kindJoin, JoinNotice(s.Name))

	for {
		h.armReadDeadline(conn)
		line, err := reader.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Warn("read failed", "username", s.Name, "session_id", s.ID, "error", err)
			}
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		h.broadcast(kindChat, ChatLine(s.Name, line))
	}

	h.reg.Deregister(s)
	_ = conn.Close()
	h.logger.Info("user left", "username", s.Name, "session_id", s.ID, "addr", remote)
	h.broadcast(kindLeave, LeaveNotice(s.Name))
}

func (h *Handler) broadcast(kind, line string) {
	report := h.disp.Broadcast(line)
	MessagesTotal.WithLabelValues(kind).Inc()
	if failed := report.Failed(); len(failed) > 0 {
		h.logger.Debug("broadcast partially failed",
			"kind", kind,
			"failed", len(failed),
			"delivered", report.DeliveredCount(),
		)
	}
}

func (h *Handler) armReadDeadline(conn net.Conn) {
	if h.idleTimeout <= 0 {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
}
