package chat

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one registered chat participant. Its identity in the Registry is
// Conn; ID only correlates log lines.
type Session struct {
	ID   uuid.UUID
	Name string
	Conn net.Conn

	writeTimeout time.Duration
	mu           sync.Mutex // serializes writes from concurrent broadcasts
}

func NewSession(conn net.Conn, name string, writeTimeout time.Duration) *Session {
	return &Session{
		ID:           uuid.New(),
		Name:         name,
		Conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Send writes line to the session's connection.
func (s *Session) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.Conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return WriteLine(s.Conn, line)
}

func (s *Session) RemoteAddr() string {
	if s.Conn == nil || s.Conn.RemoteAddr() == nil {
		return ""
	}
	return s.Conn.RemoteAddr().String()
}

const systemPrefix = "[SYSTEM] "

func JoinNotice(name string) string {
	return systemPrefix + name + " has joined"
}

func LeaveNotice(name string) string {
	return systemPrefix + name + " has left"
}

func ChatLine(name, text string) string {
	return name + ": " + text
}

// IsSystemNotice reports whether line was generated by the server rather than
// authored by a participant.
func IsSystemNotice(line string) bool {
	return strings.HasPrefix(line, systemPrefix)
}

var (
	ErrAlreadyRegistered = errorString("session_already_registered")
	ErrServerClosed      = errorString("server_closed")
	ErrServerStarted     = errorString("server_already_started")
)

type errorString string

func (e errorString) Error() string { return string(e) }
