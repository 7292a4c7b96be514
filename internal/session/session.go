// Package session implements the per-connection state machine of
// spec.md §4.2: a dispatch table keyed by opcode, a bound user once
// authenticated, and the four additive role overlays (News, Login,
// NetworkMenu, Main) of §4.3-§4.6. Grounded on the teacher's
// EvrPipeline.ProcessRequestEVR opcode switch (server/evr_pipeline.go),
// reworked from one big switch into a handler-table-per-role so each
// role's handlers compose by installing into the same map, per spec.md
// §9's design note preferring tables over class inheritance.
package session

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/wire"
)

// Dialect selects which of the two protocol variants a connection speaks.
type Dialect int

const (
	DialectA Dialect = iota
	DialectB
)

// Endpoint is one (IP, UDP port) tuple a client advertises for
// peer-to-peer relay (spec.md §4.5 SelectLobby, §4.6 Ping).
type Endpoint struct {
	IP   net.IP
	Port uint16
}

// Handler processes one opcode's body. Handlers run on the connection's
// own goroutine, one at a time (spec.md §4.2 suspension-point rule):
// nothing here awaits another connection's handler.
type Handler func(s *Session, body []byte) error

// Session owns one connection's protocol state (spec.md §4.2).
type Session struct {
	mu sync.Mutex // serializes frame encoding and writes (own replies and fan-out from other connections)

	conn   net.Conn
	reader *bufio.Reader
	logger *zap.Logger

	Server  *fiveserver.Server
	Dialect Dialect

	codec      wire.Codec
	recvOffset int
	sendOffset int
	recvBuf    []byte

	handlers map[wire.Opcode]Handler

	// Bound identity (spec.md §4.4).
	UserHash string
	User     *model.User
	ProfileID int64

	// Lobby/room placement (spec.md §4.5/§4.6).
	LobbyIndex int
	RoomName   string

	Endpoints [2]Endpoint

	// ServiceIPs/ServicePorts are the (IP, port) pairs advertised in the
	// News 0x2005 server-list response, set once at listener construction
	// time (cmd/fiveserver wiring) in the fixed order
	// [login, main, networkMenu].
	ServiceIPs   [3][4]byte
	ServicePorts [3]uint16

	// Role-specific scratch state, keyed by role so roles don't collide.
	scratch map[string]any

	closeOnce sync.Once
}

// New wraps conn as a Session bound to server, with no handlers installed
// yet; callers install role overlays with Use.
func New(conn net.Conn, server *fiveserver.Server, dialect Dialect, logger *zap.Logger) *Session {
	return &Session{
		conn:     conn,
		reader:   bufio.NewReaderSize(conn, 64*1024),
		logger:   logger.With(zap.String("peer", conn.RemoteAddr().String())),
		Server:   server,
		Dialect:  dialect,
		handlers: make(map[wire.Opcode]Handler),
		scratch:  make(map[string]any),
	}
}

// Use installs a role's handler table into the session's dispatch table,
// additively: later installs may override earlier ones for the same
// opcode (spec.md §4.2: "subclasses additively compose parent handlers").
func (s *Session) Use(table map[wire.Opcode]Handler) {
	for op, h := range table {
		s.handlers[op] = h
	}
}

// Scratch gets or lazily creates role-local state under key.
func (s *Session) Scratch(key string, zero func() any) any {
	if v, ok := s.scratch[key]; ok {
		return v
	}
	v := zero()
	s.scratch[key] = v
	return v
}

// SendFrame implements fiveserver.Sender: builds and writes one wire
// frame for opcode/body (spec.md §4.1 emit contract).
func (s *Session) SendFrame(opcode uint16, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendFrameLocked(wire.Opcode(opcode), body)
}

func (s *Session) sendFrameLocked(opcode wire.Opcode, body []byte) error {
	frame, err := s.codec.Encode(opcode, body, s.sendOffset)
	if err != nil {
		return fmt.Errorf("session: encode opcode %#x: %w", opcode, err)
	}
	s.sendOffset += len(frame)
	_, err = s.conn.Write(frame)
	return err
}

// Close closes the underlying connection once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}

// RemoteIP returns the connection's peer IP.
func (s *Session) RemoteIP() net.IP {
	host, _, err := net.SplitHostPort(s.conn.RemoteAddr().String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

// Serve runs the connection's read loop until the peer disconnects or a
// framing error closes the connection (spec.md §4.1 parse contract, §4.2
// suspension-point rule: frames are processed in receive order, one
// handler at a time).
func (s *Session) Serve() {
	defer s.disconnect()

	for {
		if err := s.fill(); err != nil {
			if err != io.EOF {
				s.logger.Debug("connection read ended", zap.Error(err))
			}
			return
		}

		for {
			frame, consumed, ok, err := wire.TryParse(s.recvBuf, s.recvOffset)
			if err != nil {
				s.logger.Warn("frame parse failed, closing connection", zap.Error(err))
				return
			}
			if !ok {
				break
			}
			s.recvBuf = s.recvBuf[consumed:]
			s.recvOffset += consumed

			if err := s.dispatch(frame); err != nil {
				s.logger.Warn("handler error", zap.Uint16("opcode", uint16(frame.Header.Opcode)), zap.Error(err))
			}
		}
	}
}

// fill reads more bytes from the connection into recvBuf.
func (s *Session) fill() error {
	chunk := make([]byte, 4096)
	n, err := s.reader.Read(chunk)
	if n > 0 {
		s.recvBuf = append(s.recvBuf, chunk[:n]...)
	}
	return err
}

// dispatch runs the handler for frame's opcode (or the default "polite
// ignore" handler). Serve calls it on the connection's own goroutine, one
// frame at a time, so handlers never overlap; replies go through SendFrame,
// which takes the Session's lock for each write.
func (s *Session) dispatch(frame wire.Frame) error {
	if frame.Header.Opcode == wire.OpHeartbeat {
		return s.SendFrame(uint16(wire.OpHeartbeat), frame.Body)
	}

	handler, ok := s.handlers[frame.Header.Opcode]
	if !ok {
		return s.SendFrame(uint16(frame.Header.Opcode+1), wire.EmptyOK())
	}
	return handler(s, frame.Body)
}

func (s *Session) disconnect() {
	disconnectHook(s)
	s.Close()
}

// disconnectHook is overridden by cmd/fiveserver wiring (set once at
// startup) to run the full spec.md §5 cancellation sequence (room exit,
// lobby exit, offline marking, disconnects bookkeeping) without this
// package importing internal/lobby/internal/match directly for every
// session teardown path.
var disconnectHook = func(*Session) {}

// SetDisconnectHook installs the process-wide teardown function run when
// any session's connection closes.
func SetDisconnectHook(fn func(*Session)) {
	disconnectHook = fn
}

// now is overridable in tests.
var now = time.Now
