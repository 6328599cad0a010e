package testutil

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// WaitTimeout bounds every blocking helper on ChatServer.
const WaitTimeout = 3 * time.Second

// ChatServer is an in-process TCP chat server. It records every line a client sends and lets
// the test push server lines to the most recently accepted client.
type ChatServer struct {
	ln       net.Listener
	lines    chan string
	accepted chan net.Conn

	mu      sync.Mutex
	current net.Conn
	total   int
}

// NewChatServer listens on a loopback port and closes everything when the test ends.
func NewChatServer(t *testing.T) *ChatServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &ChatServer{
		ln:       ln,
		lines:    make(chan string, 256),
		accepted: make(chan net.Conn, 16),
	}
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

func (s *ChatServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.current = conn
		s.total++
		s.mu.Unlock()
		s.accepted <- conn
		go s.readLoop(conn)
	}
}

func (s *ChatServer) readLoop(conn net.Conn) {
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		s.lines <- strings.TrimSuffix(sc.Text(), "\r")
	}
}

// Addr is the host:port clients should dial.
func (s *ChatServer) Addr() string { return s.ln.Addr().String() }

// Connections reports how many clients have been accepted so far.
func (s *ChatServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// WaitConn blocks until the next client connects.
func (s *ChatServer) WaitConn(t *testing.T) {
	t.Helper()
	select {
	case <-s.accepted:
	case <-time.After(WaitTimeout):
		t.Fatal("timed out waiting for a client connection")
	}
}

// Expect returns the next line received from any client.
func (s *ChatServer) Expect(t *testing.T) string {
	t.Helper()
	select {
	case line := <-s.lines:
		return line
	case <-time.After(WaitTimeout):
		t.Fatal("timed out waiting for a client line")
		return ""
	}
}

// ExpectN returns the next n received lines.
func (s *ChatServer) ExpectN(t *testing.T, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for range n {
		out = append(out, s.Expect(t))
	}
	return out
}

// ExpectHandshake consumes the login handshake (PASS, NICK, JOIN, three CAP REQ).
func (s *ChatServer) ExpectHandshake(t *testing.T) []string {
	t.Helper()
	return s.ExpectN(t, 6)
}

// Send writes lines to the current client, adding CR LF to each.
func (s *ChatServer) Send(t *testing.T, lines ...string) {
	t.Helper()
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	s.SendRaw(t, b.String())
}

// SendRaw writes raw bytes to the current client without framing.
func (s *ChatServer) SendRaw(t *testing.T, raw string) {
	t.Helper()
	s.mu.Lock()
	conn := s.current
	s.mu.Unlock()
	if conn == nil {
		t.Fatal("no client connected")
	}
	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatalf("write to client: %v", err)
	}
}

// DropClient closes the current client connection from the server side.
func (s *ChatServer) DropClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		_ = s.current.Close()
	}
}

// Close stops listening and drops the current client.
func (s *ChatServer) Close() {
	_ = s.ln.Close()
	s.DropClient()
}
