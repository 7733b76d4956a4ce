// Package testutil provides testing utilities for rrpool tests.
package testutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

// MockRedis provides a minimal RESP2 server for testing without a real
// Redis instance. It understands PING, ECHO, AUTH, QUIT, GET, SET, and DEL.
type MockRedis struct {
	mu        sync.RWMutex
	listener  net.Listener
	password  string
	pingReply string
	conns     map[net.Conn]struct{}
	accepted  int
	commands  map[string]int
	history   []string
	data      map[string]string
	running   bool
	addr      string
	wg        sync.WaitGroup
}

// NewMockRedis creates a mock Redis server listening on a random port.
// With a non-empty password every command other than AUTH and QUIT is
// refused with NOAUTH until the client authenticates.
func NewMockRedis(password string) (*MockRedis, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	m := &MockRedis{
		listener:  ln,
		password:  password,
		pingReply: "PONG",
		conns:     make(map[net.Conn]struct{}),
		commands:  make(map[string]int),
		data:      make(map[string]string),
		running:   true,
		addr:      ln.Addr().String(),
	}

	m.wg.Add(1)
	go m.acceptLoop()

	return m, nil
}

// Addr returns the host:port of the mock server.
func (m *MockRedis) Addr() string {
	return m.addr
}

// Host returns the listening host.
func (m *MockRedis) Host() string {
	host, _, _ := net.SplitHostPort(m.addr)
	return host
}

// Port returns the listening port.
func (m *MockRedis) Port() int {
	_, port, _ := net.SplitHostPort(m.addr)
	n, _ := strconv.Atoi(port)
	return n
}

// SetPingReply changes the status line sent in reply to PING.
func (m *MockRedis) SetPingReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingReply = reply
}

// Accepted returns the number of connections accepted so far.
func (m *MockRedis) Accepted() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accepted
}

// ActiveConns returns the number of currently open connections.
func (m *MockRedis) ActiveConns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// CommandCount returns how many times cmd (case-insensitive) was received.
func (m *MockRedis) CommandCount(cmd string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commands[strings.ToUpper(cmd)]
}

// Commands returns every command received so far, upper-cased, in arrival
// order across all connections.
func (m *MockRedis) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.history...)
}

// DropAll closes every open client connection from the server side.
func (m *MockRedis) DropAll() {
	m.mu.Lock()
	conns := make([]net.Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Close shuts down the mock server and all client connections.
func (m *MockRedis) Close() error {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	err := m.listener.Close()
	m.DropAll()
	m.wg.Wait()
	return err
}

func (m *MockRedis) acceptLoop() {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}

		m.mu.Lock()
		if !m.running {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conns[conn] = struct{}{}
		m.accepted++
		m.mu.Unlock()

		m.wg.Add(1)
		go m.handleConnection(conn)
	}
}

func (m *MockRedis) handleConnection(conn net.Conn) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.conns, conn)
		m.mu.Unlock()
		conn.Close()
	}()

	r := bufio.NewReader(conn)
	authed := m.password == ""

	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}

		cmd := strings.ToUpper(args[0])
		m.mu.Lock()
		m.commands[cmd]++
		m.history = append(m.history, cmd)
		pingReply := m.pingReply
		m.mu.Unlock()

		var reply string
		quit := false

		switch {
		case cmd == "QUIT":
			reply = "+OK\r\n"
			quit = true
		case cmd == "AUTH":
			reply, authed = m.auth(args[1:], authed)
		case !authed:
			reply = "-NOAUTH Authentication required.\r\n"
		case cmd == "PING":
			if len(args) > 1 {
				reply = bulk(args[1])
			} else {
				reply = "+" + pingReply + "\r\n"
			}
		case cmd == "ECHO" && len(args) == 2:
			reply = bulk(args[1])
		case cmd == "SET" && len(args) >= 3:
			m.mu.Lock()
			m.data[args[1]] = args[2]
			m.mu.Unlock()
			reply = "+OK\r\n"
		case cmd == "GET" && len(args) == 2:
			m.mu.RLock()
			v, ok := m.data[args[1]]
			m.mu.RUnlock()
			if ok {
				reply = bulk(v)
			} else {
				reply = "$-1\r\n"
			}
		case cmd == "DEL" && len(args) >= 2:
			n := 0
			m.mu.Lock()
			for _, k := range args[1:] {
				if _, ok := m.data[k]; ok {
					delete(m.data, k)
					n++
				}
			}
			m.mu.Unlock()
			reply = ":" + strconv.Itoa(n) + "\r\n"
		default:
			reply = fmt.Sprintf("-ERR unknown command '%s'\r\n", args[0])
		}

		if _, err := io.WriteString(conn, reply); err != nil {
			return
		}
		if quit {
			return
		}
	}
}

func (m *MockRedis) auth(args []string, authed bool) (string, bool) {
	if len(args) == 0 || len(args) > 2 {
		return "-ERR wrong number of arguments for 'auth' command\r\n", authed
	}
	if m.password == "" {
		return "-ERR AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?\r\n", authed
	}
	if args[len(args)-1] != m.password {
		return "-WRONGPASS invalid username-password pair or user is disabled.\r\n", authed
	}
	return "+OK\r\n", true
}

func bulk(s string) string {
	return "$" + strconv.Itoa(len(s)) + "\r\n" + s + "\r\n"
}

// readCommand reads one RESP array of bulk strings or one inline command.
func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, nil
	}
	if line[0] != '*' {
		return strings.Fields(line), nil
	}

	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 0 {
		return nil, errors.New("invalid multibulk length")
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		hdr, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if len(hdr) == 0 || hdr[0] != '$' {
			return nil, errors.New("expected bulk string")
		}
		size, err := strconv.Atoi(hdr[1:])
		if err != nil || size < 0 {
			return nil, errors.New("invalid bulk length")
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
