// Package memtest runs an in-process server speaking the subset of the
// memcached ASCII protocol used by the discovery and cache clients. It backs
// both configuration endpoints and cache nodes in tests.
package memtest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type item struct {
	flags uint32
	value []byte
}

type Server struct {
	ln net.Listener

	mut            sync.Mutex
	version        string
	clusterConfig  string
	rawConfig      string
	items          map[string]item
	commands       []string
	configRequests int
	conns          map[net.Conn]struct{}
	closed         bool
	wg             sync.WaitGroup
}

// NewServer starts a server on a random loopback port. It is stopped when the
// test finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("memtest: failed to listen: %v", err)
	}

	s := &Server{
		ln:      ln,
		version: "1.6.12",
		items:   make(map[string]item),
		conns:   make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)

	go s.acceptLoop()

	t.Cleanup(s.Close)

	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Port returns the port the server listens on.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// SetVersion sets the engine version reported by the "version" command.
func (s *Server) SetVersion(v string) {
	s.mut.Lock()
	s.version = v
	s.mut.Unlock()
}

// SetClusterConfig sets the cluster configuration payload. Each node is given
// as a host|ip|port triple.
func (s *Server) SetClusterConfig(version int, nodes ...string) {
	s.mut.Lock()
	s.clusterConfig = fmt.Sprintf("%d\n%s\n", version, strings.Join(nodes, " "))
	s.mut.Unlock()
}

// SetRawConfigResponse makes the server answer configuration requests with the
// given bytes verbatim, which is useful to simulate broken endpoints.
func (s *Server) SetRawConfigResponse(raw string) {
	s.mut.Lock()
	s.rawConfig = raw
	s.mut.Unlock()
}

// ConfigRequests returns the number of cluster configuration requests served.
func (s *Server) ConfigRequests() int {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.configRequests
}

// Commands returns the command lines received so far.
func (s *Server) Commands() []string {
	s.mut.Lock()
	defer s.mut.Unlock()

	return append([]string(nil), s.commands...)
}

// Item returns the stored value and flags for the key.
func (s *Server) Item(key string) ([]byte, uint32, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	it, ok := s.items[key]

	return it.value, it.flags, ok
}

// Put stores an item directly, bypassing the protocol.
func (s *Server) Put(key string, flags uint32, value []byte) {
	s.mut.Lock()
	s.items[key] = item{flags: flags, value: value}
	s.mut.Unlock()
}

// Close stops the listener and drops all open connections.
func (s *Server) Close() {
	_ = s.ln.Close()

	s.mut.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mut.Unlock()

	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mut.Lock()
		if s.closed {
			s.mut.Unlock()
			_ = conn.Close()

			return
		}
		s.conns[conn] = struct{}{}
		s.mut.Unlock()

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

func (s *Server) serve(conn net.Conn) {
	defer func() {
		s.mut.Lock()
		delete(s.conns, conn)
		s.mut.Unlock()

		_ = conn.Close()
	}()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	for {
		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimRight(line, "\r\n")

		s.mut.Lock()
		s.commands = append(s.commands, line)
		s.mut.Unlock()

		if err := s.handle(rw, strings.Fields(line)); err != nil {
			return
		}

		if err := rw.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) handle(rw *bufio.ReadWriter, args []string) error {
	if len(args) == 0 {
		_, err := rw.WriteString("ERROR\r\n")
		return err
	}

	switch {
	case args[0] == "version":
		s.mut.Lock()
		v := s.version
		s.mut.Unlock()

		_, err := fmt.Fprintf(rw, "VERSION %s\r\n", v)

		return err

	case len(args) == 3 && args[0] == "config" && args[1] == "get" && args[2] == "cluster":
		return s.writeConfig(rw, "CONFIG cluster")

	case len(args) == 2 && args[0] == "get" && args[1] == "AmazonElastiCache:cluster":
		return s.writeConfig(rw, "VALUE AmazonElastiCache:cluster")

	case args[0] == "get" || args[0] == "gets":
		return s.handleGet(rw, args[1:], args[0] == "gets")

	case args[0] == "set" || args[0] == "add":
		return s.handleStore(rw, args)

	case args[0] == "delete" && len(args) >= 2:
		s.mut.Lock()
		_, ok := s.items[args[1]]
		delete(s.items, args[1])
		s.mut.Unlock()

		if !ok {
			_, err := rw.WriteString("NOT_FOUND\r\n")
			return err
		}

		_, err := rw.WriteString("DELETED\r\n")

		return err

	case (args[0] == "incr" || args[0] == "decr") && len(args) >= 3:
		return s.handleIncrDecr(rw, args[0], args[1], args[2])
	}

	_, err := rw.WriteString("ERROR\r\n")

	return err
}

func (s *Server) writeConfig(rw *bufio.ReadWriter, header string) error {
	s.mut.Lock()
	s.configRequests++
	raw, payload := s.rawConfig, s.clusterConfig
	s.mut.Unlock()

	if raw != "" {
		_, err := rw.WriteString(raw)
		return err
	}

	if payload == "" {
		_, err := rw.WriteString("END\r\n")
		return err
	}

	_, err := fmt.Fprintf(rw, "%s 0 %d\r\n%s\r\nEND\r\n", header, len(payload), payload)

	return err
}

func (s *Server) handleGet(rw *bufio.ReadWriter, keys []string, withCas bool) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	for _, key := range keys {
		it, ok := s.items[key]
		if !ok {
			continue
		}

		if withCas {
			fmt.Fprintf(rw, "VALUE %s %d %d 0\r\n", key, it.flags, len(it.value))
		} else {
			fmt.Fprintf(rw, "VALUE %s %d %d\r\n", key, it.flags, len(it.value))
		}

		rw.Write(it.value)
		rw.WriteString("\r\n")
	}

	_, err := rw.WriteString("END\r\n")

	return err
}

func (s *Server) handleStore(rw *bufio.ReadWriter, args []string) error {
	if len(args) < 5 {
		_, err := rw.WriteString("ERROR\r\n")
		return err
	}

	flags, _ := strconv.ParseUint(args[2], 10, 32)
	exptime, _ := strconv.ParseInt(args[3], 10, 64)

	size, err := strconv.Atoi(args[4])
	if err != nil {
		_, err := rw.WriteString("CLIENT_ERROR bad data chunk\r\n")
		return err
	}

	data := make([]byte, size+2)
	if _, err := io.ReadFull(rw, data); err != nil {
		return err
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	if _, exists := s.items[args[1]]; exists && args[0] == "add" {
		_, err := rw.WriteString("NOT_STORED\r\n")
		return err
	}

	// Negative expiration means the item is expired right away.
	if exptime < 0 {
		delete(s.items, args[1])
	} else {
		s.items[args[1]] = item{flags: uint32(flags), value: data[:size]}
	}

	_, err = rw.WriteString("STORED\r\n")

	return err
}

func (s *Server) handleIncrDecr(rw *bufio.ReadWriter, verb, key, rawDelta string) error {
	delta, err := strconv.ParseUint(rawDelta, 10, 64)
	if err != nil {
		_, err := rw.WriteString("CLIENT_ERROR invalid numeric delta argument\r\n")
		return err
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	it, ok := s.items[key]
	if !ok {
		_, err := rw.WriteString("NOT_FOUND\r\n")
		return err
	}

	current, err := strconv.ParseUint(string(it.value), 10, 64)
	if err != nil {
		_, err := rw.WriteString("CLIENT_ERROR cannot increment or decrement non-numeric value\r\n")
		return err
	}

	if verb == "incr" {
		current += delta
	} else if delta > current {
		current = 0
	} else {
		current -= delta
	}

	it.value = []byte(strconv.FormatUint(current, 10))
	s.items[key] = it

	_, err = fmt.Fprintf(rw, "%d\r\n", current)

	return err
}
