package discovery

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/coreos/go-semver/semver"
)

const (
	configCommand       = "config get cluster\r\n"
	legacyConfigCommand = "get AmazonElastiCache:cluster\r\n"
)

// Engines before 1.4.14 do not support the "config" command and expose the
// cluster configuration as a regular key instead.
var configCommandSince = semver.New("1.4.14")

func configCommandFor(v *semver.Version) string {
	if v.LessThan(*configCommandSince) {
		return legacyConfigCommand
	}

	return configCommand
}

// session is a single request/response exchange with the endpoint over an
// established connection.
type session struct {
	rw   *bufio.ReadWriter
	addr string
}

func (s *session) send(cmd string) error {
	if _, err := s.rw.WriteString(cmd); err != nil {
		return ErrConnection.Wrap(err, s.addr)
	}

	if err := s.rw.Flush(); err != nil {
		return ErrConnection.Wrap(err, s.addr)
	}

	return nil
}

func (s *session) readLine() (string, error) {
	line, err := s.rw.ReadString('\n')
	if err != nil {
		return "", ErrConnection.Wrap(err, s.addr)
	}

	if !strings.HasSuffix(line, "\r\n") {
		return "", ErrProtocol.Detail(fmt.Sprintf("line is not terminated with CRLF: %q", line))
	}

	line = strings.TrimSuffix(line, "\r\n")

	if line == "ERROR" || strings.HasPrefix(line, "CLIENT_ERROR") || strings.HasPrefix(line, "SERVER_ERROR") {
		return "", ErrProtocol.Detail(fmt.Sprintf("endpoint replied with %q", line))
	}

	return line, nil
}

func (s *session) version() (*semver.Version, error) {
	if err := s.send("version\r\n"); err != nil {
		return nil, err
	}

	line, err := s.readLine()
	if err != nil {
		return nil, err
	}

	raw, ok := strings.CutPrefix(line, "VERSION ")
	if !ok {
		return nil, ErrProtocol.Detail(fmt.Sprintf("unexpected version reply: %q", line))
	}

	v, err := semver.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return nil, ErrProtocol.Wrap(err, "invalid engine version")
	}

	return v, nil
}

// clusterConfig issues the configuration command and reads a response of the
// form "<CONFIG|VALUE> <key> <flags> <bytes>\r\n<payload>\r\nEND\r\n".
func (s *session) clusterConfig(cmd string) (*ClusterConfig, error) {
	if err := s.send(cmd); err != nil {
		return nil, err
	}

	header, err := s.readLine()
	if err != nil {
		return nil, err
	}

	if header == "END" {
		return nil, ErrProtocol.Detail("cluster configuration not found")
	}

	fields := strings.Fields(header)
	if len(fields) != 4 || (fields[0] != "CONFIG" && fields[0] != "VALUE") {
		return nil, ErrProtocol.Detail(fmt.Sprintf("unexpected header: %q", header))
	}

	size, err := strconv.Atoi(fields[3])
	if err != nil || size < 0 {
		return nil, ErrProtocol.Detail(fmt.Sprintf("invalid payload size: %q", fields[3]))
	}

	payload := make([]byte, size+2)
	if _, err := io.ReadFull(s.rw, payload); err != nil {
		return nil, ErrConnection.Wrap(err, s.addr)
	}

	if string(payload[size:]) != "\r\n" {
		return nil, ErrProtocol.Detail("payload is not terminated with CRLF")
	}

	trailer, err := s.readLine()
	if err != nil {
		return nil, err
	}

	if trailer != "END" {
		return nil, ErrProtocol.Detail(fmt.Sprintf("expected END, got %q", trailer))
	}

	return parseClusterConfig(payload[:size])
}

// parseClusterConfig parses the payload "<version>\n<host>|<ip>|<port> ...\n".
func parseClusterConfig(payload []byte) (*ClusterConfig, error) {
	text := strings.TrimSuffix(string(payload), "\n")

	lines := strings.Split(text, "\n")
	if len(lines) != 2 {
		return nil, ErrProtocol.Detail(fmt.Sprintf("expected 2 lines in cluster configuration, got %d", len(lines)))
	}

	version, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, ErrProtocol.Wrap(err, "invalid configuration version")
	}

	rawNodes := strings.Fields(lines[1])
	nodes := make([]Node, 0, len(rawNodes))

	for _, raw := range rawNodes {
		parts := strings.Split(raw, "|")
		if len(parts) != 3 {
			return nil, ErrProtocol.Detail(fmt.Sprintf("invalid node entry: %q", raw))
		}

		if parts[0] == "" && parts[1] == "" {
			return nil, ErrProtocol.Detail(fmt.Sprintf("node entry has no address: %q", raw))
		}

		port, err := strconv.Atoi(parts[2])
		if err != nil || port < 0 || port > 65535 {
			return nil, ErrProtocol.Detail(fmt.Sprintf("invalid node port: %q", raw))
		}

		nodes = append(nodes, Node{
			Host: parts[0],
			IP:   parts[1],
			Port: port,
		})
	}

	return &ClusterConfig{
		Version: version,
		Nodes:   nodes,
	}, nil
}
