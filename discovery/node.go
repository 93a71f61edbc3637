package discovery

import (
	"net"
	"strconv"
)

// Node is a single cache node as advertised by the configuration endpoint.
type Node struct {
	Host string
	IP   string
	Port int
}

// Addr returns the address used to reach the node. The IP is preferred since
// it does not require a DNS lookup, and the host name is used as a fallback
// when the endpoint did not report one.
func (n Node) Addr() string {
	host := n.IP
	if host == "" {
		host = n.Host
	}

	return net.JoinHostPort(host, strconv.Itoa(n.Port))
}

func (n Node) String() string {
	return n.Addr()
}

// ClusterConfig is the result of a single discovery call. The order of nodes
// is the order reported by the endpoint and must be preserved, since the node
// picker depends on it.
type ClusterConfig struct {
	Version int
	Nodes   []Node
}

// Addrs returns the addresses of the nodes in order.
func Addrs(nodes []Node) []string {
	addrs := make([]string, len(nodes))
	for i, node := range nodes {
		addrs[i] = node.Addr()
	}

	return addrs
}
