package memclient

import "github.com/twmb/murmur3"

// shardIndex maps the key onto one of n nodes, or returns -1 when there are
// none. The result only depends on the key and the node count, so clients
// built from the same ordered node list agree on key placement.
func shardIndex(key string, n int) int {
	if n == 0 {
		return -1
	}

	return int(murmur3.StringSum64(key) % uint64(n))
}
