package discovery

import "github.com/maxpoletaev/memdisco/internal/baseerror"

var (
	// ErrDiscovery is the parent of all errors returned by Discover.
	ErrDiscovery = baseerror.New("discovery failed")

	// ErrConnection is returned when the configuration endpoint cannot be reached
	// or the connection breaks mid-request: refused connections, timeouts and DNS
	// failures. These are transient and may be suppressed with IgnoreErrors.
	ErrConnection = ErrDiscovery.New("configuration endpoint unreachable")

	// ErrProtocol is returned when the endpoint answers with something that is
	// not a valid cluster configuration. It usually means the address does not
	// point to a configuration endpoint, so it is never suppressed.
	ErrProtocol = ErrDiscovery.New("malformed configuration endpoint response")
)
