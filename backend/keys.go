package backend

import (
	"fmt"
	"strconv"
	"time"
)

const (
	maxKeyLength = 250

	// DefaultExpiration selects the backend's default timeout.
	DefaultExpiration time.Duration = -1

	// NoExpiration keeps the entry until it is evicted.
	NoExpiration time.Duration = 0

	// Relative expirations longer than this are treated by memcached as unix
	// timestamps, so such timeouts are sent as absolute time.
	maxRelativeExpiration = 30 * 24 * time.Hour
)

// makeKey turns a caller key into the key stored on the nodes.
func (b *Backend) makeKey(key string) (string, error) {
	wireKey := b.conf.KeyPrefix + ":" + strconv.Itoa(b.conf.KeyVersion) + ":" + key

	if len(wireKey) > maxKeyLength {
		return "", ErrInvalidKey.Detail(fmt.Sprintf("key is longer than %d bytes: %q", maxKeyLength, wireKey))
	}

	for i := 0; i < len(wireKey); i++ {
		if c := wireKey[i]; c <= ' ' || c == 0x7f {
			return "", ErrInvalidKey.Detail(fmt.Sprintf("key contains spaces or control characters: %q", wireKey))
		}
	}

	return wireKey, nil
}

// makeKeys returns wire keys for the given caller keys along with the mapping
// from wire keys back to caller keys.
func (b *Backend) makeKeys(keys []string) ([]string, map[string]string, error) {
	wireKeys := make([]string, 0, len(keys))
	callerKeys := make(map[string]string, len(keys))

	for _, key := range keys {
		wireKey, err := b.makeKey(key)
		if err != nil {
			return nil, nil, err
		}

		if _, ok := callerKeys[wireKey]; ok {
			continue
		}

		wireKeys = append(wireKeys, wireKey)
		callerKeys[wireKey] = key
	}

	return wireKeys, callerKeys, nil
}

// expiration converts a timeout into the memcached exptime field.
func (b *Backend) expiration(timeout time.Duration) int32 {
	if timeout == DefaultExpiration {
		timeout = b.conf.DefaultTimeout
	}

	switch {
	case timeout == NoExpiration:
		return 0
	case timeout < 0:
		return -1
	case timeout > maxRelativeExpiration:
		return int32(b.now().Add(timeout).Unix())
	}

	// Round up, a sub-second timeout must not turn into "never expire".
	return int32((timeout + time.Second - 1) / time.Second)
}
