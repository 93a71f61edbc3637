package backend

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Flags stored along with each item to tell how its value was encoded.
const (
	flagBytes   uint32 = 0
	flagCBOR    uint32 = 1
	flagInteger uint32 = 2
	flagText    uint32 = 16
)

var decMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return mode
}()

// encodeValue serializes a value for storage. Integers are stored as decimal
// text so that incr and decr work on them.
func encodeValue(value any) ([]byte, uint32, error) {
	switch v := value.(type) {
	case []byte:
		return v, flagBytes, nil
	case string:
		return []byte(v), flagText, nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), flagInteger, nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), flagInteger, nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), flagInteger, nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), flagInteger, nil
	case int64:
		return strconv.AppendInt(nil, v, 10), flagInteger, nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), flagInteger, nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), flagInteger, nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), flagInteger, nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), flagInteger, nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), flagInteger, nil
	}

	data, err := cbor.Marshal(value)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode value: %w", err)
	}

	return data, flagCBOR, nil
}

func decodeValue(data []byte, flags uint32) (any, error) {
	switch flags {
	case flagBytes:
		return data, nil
	case flagText:
		return string(data), nil
	case flagInteger:
		// Older memcached versions pad decremented values with spaces.
		s := strings.TrimSpace(string(data))

		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}

		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode integer value: %w", err)
		}

		return n, nil
	case flagCBOR:
		var value any
		if err := decMode.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("failed to decode value: %w", err)
		}

		return value, nil
	}

	return nil, fmt.Errorf("unknown value flags: %d", flags)
}
