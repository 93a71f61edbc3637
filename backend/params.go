package backend

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ParseLocation validates the configuration endpoint address. Exactly one
// host:port is accepted; lists separated with ";" or "," are rejected.
func ParseLocation(location string) (string, error) {
	servers := strings.FieldsFunc(location, func(r rune) bool {
		return r == ';' || r == ','
	})

	for i := range servers {
		servers[i] = strings.TrimSpace(servers[i])
	}

	servers = slices.DeleteFunc(servers, func(s string) bool {
		return s == ""
	})

	switch {
	case len(servers) == 0:
		return "", ErrConfig.Detail("configuration endpoint is not set")
	case len(servers) > 1:
		return "", ErrConfig.Detail("only one server (the configuration endpoint) is allowed")
	}

	server := servers[0]

	if strings.Count(server, ":") != 1 {
		return "", ErrConfig.Detail(fmt.Sprintf("server should be in host:port format, got %q", server))
	}

	host, rawPort, _ := strings.Cut(server, ":")
	if host == "" {
		return "", ErrConfig.Detail(fmt.Sprintf("server host is empty: %q", server))
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil || port < 0 || port > math.MaxUint16 {
		return "", ErrConfig.Detail(fmt.Sprintf("server port is not valid: %q", server))
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

type paramSetter func(conf *Config, value any) error

var paramSetters = map[string]paramSetter{
	"cluster_timeout": func(conf *Config, value any) (err error) {
		conf.ClusterTimeout, err = durationParam(value)
		return err
	},
	"ignore_cluster_errors": func(conf *Config, value any) (err error) {
		conf.IgnoreClusterErrors, err = boolParam(value)
		return err
	},
	"key_prefix": func(conf *Config, value any) (err error) {
		conf.KeyPrefix, err = stringParam(value)
		return err
	},
	"version": func(conf *Config, value any) (err error) {
		conf.KeyVersion, err = intParam(value)
		return err
	},
	"timeout": func(conf *Config, value any) (err error) {
		if value == nil {
			conf.DefaultTimeout = 0
			return nil
		}

		conf.DefaultTimeout, err = durationParam(value)

		return err
	},
	"ignore_exc": func(conf *Config, value any) (err error) {
		conf.Client.IgnoreExc, err = boolParam(value)
		return err
	},
	"socket_timeout": func(conf *Config, value any) (err error) {
		conf.Client.Timeout, err = durationParam(value)
		return err
	},
	"max_idle_conns": func(conf *Config, value any) (err error) {
		conf.Client.MaxIdleConns, err = intParam(value)
		return err
	},
	"dead_timeout": func(conf *Config, value any) (err error) {
		conf.Client.DeadTimeout, err = durationParam(value)
		return err
	},
}

// ParseParams builds a Config from the endpoint location and an options bag.
// Durations are given as Go duration strings or as a number of seconds. Unknown
// options are rejected.
func ParseParams(location string, params map[string]any) (Config, error) {
	conf := DefaultConfig()

	addr, err := ParseLocation(location)
	if err != nil {
		return conf, err
	}

	conf.Location = addr

	keys := maps.Keys(params)
	slices.Sort(keys)

	for _, key := range keys {
		setter, ok := paramSetters[key]
		if !ok {
			return conf, ErrConfig.Detail(fmt.Sprintf("unknown option %q", key))
		}

		if err := setter(&conf, params[key]); err != nil {
			return conf, ErrConfig.Wrap(err, key)
		}
	}

	return conf, nil
}

func durationParam(value any) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, nil
		}

		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("not a duration: %q", v)
		}

		return time.Duration(secs * float64(time.Second)), nil
	}

	return 0, fmt.Errorf("not a duration: %v (%T)", value, value)
}

func boolParam(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("not a boolean: %q", v)
		}

		return b, nil
	}

	return false, fmt.Errorf("not a boolean: %v (%T)", value, value)
}

func intParam(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}

		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", v)
		}

		return n, nil
	}

	return 0, fmt.Errorf("not an integer: %v (%T)", value, value)
}

func stringParam(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("not a string: %v (%T)", value, value)
	}

	return s, nil
}
