package frontgrpc

import "time"

// Config controls the front-end gRPC server/client setup.
type Config struct {
	// Network is "unix" or "tcp". Empty means unix.
	Network        string
	Address        string
	RequestTimeout time.Duration
}

func (c Config) network() string {
	if c.Network == "" {
		return "unix"
	}
	return c.Network
}
