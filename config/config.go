package config

import "time"

type (
	URI struct {
		// MaxRequestLineSize limits the whole request line: method, target and
		// protocol, the separating spaces included. Requests overflowing it are
		// rejected before any allocation proportional to the input is made.
		MaxRequestLineSize int
	}

	Headers struct {
		// MaxNumber limits how many header fields a single request may carry.
		MaxNumber int
		// MaxSpace limits the cumulative size of the headers section in bytes,
		// keys, values and separators included.
		MaxSpace int
		// Prealloc is the initial capacity of the headers storage.
		Prealloc int
		// Default headers are implicitly included into every response, unless
		// explicitly overridden by a handler.
		Default map[string]string
	}

	Body struct {
		// MaxSize limits the size of a request body, no matter how it is framed.
		// Bodies overflowing it fail with status.ErrBodyTooLarge.
		MaxSize int64
	}

	NET struct {
		// ReadBufferSize is the size of the per-connection socket read buffer.
		ReadBufferSize int
		// WriteBufferSize is the initial size of the response render buffer.
		WriteBufferSize int
		// ReadTimeout bounds every single read from the socket.
		ReadTimeout time.Duration
		// WriteTimeout bounds every single write to the socket.
		WriteTimeout time.Duration
	}

	Connection struct {
		// MaxConns bounds the number of simultaneously served connections.
		// Zero means unbounded: a goroutine per accepted connection, no queue.
		MaxConns int
		// MaxRequests limits how many requests a single keep-alive connection
		// may serve before it is closed. Zero disables the limit.
		MaxRequests int
		// KeepAliveTimeout is the idle deadline: how long a persistent
		// connection may wait for the next request to begin.
		KeepAliveTimeout time.Duration
		// GracePeriod is how long connections in flight are given to finish
		// after a graceful shutdown before being closed forcibly.
		GracePeriod time.Duration
	}
)

// Config is an immutable snapshot of everything tunable, created at startup
// and read-only for the server's lifetime.
//
// Always start from Default() and override what you need; a manually
// zero-initialized Config is backfilled by Fill anyway.
type Config struct {
	URI        URI
	Headers    Headers
	Body       Body
	NET        NET
	Connection Connection
}

func Default() *Config {
	return &Config{
		URI: URI{
			MaxRequestLineSize: 8 * 1024,
		},
		Headers: Headers{
			MaxNumber: 100,
			MaxSpace:  16 * 1024,
			Prealloc:  16,
			Default:   map[string]string{},
		},
		Body: Body{
			MaxSize: 512 * 1024 * 1024,
		},
		NET: NET{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			ReadTimeout:     90 * time.Second,
			WriteTimeout:    90 * time.Second,
		},
		Connection: Connection{
			MaxConns:         0,
			MaxRequests:      0,
			KeepAliveTimeout: 60 * time.Second,
			GracePeriod:      5 * time.Second,
		},
	}
}

// Fill replaces zero values with defaults, so partially filled configs stay
// usable.
func Fill(c *Config) *Config {
	defaults := Default()

	c.URI.MaxRequestLineSize = or(c.URI.MaxRequestLineSize, defaults.URI.MaxRequestLineSize)
	c.Headers.MaxNumber = or(c.Headers.MaxNumber, defaults.Headers.MaxNumber)
	c.Headers.MaxSpace = or(c.Headers.MaxSpace, defaults.Headers.MaxSpace)
	c.Headers.Prealloc = or(c.Headers.Prealloc, defaults.Headers.Prealloc)
	if c.Headers.Default == nil {
		c.Headers.Default = defaults.Headers.Default
	}
	c.Body.MaxSize = or(c.Body.MaxSize, defaults.Body.MaxSize)
	c.NET.ReadBufferSize = or(c.NET.ReadBufferSize, defaults.NET.ReadBufferSize)
	c.NET.WriteBufferSize = or(c.NET.WriteBufferSize, defaults.NET.WriteBufferSize)
	c.NET.ReadTimeout = or(c.NET.ReadTimeout, defaults.NET.ReadTimeout)
	c.NET.WriteTimeout = or(c.NET.WriteTimeout, defaults.NET.WriteTimeout)
	c.Connection.KeepAliveTimeout = or(c.Connection.KeepAliveTimeout, defaults.Connection.KeepAliveTimeout)
	c.Connection.GracePeriod = or(c.Connection.GracePeriod, defaults.Connection.GracePeriod)

	return c
}

func or[T comparable](value, otherwise T) T {
	var zero T
	if value == zero {
		return otherwise
	}

	return value
}
