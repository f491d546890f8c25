package hearth

import (
	"net"
	"time"

	"github.com/hearth-web/hearth/config"
	"github.com/hearth-web/hearth/http"
	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/protocol/http1"
	httpserver "github.com/hearth-web/hearth/internal/server/http"
	"github.com/hearth-web/hearth/internal/server/tcp"
	"github.com/hearth-web/hearth/internal/stream"
	"github.com/indigo-web/chunkedbody"
)

// Handler is the single contract an application implements.
type Handler = http.Handler

// ListenerFactory produces the listening socket for an address. The default
// is plain net.Listen; the TLS bindings substitute their own.
type ListenerFactory func(network, addr string) (net.Listener, error)

type bindPoint struct {
	addr    string
	factory ListenerFactory
}

// App is the entry point. Construct with New, optionally Tune and add extra
// bind points, then Serve blocks until shutdown.
type App struct {
	addr      string
	cfg       *config.Config
	listeners []bindPoint
	servers   []*tcp.Server
	signal    chan error
	onStart   func()
	onStop    func()
}

func New(addr string) *App {
	return &App{
		addr:   addr,
		cfg:    config.Default(),
		signal: make(chan error, 1),
	}
}

// Tune replaces the configuration. Zero fields are backfilled with defaults.
func (a *App) Tune(cfg *config.Config) *App {
	if cfg != nil {
		a.cfg = config.Fill(cfg)
	}

	return a
}

// NotifyOnStart calls the callback once all the listeners are bound and
// accepting.
func (a *App) NotifyOnStart(cb func()) *App {
	a.onStart = cb
	return a
}

// NotifyOnStop calls the callback after the last listener is closed.
func (a *App) NotifyOnStop(cb func()) *App {
	a.onStop = cb
	return a
}

// Listen adds an extra bind point. Without an explicit factory the socket is
// opened with plain net.Listen.
func (a *App) Listen(addr string, factory ...ListenerFactory) *App {
	f := ListenerFactory(net.Listen)
	if len(factory) > 0 {
		f = factory[0]
	}

	a.listeners = append(a.listeners, bindPoint{addr: addr, factory: f})

	return a
}

// Serve binds all the listeners and blocks, handing every parsed request to
// the handler. A nil handler responds 200 to everything, which is occasionally
// useful for smoke tests. Returns nil after Stop or GracefulStop; otherwise
// the listener failure that brought the app down.
func (a *App) Serve(handler Handler) error {
	if handler == nil {
		handler = http.Respond
	}

	if len(a.addr) > 0 {
		a.Listen(a.addr)
	}

	for _, point := range a.listeners {
		sock, err := point.factory("tcp", point.addr)
		if err != nil {
			tcp.StopAll(a.servers)
			return err
		}

		a.servers = append(a.servers, tcp.NewServer(
			sock, a.cfg.Connection.MaxConns, a.newConnCallback(handler),
		))
	}

	return a.run()
}

// GracefulStop stops accepting new connections and lets the ones in flight
// finish, bounded by Connection.GracePeriod.
func (a *App) GracefulStop() {
	a.report(status.ErrGracefulShutdown)
}

// Stop tears everything down immediately.
func (a *App) Stop() {
	a.report(status.ErrShutdown)
}

func (a *App) run() error {
	for _, server := range a.servers {
		go func() {
			if err := server.Start(); err != status.ErrShutdown {
				a.report(err)
			}
		}()
	}

	if a.onStart != nil {
		a.onStart()
	}

	err := <-a.signal

	if err == status.ErrGracefulShutdown {
		tcp.PauseAll(a.servers)

		deadline := time.Now().Add(a.cfg.Connection.GracePeriod)
		for tcp.ActiveConnsTotal(a.servers) > 0 && time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	tcp.StopAll(a.servers)

	if a.onStop != nil {
		a.onStop()
	}

	if err == status.ErrGracefulShutdown || err == status.ErrShutdown {
		return nil
	}

	return err
}

// report delivers the verdict at most once; later ones are dropped.
func (a *App) report(err error) {
	select {
	case a.signal <- err:
	default:
	}
}

func (a *App) newConnCallback(handler Handler) func(net.Conn) {
	cfg := a.cfg

	return func(conn net.Conn) {
		client := stream.New(conn, cfg.NET.ReadBufferSize, cfg.NET.ReadTimeout, cfg.NET.WriteTimeout)
		request := http.NewRequest(cfg, http.NewResponse(), conn.RemoteAddr())
		body := http1.NewBody(client, chunkedbody.NewParser(chunkedbody.DefaultSettings()), cfg.Body)
		request.Body = http.NewBody(request, body)
		parser := http1.NewParser(request, client, cfg)
		serializer := http1.NewSerializer(client, cfg.NET.WriteBufferSize, cfg.Headers.Default)

		httpserver.NewServer(cfg, handler).Run(client, request, body, parser, serializer)
	}
}
