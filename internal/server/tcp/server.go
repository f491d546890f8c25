package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/hearth-web/hearth/http/status"
)

// Server owns one listening socket and a thread per accepted connection.
// Connections are tracked so they can be torn down collectively on shutdown.
type Server struct {
	sock     net.Listener
	onConn   func(net.Conn)
	sem      chan struct{}
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	active   atomic.Int64
	shutdown atomic.Bool
}

// NewServer wraps the listener. When maxConns is positive, accepting pauses
// once that many connections are in flight and resumes as they finish.
func NewServer(sock net.Listener, maxConns int, onConn func(net.Conn)) *Server {
	var sem chan struct{}
	if maxConns > 0 {
		sem = make(chan struct{}, maxConns)
	}

	return &Server{
		sock:   sock,
		onConn: onConn,
		sem:    sem,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start accepts connections until the listener fails, then waits for every
// connection in flight to finish. After Pause or Stop it returns
// status.ErrShutdown; any other listener failure is returned as-is.
func (s *Server) Start() error {
	wg := new(sync.WaitGroup)

	for {
		if s.sem != nil {
			s.sem <- struct{}{}
		}

		conn, err := s.sock.Accept()
		if err != nil {
			if s.sem != nil {
				<-s.sem
			}

			wg.Wait()

			if s.shutdown.Load() {
				return status.ErrShutdown
			}

			return err
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.active.Add(1)

		wg.Add(1)
		go s.serve(wg, conn)
	}
}

func (s *Server) serve(wg *sync.WaitGroup, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.active.Add(-1)

		if s.sem != nil {
			<-s.sem
		}

		wg.Done()
	}()

	s.onConn(conn)
}

// Pause stops accepting new connections, leaving the ones in flight alone.
func (s *Server) Pause() error {
	s.shutdown.Store(true)
	return s.sock.Close()
}

// Stop closes the listener and every tracked connection. Workers blocked on
// socket I/O fail immediately and unwind.
func (s *Server) Stop() error {
	err := s.Pause()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}

	return err
}

// ActiveConns reports how many connections are being served right now.
func (s *Server) ActiveConns() int64 {
	return s.active.Load()
}

func PauseAll(servers []*Server) {
	for _, server := range servers {
		_ = server.Pause()
	}
}

func StopAll(servers []*Server) {
	for _, server := range servers {
		_ = server.Stop()
	}
}

// ActiveConnsTotal sums the in-flight connections across the servers.
func ActiveConnsTotal(servers []*Server) (total int64) {
	for _, server := range servers {
		total += server.ActiveConns()
	}

	return total
}
