package http

import (
	"github.com/hearth-web/hearth/config"
	"github.com/hearth-web/hearth/http"
	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/protocol/http1"
	"github.com/hearth-web/hearth/internal/stream"
	"github.com/indigo-web/utils/strcomp"
)

// ErrorHandler maps an engine failure to the response sent right before the
// connection is torn down. Returning nil suppresses the response.
type ErrorHandler func(*http.Request, error) *http.Response

// DefaultErrorHandler renders the failure as-is. Sentinels that carry no HTTP
// code (disconnects, shutdown) produce nothing.
func DefaultErrorHandler(request *http.Request, err error) *http.Response {
	httpErr, ok := err.(status.HTTPError)
	if !ok || httpErr.Code == status.CloseConnection {
		return nil
	}

	return request.Respond().Error(err)
}

// Server drives a single connection: parse, handle, serialize, repeat while
// keep-alive allows. One instance exists per connection and runs on its
// worker's thread.
type Server struct {
	cfg     *config.Config
	handler http.Handler
	onError ErrorHandler
}

func NewServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		onError: DefaultErrorHandler,
	}
}

// OnError overrides the error handler.
func (s *Server) OnError(handler ErrorHandler) *Server {
	s.onError = handler
	return s
}

// Run serves requests until the connection dies or keep-alive ends. It never
// returns an error: every failure ends with the connection closed.
func (s *Server) Run(
	client stream.Client,
	request *http.Request,
	body *http1.Body,
	parser *http1.Parser,
	serializer *http1.Serializer,
) {
	defer func() {
		_ = client.Close()
	}()

	for served := 0; ; {
		if served > 0 {
			// between requests the connection is idle; a slow next request
			// line is bounded by the keep-alive deadline, not the read one
			client.SetReadTimeout(s.cfg.Connection.KeepAliveTimeout)
		}

		if err := parser.Parse(); err != nil {
			if resp := s.onError(request, err); resp != nil {
				// best effort: the peer may be gone already
				_ = serializer.Write(request, resp, false)
			}

			return
		}

		body.Init(request)
		request.Body.Reopen()

		resp := s.invoke(request)
		served++

		keepAlive := s.keepAlive(request, resp, served)
		if serializer.Write(request, resp, keepAlive) != nil {
			return
		}

		// whatever the handler left unread must leave the stream before the
		// next request head can be parsed
		if request.Body.Discard() != nil {
			return
		}

		request.Body.Expire()
		request.Reset()

		if !keepAlive {
			return
		}
	}
}

// invoke calls the handler, converting a panic into a plain 500. A panicking
// handler affects only its own connection.
func (s *Server) invoke(request *http.Request) (resp *http.Response) {
	defer func() {
		if p := recover(); p != nil {
			resp = request.Respond().Error(status.ErrInternalServerError)
		}
	}()

	resp = s.handler(request)
	if resp == nil {
		resp = request.Respond()
	}

	return resp
}

func (s *Server) keepAlive(request *http.Request, resp *http.Response, served int) bool {
	if limit := s.cfg.Connection.MaxRequests; limit > 0 && served >= limit {
		return false
	}

	for _, header := range resp.Reveal().Headers {
		if strcomp.EqualFold(header.Key, "connection") {
			return !strcomp.EqualFold(header.Value, "close")
		}
	}

	if request.Protocol.KeepAliveByDefault() {
		return !strcomp.EqualFold(request.Connection, "close")
	}

	return strcomp.EqualFold(request.Connection, "keep-alive")
}
