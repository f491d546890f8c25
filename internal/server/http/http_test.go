package http

import (
	"strings"
	"sync"
	"testing"

	"github.com/hearth-web/hearth/config"
	"github.com/hearth-web/hearth/http"
	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/protocol/http1"
	"github.com/hearth-web/hearth/internal/stream/dummy"
	"github.com/indigo-web/chunkedbody"
	"github.com/stretchr/testify/require"
)

func serve(cfg *config.Config, handler http.Handler, client *dummy.Client) string {
	request := http.NewRequest(cfg, http.NewResponse(), nil)
	body := http1.NewBody(client, chunkedbody.NewParser(chunkedbody.DefaultSettings()), cfg.Body)
	request.Body = http.NewBody(request, body)
	parser := http1.NewParser(request, client, cfg)
	serializer := http1.NewSerializer(client, cfg.NET.WriteBufferSize, cfg.Headers.Default)

	NewServer(cfg, handler).Run(client, request, body, parser, serializer)

	return string(client.Written)
}

func hi(request *http.Request) *http.Response {
	return request.Respond().String("Hi")
}

func TestConnectionLoop(t *testing.T) {
	cfg := config.Default()

	t.Run("single request", func(t *testing.T) {
		client := dummy.NewClient([]byte("GET /hello HTTP/1.1\r\n\r\n"))
		got := serve(cfg, hi, client)
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nHi", got)
		require.True(t, client.Closed())
	})

	t.Run("keep-alive serves pipelined requests", func(t *testing.T) {
		client := dummy.NewClient([]byte("GET /hello HTTP/1.1\r\n\r\nGET /hello HTTP/1.1\r\n\r\n"))
		got := serve(cfg, hi, client)
		want := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nHi"
		require.Equal(t, want+want, got)
	})

	t.Run("connection close ends the loop", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nConnection: close\r\n\r\nGET /never-parsed HTTP/1.1\r\n\r\n"
		client := dummy.NewClient([]byte(raw))
		got := serve(cfg, hi, client)
		require.Equal(t, "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nHi", got)
	})

	t.Run("http10 closes by default", func(t *testing.T) {
		client := dummy.NewClient([]byte("GET / HTTP/1.0\r\n\r\nGET / HTTP/1.0\r\n\r\n"))
		got := serve(cfg, hi, client)
		require.Equal(t, "HTTP/1.0 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nHi", got)
	})

	t.Run("http10 opts into keep-alive", func(t *testing.T) {
		raw := "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\nGET / HTTP/1.0\r\n\r\n"
		client := dummy.NewClient([]byte(raw))
		got := serve(cfg, hi, client)
		require.Equal(t,
			"HTTP/1.0 200 OK\r\nConnection: keep-alive\r\nContent-Length: 2\r\n\r\nHi"+
				"HTTP/1.0 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nHi",
			got,
		)
	})

	t.Run("handler-forced close wins over keep-alive", func(t *testing.T) {
		handler := func(request *http.Request) *http.Response {
			return request.Respond().Header("Connection", "close")
		}
		client := dummy.NewClient([]byte("GET / HTTP/1.1\r\n\r\nGET / HTTP/1.1\r\n\r\n"))
		got := serve(cfg, handler, client)
		require.Equal(t, "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", got)
	})

	t.Run("request budget", func(t *testing.T) {
		tuned := config.Fill(&config.Config{
			Connection: config.Connection{MaxRequests: 1},
		})
		client := dummy.NewClient([]byte("GET / HTTP/1.1\r\n\r\nGET / HTTP/1.1\r\n\r\n"))
		got := serve(tuned, hi, client)
		require.Equal(t, "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nHi", got)
	})
}

func TestBodyHandling(t *testing.T) {
	cfg := config.Default()

	echo := func(request *http.Request) *http.Response {
		body, err := request.Body.Bytes()
		if err != nil {
			return request.Respond().Error(err)
		}

		return request.Respond().Bytes(body)
	}

	t.Run("plain echo", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nContent-Length: 13\r\n\r\nHello, world!"
		got := serve(cfg, echo, dummy.Split([]byte(raw)))
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 13\r\n\r\nHello, world!", got)
	})

	t.Run("chunked echo", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\ntest\r\n0\r\n\r\n"
		got := serve(cfg, echo, dummy.NewClient([]byte(raw)))
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ntest", got)
	})

	t.Run("unread body is drained before the next request", func(t *testing.T) {
		raw := "POST /first HTTP/1.1\r\nContent-Length: 5\r\n\r\nwasteGET /second HTTP/1.1\r\n\r\n"
		var paths []string
		handler := func(request *http.Request) *http.Response {
			// the request aliases the parser's arena, so anything kept
			// past the call must be copied out
			paths = append(paths, strings.Clone(request.Path))
			return request.Respond()
		}

		serve(cfg, handler, dummy.NewClient([]byte(raw)))
		require.Equal(t, []string{"/first", "/second"}, paths)
	})

	t.Run("body expires once the handler returns", func(t *testing.T) {
		var leaked *http.Body
		handler := func(request *http.Request) *http.Response {
			leaked = request.Body
			return request.Respond()
		}

		serve(cfg, handler, dummy.NewClient([]byte("POST / HTTP/1.1\r\nContent-Length: 4\r\n\r\nlate")))
		_, err := leaked.Bytes()
		require.ErrorIs(t, err, http.ErrBodyExpired)
	})
}

func TestFailures(t *testing.T) {
	cfg := config.Default()

	t.Run("malformed request line gets a 400", func(t *testing.T) {
		got := serve(cfg, hi, dummy.NewClient([]byte("GET /\r\n\r\n")))
		require.Equal(t,
			"HTTP/1.1 400 Bad Request\r\nConnection: close\r\nContent-Length: 22\r\n\r\nmalformed request line",
			got,
		)
	})

	t.Run("oversized headers get a 431", func(t *testing.T) {
		tuned := config.Fill(&config.Config{
			Headers: config.Headers{MaxNumber: 1},
		})
		got := serve(tuned, hi, dummy.NewClient([]byte("GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\n\r\n")))
		require.Contains(t, got, "HTTP/1.1 431 Request Header Fields Too Large\r\n")
	})

	t.Run("silent disconnect produces nothing", func(t *testing.T) {
		client := dummy.NewClient()
		got := serve(cfg, hi, client)
		require.Empty(t, got)
		require.True(t, client.Closed())
	})

	t.Run("panicking handler turns into a 500", func(t *testing.T) {
		boom := func(*http.Request) *http.Response {
			panic("boom")
		}
		got := serve(cfg, boom, dummy.NewClient([]byte("GET / HTTP/1.1\r\n\r\n")))
		require.Equal(t,
			"HTTP/1.1 500 Internal Server Error\r\nContent-Length: 21\r\n\r\ninternal server error",
			got,
		)
	})

	t.Run("panics stay isolated per connection", func(t *testing.T) {
		handler := func(request *http.Request) *http.Response {
			if request.Path == "/boom" {
				panic("boom")
			}

			return request.Respond().String("Hi")
		}

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			path := "/ok"
			if i == 0 {
				path = "/boom"
			}

			go func() {
				defer wg.Done()
				raw := "GET " + path + " HTTP/1.1\r\n\r\n"
				results[i] = serve(cfg, handler, dummy.NewClient([]byte(raw)))
			}()
		}
		wg.Wait()

		require.Contains(t, results[0], "HTTP/1.1 500 Internal Server Error\r\n")
		for _, got := range results[1:] {
			require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nHi", got)
		}
	})

	t.Run("custom error handler", func(t *testing.T) {
		client := dummy.NewClient([]byte("GET /\r\n\r\n"))
		request := http.NewRequest(cfg, http.NewResponse(), nil)
		body := http1.NewBody(client, chunkedbody.NewParser(chunkedbody.DefaultSettings()), cfg.Body)
		request.Body = http.NewBody(request, body)
		parser := http1.NewParser(request, client, cfg)
		serializer := http1.NewSerializer(client, cfg.NET.WriteBufferSize, cfg.Headers.Default)

		server := NewServer(cfg, hi).OnError(func(request *http.Request, err error) *http.Response {
			require.ErrorIs(t, err, status.ErrBadRequestLine)
			return request.Respond().Code(status.Teapot)
		})
		server.Run(client, request, body, parser, serializer)

		require.Contains(t, string(client.Written), "HTTP/1.1 418 I'm a teapot\r\n")
	})
}
