package tcp

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/hearth-web/hearth/http/status"
	"github.com/stretchr/testify/require"
)

func startEcho(t *testing.T, maxConns int) (*Server, string, chan error) {
	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(sock, maxConns, func(conn net.Conn) {
		buff := make([]byte, 128)
		for {
			n, err := conn.Read(buff)
			if err != nil {
				return
			}
			if _, err = conn.Write(buff[:n]); err != nil {
				return
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- server.Start()
	}()

	return server, sock.Addr().String(), done
}

func roundtrip(t *testing.T, conn net.Conn, payload string) {
	_, err := conn.Write([]byte(payload))
	require.NoError(t, err)

	buff := make([]byte, len(payload))
	_, err = io.ReadFull(conn, buff)
	require.NoError(t, err)
	require.Equal(t, payload, string(buff))
}

func TestServer(t *testing.T) {
	t.Run("serves connections until stopped", func(t *testing.T) {
		server, addr, done := startEcho(t, 0)

		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		roundtrip(t, conn, "hello")
		require.EqualValues(t, 1, server.ActiveConns())
		require.NoError(t, conn.Close())

		require.NoError(t, server.Stop())
		require.ErrorIs(t, <-done, status.ErrShutdown)
		require.EqualValues(t, 0, server.ActiveConns())
	})

	t.Run("stop tears down connections in flight", func(t *testing.T) {
		server, addr, done := startEcho(t, 0)

		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		roundtrip(t, conn, "hello")

		require.NoError(t, server.Stop())
		require.ErrorIs(t, <-done, status.ErrShutdown)

		// the worker's next read fails, so ours does too eventually
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, err = conn.Read(make([]byte, 1))
		require.Error(t, err)
	})

	t.Run("connection limit stalls the accept loop", func(t *testing.T) {
		server, addr, done := startEcho(t, 1)

		first, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		roundtrip(t, first, "hello")

		// the second dial succeeds on the kernel level but is not served
		// until the first connection releases its slot
		second, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		_, err = second.Write([]byte("queued"))
		require.NoError(t, err)

		require.NoError(t, first.Close())
		buff := make([]byte, 6)
		require.NoError(t, second.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, err = io.ReadFull(second, buff)
		require.NoError(t, err)
		require.Equal(t, "queued", string(buff))

		require.NoError(t, second.Close())
		require.NoError(t, server.Stop())
		require.ErrorIs(t, <-done, status.ErrShutdown)
	})
}
