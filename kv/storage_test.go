package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	t.Run("case-insensitive lookup", func(t *testing.T) {
		s := New().Add("Content-Length", "13")
		value, found := s.Get("content-length")
		require.True(t, found)
		require.Equal(t, "13", value)
		require.True(t, s.Has("CONTENT-LENGTH"))
	})

	t.Run("duplicates preserved in order", func(t *testing.T) {
		s := New().
			Add("Accept", "text/html").
			Add("Host", "localhost").
			Add("accept", "application/json")

		require.Equal(t, []string{"text/html", "application/json"}, s.Values("Accept"))
		require.Equal(t, 3, s.Len())
	})

	t.Run("first value wins", func(t *testing.T) {
		s := New().Add("a", "1").Add("A", "2")
		require.Equal(t, "1", s.Value("a"))
	})

	t.Run("missing key", func(t *testing.T) {
		s := New()
		require.Equal(t, "", s.Value("nope"))
		require.Equal(t, "fallback", s.ValueOr("nope", "fallback"))
		require.Nil(t, s.Values("nope"))
		require.True(t, s.Empty())
	})

	t.Run("iteration order", func(t *testing.T) {
		s := New().Add("b", "2").Add("a", "1").Add("b", "3")
		var got []string
		for key, value := range s.Iter() {
			got = append(got, key+"="+value)
		}

		require.Equal(t, []string{"b=2", "a=1", "b=3"}, got)
	})

	t.Run("clear keeps capacity semantics", func(t *testing.T) {
		s := NewPrealloc(4).Add("a", "1")
		s.Clear()
		require.True(t, s.Empty())
		require.False(t, s.Has("a"))
	})
}
