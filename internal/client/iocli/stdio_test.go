package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestStdio_Print(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader(""), &out)

	s.Println("hello", "world")
	s.Printf("test %d %s\n", 1, "abc")
	_, err := s.Write([]byte("raw"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc\nraw", out.String())
}

func TestStdio_ReadInput(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("  first line \nsecond\nlast"), &out)

	for _, want := range []string{"first line", "second", "last"} {
		got, err := s.ReadInput("> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := s.ReadInput("> ")
	assert.ErrorIs(t, err, io.EOF)

	// Без терминала приглашение не печатается
	assert.False(t, s.Interactive())
	assert.Empty(t, out.String())
}

func TestStdio_InteractivePrompt(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("y\n"), &out)
	s.interactive = true

	got, err := s.ReadInput("Continue? ")
	require.NoError(t, err)
	assert.Equal(t, "y", got)
	assert.Equal(t, "Continue? ", out.String())
}
