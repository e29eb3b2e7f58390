package chat

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeLine_AppendsSingleTerminator(t *testing.T) {
	req := require.New(t)
	req.Equal([]byte("hello\n"), EncodeLine("hello"))
	req.Equal([]byte("\n"), EncodeLine(""))
	req.Equal([]byte("привет\n"), EncodeLine("привет"))
}

func TestWriteLine_EmbeddedNewlineSplitsIntoLines(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	req.NoError(WriteLine(&buf, "one\ntwo"))

	r := NewLineReader(&buf)
	first, err := r.ReadLine()
	req.NoError(err)
	req.Equal("one", first)
	second, err := r.ReadLine()
	req.NoError(err)
	req.Equal("two", second)
	_, err = r.ReadLine()
	req.ErrorIs(err, io.EOF)
}

func TestLineReader_StripsTerminators(t *testing.T) {
	req := require.New(t)
	r := NewLineReader(strings.NewReader("alice\nhi there\r\n\nlast"))

	for _, want := range []string{"alice", "hi there", "", "last"} {
		got, err := r.ReadLine()
		req.NoError(err)
		req.Equal(want, got)
	}

	_, err := r.ReadLine()
	req.Equal(io.EOF, err)
}

func TestLineReader_EmptyStreamIsEOF(t *testing.T) {
	_, err := NewLineReader(strings.NewReader("")).ReadLine()
	require.Equal(t, io.EOF, err)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestLineReader_WrapsStreamErrors(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewLineReader(failingReader{err: boom}).ReadLine()
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, io.EOF)
}
