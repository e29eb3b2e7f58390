package chat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// EncodeLine frames text as a single protocol line. No escaping is done, so
// text that already contains '\n' ends up as several lines on the wire.
func EncodeLine(text string) []byte {
	b := make([]byte, 0, len(text)+1)
	b = append(b, text...)
	return append(b, '\n')
}

// WriteLine writes text as one line in a single Write call.
func WriteLine(w io.Writer, text string) error {
	_, err := w.Write(EncodeLine(text))
	return err
}

// LineReader decodes newline-terminated lines from a byte stream.
type LineReader struct {
	r *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its terminator. A trailing fragment
// with no '\n' still counts as a line; after it, io.EOF is returned unwrapped.
// Other failures are wrapped.
func (lr *LineReader) ReadLine() (string, error) {
	raw, err := lr.r.ReadString('\n')
	switch {
	case err == nil, err == io.EOF && raw != "":
		return strings.TrimRight(raw, "\r\n"), nil
	case err == io.EOF:
		return "", io.EOF
	default:
		return "", fmt.Errorf("read: %w", err)
	}
}
