// Package client runs the interactive side of the chat: one goroutine prints
// what the server sends while another forwards console lines to it.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"

	"github.com/k3340/linechat/internal/chat"
)

const DefaultQuitToken = "/quit"

var ErrConnectionLost = errors.New("connection to the server lost")

// Client owns one connection to the chat server for its whole lifetime.
type Client struct {
	conn      net.Conn
	name      string
	in        io.Reader
	out       io.Writer
	quitToken string
	colors    bool

	outMu sync.Mutex
}

type Option func(*Client)

// WithConsole replaces stdin/stdout.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(c *Client) {
		c.in = in
		c.out = out
	}
}

// WithColors toggles highlighting of system notices.
func WithColors(enabled bool) Option {
	return func(c *Client) {
		c.colors = enabled
	}
}

func WithQuitToken(token string) Option {
	return func(c *Client) {
		c.quitToken = token
	}
}

func New(conn net.Conn, name string, opts ...Option) *Client {
	c := &Client{
		conn:      conn,
		name:      name,
		in:        os.Stdin,
		out:       os.Stdout,
		quitToken: DefaultQuitToken,
		colors:    true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Run sends the handshake and then chats until the quit token, console EOF,
// ctx cancellation or a failed write. The connection is closed on return.
func (c *Client) Run(ctx context.Context) error {
	received := make(chan struct{})
	go func() {
		defer close(received)
		c.receive()
	}()

	err := c.send(ctx)

	_ = c.conn.Close()
	<-received
	c.println("You left the chat.")
	return err
}

func (c *Client) receive() {
	r := chat.NewLineReader(c.conn)
	for {
		line, err := r.ReadLine()
		if err != nil {
			return
		}
		if c.colors && chat.IsSystemNotice(line) {
			line = color.Yellow.Sprint(line)
		}
		c.println(line)
	}
}

func (c *Client) send(ctx context.Context) error {
	if err := chat.WriteLine(c.conn, c.name); err != nil {
		c.println("Failed to send the name: " + err.Error())
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	done := make(chan struct{})
	defer close(done)
	lines := c.consoleLines(done)
	for {
		var in consoleLine
		select {
		case <-ctx.Done():
			return nil
		case in = <-lines:
		}

		if errors.Is(in.err, io.EOF) {
			// closed console counts as quitting
			return nil
		}
		if in.err != nil {
			c.println("Failed to read the console: " + in.err.Error())
			return fmt.Errorf("console: %w", in.err)
		}
		if strings.EqualFold(strings.TrimSpace(in.text), c.quitToken) {
			return nil
		}
		if err := chat.WriteLine(c.conn, in.text); err != nil {
			c.println("Connection to the server lost.")
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
}

type consoleLine struct {
	text string
	err  error
}

// consoleLines reads the console in its own goroutine so that send can also
// watch ctx. The last value carries the error that ended the console.
func (c *Client) consoleLines(done <-chan struct{}) <-chan consoleLine {
	lines := make(chan consoleLine)
	go func() {
		r := chat.NewLineReader(c.in)
		for {
			text, err := r.ReadLine()
			select {
			case lines <- consoleLine{text: text, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

func (c *Client) println(line string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}
