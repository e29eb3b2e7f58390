package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/k3340/linechat/internal/client"
	"github.com/k3340/linechat/internal/config"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat client: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	if err := config.LoadDotEnv(); err != nil {
		return exitConfig, err
	}
	cfg, err := config.LoadClient(os.Environ())
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	flag.StringVar(&cfg.ServerAddr, "addr", cfg.ServerAddr, "chat server address")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "display name, prompted for when empty")
	flag.BoolVar(&cfg.Colors, "colors", cfg.Colors, "highlight system notices")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return exitConfig, err
	}

	console := bufio.NewReader(os.Stdin)
	name := cfg.Name
	if name == "" {
		fmt.Print("Enter your name: ")
		name, _ = console.ReadString('\n')
	}
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Name must not be empty.")
		return exitOK, nil
	}

	conn, err := net.Dial("tcp", cfg.ServerAddr)
	if err != nil {
		fmt.Println("Could not connect to the server.")
		return exitRuntime, fmt.Errorf("dial %s: %w", cfg.ServerAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(conn, name,
		client.WithConsole(console, os.Stdout),
		client.WithColors(cfg.Colors),
	)
	if err := c.Run(ctx); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
