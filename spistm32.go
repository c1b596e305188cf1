package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"senao.com/spistm32/config"
	"senao.com/spistm32/hardware"
	"senao.com/spistm32/logging"
	"senao.com/spistm32/spidev"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "1.0.0"

// App is one run of the CLI with its output streams and device access.
type App struct {
	stdout    io.Writer
	stderr    io.Writer
	opener    spidev.Opener
	listPorts func() ([]hardware.Port, error)
}

// NewApp returns an App that talks to the real spidev nodes and periph registry.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{
		stdout:    stdout,
		stderr:    stderr,
		opener:    spidev.DevFS{},
		listPorts: hardware.Ports,
	}
}

func main() {
	os.Exit(NewApp(os.Stdout, os.Stderr).Run(os.Args[1:]))
}

// Run executes one invocation and returns the process exit status. Failures
// exit with status 0 unless --exit-code is given.
func (a *App) Run(args []string) int {
	opts, err := parseArgs(args)
	switch {
	case errors.Is(err, errShowVersion):
		fmt.Fprintf(a.stdout, "version: %s\n", Version)
		return 0
	case errors.Is(err, errShowHelp):
		help(a.stdout)
		return 0
	case err != nil:
		fmt.Fprintf(a.stderr, "%v\n", err)
		help(a.stdout)
		return a.failed(opts)
	}

	conf := config.Default()
	if opts.configFile != "" {
		if conf, err = config.ReadConfig(opts.configFile); err != nil {
			fmt.Fprintf(a.stderr, "%v\n", err)
			return a.failed(opts)
		}
	}
	if err := logging.Init(a.stderr, conf.Logging.Level, conf.Logging.Format, conf.Logging.File); err != nil {
		fmt.Fprintf(a.stderr, "can't open log file: %v\n", err)
		return a.failed(opts)
	}
	defer logging.Close()

	if opts.list {
		ports, err := a.listPorts()
		if err != nil {
			fmt.Fprintf(a.stderr, "can't list SPI ports: %v\n", err)
			return a.failed(opts)
		}
		if err := hardware.PrintPorts(a.stdout, ports); err != nil {
			return a.failed(opts)
		}
		return 0
	}

	if err := a.exchange(opts.device, opts.transmit, conf.Settings()); err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return a.failed(opts)
	}
	return 0
}

func (a *App) exchange(device string, tx byte, settings spidev.Settings) error {
	h, err := spidev.Init(a.opener, device, settings)
	if err != nil {
		return fmt.Errorf("spi init error: %w", err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			slog.Error("Error closing spi device", "device", device, "error", err)
		}
	}()

	fmt.Fprintf(a.stdout, "Transmit data: 0x%x\n", tx)

	rx, err := h.Transfer(tx)
	if err != nil {
		return fmt.Errorf("spi write/read error: %w", err)
	}

	fmt.Fprintf(a.stdout, "Receive data: 0x%x\n", rx)
	return nil
}

func (a *App) failed(opts *options) int {
	if opts != nil && opts.exitCode {
		return 1
	}
	return 0
}
