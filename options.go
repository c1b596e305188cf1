package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
)

var (
	errInvalidDeviceSelector = errors.New("invalid SPI bus")
	errInvalidArgument       = errors.New("invalid argument")

	errShowVersion = errors.New("version requested")
	errShowHelp    = errors.New("help requested")
)

var devices = map[byte]string{
	'0': "/dev/spidev0.0",
	'1': "/dev/spidev1.0",
}

type options struct {
	device     string
	transmit   byte
	configFile string
	list       bool
	exitCode   bool
}

func help(w io.Writer) {
	fmt.Fprint(w,
		"Usage: spi-stm32 -d [spi device node] -t [transmit data]\n"+
			"-d, --device: device node name\n"+
			"-t, --transmit: hex value to be transmitted in one byte\n"+
			"-c, --config: yaml config file\n"+
			"-l, --list: list SPI ports and exit\n"+
			"    --exit-code: exit with status 1 on failure\n"+
			"-v, --version: show program version\n"+
			"-h, --help: show help string\n"+
			"ex: spi-stm32 -d 1 -t 0x01\n")
}

// parseArgs handles the flags in command-line order. Version, help and an
// invalid device selector stop processing where they occur. The options
// gathered so far are returned even on error.
func parseArgs(args []string) (*options, error) {
	opts := &options{}

	fs := pflag.NewFlagSet("spi-stm32", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.StringP("device", "d", "", "device node selector (0 or 1)")
	fs.StringP("transmit", "t", "", "hex value to transmit")
	fs.StringP("config", "c", "", "yaml config file")
	fs.BoolP("list", "l", false, "list SPI ports")
	fs.Bool("exit-code", false, "exit with status 1 on failure")
	fs.BoolP("version", "v", false, "show program version")
	fs.BoolP("help", "h", false, "show help string")

	err := fs.ParseAll(args, func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "device":
			path, err := selectDevice(value)
			if err != nil {
				return err
			}
			opts.device = path
		case "transmit":
			opts.transmit = parseTransmit(value)
		case "config":
			opts.configFile = value
		case "list", "exit-code", "version", "help":
			on, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: --%s=%s", errInvalidArgument, flag.Name, value)
			}
			switch flag.Name {
			case "list":
				opts.list = on
			case "exit-code":
				opts.exitCode = on
			case "version":
				if on {
					return errShowVersion
				}
			case "help":
				if on {
					return errShowHelp
				}
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errInvalidDeviceSelector) && !errors.Is(err, errInvalidArgument) &&
		!errors.Is(err, errShowVersion) && !errors.Is(err, errShowHelp) {
		err = fmt.Errorf("%w: %w", errInvalidArgument, err)
	}
	return opts, err
}

// selectDevice maps the first character of sel to a device node.
func selectDevice(sel string) (string, error) {
	if sel != "" {
		if path, ok := devices[sel[0]]; ok {
			return path, nil
		}
	}
	keys := maps.Keys(devices)
	slices.Sort(keys)
	valid := make([]string, 0, len(keys))
	for _, k := range keys {
		valid = append(valid, string(k))
	}
	return "", fmt.Errorf("%w %q, want one of %s", errInvalidDeviceSelector, sel, strings.Join(valid, ", "))
}

// parseTransmit reads s as a hexadecimal long the way strtol(s, NULL, 16)
// does and keeps the low 8 bits. Parsing stops at the first character that
// is not a hex digit; out of range values clamp to the long limits.
func parseTransmit(s string) byte {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		if _, ok := hexDigit(s[i+2]); ok {
			i += 2
		}
	}

	const limit = uint64(1) << 63
	var v uint64
	overflow := false
	for ; i < len(s); i++ {
		d, ok := hexDigit(s[i])
		if !ok {
			break
		}
		if overflow {
			continue
		}
		if v > limit>>4 {
			overflow = true
			continue
		}
		v = v<<4 | uint64(d)
		if v > limit {
			overflow = true
		}
	}

	// On overflow strtol returns LONG_MIN or LONG_MAX, whose low bytes are
	// 0x00 and 0xff.
	if neg {
		if overflow {
			return 0x00
		}
		return byte(-int64(v))
	}
	if overflow || v > math.MaxInt64 {
		return 0xff
	}
	return byte(v)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
