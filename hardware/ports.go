package hardware

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Port describes one SPI port known to periph's registry.
type Port struct {
	Name    string
	Aliases []string
	Number  int
}

// Ports initialises the periph host drivers and returns the registered SPI
// ports, sorted by name.
func Ports() ([]Port, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to init periph: %w", err)
	}
	for _, f := range state.Failed {
		slog.Debug("periph driver failed", "driver", f.D.String(), "error", f.Err)
	}
	return fromRefs(spireg.All()), nil
}

func fromRefs(refs []*spireg.Ref) []Port {
	ports := make([]Port, 0, len(refs))
	for _, ref := range refs {
		ports = append(ports, Port{
			Name:    ref.Name,
			Aliases: append([]string(nil), ref.Aliases...),
			Number:  ref.Number,
		})
	}
	return ports
}

// PrintPorts writes one line per port.
func PrintPorts(w io.Writer, ports []Port) error {
	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "No SPI port found")
		return err
	}
	for _, p := range ports {
		line := p.Name
		if len(p.Aliases) > 0 {
			line += " (" + strings.Join(p.Aliases, ", ") + ")"
		}
		if p.Number >= 0 {
			line += fmt.Sprintf(" #%d", p.Number)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
