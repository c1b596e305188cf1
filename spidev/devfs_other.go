//go:build !linux

package spidev

// DevFS opens /dev/spidevX.Y nodes. It only works on linux.
type DevFS struct{}

// Open always fails with ErrUnsupported: spidev exists only on Linux.
func (DevFS) Open(path string) (Backend, error) {
	return nil, ErrUnsupported
}
