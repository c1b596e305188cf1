package spidev

import "errors"

// Each configuration step and each transfer phase fails with its own error.
// The OS error is wrapped alongside, so errors.Is works for both.
var (
	ErrDeviceOpen  = errors.New("failed to open the bus")
	ErrLSBFirst    = errors.New("can't get LSB first")
	ErrSetMode     = errors.New("can't set mode")
	ErrGetMode     = errors.New("can't get mode")
	ErrSetBits     = errors.New("can't set bits per word")
	ErrGetBits     = errors.New("can't get bits per word")
	ErrSetSpeed    = errors.New("can't set max speed")
	ErrGetSpeed    = errors.New("can't get max speed")
	ErrWrite       = errors.New("write transfer failed")
	ErrRead        = errors.New("read transfer failed")
	ErrClosed      = errors.New("spi handle is closed")
	ErrUnsupported = errors.New("spidev is only available on linux")
)
