package spidev

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"
)

// Handle is an open SPI device configured for single-byte exchanges with
// the STM32 peer.
type Handle struct {
	backend  Backend
	path     string
	settings Settings

	// Values reported back by the driver after configuration.
	lsb   uint8
	mode  uint8
	bits  uint8
	speed uint32

	xfer Transfer
	tx   [1]byte
	rx   [1]byte
}

// Open opens the device node at path for reading and writing. A nil opener
// uses the devfs backend. The returned handle is not configured yet.
func Open(o Opener, path string, s Settings) (*Handle, error) {
	if o == nil {
		o = DevFS{}
	}
	b, err := o.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDeviceOpen, path, err)
	}
	return &Handle{backend: b, path: path, settings: s}, nil
}

// Init opens and configures the device at path.
func Init(o Opener, path string, s Settings) (*Handle, error) {
	h, err := Open(o, path, s)
	if err != nil {
		return nil, err
	}
	if err := h.Configure(); err != nil {
		return nil, err
	}
	return h, nil
}

// Configure reads the bit order, then writes and reads back mode, bits per
// word and maximum speed, in that order. On failure the handle is closed
// before the error is returned, and a failed close is joined into it.
func (h *Handle) Configure() error {
	if h == nil || h.backend == nil {
		return ErrClosed
	}
	if err := h.configure(); err != nil {
		if cerr := h.Close(); cerr != nil {
			slog.Debug("spi close after failed configure", "device", h.path, "error", cerr)
			return errors.Join(err, cerr)
		}
		return err
	}
	slog.Debug("spi configured",
		"device", h.path,
		"lsbFirst", h.lsb,
		"mode", fmt.Sprintf("%#x", h.mode),
		"bitsPerWord", h.bits,
		"speed", physic.Frequency(h.speed)*physic.Hertz)
	return nil
}

func (h *Handle) configure() error {
	var err error
	if h.lsb, err = h.backend.LSBFirst(); err != nil {
		return fmt.Errorf("%w: %w", ErrLSBFirst, err)
	}

	// Only the clock phase bit is set, everything else is cleared.
	h.mode = h.settings.Mode
	if err := h.backend.SetMode(h.mode); err != nil {
		return fmt.Errorf("%w: %w", ErrSetMode, err)
	}
	if h.mode, err = h.backend.Mode(); err != nil {
		return fmt.Errorf("%w: %w", ErrGetMode, err)
	}

	h.bits = h.settings.BitsPerWord
	if err := h.backend.SetBitsPerWord(h.bits); err != nil {
		return fmt.Errorf("%w: %w", ErrSetBits, err)
	}
	if h.bits, err = h.backend.BitsPerWord(); err != nil {
		return fmt.Errorf("%w: %w", ErrGetBits, err)
	}

	h.speed = h.settings.MaxSpeedHz
	if err := h.backend.SetMaxSpeedHz(h.speed); err != nil {
		return fmt.Errorf("%w: %w", ErrSetSpeed, err)
	}
	if h.speed, err = h.backend.MaxSpeedHz(); err != nil {
		return fmt.Errorf("%w: %w", ErrGetSpeed, err)
	}
	return nil
}

// Transfer sends tx and returns the byte the peer answers with. It submits
// the descriptor twice: once with the transmit buffer set, then again with
// the receive buffer added. The peer relies on this write-then-read
// sequence, so it must not be folded into a single full-duplex submission.
func (h *Handle) Transfer(tx byte) (byte, error) {
	if h == nil || h.backend == nil {
		return 0, ErrClosed
	}

	h.tx[0] = tx
	h.xfer.Tx = h.tx[:]
	h.xfer.Len = 1
	if err := h.backend.Submit(&h.xfer); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	slog.Debug("spi write submitted", "device", h.path, "tx", fmt.Sprintf("%#x", tx))

	h.xfer.Rx = h.rx[:]
	if err := h.backend.Submit(&h.xfer); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRead, err)
	}
	slog.Debug("spi read submitted", "device", h.path, "rx", fmt.Sprintf("%#x", h.rx[0]))

	return h.rx[0], nil
}

// Close releases the device. Closing a nil or already closed handle does
// nothing.
func (h *Handle) Close() error {
	if h == nil || h.backend == nil {
		return nil
	}
	b := h.backend
	h.backend = nil
	return b.Close()
}

// Path returns the device node the handle was opened on.
func (h *Handle) Path() string { return h.path }

// LSBFirst returns the bit order the driver reported.
func (h *Handle) LSBFirst() uint8 { return h.lsb }

// Mode returns the mode bits read back after configuration.
func (h *Handle) Mode() uint8 { return h.mode }

// BitsPerWord returns the word size read back after configuration.
func (h *Handle) BitsPerWord() uint8 { return h.bits }

// MaxSpeedHz returns the clock limit read back after configuration. The
// driver may report less than was requested.
func (h *Handle) MaxSpeedHz() uint32 { return h.speed }
