// Package spidevtest provides an in-memory spidev backend for tests.
package spidevtest

import (
	"syscall"

	"senao.com/spistm32/spidev"
)

// Backend records every call made through it. With Loopback set, a
// submission that carries a receive buffer answers with the last byte
// transmitted, like a peer with MISO wired to MOSI.
type Backend struct {
	Loopback bool
	// FailOn makes the named call return its error. Names are get_lsb,
	// set_mode, get_mode, set_bits, get_bits, set_speed, get_speed,
	// submit_write, submit_read and close.
	FailOn map[string]error
	// ClampSpeedHz, if non-zero, caps the speed reported back after
	// SetMaxSpeedHz, like a driver that cannot reach the requested clock.
	ClampSpeedHz uint32

	Calls  []string
	Closed int
	// Submitted holds a copy of the descriptor at each submission.
	Submitted []spidev.Transfer

	mode   uint8
	bits   uint8
	speed  uint32
	lastTx byte
}

// NewLoopback returns a backend that echoes transmitted data.
func NewLoopback() *Backend {
	return &Backend{Loopback: true}
}

// Fail makes the named call fail with EIO and returns b.
func (b *Backend) Fail(name string) *Backend {
	if b.FailOn == nil {
		b.FailOn = make(map[string]error)
	}
	b.FailOn[name] = syscall.EIO
	return b
}

func (b *Backend) call(name string) error {
	b.Calls = append(b.Calls, name)
	return b.FailOn[name]
}

func (b *Backend) LSBFirst() (uint8, error) { return 0, b.call("get_lsb") }

func (b *Backend) SetMode(mode uint8) error {
	if err := b.call("set_mode"); err != nil {
		return err
	}
	b.mode = mode
	return nil
}

func (b *Backend) Mode() (uint8, error) { return b.mode, b.call("get_mode") }

func (b *Backend) SetBitsPerWord(bits uint8) error {
	if err := b.call("set_bits"); err != nil {
		return err
	}
	b.bits = bits
	return nil
}

func (b *Backend) BitsPerWord() (uint8, error) { return b.bits, b.call("get_bits") }

func (b *Backend) SetMaxSpeedHz(hz uint32) error {
	if err := b.call("set_speed"); err != nil {
		return err
	}
	b.speed = hz
	if b.ClampSpeedHz != 0 && hz > b.ClampSpeedHz {
		b.speed = b.ClampSpeedHz
	}
	return nil
}

func (b *Backend) MaxSpeedHz() (uint32, error) { return b.speed, b.call("get_speed") }

func (b *Backend) Submit(xfer *spidev.Transfer) error {
	b.Submitted = append(b.Submitted, spidev.Transfer{
		Tx:  append([]byte(nil), xfer.Tx...),
		Rx:  append([]byte(nil), xfer.Rx...),
		Len: xfer.Len,
	})
	if xfer.Rx == nil {
		if err := b.call("submit_write"); err != nil {
			return err
		}
		if len(xfer.Tx) > 0 {
			b.lastTx = xfer.Tx[0]
		}
		return nil
	}
	if err := b.call("submit_read"); err != nil {
		return err
	}
	if b.Loopback && len(xfer.Rx) > 0 {
		xfer.Rx[0] = b.lastTx
	}
	return nil
}

func (b *Backend) Close() error {
	b.Closed++
	return b.call("close")
}

// Opener returns an opener that hands out b for path only. Any other path
// fails with ENOENT.
func (b *Backend) Opener(path string) spidev.Opener {
	return spidev.OpenerFunc(func(p string) (spidev.Backend, error) {
		b.Calls = append(b.Calls, "open "+p)
		if p != path {
			return nil, syscall.ENOENT
		}
		return b, nil
	})
}
