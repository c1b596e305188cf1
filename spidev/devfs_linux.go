//go:build linux

package spidev

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// See Linux "include/uapi/linux/spi/spidev.h".
const (
	iocRdMode        = 0x80016b01
	iocWrMode        = 0x40016b01
	iocRdLSBFirst    = 0x80016b02
	iocRdBitsPerWord = 0x80016b03
	iocWrBitsPerWord = 0x40016b03
	iocRdMaxSpeedHz  = 0x80046b04
	iocWrMaxSpeedHz  = 0x40046b04
)

// iocTransfer mirrors struct spi_ioc_transfer.
type iocTransfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNBits        uint8
	rxNBits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

// iocMessage returns SPI_IOC_MESSAGE(n).
func iocMessage(n int) uintptr {
	const sizeShift = 16
	size := uintptr(n) * unsafe.Sizeof(iocTransfer{})
	return 0x40006b00 | (size << sizeShift)
}

// DevFS opens /dev/spidevX.Y nodes.
type DevFS struct{}

// Open opens the device node read-write.
func (DevFS) Open(path string) (Backend, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &devfsConn{f: f}, nil
}

type devfsConn struct {
	f *os.File
}

func (c *devfsConn) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, c.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (c *devfsConn) LSBFirst() (uint8, error) {
	var v uint8
	err := c.ioctl(iocRdLSBFirst, unsafe.Pointer(&v))
	return v, err
}

func (c *devfsConn) SetMode(mode uint8) error {
	return c.ioctl(iocWrMode, unsafe.Pointer(&mode))
}

func (c *devfsConn) Mode() (uint8, error) {
	var v uint8
	err := c.ioctl(iocRdMode, unsafe.Pointer(&v))
	return v, err
}

func (c *devfsConn) SetBitsPerWord(bits uint8) error {
	return c.ioctl(iocWrBitsPerWord, unsafe.Pointer(&bits))
}

func (c *devfsConn) BitsPerWord() (uint8, error) {
	var v uint8
	err := c.ioctl(iocRdBitsPerWord, unsafe.Pointer(&v))
	return v, err
}

func (c *devfsConn) SetMaxSpeedHz(hz uint32) error {
	return c.ioctl(iocWrMaxSpeedHz, unsafe.Pointer(&hz))
}

func (c *devfsConn) MaxSpeedHz() (uint32, error) {
	var v uint32
	err := c.ioctl(iocRdMaxSpeedHz, unsafe.Pointer(&v))
	return v, err
}

func (c *devfsConn) Submit(xfer *Transfer) error {
	if int(xfer.Len) > len(xfer.Tx) && xfer.Tx != nil {
		return fmt.Errorf("transfer length %d exceeds tx buffer of %d bytes", xfer.Len, len(xfer.Tx))
	}
	if int(xfer.Len) > len(xfer.Rx) && xfer.Rx != nil {
		return fmt.Errorf("transfer length %d exceeds rx buffer of %d bytes", xfer.Len, len(xfer.Rx))
	}
	p := toIocTransfer(xfer)
	err := c.ioctl(iocMessage(1), unsafe.Pointer(&p))
	runtime.KeepAlive(xfer.Tx)
	runtime.KeepAlive(xfer.Rx)
	return err
}

func (c *devfsConn) Close() error {
	return c.f.Close()
}

func toIocTransfer(xfer *Transfer) iocTransfer {
	p := iocTransfer{
		length:      xfer.Len,
		speedHz:     xfer.SpeedHz,
		delayUsecs:  xfer.DelayUsecs,
		bitsPerWord: xfer.BitsPerWord,
	}
	if xfer.CSChange {
		p.csChange = 1
	}
	if len(xfer.Tx) > 0 {
		p.txBuf = uint64(uintptr(unsafe.Pointer(&xfer.Tx[0])))
	}
	if len(xfer.Rx) > 0 {
		p.rxBuf = uint64(uintptr(unsafe.Pointer(&xfer.Rx[0])))
	}
	return p
}
