//go:build linux

package spidev

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIocTransferLayout(t *testing.T) {
	assert.Equal(t, uintptr(32), unsafe.Sizeof(iocTransfer{}), "must match struct spi_ioc_transfer")
	assert.Equal(t, uintptr(0x40206b00), iocMessage(1), "SPI_IOC_MESSAGE(1)")
}

func TestToIocTransfer(t *testing.T) {
	tx := []byte{0xab}
	rx := []byte{0}

	p := toIocTransfer(&Transfer{Tx: tx, Len: 1})
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&tx[0]))), p.txBuf)
	assert.Zero(t, p.rxBuf)
	assert.Equal(t, uint32(1), p.length)

	p = toIocTransfer(&Transfer{Tx: tx, Rx: rx, Len: 1, SpeedHz: 1000, CSChange: true})
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&rx[0]))), p.rxBuf)
	assert.Equal(t, uint32(1000), p.speedHz)
	assert.Equal(t, uint8(1), p.csChange)
}

func TestDevFS_OpenMissing(t *testing.T) {
	_, err := Open(DevFS{}, filepath.Join(t.TempDir(), "spidev9.9"), DefaultSettings())
	assert.ErrorIs(t, err, ErrDeviceOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDevFS_ConfigureNonSPIFile(t *testing.T) {
	// A regular file rejects spidev ioctls, so configure fails at its first step.
	name := filepath.Join(t.TempDir(), "spidev0.0")
	require.NoError(t, os.WriteFile(name, nil, 0o644))

	h, err := Open(nil, name, DefaultSettings())
	require.NoError(t, err)
	err = h.Configure()
	assert.ErrorIs(t, err, ErrLSBFirst)
	assert.NoError(t, h.Close())
}
