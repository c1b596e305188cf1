package spidev_test

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"senao.com/spistm32/spidev"
	"senao.com/spistm32/spidev/spidevtest"
)

const device = "/dev/spidev0.0"

var configureSteps = []string{"get_lsb", "set_mode", "get_mode", "set_bits", "get_bits", "set_speed", "get_speed"}

func TestConfigure_Order(t *testing.T) {
	b := &spidevtest.Backend{}
	_, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
	require.NoError(t, err)

	expected := append([]string{"open " + device}, configureSteps...)
	assert.Equal(t, expected, b.Calls, "configure should issue the ioctls in order")
	assert.Equal(t, 0, b.Closed, "a configured handle stays open")
}

func TestConfigure_ForcesCPHA(t *testing.T) {
	b := &spidevtest.Backend{}
	require.NoError(t, b.SetMode(0xff))
	b.Calls = nil

	h, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
	require.NoError(t, err)

	assert.NotZero(t, h.Mode()&spidev.CPHA, "CPHA must be set")
	assert.Zero(t, h.Mode()&^spidev.CPHA, "no other mode bit may be set")
	assert.Equal(t, uint8(8), h.BitsPerWord())
	assert.Equal(t, uint32(10000000), h.MaxSpeedHz())
	assert.Equal(t, device, h.Path())
}

func TestConfigure_AcceptsClampedSpeed(t *testing.T) {
	b := &spidevtest.Backend{ClampSpeedHz: 500000}
	h, err := spidev.Init(b.Opener("/dev/spidev1.0"), "/dev/spidev1.0", spidev.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, uint32(500000), h.MaxSpeedHz(), "the driver's read-back value is kept")
}

func TestConfigure_FailingStep(t *testing.T) {
	kinds := []error{
		spidev.ErrLSBFirst, spidev.ErrSetMode, spidev.ErrGetMode,
		spidev.ErrSetBits, spidev.ErrGetBits, spidev.ErrSetSpeed, spidev.ErrGetSpeed,
	}
	for i, step := range configureSteps {
		t.Run(step, func(t *testing.T) {
			b := (&spidevtest.Backend{}).Fail(step)
			h, err := spidev.Open(b.Opener(device), device, spidev.DefaultSettings())
			require.NoError(t, err)

			err = h.Configure()
			require.Error(t, err)
			assert.ErrorIs(t, err, kinds[i])
			assert.ErrorIs(t, err, syscall.EIO, "the OS error is kept")
			for j, other := range kinds {
				if j != i {
					assert.NotErrorIs(t, err, other)
				}
			}

			// open + steps up to and including the failing one, then close.
			assert.Len(t, b.Calls, i+3)
			assert.Equal(t, "close", b.Calls[len(b.Calls)-1])

			assert.NoError(t, h.Close())
			assert.Equal(t, 1, b.Closed, "handle must be closed exactly once")
		})
	}
}

func TestConfigure_CloseErrorIsKept(t *testing.T) {
	closeErr := errors.New("close failed")
	b := (&spidevtest.Backend{}).Fail("set_bits")
	b.FailOn["close"] = closeErr

	h, err := spidev.Open(b.Opener(device), device, spidev.DefaultSettings())
	require.NoError(t, err)

	err = h.Configure()
	assert.ErrorIs(t, err, spidev.ErrSetBits)
	assert.ErrorIs(t, err, syscall.EIO)
	assert.ErrorIs(t, err, closeErr, "a failed close is reported with the configure error")
	assert.Equal(t, 1, b.Closed)
}

func TestInit_FailingConfigureReturnsNoHandle(t *testing.T) {
	b := (&spidevtest.Backend{}).Fail("get_bits")
	h, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
	assert.Nil(t, h)
	assert.ErrorIs(t, err, spidev.ErrGetBits)
	assert.Equal(t, 1, b.Closed)
}

func TestOpen_Fails(t *testing.T) {
	b := &spidevtest.Backend{}

	h, err := spidev.Open(b.Opener(device), "/dev/spidev9.0", spidev.DefaultSettings())
	assert.Nil(t, h)
	assert.ErrorIs(t, err, spidev.ErrDeviceOpen)
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.Contains(t, err.Error(), "/dev/spidev9.0")
	assert.Equal(t, []string{"open /dev/spidev9.0"}, b.Calls)
}

func TestTransfer_Echo(t *testing.T) {
	b := spidevtest.NewLoopback()
	h, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
	require.NoError(t, err)

	rx, err := h.Transfer(0x01)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), rx)
}

func TestTransfer_TwoSubmissions(t *testing.T) {
	b := spidevtest.NewLoopback()
	h, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
	require.NoError(t, err)
	b.Calls = nil

	_, err = h.Transfer(0x5a)
	require.NoError(t, err)

	assert.Equal(t, []string{"submit_write", "submit_read"}, b.Calls)
	require.Len(t, b.Submitted, 2)

	write := b.Submitted[0]
	assert.Equal(t, []byte{0x5a}, write.Tx)
	assert.Empty(t, write.Rx, "receive buffer is unset on the first write")
	assert.Equal(t, uint32(1), write.Len)

	read := b.Submitted[1]
	assert.Equal(t, []byte{0x5a}, read.Tx, "the reused descriptor keeps the transmit buffer")
	assert.Len(t, read.Rx, 1)
	assert.Equal(t, uint32(1), read.Len)
}

func TestTransfer_Errors(t *testing.T) {
	for _, tc := range []struct {
		failOn string
		want   error
	}{
		{"submit_write", spidev.ErrWrite},
		{"submit_read", spidev.ErrRead},
	} {
		t.Run(tc.failOn, func(t *testing.T) {
			b := &spidevtest.Backend{}
			h, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
			require.NoError(t, err)
			b.Fail(tc.failOn)

			_, err = h.Transfer(0x01)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, syscall.EIO)
		})
	}
}

func TestClose(t *testing.T) {
	var h *spidev.Handle
	assert.NoError(t, h.Close(), "closing a nil handle is a no-op")

	b := &spidevtest.Backend{}
	h, err := spidev.Init(b.Opener(device), device, spidev.DefaultSettings())
	require.NoError(t, err)
	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
	assert.Equal(t, 1, b.Closed)

	_, err = h.Transfer(0x01)
	assert.ErrorIs(t, err, spidev.ErrClosed)
}
