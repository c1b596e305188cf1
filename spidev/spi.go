package spidev

// Mode bits as defined in linux/spi/spidev.h.
const (
	CPHA      uint8 = 0x01
	CPOL      uint8 = 0x02
	CSHigh    uint8 = 0x04
	LSBFirst  uint8 = 0x08
	ThreeWire uint8 = 0x10
	Loop      uint8 = 0x20
	NoCS      uint8 = 0x40
	Ready     uint8 = 0x80
)

// Backend is the set of device-control calls a Handle needs. The Linux
// implementation issues spidev ioctls; tests substitute their own.
type Backend interface {
	LSBFirst() (uint8, error)
	SetMode(mode uint8) error
	Mode() (uint8, error)
	SetBitsPerWord(bits uint8) error
	BitsPerWord() (uint8, error)
	SetMaxSpeedHz(hz uint32) error
	MaxSpeedHz() (uint32, error)
	// Submit hands one transfer descriptor to the driver.
	Submit(xfer *Transfer) error
	Close() error
}

// Opener opens a device node and returns its backend.
type Opener interface {
	Open(path string) (Backend, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Backend, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Backend, error) {
	return f(path)
}

// Transfer describes one SPI exchange. A nil Tx or Rx leaves that direction
// unset in the driver's descriptor.
type Transfer struct {
	Tx          []byte
	Rx          []byte
	Len         uint32
	SpeedHz     uint32
	DelayUsecs  uint16
	BitsPerWord uint8
	CSChange    bool
}

// Settings are the parameters requested from the driver during Configure.
// The driver may clamp them; the values it reports back are kept on the
// Handle.
type Settings struct {
	Mode        uint8
	BitsPerWord uint8
	MaxSpeedHz  uint32
}

// DefaultSettings returns CPHA only, 8 bits per word and a 10 MHz clock.
func DefaultSettings() Settings {
	return Settings{
		Mode:        CPHA,
		BitsPerWord: 8,
		MaxSpeedHz:  10000000,
	}
}
