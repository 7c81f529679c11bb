package imu

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"tinygo.org/x/drivers"
)

// DefaultAddress is the MPU6050 address with AD0 tied low.
const DefaultAddress = 0x68

const (
	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regGyroZoutH   = 0x47
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	whoAmIValue = 0x68

	// LSB per °/s at ±250 °/s full scale.
	gyroSensitivity = 131.0
)

// MPU6050 reads the Z gyro axis of an InvenSense MPU6050 over I2C.
type MPU6050 struct {
	Address uint16

	bus    drivers.I2C
	log    zerolog.Logger
	errors atomic.Int64
	last   atomic.Int32
}

func NewMPU6050(bus drivers.I2C, log zerolog.Logger) *MPU6050 {
	return &MPU6050{
		Address: DefaultAddress,
		bus:     bus,
		log:     log,
	}
}

// Init checks WHO_AM_I, wakes the device and configures a 100 Hz sample
// rate, ~44 Hz low pass and ±250 °/s range.
func (d *MPU6050) Init() error {
	id, err := d.readReg(regWhoAmI)
	if err != nil {
		return fmt.Errorf("%w: read WHO_AM_I: %v", ErrNoDevice, err)
	}
	if id != whoAmIValue {
		return fmt.Errorf("%w: WHO_AM_I = 0x%02x", ErrNoDevice, id)
	}

	setup := []struct{ reg, val byte }{
		{regPwrMgmt1, 0x00},
		{regSmplrtDiv, 9}, // 1 kHz / (1 + 9)
		{regConfig, 0x03},
		{regGyroConfig, 0x00},
		{regAccelConfig, 0x00},
	}
	for _, s := range setup {
		if err := d.bus.Tx(d.Address, []byte{s.reg, s.val}, nil); err != nil {
			return fmt.Errorf("imu: write reg 0x%02x: %w", s.reg, err)
		}
	}
	return nil
}

// YawRate returns the Z rate in °/s. On a bus error the previous raw
// reading is reused.
func (d *MPU6050) YawRate() float64 {
	raw, err := d.readGyroZ()
	if err != nil {
		if d.errors.Add(1) == 1 {
			d.log.Warn().Err(err).Msg("gyro read failed")
		}
		raw = int16(d.last.Load())
	} else {
		d.last.Store(int32(raw))
	}
	return float64(raw) / gyroSensitivity
}

// Errors returns the number of failed reads since construction.
func (d *MPU6050) Errors() int64 {
	return d.errors.Load()
}

func (d *MPU6050) readReg(reg byte) (byte, error) {
	buf := []byte{0}
	if err := d.bus.Tx(d.Address, []byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *MPU6050) readGyroZ() (int16, error) {
	buf := make([]byte, 2)
	if err := d.bus.Tx(d.Address, []byte{regGyroZoutH}, buf); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf)), nil
}
