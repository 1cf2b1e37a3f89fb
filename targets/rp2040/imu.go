//go:build rp2040

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/lsm6ds3tr"

	"trackcar/core"
)

// Gyro integrates the LSM6DS3TR z rate into a yaw angle.
// It implements core.HeadingSensor.
type Gyro struct {
	dev   *lsm6ds3tr.Device
	bias  float32 // deg/s
	yaw   float32
	last  uint32
	reads uint32
	fails uint32
}

const gyroBiasSamples = 200

// NewGyro configures the IMU and measures the resting z bias. The car must
// stand still during the first second.
func NewGyro(bus *machine.I2C) (*Gyro, error) {
	dev := lsm6ds3tr.New(bus)
	err := dev.Configure(lsm6ds3tr.Configuration{
		AccelRange:      lsm6ds3tr.ACCEL_2G,
		AccelSampleRate: lsm6ds3tr.ACCEL_SR_104,
		GyroRange:       lsm6ds3tr.GYRO_500DPS,
		GyroSampleRate:  lsm6ds3tr.GYRO_SR_104,
	})
	if err != nil {
		return nil, err
	}
	g := &Gyro{dev: dev}

	var sum float32
	n := 0
	for i := 0; i < gyroBiasSamples; i++ {
		if rate, ok := g.rate(); ok {
			sum += rate
			n++
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n > 0 {
		g.bias = sum / float32(n)
	}
	g.last = core.Millis()
	return g, nil
}

// rate returns the z rate in deg/s
func (g *Gyro) rate() (float32, bool) {
	_, _, z, err := g.dev.ReadRotation()
	if err != nil {
		g.fails++
		return 0, false
	}
	g.reads++
	return float32(z) / 1e6, true
}

// Task integrates one sample; register it at the IMU output rate or slower
func (g *Gyro) Task() {
	now := core.Millis()
	dt := float32(now-g.last) / 1000
	g.last = now
	rate, ok := g.rate()
	if !ok {
		return
	}
	g.yaw = wrapYaw(g.yaw + (rate-g.bias)*dt)
}

// Yaw implements core.HeadingSensor
func (g *Gyro) Yaw() float32 {
	return g.yaw
}

// Zero makes the current heading 0
func (g *Gyro) Zero() {
	g.yaw = 0
}

func wrapYaw(deg float32) float32 {
	for deg >= 180 {
		deg -= 360
	}
	for deg < -180 {
		deg += 360
	}
	return deg
}
