//go:build rp2040

package main

import "machine"

// Sensor bus: IMU and ToF share I2C1
const (
	sensorSDA  = machine.GPIO6
	sensorSCL  = machine.GPIO7
	sensorFreq = 400 * machine.KHz
)

// initSensorBus configures I2C1 for the IMU and the ToF sensor
func initSensorBus() (*machine.I2C, error) {
	bus := machine.I2C1
	err := bus.Configure(machine.I2CConfig{
		Frequency: sensorFreq,
		SDA:       sensorSDA,
		SCL:       sensorSCL,
	})
	if err != nil {
		return nil, err
	}
	return bus, nil
}
