package core

import (
	"errors"

	"trackcar/protocol"
)

// ErrShutdown is returned when a route is started while the car is in
// shutdown
var ErrShutdown = errors.New("car is shut down")

// Shutdown stops the mission, disables the motors and refuses new routes
// until ClearShutdown. The reason is logged and sent to the host once.
func (r *Robot) Shutdown(reason string) {
	if r.fault != "" {
		return
	}
	r.fault = reason
	r.StopMission()
	r.Car.hw.Motor.Disable()
	Errorln("shutdown: " + reason)
	if r.reply != nil {
		r.reply(protocol.AppendVLQBytes(protocol.AppendVLQUint(nil, protocol.RespShutdown), []byte(reason)))
	}
}

// ClearShutdown re-enables the motors after a shutdown
func (r *Robot) ClearShutdown() {
	if r.fault == "" {
		return
	}
	r.fault = ""
	r.Car.Halt()
	r.Car.hw.Motor.Enable()
	Infoln("shutdown cleared")
}

// Fault returns the shutdown reason, empty while running normally
func (r *Robot) Fault() string {
	return r.fault
}

// Dictionary returns the encoded identify dictionary, rebuilding it when a
// route or constant changed since the last request
func (r *Robot) Dictionary() []byte {
	if data := r.Dict.Cached(); data != nil {
		return data
	}
	return r.Dict.Build(r.Remote.Commands(), r.routes)
}

func (r *Robot) publishConfig(cfg CarConfig) {
	r.Dict.AddConstant("protocol", protocol.Version)
	r.Dict.AddConstant("wheels", itoa(cfg.Wheels))
	r.Dict.AddConstant("period_ms", utoa(cfg.PeriodMS))
	r.Dict.AddConstant("max_pwm", itoa(int(cfg.MaxPWM)))
	r.Dict.AddConstant("wheel_radius_cm", ftoa(cfg.WheelRadiusCM, 2))
	r.Dict.AddConstant("pulses_per_rev", itoa(int(cfg.PulsesPerRev)))
	r.Dict.AddConstant("wheelbase_cm", ftoa(cfg.WheelbaseCM, 1))
	r.Dict.AddConstant("line_sensors", itoa(LineSensorCount))
	r.Dict.AddConstant("heading", boolString(r.Car.hw.Heading != nil))
	r.Dict.AddConstant("range", boolString(r.Car.hw.Range != nil))
}

func boolString(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (r *Robot) cmdIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeByte(data)
	if err != nil {
		return err
	}
	if r.reply == nil {
		return nil
	}
	if count > protocol.IdentifyChunk {
		count = protocol.IdentifyChunk
	}
	out := protocol.AppendVLQUint(nil, protocol.RespIdentify)
	out = protocol.AppendVLQUint(out, offset)
	out = protocol.AppendVLQBytes(out, Chunk(r.Dictionary(), offset, count))
	return r.reply(out)
}

func (r *Robot) cmdEmergency(data *[]byte) error {
	r.Shutdown("emergency stop")
	return nil
}

func (r *Robot) cmdClearFault(data *[]byte) error {
	r.ClearShutdown()
	return nil
}
