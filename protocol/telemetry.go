package protocol

// MaxTelemetryWheels bounds the per-wheel speed list
const MaxTelemetryWheels = 4

// Telemetry is the periodic status frame sent by the car. Fractional values
// travel as fixed point ×10.
type Telemetry struct {
	Uptime    uint32 // ms
	Mode      uint8
	Cursor    uint8
	Loop      uint8
	Running   bool
	Mileage10 int32 // cm ×10
	Yaw10     int32 // deg ×10
	Bitmask   uint16
	Wheels    uint8
	Speed10   [MaxTelemetryWheels]int32 // cm/s ×10
}

// Encode appends [RespTelemetry][fields...] to dst
func (t *Telemetry) Encode(dst []byte) []byte {
	dst = AppendVLQUint(dst, RespTelemetry)
	dst = AppendVLQUint(dst, t.Uptime)
	dst = AppendVLQUint(dst, uint32(t.Mode))
	dst = AppendVLQUint(dst, uint32(t.Cursor))
	dst = AppendVLQUint(dst, uint32(t.Loop))
	running := uint32(0)
	if t.Running {
		running = 1
	}
	dst = AppendVLQUint(dst, running)
	dst = AppendVLQInt(dst, t.Mileage10)
	dst = AppendVLQInt(dst, t.Yaw10)
	dst = AppendVLQUint(dst, uint32(t.Bitmask))
	wheels := t.Wheels
	if wheels > MaxTelemetryWheels {
		wheels = MaxTelemetryWheels
	}
	dst = AppendVLQUint(dst, uint32(wheels))
	for i := uint8(0); i < wheels; i++ {
		dst = AppendVLQInt(dst, t.Speed10[i])
	}
	return dst
}

// DecodeTelemetry parses the fields following the RespTelemetry id
func DecodeTelemetry(data *[]byte) (Telemetry, error) {
	var t Telemetry
	var v uint32
	var err error

	if t.Uptime, err = DecodeVLQUint(data); err != nil {
		return t, err
	}
	small := []*uint8{&t.Mode, &t.Cursor, &t.Loop}
	for _, f := range small {
		if v, err = DecodeVLQUint(data); err != nil {
			return t, err
		}
		*f = uint8(v)
	}
	if v, err = DecodeVLQUint(data); err != nil {
		return t, err
	}
	t.Running = v != 0
	if t.Mileage10, err = DecodeVLQInt(data); err != nil {
		return t, err
	}
	if t.Yaw10, err = DecodeVLQInt(data); err != nil {
		return t, err
	}
	if v, err = DecodeVLQUint(data); err != nil {
		return t, err
	}
	t.Bitmask = uint16(v)
	if v, err = DecodeVLQUint(data); err != nil {
		return t, err
	}
	if v > MaxTelemetryWheels {
		return t, ErrInvalidVLQ
	}
	t.Wheels = uint8(v)
	for i := uint8(0); i < t.Wheels; i++ {
		if t.Speed10[i], err = DecodeVLQInt(data); err != nil {
			return t, err
		}
	}
	return t, nil
}
