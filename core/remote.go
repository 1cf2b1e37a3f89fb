package core

import "trackcar/protocol"

// registerRemote installs the bluetooth command set
func (r *Robot) registerRemote() error {
	cmds := []struct {
		id      uint16
		name    string
		format  string
		handler CommandHandler
	}{
		{protocol.CmdPing, "ping", "", r.cmdPing},
		{protocol.CmdStart, "start", "route=%u", r.cmdStart},
		{protocol.CmdStop, "stop", "", r.cmdStop},
		{protocol.CmdSelect, "select", "route=%u", r.cmdSelect},
		{protocol.CmdByte, "byte", "value=%c", r.cmdByte},
		{protocol.CmdTrackSpeed, "track_speed", "speed_x10=%i", r.cmdTrackSpeed},
		{protocol.CmdStopMarks, "stop_marks", "count=%u", r.cmdStopMarks},
		{protocol.CmdFollow, "follow", "enable=%c", r.cmdFollow},
		{protocol.CmdIdentify, "identify", "offset=%u count=%c", r.cmdIdentify},
		{protocol.CmdEmergency, "emergency_stop", "", r.cmdEmergency},
		{protocol.CmdClearFault, "clear_shutdown", "", r.cmdClearFault},
		{protocol.RespPong, "pong", "", nil},
		{protocol.RespTelemetry, "telemetry", "uptime=%u mode=%c ...", nil},
		{protocol.RespByte, "byte_out", "value=%c", nil},
		{protocol.RespIdentify, "identify_response", "offset=%u data=%*s", nil},
		{protocol.RespShutdown, "shutdown", "reason=%*s", nil},
	}
	for _, c := range cmds {
		if err := r.Remote.Register(c.id, c.name, c.format, c.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandlePacket is the link packet handler
func (r *Robot) HandlePacket(payload []byte) error {
	err := r.Remote.HandlePacket(payload)
	if err != nil {
		Warnln("remote: " + err.Error())
	}
	return err
}

func (r *Robot) cmdPing(data *[]byte) error {
	if r.reply == nil {
		return nil
	}
	return r.reply(protocol.AppendVLQUint(nil, protocol.RespPong))
}

func (r *Robot) cmdStart(data *[]byte) error {
	route, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return r.StartRoute(int(route))
}

func (r *Robot) cmdStop(data *[]byte) error {
	r.StopMission()
	return nil
}

func (r *Robot) cmdSelect(data *[]byte) error {
	route, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return r.Select(int(route))
}

func (r *Robot) cmdByte(data *[]byte) error {
	b, err := protocol.DecodeByte(data)
	if err != nil {
		return err
	}
	r.PutByte(b)
	return nil
}

func (r *Robot) cmdTrackSpeed(data *[]byte) error {
	v, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	r.Car.SetDefaultTrackSpeed(float32(v) / 10)
	return nil
}

func (r *Robot) cmdStopMarks(data *[]byte) error {
	n, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	r.Car.SetStopMarkCount(int(n))
	return nil
}

func (r *Robot) cmdFollow(data *[]byte) error {
	b, err := protocol.DecodeByte(data)
	if err != nil {
		return err
	}
	r.Car.SetFollow(b != 0)
	return nil
}
