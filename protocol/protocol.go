// Package protocol implements the wire formats of the car: the framed
// bluetooth link, the camera text messages and the telemetry payload.
package protocol

// Version represents the link protocol version
const Version = "1.0.0"

// Link framing
const (
	PacketMax       = 64 // whole packet including header and trailer
	PacketHeader    = 2  // length, sequence
	PacketTrailer   = 3  // crc16 hi, crc16 lo, sync
	PacketMin       = PacketHeader + PacketTrailer
	PayloadMax      = PacketMax - PacketMin
	PacketSync      = 0x7E
	PacketSeqMask   = 0x0F
	PacketDirToCar  = 0x10 // sequence high nibble of host -> car packets
	PacketDirToHost = 0x20 // sequence high nibble of car -> host packets
)

// Command ids carried as the first VLQ of a payload
const (
	CmdPing       = 0 // reply RespPong
	CmdStart      = 1 // route=%u
	CmdStop       = 2
	CmdSelect     = 3 // route=%u
	CmdByte       = 4 // value=%c
	CmdTrackSpeed = 5 // speed_x10=%i
	CmdStopMarks  = 6 // count=%u
	CmdFollow     = 7 // enable=%c
	CmdIdentify   = 8 // offset=%u count=%c
	CmdEmergency  = 9
	CmdClearFault = 10

	RespPong      = 16
	RespTelemetry = 17 // see Telemetry
	RespByte      = 18 // value=%c
	RespIdentify  = 19 // offset=%u data=%*s
	RespShutdown  = 20 // reason=%*s
)

// IdentifyChunk is the dictionary chunk size the host asks for; it keeps a
// RespIdentify inside one packet
const IdentifyChunk = 40
