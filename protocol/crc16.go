package protocol

// crc16Update folds one byte into a running CCITT CRC (Klipper variant)
func crc16Update(crc uint16, b byte) uint16 {
	b ^= byte(crc)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
}

// CRC16 returns the checksum over data, seeded with 0xFFFF
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc16Update(crc, b)
	}
	return crc
}
