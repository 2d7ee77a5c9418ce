package parser

import "github.com/sigurn/crc8"

// CRC-8 poly 0x07, init 0x00, MSB first, no final xor.
var crc8Table = crc8.MakeTable(crc8.CRC8)

func CRC8(data []byte) uint8 {
	return crc8.Checksum(data, crc8Table)
}
