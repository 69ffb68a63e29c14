package nds

// The NTR/TWL cartridge header checksum is a reflected CRC-16 with
// polynomial 0xA001 and initial register 0xFFFF, no final XOR.
const (
	crcPolynomial   = 0xA001
	crcInitialValue = 0xFFFF
)

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Checksum computes the 16-bit cartridge header checksum of data. An empty
// slice yields the initial register value 0xFFFF.
func Checksum(data []byte) uint16 {
	crc := uint16(crcInitialValue)
	for _, b := range data {
		crc = (crc >> 8) ^ crcTable[byte(crc)^b]
	}
	return crc
}
