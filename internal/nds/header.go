package nds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Fixed offsets within the cartridge header. Multi-byte fields are
// little-endian, the format's native byte order.
const (
	offGameTitle      = 0x000
	gameTitleLen      = 12
	offGameCode       = 0x00C
	gameCodeLen       = 4
	offMakerCode      = 0x010
	makerCodeLen      = 2
	offUnitCode       = 0x012
	offNTRRomSize     = 0x080
	offHeaderSize     = 0x084
	offLogo           = 0x0C0
	logoLen           = 0x09C
	offLogoChecksum   = 0x15C
	offHeaderChecksum = 0x15E

	// NTRHeaderSize is the smallest header region a processable image can
	// carry. The stored header checksum covers every byte before itself.
	NTRHeaderSize     = 0x200
	checksumRegionLen = offHeaderChecksum

	offTWLRomSize = 0x210
	twlFieldsEnd  = offTWLRomSize + 4

	// logoChecksum is the fixed checksum of the logo region on licensed
	// cartridges.
	logoChecksum = 0xCF56
)

// Unit codes at offset 0x12.
const (
	UnitNTR    = 0x00
	UnitHybrid = 0x02
	UnitTWL    = 0x03
)

var ErrTooShort = errors.New("image smaller than cartridge header")

// Header is a structured view of the fixed-layout cartridge header. Only the
// scalar fields below are copied out; the backing image is never duplicated.
type Header struct {
	GameTitle string
	GameCode  string
	MakerCode string
	UnitCode  uint8

	// NTRRomSize is the used-ROM byte count declared for NTR cartridges.
	NTRRomSize uint32
	// TWLRomSize is the used-ROM byte count declared for hybrid and
	// TWL-only cartridges. Zero on NTR-only images.
	TWLRomSize uint32

	HeaderSize     uint32
	LogoChecksum   uint16
	StoredChecksum uint16
}

// ParseHeader extracts the header fields from the start of a cartridge
// image. It performs no checksum validation; callers compare Checksum over
// the checksum region against StoredChecksum.
func ParseHeader(data []byte) (Header, error) {
	var hdr Header
	if len(data) < NTRHeaderSize {
		return hdr, fmt.Errorf("%w: %d bytes, need %#x", ErrTooShort, len(data), NTRHeaderSize)
	}
	hdr.GameTitle = trimPadding(data[offGameTitle : offGameTitle+gameTitleLen])
	hdr.GameCode = trimPadding(data[offGameCode : offGameCode+gameCodeLen])
	hdr.MakerCode = trimPadding(data[offMakerCode : offMakerCode+makerCodeLen])
	hdr.UnitCode = data[offUnitCode]
	hdr.NTRRomSize = binary.LittleEndian.Uint32(data[offNTRRomSize:])
	hdr.HeaderSize = binary.LittleEndian.Uint32(data[offHeaderSize:])
	hdr.LogoChecksum = binary.LittleEndian.Uint16(data[offLogoChecksum:])
	hdr.StoredChecksum = binary.LittleEndian.Uint16(data[offHeaderChecksum:])
	if hdr.UnitCode != UnitNTR {
		if len(data) < twlFieldsEnd {
			return Header{}, fmt.Errorf("%w: %d bytes, unit code %#02x needs %#x", ErrTooShort, len(data), hdr.UnitCode, twlFieldsEnd)
		}
		hdr.TWLRomSize = binary.LittleEndian.Uint32(data[offTWLRomSize:])
	}
	return hdr, nil
}

// DeclaredSize returns the used-ROM byte count the cartridge firmware
// trusts: the TWL field for hybrid and TWL-only units, the NTR field
// otherwise.
func (h Header) DeclaredSize() int64 {
	if h.UnitCode != UnitNTR {
		return int64(h.TWLRomSize)
	}
	return int64(h.NTRRomSize)
}

// LogoValid reports whether the logo region of the image carries the fixed
// licensed-cartridge checksum. Informational; a trim never depends on it.
func (h Header) LogoValid(data []byte) bool {
	if len(data) < offLogo+logoLen {
		return false
	}
	return Checksum(data[offLogo:offLogo+logoLen]) == logoChecksum
}

func trimPadding(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}
