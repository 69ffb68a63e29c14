// Package samples builds deterministic synthetic cartridge images for tests
// and the sample generator.
package samples

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"example.com/ndstrim/internal/nds"
)

// Header field offsets duplicated here so the builders stay independent of
// the engine's unexported layout constants.
const (
	offGameTitle      = 0x000
	offGameCode       = 0x00C
	offMakerCode      = 0x010
	offUnitCode       = 0x012
	offNTRRomSize     = 0x080
	offHeaderSize     = 0x084
	offLogo           = 0x0C0
	logoLen           = 0x09C
	offLogoChecksum   = 0x15C
	offHeaderChecksum = 0x15E
	offTWLRomSize     = 0x210

	fixedLogoChecksum = 0xCF56
)

// File names exposed for generator consumers.
const (
	PlainFileName     = "plain.nds"
	CertFileName      = "downloadplay.nds"
	PaddedFileName    = "padded.nds"
	CorruptedFileName = "corrupted.nds"
)

// DefaultDeclaredSize is the used-ROM size the generated samples declare.
const DefaultDeclaredSize = 0x8000

// Image builds a synthetic cartridge image with a valid header checksum.
// unitCode selects the NTR or TWL size field, declared is the used-ROM size
// the header declares and fileSize is the total on-disk length.
func Image(unitCode uint8, declared uint32, fileSize int64) []byte {
	data := make([]byte, fileSize)
	copy(data[offGameTitle:], "NDSTRIM SAMP")
	copy(data[offGameCode:], "ATRP")
	copy(data[offMakerCode:], "01")
	data[offUnitCode] = unitCode
	binary.LittleEndian.PutUint32(data[offHeaderSize:], 0x4000)
	for i := 0; i < logoLen; i++ {
		data[offLogo+i] = byte(i ^ 0x5A)
	}
	forgeLogo(data)
	binary.LittleEndian.PutUint16(data[offLogoChecksum:], fixedLogoChecksum)
	binary.LittleEndian.PutUint32(data[offNTRRomSize:], declared)
	if unitCode != nds.UnitNTR {
		binary.LittleEndian.PutUint32(data[offTWLRomSize:], declared)
	}
	// Deterministic payload past the header region.
	for i := int64(nds.NTRHeaderSize); i < int64(declared) && i < fileSize; i++ {
		data[i] = byte(i * 7)
	}
	Reseal(data)
	return data
}

// NTRImage builds an NTR-only image.
func NTRImage(declared uint32, fileSize int64) []byte {
	return Image(nds.UnitNTR, declared, fileSize)
}

// WithCertificate builds an NTR image whose tail is exactly one
// download-play certificate block.
func WithCertificate(declared uint32) []byte {
	data := Image(nds.UnitNTR, declared, int64(declared)+nds.CertificateSize)
	for i := int64(declared); i < int64(len(data)); i++ {
		data[i] = byte(i * 13)
	}
	return data
}

// forgeLogo adjusts the last two logo bytes until the region hashes to the
// licensed checksum, so generated samples validate like real dumps.
func forgeLogo(data []byte) {
	for hi := 0; hi < 256; hi++ {
		for lo := 0; lo < 256; lo++ {
			data[offLogo+logoLen-2] = byte(hi)
			data[offLogo+logoLen-1] = byte(lo)
			if nds.Checksum(data[offLogo:offLogo+logoLen]) == fixedLogoChecksum {
				return
			}
		}
	}
}

// Reseal recomputes the stored header checksum after the header bytes have
// been edited.
func Reseal(data []byte) {
	binary.LittleEndian.PutUint16(data[offHeaderChecksum:], nds.Checksum(data[:offHeaderChecksum]))
}

// CorruptChecksum flips the stored header checksum so validation must fail.
func CorruptChecksum(data []byte) {
	data[offHeaderChecksum] ^= 0xFF
}

// WriteFiles writes the four canonical samples into dir: a minimal image,
// one carrying a certificate block, one with an unexplained padded tail the
// planner refuses, and one with a corrupted header checksum.
func WriteFiles(dir string) error {
	files := map[string][]byte{
		PlainFileName:  NTRImage(DefaultDeclaredSize, DefaultDeclaredSize),
		CertFileName:   WithCertificate(DefaultDeclaredSize),
		PaddedFileName: NTRImage(DefaultDeclaredSize, DefaultDeclaredSize+0x800),
	}
	corrupted := NTRImage(DefaultDeclaredSize, DefaultDeclaredSize)
	CorruptChecksum(corrupted)
	files[CorruptedFileName] = corrupted

	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
