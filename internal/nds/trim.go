package nds

import (
	"errors"
	"fmt"
)

// CertificateSize is the fixed length of the download-play authentication
// certificate block some titles append immediately after the declared ROM
// contents.
const CertificateSize = 0x1000

var (
	ErrChecksumMismatch    = errors.New("header checksum mismatch")
	ErrUnrecognizedTrailer = errors.New("unrecognized trailing data after ROM contents")
)

// CertificateInfo describes whether a trailing certificate block follows the
// declared ROM contents.
type CertificateInfo struct {
	Present bool
	Size    int64
}

// TrimPlan is the byte range to retain for one image. It is the only state
// the engine hands to the I/O layer.
type TrimPlan struct {
	KeepBytes            int64
	CertificatePreserved bool
}

// DetectCertificate decides whether the fixed-size certificate block sits
// between the declared ROM contents and the end of the file. Detection is an
// exact tail-size match; tails of any other positive length are left for
// PlanTrim to refuse.
func DetectCertificate(fileSize, declared int64) CertificateInfo {
	if fileSize-declared == CertificateSize {
		return CertificateInfo{Present: true, Size: CertificateSize}
	}
	return CertificateInfo{}
}

// PlanTrim computes the number of bytes of data worth keeping.
//
// The header checksum must match before the declared size is trusted. A tail
// exactly one certificate block long is kept together with the ROM contents;
// a zero tail trims to the declared size; any other tail is refused rather
// than guessed at. Images at or below their declared size are already
// minimal and yield a no-op plan, so trimming is idempotent.
func PlanTrim(data []byte) (TrimPlan, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return TrimPlan{}, err
	}
	computed := Checksum(data[:checksumRegionLen])
	if computed != hdr.StoredChecksum {
		return TrimPlan{}, fmt.Errorf("%w: stored %#06x, computed %#06x", ErrChecksumMismatch, hdr.StoredChecksum, computed)
	}

	fileSize := int64(len(data))
	declared := hdr.DeclaredSize()
	cert := DetectCertificate(fileSize, declared)
	switch tail := fileSize - declared; {
	case tail <= 0:
		// Nothing past the declared contents to remove.
		return TrimPlan{KeepBytes: fileSize}, nil
	case cert.Present:
		return TrimPlan{KeepBytes: declared + cert.Size, CertificatePreserved: true}, nil
	default:
		return TrimPlan{}, fmt.Errorf("%w: %d bytes past declared size %d", ErrUnrecognizedTrailer, tail, declared)
	}
}
