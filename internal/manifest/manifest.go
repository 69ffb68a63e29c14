package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"example.com/ndstrim/internal/common"
	"example.com/ndstrim/internal/trimmer"
)

type Item struct {
	Path                 string `json:"path"`
	OriginalSize         int64  `json:"originalSize"`
	TrimmedSize          int64  `json:"trimmedSize"`
	CertificatePreserved bool   `json:"certificatePreserved"`
	Sha256               string `json:"sha256"`
}

type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	Tool      string    `json:"tool"`
	ShaAlgo   string    `json:"shaAlgo"`
	Items     []Item    `json:"items"`
}

// Build hashes every written output and records it. Failed and simulated
// results carry no output file and are skipped.
func Build(results []trimmer.Result) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), Tool: "ndstrim", ShaAlgo: "sha256"}
	for _, r := range results {
		if r.Err != nil || r.Simulated {
			continue
		}
		hex, size, err := common.Sha256OfFile(r.OutPath)
		if err != nil {
			return m, fmt.Errorf("hash %s: %w", r.OutPath, err)
		}
		m.Items = append(m.Items, Item{
			Path:                 r.OutPath,
			OriginalSize:         r.OriginalSize,
			TrimmedSize:          size,
			CertificatePreserved: r.CertificatePreserved,
			Sha256:               hex,
		})
	}
	return m, nil
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

// Hash returns the hex sha256 of the manifest's canonical JSON encoding,
// suitable for the report QR code.
func Hash(m Manifest) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum), nil
}
