package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"example.com/ndstrim/internal/trimmer"
)

func sampleResults() []trimmer.Result {
	failed := trimmer.Result{Path: "bad.nds", OriginalSize: 0x1000}
	failed.Err = errors.New("header checksum mismatch")
	failed.Error = failed.Err.Error()
	return []trimmer.Result{
		{Path: "a.nds", OutPath: "a.trim.nds", OriginalSize: 0x9000, TrimmedSize: 0x9000, CertificatePreserved: true},
		{Path: "b.nds", OutPath: "b.trim.nds", OriginalSize: 0x8000, TrimmedSize: 0x8000},
		failed,
	}
}

func TestBuildSummary(t *testing.T) {
	rep := Build(sampleResults())
	s := rep.Summary
	if s.Files != 3 || s.Failed != 1 || s.CertificatesPreserved != 1 || s.Minimal != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.BytesReclaimed != 0 {
		t.Fatalf("BytesReclaimed = %d, want 0", s.BytesReclaimed)
	}
}

func TestSaveLoadJSON(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	rep := Build(sampleResults())
	if err := SaveJSON(rep, out); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	loaded, err := LoadJSON(out)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if loaded.Summary != rep.Summary {
		t.Fatalf("summary roundtrip: %+v vs %+v", loaded.Summary, rep.Summary)
	}
	if len(loaded.Results) != len(rep.Results) {
		t.Fatalf("results roundtrip: %d vs %d", len(loaded.Results), len(rep.Results))
	}
	if loaded.Results[2].Error == "" {
		t.Fatal("failure reason lost in roundtrip")
	}
}

// Failure reasons reach the PDF through the serialized Error string; the Err
// field is dropped by SaveJSON, so a loaded report must still render failed
// files as failures.
func TestPDFStatusAfterJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	rep := Build(sampleResults())
	if err := SaveJSON(rep, out); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	loaded, err := LoadJSON(out)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}

	failed := loaded.Results[2]
	if failed.Err != nil {
		t.Fatalf("Err survived serialization: %v", failed.Err)
	}
	if got := statusLabel(failed); got != "header checksum mismatch" {
		t.Fatalf("status = %q, want the failure reason", got)
	}
	if got := statusLabel(loaded.Results[0]); got != "ok" {
		t.Fatalf("status = %q, want ok", got)
	}

	pdfPath := filepath.Join(dir, "report.pdf")
	if err := SaveTrimPDF(loaded, pdfPath, ""); err != nil {
		t.Fatalf("SaveTrimPDF: %v", err)
	}
	info, err := os.Stat(pdfPath)
	if err != nil {
		t.Fatalf("Stat pdf: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("empty PDF written")
	}
}

func TestNDJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)
	for _, r := range sampleResults() {
		if err := w.WriteResult(r); err != nil {
			t.Fatalf("WriteResult: %v", err)
		}
	}
	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var r trimmer.Result
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		lines++
	}
	if lines != 3 {
		t.Fatalf("got %d NDJSON lines, want 3", lines)
	}
}

func TestManifestHashToQR(t *testing.T) {
	png, err := ManifestHashToQR("deadbeefcafe0123", 128)
	if err != nil {
		t.Fatalf("ManifestHashToQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}
	if _, err := ManifestHashToQR("   ", 128); err == nil {
		t.Fatal("empty hash accepted")
	}
}
