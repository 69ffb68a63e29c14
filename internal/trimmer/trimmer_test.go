package trimmer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"example.com/ndstrim/internal/common"
	"example.com/ndstrim/internal/nds"
	"example.com/ndstrim/internal/samples"
)

func writeSample(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", name, err)
	}
	return path
}

func TestProcessCopiesCertificateImage(t *testing.T) {
	dir := t.TempDir()
	data := samples.WithCertificate(samples.DefaultDeclaredSize)
	path := writeSample(t, dir, "game.nds", data)

	res := Process(path, Options{})
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if !res.CertificatePreserved {
		t.Fatal("certificate not preserved")
	}
	want := filepath.Join(dir, "game.trim.nds")
	if res.OutPath != want {
		t.Fatalf("OutPath = %s, want %s", res.OutPath, want)
	}
	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("Stat output: %v", err)
	}
	if info.Size() != res.TrimmedSize {
		t.Fatalf("output size = %d, want %d", info.Size(), res.TrimmedSize)
	}
	if res.TrimmedSize != int64(samples.DefaultDeclaredSize)+nds.CertificateSize {
		t.Fatalf("TrimmedSize = %#x", res.TrimmedSize)
	}
}

func TestProcessSimulateWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "game.nds", samples.WithCertificate(samples.DefaultDeclaredSize))

	res := Process(path, Options{Simulate: true})
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if !res.Simulated {
		t.Fatal("result not marked simulated")
	}
	if _, err := os.Stat(res.OutPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("simulate created %s", res.OutPath)
	}
}

func TestProcessInPlaceIdempotent(t *testing.T) {
	dir := t.TempDir()
	data := samples.NTRImage(samples.DefaultDeclaredSize, samples.DefaultDeclaredSize)
	path := writeSample(t, dir, "game.nds", data)

	res := Process(path, Options{InPlace: true})
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if res.OutPath != path {
		t.Fatalf("OutPath = %s, want source path", res.OutPath)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != int64(len(data)) {
		t.Fatalf("in-place size = %d, want %d", info.Size(), len(data))
	}
}

func TestProcessRefusesPaddedTail(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "padded.nds",
		samples.NTRImage(samples.DefaultDeclaredSize, samples.DefaultDeclaredSize+0x800))

	res := Process(path, Options{})
	if !errors.Is(res.Err, nds.ErrUnrecognizedTrailer) {
		t.Fatalf("Process = %v, want ErrUnrecognizedTrailer", res.Err)
	}
	if res.Error == "" {
		t.Fatal("Error string not populated for reporting")
	}
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeSample(t, dir, "good.nds", samples.WithCertificate(samples.DefaultDeclaredSize))
	corrupt := samples.NTRImage(samples.DefaultDeclaredSize, samples.DefaultDeclaredSize)
	samples.CorruptChecksum(corrupt)
	bad := writeSample(t, dir, "bad.nds", corrupt)
	missing := filepath.Join(dir, "missing.nds")

	metrics := common.NewMetrics()
	results := ProcessAll([]string{good, bad, missing}, Options{Concurrency: 2, Metrics: metrics})
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("good file failed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, nds.ErrChecksumMismatch) {
		t.Fatalf("bad file: %v, want ErrChecksumMismatch", results[1].Err)
	}
	if results[2].Err == nil {
		t.Fatal("missing file did not fail")
	}

	snap := metrics.Snapshot()
	if snap.Files != 1 || snap.Failures != 2 {
		t.Fatalf("metrics files=%d failures=%d, want 1 and 2", snap.Files, snap.Failures)
	}
	if snap.Certificates != 1 {
		t.Fatalf("metrics certificates = %d, want 1", snap.Certificates)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		path      string
		extension string
		want      string
	}{
		{path: "foo.nds", extension: "", want: "foo.trim.nds"},
		{path: "foo.nds", extension: "out.nds", want: "foo.out.nds"},
		{path: "foo.nds", extension: ".out.nds", want: "foo.out.nds"},
		{path: filepath.Join("a", "b.nds"), extension: "", want: filepath.Join("a", "b.trim.nds")},
		{path: "noext", extension: "", want: "noext.trim.nds"},
	}
	for _, tc := range tests {
		if got := OutputPath(tc.path, tc.extension); got != tc.want {
			t.Fatalf("OutputPath(%q, %q) = %q, want %q", tc.path, tc.extension, got, tc.want)
		}
	}
}

// The strategies execute whatever plan they are handed; the engine decides,
// the boundary only moves bytes.
func TestStrategiesHonorPlan(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	src := writeSample(t, dir, "src.bin", data)
	plan := nds.TrimPlan{KeepBytes: 60}

	dest := filepath.Join(dir, "dest.bin")
	if err := WriteCopy(src, dest, plan); err != nil {
		t.Fatalf("WriteCopy: %v", err)
	}
	out, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile dest: %v", err)
	}
	if len(out) != 60 {
		t.Fatalf("dest length = %d, want 60", len(out))
	}
	for i, b := range out {
		if b != byte(i) {
			t.Fatalf("dest[%d] = %#02x, want %#02x", i, b, byte(i))
		}
	}

	if err := Truncate(src, plan); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		t.Fatalf("Stat src: %v", err)
	}
	if info.Size() != 60 {
		t.Fatalf("src length = %d, want 60", info.Size())
	}
}
