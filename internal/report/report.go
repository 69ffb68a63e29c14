package report

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"example.com/ndstrim/internal/trimmer"
)

type Summary struct {
	Files                 int   `json:"files"`
	Minimal               int   `json:"minimal"`
	CertificatesPreserved int   `json:"certificatesPreserved"`
	Failed                int   `json:"failed"`
	BytesReclaimed        int64 `json:"bytesReclaimed"`
}

type BatchReport struct {
	CreatedAt time.Time        `json:"createdAt"`
	Simulated bool             `json:"simulated,omitempty"`
	Summary   Summary          `json:"summary"`
	Results   []trimmer.Result `json:"results"`
}

// Build summarizes one batch run.
func Build(results []trimmer.Result) BatchReport {
	rep := BatchReport{CreatedAt: time.Now().UTC(), Results: results}
	for _, r := range results {
		rep.Summary.Files++
		if r.Simulated {
			rep.Simulated = true
		}
		if r.Err != nil {
			rep.Summary.Failed++
			continue
		}
		if r.TrimmedSize >= r.OriginalSize {
			rep.Summary.Minimal++
		}
		if r.CertificatePreserved {
			rep.Summary.CertificatesPreserved++
		}
		rep.Summary.BytesReclaimed += r.Reclaimed()
	}
	return rep
}

func SaveJSON(rep BatchReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

func LoadJSON(path string) (BatchReport, error) {
	var rep BatchReport
	data, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// NDJSONWriter streams newline-delimited JSON objects to the underlying
// writer, one per processed file.
type NDJSONWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{writer: w}
}

// WriteResult marshals the result and writes it as a single NDJSON record.
func (w *NDJSONWriter) WriteResult(r trimmer.Result) error {
	return w.WriteObject(r)
}

func (w *NDJSONWriter) WriteObject(v any) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	_, err = w.writer.Write([]byte("\n"))
	return err
}

// SaveNDJSON writes every result to path as newline-delimited JSON.
func SaveNDJSON(results []trimmer.Result, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	w := NewNDJSONWriter(f)
	for _, r := range results {
		if err := w.WriteResult(r); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
