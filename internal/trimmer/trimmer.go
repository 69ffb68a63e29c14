package trimmer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"example.com/ndstrim/internal/common"
	"example.com/ndstrim/internal/nds"
)

// DefaultExtension replaces the source extension on copy-mode outputs.
const DefaultExtension = "trim.nds"

// Options control how computed plans are executed. The zero value writes
// sibling copies with DefaultExtension at NumCPU concurrency.
type Options struct {
	// Extension for copy-mode output files, without the leading dot.
	Extension string
	// InPlace truncates the source file instead of writing a copy.
	InPlace bool
	// Simulate computes and reports plans without touching any file.
	Simulate bool
	// Concurrency caps how many files are processed at once.
	Concurrency int

	Metrics *common.Metrics
}

// Result records the outcome for a single file. Exactly one of OutPath and
// Error is meaningful.
type Result struct {
	Path                 string `json:"path"`
	OutPath              string `json:"outPath,omitempty"`
	OriginalSize         int64  `json:"originalSize"`
	TrimmedSize          int64  `json:"trimmedSize"`
	CertificatePreserved bool   `json:"certificatePreserved"`
	Simulated            bool   `json:"simulated,omitempty"`
	Error                string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Reclaimed returns how many bytes the trim removed, zero for failures and
// already-minimal images.
func (r Result) Reclaimed() int64 {
	if r.Err != nil || r.TrimmedSize > r.OriginalSize {
		return 0
	}
	return r.OriginalSize - r.TrimmedSize
}

func (r Result) fail(err error) Result {
	r.Err = err
	r.Error = err.Error()
	return r
}

// OutputPath swaps the extension of path for the given one, mirroring how
// authoring tools name trimmed dumps.
func OutputPath(path, extension string) string {
	if extension == "" {
		extension = DefaultExtension
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + strings.TrimPrefix(extension, ".")
}

// Truncate shrinks the file at path in place to the planned length. This is
// irreversible.
func Truncate(path string, plan nds.TrimPlan) error {
	return os.Truncate(path, plan.KeepBytes)
}

// WriteCopy writes the first plan.KeepBytes bytes of src to dest, leaving
// src untouched.
func WriteCopy(src, dest string, plan nds.TrimPlan) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(out, in, plan.KeepBytes); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dest, err)
	}
	return out.Close()
}

// Process plans and executes the trim for one file.
func Process(path string, opts Options) Result {
	res := Result{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return record(opts, res.fail(err))
	}
	res.OriginalSize = int64(len(data))

	plan, err := nds.PlanTrim(data)
	if err != nil {
		return record(opts, res.fail(err))
	}
	res.TrimmedSize = plan.KeepBytes
	res.CertificatePreserved = plan.CertificatePreserved

	if opts.InPlace {
		res.OutPath = path
	} else {
		res.OutPath = OutputPath(path, opts.Extension)
	}
	if opts.Simulate {
		res.Simulated = true
		return record(opts, res)
	}

	if opts.InPlace {
		if plan.KeepBytes < res.OriginalSize {
			err = Truncate(path, plan)
		}
	} else {
		err = WriteCopy(path, res.OutPath, plan)
	}
	if err != nil {
		return record(opts, res.fail(err))
	}
	return record(opts, res)
}

// ProcessAll runs Process over independent files with a fixed worker pool.
// Per-file failures are reported in the results and never abort the batch.
func ProcessAll(paths []string, opts Options) []Result {
	if len(paths) == 0 {
		return nil
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]Result, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = Process(paths[i], opts)
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func record(opts Options, res Result) Result {
	if opts.Metrics == nil {
		return res
	}
	if res.Err != nil {
		opts.Metrics.AddFailure()
		return res
	}
	opts.Metrics.AddFile(res.OriginalSize, res.Reclaimed(), res.CertificatePreserved)
	return res
}
