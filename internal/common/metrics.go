package common

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
)

type Metrics struct {
	mu           sync.Mutex
	start        time.Time
	end          time.Time
	files        int64
	failures     int64
	bytes        int64
	totalBytes   int64
	reclaimed    int64
	certificates int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// AddFile records one processed image: its on-disk size, the bytes the trim
// reclaimed and whether a certificate block was preserved.
func (m *Metrics) AddFile(size, reclaimed int64, certificate bool) {
	if size < 0 {
		return
	}
	m.mu.Lock()
	m.files++
	m.bytes += size
	if reclaimed > 0 {
		m.reclaimed += reclaimed
	}
	if certificate {
		m.certificates++
	}
	m.mu.Unlock()
}

func (m *Metrics) AddFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *Metrics) SetTotalBytes(total int64) {
	if total < 0 {
		total = 0
	}
	m.mu.Lock()
	m.totalBytes = total
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Duration:     m.elapsedLocked(),
		Files:        m.files,
		Failures:     m.failures,
		Bytes:        m.bytes,
		TotalBytes:   m.totalBytes,
		Reclaimed:    m.reclaimed,
		Certificates: m.certificates,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration     time.Duration
	Files        int64
	Failures     int64
	Bytes        int64
	TotalBytes   int64
	Reclaimed    int64
	Certificates int64
}

func (s MetricsSnapshot) ThroughputBytesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

func (s MetricsSnapshot) Completion() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	ratio := float64(s.Bytes) / float64(s.TotalBytes)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div := float64(unit)
	exp := 0
	for n := float64(b) / div; n >= unit && exp < 6; n /= unit {
		div *= unit
		exp++
	}
	prefixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.2f %s", float64(b)/div, prefixes[exp])
}

func formatProgressLine(s MetricsSnapshot) string {
	throughput := s.ThroughputBytesPerSecond() / (1024 * 1024)
	if s.TotalBytes > 0 {
		pct := s.Completion() * 100
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			pct = 0
		}
		return fmt.Sprintf("Progress: %6.2f%% (%s / %s) reclaimed %s %.2f MiB/s",
			pct, FormatBytes(s.Bytes), FormatBytes(s.TotalBytes), FormatBytes(s.Reclaimed), throughput)
	}
	return fmt.Sprintf("Processed: %s reclaimed %s %.2f MiB/s", FormatBytes(s.Bytes), FormatBytes(s.Reclaimed), throughput)
}

func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if m == nil || w == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastLen := 0
		for {
			select {
			case <-ticker.C:
				line := formatProgressLine(m.Snapshot())
				pad := lastLen - len(line)
				if pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				fmt.Fprintf(w, "\r%s", line)
				lastLen = len(line)
			case <-done:
				if lastLen > 0 {
					fmt.Fprintf(w, "\r%s\r\n", strings.Repeat(" ", lastLen))
				}
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
