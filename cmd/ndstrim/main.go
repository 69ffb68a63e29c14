package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"example.com/ndstrim/internal/common"
	"example.com/ndstrim/internal/manifest"
	"example.com/ndstrim/internal/nds"
	"example.com/ndstrim/internal/report"
	"example.com/ndstrim/internal/trimmer"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch cmd := os.Args[1]; cmd {
	case "trim":
		trimCmd(os.Args[2:])
	case "info":
		infoCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "version":
		fmt.Printf("ndstrim %s (built %s)\n", version, buildDate)
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`ndstrim %s (built %s) <command> [options]

Commands:
  trim    [--config <ndstrim.yaml>] [--ext <extension>] [--inplace] [--simulate] [--concurrency n] [--metrics] [--progress] [--manifest <out.json>] [--report <out.json>] [--ndjson <out.jsonl>] [--pdf <out.pdf>] file...
  info    file...
  report  --in <report.json> [--manifest <manifest.json>] --pdf <out.pdf>
  version
`, version, buildDate)
}

func configureLogs(cfg logConfig) {
	if cfg.Directory == "" {
		return
	}
	common.SetLogOutput(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, "ndstrim.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
}

func trimCmd(args []string) {
	fs := flag.NewFlagSet("trim", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	ext := fs.String("ext", "", "extension for trimmed copies")
	inplace := fs.Bool("inplace", false, "truncate files in place")
	simulate := fs.Bool("simulate", false, "compute plans without writing")
	concurrency := fs.Int("concurrency", 0, "maximum files processed at once")
	metricsFlag := fs.Bool("metrics", false, "print throughput metrics")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	manifestOut := fs.String("manifest", "", "write a sha256 manifest of outputs")
	reportOut := fs.String("report", "", "write a batch report JSON")
	ndjsonOut := fs.String("ndjson", "", "write per-file results as NDJSON")
	pdfOut := fs.String("pdf", "", "write a batch report PDF")
	fs.Parse(args)

	files := fs.Args()
	if len(files) == 0 {
		fmt.Println("required: at least one ROM file")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}
	configureLogs(cfg.Logs)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["ext"] {
		cfg.Extension = *ext
	}
	if set["inplace"] {
		cfg.InPlace = *inplace
	}
	if set["concurrency"] {
		cfg.Concurrency = *concurrency
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		var total int64
		for _, f := range files {
			if info, err := os.Stat(f); err == nil {
				total += info.Size()
			}
		}
		metrics.SetTotalBytes(total)
	}

	opts := trimmer.Options{
		Extension:   cfg.Extension,
		InPlace:     cfg.InPlace,
		Simulate:    *simulate,
		Concurrency: cfg.Concurrency,
		Metrics:     metrics,
	}

	if metrics != nil {
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	results := trimmer.ProcessAll(files, opts)
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "'%s': %v\n", r.Path, r.Err)
			continue
		}
		fmt.Printf("'%s': size reduced from %d to %d\n", r.OutPath, r.OriginalSize, r.TrimmedSize)
	}

	if *reportOut != "" || *pdfOut != "" || *ndjsonOut != "" || *manifestOut != "" {
		writeOutputs(results, *reportOut, *ndjsonOut, *manifestOut, *pdfOut)
	}

	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		throughput := snap.ThroughputBytesPerSecond() / 1_000_000
		fmt.Printf("Metrics: duration=%s files=%d failures=%d scanned=%s reclaimed=%s certificates=%d throughput=%.2f MB/s\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Files,
			snap.Failures,
			common.FormatBytes(snap.Bytes),
			common.FormatBytes(snap.Reclaimed),
			snap.Certificates,
			throughput,
		)
	}

	if failed == len(results) {
		os.Exit(1)
	}
}

func writeOutputs(results []trimmer.Result, reportOut, ndjsonOut, manifestOut, pdfOut string) {
	rep := report.Build(results)
	if reportOut != "" {
		if err := report.SaveJSON(rep, reportOut); err != nil {
			common.Fatalf("write report: %v", err)
		}
	}
	if ndjsonOut != "" {
		if err := report.SaveNDJSON(results, ndjsonOut); err != nil {
			common.Fatalf("write ndjson: %v", err)
		}
	}
	hash := ""
	if manifestOut != "" {
		m, err := manifest.Build(results)
		if err != nil {
			common.Fatalf("build manifest: %v", err)
		}
		if err := manifest.Save(m, manifestOut); err != nil {
			common.Fatalf("write manifest: %v", err)
		}
		if hash, err = manifest.Hash(m); err != nil {
			common.Fatalf("hash manifest: %v", err)
		}
	}
	if pdfOut != "" {
		if err := report.SaveTrimPDF(rep, pdfOut, hash); err != nil {
			common.Fatalf("write pdf: %v", err)
		}
	}
}

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)
	files := fs.Args()
	if len(files) == 0 {
		fmt.Println("required: at least one ROM file")
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "'%s': %v\n", path, err)
			continue
		}
		hdr, err := nds.ParseHeader(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "'%s': %v\n", path, err)
			continue
		}
		fmt.Fprintf(w, "%s\n", path)
		fmt.Fprintf(w, "\ttitle\t%s\n", hdr.GameTitle)
		fmt.Fprintf(w, "\tgame code\t%s\n", hdr.GameCode)
		fmt.Fprintf(w, "\tmaker\t%s\n", hdr.MakerCode)
		fmt.Fprintf(w, "\tunit code\t%#02x\n", hdr.UnitCode)
		fmt.Fprintf(w, "\tfile size\t%s\n", common.FormatBytes(int64(len(data))))
		fmt.Fprintf(w, "\tdeclared size\t%s\n", common.FormatBytes(hdr.DeclaredSize()))
		fmt.Fprintf(w, "\tlogo\t%s\n", validLabel(hdr.LogoValid(data)))
		plan, err := nds.PlanTrim(data)
		if err != nil {
			fmt.Fprintf(w, "\tplan\trefused: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "\tkeep\t%d bytes\n", plan.KeepBytes)
		fmt.Fprintf(w, "\tcertificate\t%v\n", plan.CertificatePreserved)
	}
	w.Flush()
}

func validLabel(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	in := fs.String("in", "", "batch report JSON")
	manifestPath := fs.String("manifest", "", "manifest JSON to fingerprint in the QR code")
	pdfOut := fs.String("pdf", "", "output PDF")
	fs.Parse(args)

	if *in == "" || *pdfOut == "" {
		fmt.Println("required: --in and --pdf")
		os.Exit(1)
	}
	rep, err := report.LoadJSON(*in)
	if err != nil {
		fmt.Println("load report:", err)
		os.Exit(1)
	}
	hash := ""
	if *manifestPath != "" {
		hex, _, err := common.Sha256OfFile(*manifestPath)
		if err != nil {
			fmt.Println("hash manifest:", err)
			os.Exit(1)
		}
		hash = hex
	}
	if err := report.SaveTrimPDF(rep, *pdfOut, hash); err != nil {
		fmt.Println("write pdf:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *pdfOut)
}
