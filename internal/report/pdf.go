package report

import (
	"bytes"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"example.com/ndstrim/internal/common"
	"example.com/ndstrim/internal/trimmer"
)

// SaveTrimPDF renders the batch report into a PDF document. When
// manifestHash is non-empty a QR code of the hash is appended so the
// manifest can be cross-checked from a printout.
func SaveTrimPDF(rep BatchReport, out string, manifestHash string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Trim Report", false)
	pdf.SetAuthor("ndstrim", false)
	pdf.SetCreator("ndstrim", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Trim Report")
	addSummarySection(pdf, rep)
	addResultsSection(pdf, rep.Results)
	if manifestHash != "" {
		if err := addManifestQR(pdf, manifestHash); err != nil {
			return err
		}
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep BatchReport) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	mode := "executed"
	if rep.Simulated {
		mode = "simulated"
	}
	items := []struct {
		label string
		value string
	}{
		{label: "Files", value: strconv.Itoa(rep.Summary.Files)},
		{label: "Already Minimal", value: strconv.Itoa(rep.Summary.Minimal)},
		{label: "Certificates Preserved", value: strconv.Itoa(rep.Summary.CertificatesPreserved)},
		{label: "Failed", value: strconv.Itoa(rep.Summary.Failed)},
		{label: "Bytes Reclaimed", value: common.FormatBytes(rep.Summary.BytesReclaimed)},
		{label: "Mode", value: mode},
	}
	for _, item := range items {
		pdf.CellFormat(60, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addResultsSection(pdf *gofpdf.Fpdf, results []trimmer.Result) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Files")
	pdf.Ln(9)

	headers := []string{"File", "Original", "Kept", "Cert", "Status"}
	widths := []float64{70, 28, 28, 14, 40}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range results {
		status := statusLabel(r)
		cert := "-"
		if r.CertificatePreserved {
			cert = "yes"
		}
		values := []string{
			filepath.Base(r.Path),
			common.FormatBytes(r.OriginalSize),
			common.FormatBytes(r.TrimmedSize),
			cert,
			status,
		}
		for i, v := range values {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// statusLabel keys on the serialized failure reason; the Err field does not
// survive a SaveJSON/LoadJSON round trip.
func statusLabel(r trimmer.Result) string {
	if r.Error != "" {
		return r.Error
	}
	return "ok"
}

func addManifestQR(pdf *gofpdf.Fpdf, hash string) error {
	png, err := ManifestHashToQR(hash, 256)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("manifest-qr", opts, bytes.NewReader(png))

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Manifest")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, hash)
	pdf.Ln(7)
	pdf.ImageOptions("manifest-qr", pdf.GetX(), pdf.GetY(), 35, 35, false, opts, 0, "")
	pdf.Ln(38)
	return nil
}
