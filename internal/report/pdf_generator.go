package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
)

// Section is one characteristic of the report.
type Section struct {
	Name             string
	Kind             analysis.Kind
	Tolerance        analysis.ToleranceSpec
	ToleranceMissing bool
	Result           *analysis.Result
	PassFail         *analysis.Conformance
	// Charts holds PNG images keyed by the Chart* constants.
	Charts map[string][]byte
}

// Document is a complete SPC report.
type Document struct {
	Title       string
	Structure   string
	GeneratedAt time.Time
	Thresholds  analysis.Thresholds
	Sections    []Section
	// Heatmap is an optional drift heatmap PNG shown after the summary.
	Heatmap []byte
}

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	tr          func(string) string
	styles      map[string]func()
	lineHeight  float64
	currentY    float64 // manually tracked Y for flowing content
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""),
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["muted"] = func() {
		s.pdf.SetFont("Arial", "I", 9)
		s.pdf.SetTextColor(90, 90, 90)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellRed"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
	s.styles["tableCellAmber"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 120, 0)
	}
	s.styles["tableCellGreen"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(0, 130, 0)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(s.tr(text)), pdfContentWidth)
	s.checkAddPage(float64(len(lines)) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, s.tr(text), "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width float64, caption string) {
	info := s.pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(imageBytes))
	if info == nil || !s.pdf.Ok() {
		return
	}
	if width > pdfContentWidth {
		width = pdfContentWidth
	}
	height := width * info.Height() / info.Width()

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	x := pdfMargin + (pdfContentWidth-width)/2
	s.pdf.ImageOptions(imageName, x, s.currentY, width, height, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "muted", "C")
	}
	s.addSpacer(2)
}

type cell struct {
	text  string
	style string
}

// writeTable draws a header row and rows; widths are fractions of the
// content width.
func (s *pdfStyler) writeTable(headers []string, widthsRel []float64, rows [][]cell) {
	widths := make([]float64, len(widthsRel))
	for i, rel := range widthsRel {
		widths[i] = rel * pdfContentWidth
	}
	s.checkAddPage(s.lineHeight * math.Min(float64(len(rows))+1, 4))

	drawHeader := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, s.tr(h), "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
	drawHeader()

	for _, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			drawHeader()
		}
		x := pdfMargin
		for i, c := range row {
			style := c.style
			if style == "" {
				style = "tableCell"
			}
			s.applyStyle(style)
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, s.tr(c.text), "1", 0, "C", false, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
	s.addSpacer(3)
}

func classStyle(c analysis.CapabilityClass) string {
	switch c {
	case analysis.ClassInadequate:
		return "tableCellRed"
	case analysis.ClassMarginal:
		return "tableCellAmber"
	case analysis.ClassAcceptable, analysis.ClassExcellent:
		return "tableCellGreen"
	}
	return ""
}

func severityStyle(sev analysis.Severity) string {
	switch sev {
	case analysis.SeverityDanger:
		return "tableCellRed"
	case analysis.SeverityWarning:
		return "tableCellAmber"
	}
	return ""
}

func formatOpt(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatIndexClass(v *float64, class analysis.CapabilityClass) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f (%s)", *v, class)
}

// BuildPDFReportFile writes the report to path.
func BuildPDFReportFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := BuildPDFReport(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// BuildPDFReport renders doc as a landscape Letter PDF: a summary table of
// every characteristic, the optional drift heatmap, then one section per
// characteristic with its statistics, rule violations and charts.
func BuildPDFReport(w io.Writer, doc Document) error {
	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()

	styler := newPDFStyler(pdf)

	title := doc.Title
	if title == "" {
		title = "Statistical Process Control Report"
	}
	styler.writeParagraph(title, "h1", "C")
	meta := make([]string, 0, 3)
	if doc.Structure != "" {
		meta = append(meta, "Structure: "+doc.Structure)
	}
	if !doc.GeneratedAt.IsZero() {
		meta = append(meta, "Generated: "+doc.GeneratedAt.Format("2006-01-02 15:04"))
	}
	th := doc.Thresholds
	if th == (analysis.Thresholds{}) {
		th = analysis.DefaultThresholds
	}
	meta = append(meta, fmt.Sprintf("Capability classes: inadequate < %.2f <= marginal < %.2f <= acceptable < %.2f <= excellent",
		th.Marginal, th.Acceptable, th.Excellent))
	styler.writeParagraph(strings.Join(meta, "   |   "), "normal", "C")
	styler.addSpacer(4)

	if len(doc.Sections) == 0 {
		styler.writeParagraph("No characteristics to report.", "normal", "L")
		return output(pdf, w)
	}

	styler.writeParagraph("Summary", "h2", "L")
	styler.writeTable(
		[]string{"Characteristic", "n", "Mean", "Std Dev", "LSL", "USL", "Cp", "Cpk", "Approved", "Rejected", "Alerts"},
		[]float64{0.17, 0.05, 0.09, 0.09, 0.08, 0.08, 0.11, 0.11, 0.08, 0.08, 0.06},
		summaryRows(doc.Sections),
	)

	if len(doc.Heatmap) > 0 {
		styler.writeParagraph("Subgroup Drift", "h2", "L")
		styler.addImage(doc.Heatmap, "heatmap_drift", pdfContentWidth*0.9,
			"Subgroup means relative to the tolerance center; +/-1 is the engineering limit")
	}

	for i, sec := range doc.Sections {
		styler.newPage()
		writeSection(styler, i, sec)
	}
	return output(pdf, w)
}

func output(pdf *gofpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

func summaryRows(sections []Section) [][]cell {
	rows := make([][]cell, 0, len(sections))
	for _, sec := range sections {
		if sec.PassFail != nil {
			rejected := cell{text: fmt.Sprintf("%d", sec.PassFail.Rejected)}
			if sec.PassFail.Rejected > 0 {
				rejected.style = "tableCellRed"
			}
			rows = append(rows, []cell{
				{text: sec.Name}, {text: fmt.Sprintf("%d", sec.PassFail.Total)},
				{text: "pass/fail"}, {text: "-"}, {text: "-"}, {text: "-"}, {text: "-"}, {text: "-"},
				{text: fmt.Sprintf("%d", sec.PassFail.Approved)}, rejected, {text: "-"},
			})
			continue
		}
		res := sec.Result
		if res == nil {
			continue
		}
		rejected := cell{text: fmt.Sprintf("%d", res.Conformance.Rejected)}
		if res.Conformance.Rejected > 0 {
			rejected.style = "tableCellRed"
		}
		alerts := cell{text: fmt.Sprintf("%d", len(res.Violations))}
		if len(res.Violations) > 0 {
			alerts.style = "tableCellAmber"
		}
		rows = append(rows, []cell{
			{text: sec.Name},
			{text: fmt.Sprintf("%d", res.Summary.N)},
			{text: formatOpt(res.Summary.Mean, "%.4f")},
			{text: formatOpt(res.Summary.StdDev, "%.4f")},
			{text: formatOpt(res.Limits.Lower, "%g")},
			{text: formatOpt(res.Limits.Upper, "%g")},
			{text: formatIndexClass(res.Capability.Cp, res.CpClass), style: classStyle(res.CpClass)},
			{text: formatIndexClass(res.Capability.Cpk, res.CpkClass), style: classStyle(res.CpkClass)},
			{text: fmt.Sprintf("%d", res.Conformance.Approved)},
			rejected,
			alerts,
		})
	}
	return rows
}

func writeSection(s *pdfStyler, idx int, sec Section) {
	s.writeParagraph(sec.Name, "h1", "L")

	tol := fmt.Sprintf("Tolerance: nominal %s, minimum %s, maximum %s",
		formatOpt(sec.Tolerance.Nominal, "%g"), formatOpt(sec.Tolerance.Minimum, "%g"), formatOpt(sec.Tolerance.Maximum, "%g"))
	if sec.ToleranceMissing {
		tol = "No tolerance defined; pass/fail against limits is not possible."
	}
	s.writeParagraph(tol, "normal", "L")

	if sec.PassFail != nil {
		s.writeParagraph(fmt.Sprintf("Pass/fail characteristic: %d approved, %d rejected of %d inspected.",
			sec.PassFail.Approved, sec.PassFail.Rejected, sec.PassFail.Total), "normal", "L")
		return
	}
	res := sec.Result
	if res == nil {
		return
	}
	s.writeParagraph(fmt.Sprintf("Engineering limits: %s to %s", formatOpt(res.Limits.Lower, "%g"), formatOpt(res.Limits.Upper, "%g")), "normal", "L")
	if res.InsufficientStatistics {
		s.writeParagraph("Insufficient data: at least two readings are needed for control limits and capability.", "muted", "L")
	}
	if xr := res.XR; xr != nil {
		line := fmt.Sprintf("X-bar/R (n=%d, %d subgroups): grand mean %.4f, R-bar %.4f, X-bar limits %.4f .. %.4f, R limits %.4f .. %.4f",
			xr.SubgroupSize, xr.Count, xr.GrandMean, xr.AvgRange, xr.LCLX, xr.UCLX, xr.LCLR, xr.UCLR)
		if xr.FactorsApproximated {
			line += " (factors approximated with the n=2 row)"
		}
		s.writeParagraph(line, "normal", "L")
	} else if res.InsufficientSubgroups {
		s.writeParagraph("Insufficient data for X-bar/R subgroups.", "muted", "L")
	}
	s.addSpacer(2)

	if len(res.Violations) > 0 {
		s.writeParagraph("Rule Violations", "h2", "L")
		rows := make([][]cell, len(res.Violations))
		for i, v := range res.Violations {
			rows[i] = []cell{
				{text: string(v.Rule)},
				{text: fmt.Sprintf("%d", v.Index+1)},
				{text: string(v.Severity), style: severityStyle(v.Severity)},
				{text: v.Description},
			}
		}
		s.writeTable([]string{"Rule", "Point", "Severity", "Description"}, []float64{0.14, 0.06, 0.08, 0.72}, rows)
	} else if !res.InsufficientStatistics {
		s.writeParagraph("No rule violations detected.", "normal", "L")
	}

	width := pdfContentWidth * 0.75
	for _, key := range ChartOrder {
		img, ok := sec.Charts[key]
		if !ok || len(img) == 0 {
			continue
		}
		s.addImage(img, fmt.Sprintf("%s_%d", key, idx), width, "")
	}
}
