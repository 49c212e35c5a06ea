package demo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"file-monitor-dashboard/internal/model"
)

const (
	pdfContentType   = "application/pdf"
	excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfLinesPerPage  = 48
)

func (b *Backend) summary() model.ReportSummary {
	status := b.status()

	b.mu.Lock()
	events := append([]model.FileEvent(nil), b.events...)
	b.mu.Unlock()

	out := model.ReportSummary{
		Directory:           status.Directory,
		GeneratedAt:         b.now().UTC().Format(time.RFC3339Nano),
		MonitoringStartedAt: status.StartedAt,
		TotalEvents:         int64(len(events)),
		DetectedPatterns:    []string{},
		Events:              make([]model.FileEvent, 0, len(events)),
	}

	seen := map[string]struct{}{}
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		out.Events = append(out.Events, event)
		if event.HoneypotTriggered {
			out.HoneypotTriggers++
		}
		switch event.RiskLevel {
		case model.RiskLow:
			out.LowRiskCount++
		case model.RiskMedium:
			out.MediumRiskCount++
		case model.RiskHigh:
			out.HighRiskCount++
		}
		for _, note := range event.Notes {
			if _, ok := seen[note]; ok {
				continue
			}
			seen[note] = struct{}{}
			out.DetectedPatterns = append(out.DetectedPatterns, note)
		}
	}
	return out
}

func (b *Backend) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.summary())
}

func (b *Backend) handlePDF(w http.ResponseWriter, r *http.Request) {
	data := renderPDF(reportLines(b.summary()))
	writeAttachment(w, "file-behavior-report.pdf", pdfContentType, data)
}

func (b *Backend) handleExcel(w http.ResponseWriter, r *http.Request) {
	data, err := renderWorkbook(b.summary())
	if err != nil {
		b.logger.Error("failed to render workbook", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	writeAttachment(w, "file-behavior-report.xlsx", excelContentType, data)
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func reportLines(summary model.ReportSummary) []string {
	directory := "-"
	if summary.Directory != nil {
		directory = *summary.Directory
	}
	lines := []string{
		"File Behavior Report",
		"Directory: " + directory,
		"Generated: " + summary.GeneratedAt,
		fmt.Sprintf("Total events: %d  Honeypot triggers: %d", summary.TotalEvents, summary.HoneypotTriggers),
		fmt.Sprintf("Risk LOW/MEDIUM/HIGH: %d/%d/%d", summary.LowRiskCount, summary.MediumRiskCount, summary.HighRiskCount),
		"Patterns: " + strings.Join(summary.DetectedPatterns, ", "),
		"",
	}
	for _, event := range summary.Events {
		lines = append(lines, fmt.Sprintf("%s %-8s %-6s %3d %s", event.Timestamp, event.EventType, event.RiskLevel, event.RiskScore, event.Path))
	}
	return lines
}

// renderPDF lays out plain text lines on as many Helvetica pages as needed.
func renderPDF(lines []string) []byte {
	var pages [][]string
	for start := 0; start < len(lines); start += pdfLinesPerPage {
		pages = append(pages, lines[start:min(start+pdfLinesPerPage, len(lines))])
	}
	if len(pages) == 0 {
		pages = [][]string{{}}
	}

	// Objects: 1 catalog, 2 pages, 3 font, then a page and a content stream per page.
	var objects []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, page := range pages {
		var content strings.Builder
		content.WriteString("BT /F1 9 Tf 36 806 Td 11 TL\n")
		for _, line := range page {
			fmt.Fprintf(&content, "(%s) '\n", escapePDF(line))
		}
		content.WriteString("ET")
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escapePDF(text string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	var b strings.Builder
	for _, r := range replacer.Replace(text) {
		if r > 126 {
			r = '?'
		}
		b.WriteRune(r)
	}
	return b.String()
}

var workbookParts = map[string]string{
	"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/><Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/></Types>`,
	"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/></Relationships>`,
	"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets><sheet name="Events" sheetId="1" r:id="rId1"/></sheets></workbook>`,
	"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/></Relationships>`,
}

var workbookOrder = []string{"[Content_Types].xml", "_rels/.rels", "xl/workbook.xml", "xl/_rels/workbook.xml.rels"}

// renderWorkbook builds a single-sheet xlsx with one row per event.
func renderWorkbook(summary model.ReportSummary) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range workbookOrder {
		f, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(workbookParts[name])); err != nil {
			return nil, err
		}
	}

	sheet, err := zw.Create("xl/worksheets/sheet1.xml")
	if err != nil {
		return nil, err
	}
	var rows strings.Builder
	writeRow(&rows, 1, "Timestamp", "Path", "Event Type", "Risk Level", "Risk Score", "Honeypot", "Notes")
	for i, event := range summary.Events {
		writeRow(&rows, i+2,
			event.Timestamp,
			event.Path,
			event.EventType,
			string(event.RiskLevel),
			strconv.Itoa(event.RiskScore),
			strconv.FormatBool(event.HoneypotTriggered),
			strings.Join(event.Notes, ", "),
		)
	}
	_, err = fmt.Fprintf(sheet, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>%s</sheetData></worksheet>`, rows.String())
	if err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(b *strings.Builder, index int, cells ...string) {
	fmt.Fprintf(b, `<row r="%d">`, index)
	for _, cell := range cells {
		b.WriteString(`<c t="inlineStr"><is><t>`)
		_ = xml.EscapeText(b, []byte(cell))
		b.WriteString(`</t></is></c>`)
	}
	b.WriteString(`</row>`)
}
