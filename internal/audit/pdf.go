package audit

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"At (UTC)", 42},
	{"Actor", 30},
	{"Action", 48},
	{"Entity", 30},
	{"Entity ID", 30},
	{"Details", 97},
}

// WritePDF renders rows as a landscape A4 table.
func WritePDF(w io.Writer, filters TimelineFilters, rows []TimelineRow) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Audit timeline", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Audit timeline")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s, %d entries", formatDay(filters.From), formatDay(filters.To), len(rows)))
	pdf.Ln(9)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	for _, row := range rows {
		cells := []string{
			row.At.UTC().Format("2006-01-02 15:04:05"),
			row.Actor,
			row.Action,
			row.Entity,
			row.EntityID,
			metaSummary(row.Meta),
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, 6, tr(truncate(cells[i], int(col.width/1.6))), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func metaSummary(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, meta[k])
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
