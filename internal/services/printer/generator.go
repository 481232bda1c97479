package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// SheetConfig holds the grid layout for a label sheet
type SheetConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultSheet is a 3x7 sheet on A4, matching the standard label paper.
func DefaultSheet() SheetConfig {
	return SheetConfig{Cols: 3, Rows: 7, MarginTop: 10, MarginLeft: 5, GapX: 2, GapY: 0}
}

// GenerateCaseLabelsPDF renders one QR label per case. The QR encodes the
// ticket number; the text rows show ticket, order and storage location so
// a unit on the shelf can be matched without scanning.
func GenerateCaseLabelsPDF(cfg SheetConfig, cases []models.RmaCase) ([]byte, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("invalid sheet layout: %dx%d", cfg.Cols, cfg.Rows)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases to print")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)
	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows

	for i, c := range cases {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(c.TicketNumber, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr for %s: %w", c.TicketNumber, err)
		}

		imgName := fmt.Sprintf("qr_%d", i)
		imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		_ = pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		// QR centered, 60% of label height, text rows below.
		qrSize := labelH * 0.6
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		qrX := x + (labelW-qrSize)/2
		qrY := y + 1

		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		pdf.SetXY(x, y+qrSize+2)
		pdf.SetFontSize(8)
		pdf.CellFormat(labelW, 4, c.TicketNumber, "", 0, "C", false, 0, "")

		pdf.SetXY(x, y+qrSize+6)
		pdf.SetFontSize(6)
		pdf.CellFormat(labelW, 3, c.OrderNumber, "", 0, "C", false, 0, "")

		if c.StorageLocation != nil {
			pdf.SetXY(x, y+qrSize+9)
			pdf.CellFormat(labelW, 3, c.StorageLocation.LocationName, "", 0, "C", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
