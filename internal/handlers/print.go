package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/velotec-gmbh/rmadesk/internal/models"
	"github.com/velotec-gmbh/rmadesk/internal/services/printer"
)

// PrintLabelsRequest selects the cases to render onto a label sheet.
type PrintLabelsRequest struct {
	TicketNumbers []string `json:"ticketNumbers"`
}

// printLabels renders QR label sheets for the requested cases and
// streams the PDF back for download.
func (r *Router) printLabels(w http.ResponseWriter, req *http.Request) {
	var body PrintLabelsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.TicketNumbers) == 0 {
		respondError(w, http.StatusBadRequest, "No ticket numbers given")
		return
	}

	cases := make([]models.RmaCase, 0, len(body.TicketNumbers))
	for _, ticket := range body.TicketNumbers {
		c, err := r.cases.Get(req.Context(), ticket)
		if err != nil {
			respondAppError(w, err)
			return
		}
		cases = append(cases, *c)
	}

	pdfBytes, err := printer.GenerateCaseLabelsPDF(printer.DefaultSheet(), cases)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate labels: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="rma_labels.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
