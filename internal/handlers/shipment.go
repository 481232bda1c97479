package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	deliverysvc "github.com/velotec-gmbh/rmadesk/internal/services/delivery"
)

// createShipment queues a return label request for a case. The carrier
// call itself happens in the background worker.
func (r *Router) createShipment(w http.ResponseWriter, req *http.Request) {
	if r.shipping == nil {
		respondError(w, http.StatusServiceUnavailable, "Shipping is not configured")
		return
	}

	ticket := mux.Vars(req)["ticket"]
	c, err := r.cases.Get(req.Context(), ticket)
	if err != nil {
		respondAppError(w, err)
		return
	}

	var in deliverysvc.ShipmentInput
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	shipment, err := r.shipping.RequestShipment(req.Context(), c, in)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, shipment)
}

// shipmentLabel streams the stored label PDF for download.
func (r *Router) shipmentLabel(w http.ResponseWriter, req *http.Request) {
	if r.shipping == nil {
		respondError(w, http.StatusServiceUnavailable, "Shipping is not configured")
		return
	}

	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid shipment ID")
		return
	}

	pdfBytes, err := r.shipping.LabelPDF(req.Context(), uint(id))
	if err != nil {
		respondAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="shipping_label.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
