package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// Helpdesk routes bridge cases to their support tickets.

func (r *Router) ticketEmail(w http.ResponseWriter, req *http.Request) {
	if r.zendesk == nil {
		respondError(w, http.StatusServiceUnavailable, "Helpdesk is not configured")
		return
	}

	ticketID, err := strconv.ParseInt(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	email, err := r.zendesk.GetCustomerEmail(req.Context(), ticketID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"email": email})
}

// ticketAppendTracking posts the tracking number of a case onto the
// support ticket as an internal note.
func (r *Router) ticketAppendTracking(w http.ResponseWriter, req *http.Request) {
	if r.zendesk == nil {
		respondError(w, http.StatusServiceUnavailable, "Helpdesk is not configured")
		return
	}

	ticketID, err := strconv.ParseInt(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	var body struct {
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.TrackingNumber = strings.TrimSpace(body.TrackingNumber)
	if body.TrackingNumber == "" {
		respondError(w, http.StatusBadRequest, "Tracking number must not be blank")
		return
	}

	if err := r.zendesk.AppendTrackingNumber(req.Context(), ticketID, body.TrackingNumber); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Tracking number posted to ticket"})
}
