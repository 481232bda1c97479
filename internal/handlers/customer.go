package handlers

import (
	"net/http"
	"strings"
)

// Customer lookups proxy the order system so the desktop client never
// holds vendor credentials itself.

func (r *Router) customerAddresses(w http.ResponseWriter, req *http.Request) {
	if r.billbee == nil {
		respondError(w, http.StatusServiceUnavailable, "Order system is not configured")
		return
	}

	email := strings.TrimSpace(req.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, "Query parameter email is required")
		return
	}

	addresses, err := r.billbee.ListCustomerAddresses(req.Context(), email)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

func (r *Router) customerOrders(w http.ResponseWriter, req *http.Request) {
	if r.billbee == nil {
		respondError(w, http.StatusServiceUnavailable, "Order system is not configured")
		return
	}

	email := strings.TrimSpace(req.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, "Query parameter email is required")
		return
	}

	orders, err := r.billbee.ListCustomerOrders(req.Context(), email)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
