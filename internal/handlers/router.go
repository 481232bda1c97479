package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/config"
	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/middleware"
	"github.com/velotec-gmbh/rmadesk/internal/services/billbee"
	deliverysvc "github.com/velotec-gmbh/rmadesk/internal/services/delivery"
	"github.com/velotec-gmbh/rmadesk/internal/services/rmacase"
	"github.com/velotec-gmbh/rmadesk/internal/services/zendesk"
	"github.com/velotec-gmbh/rmadesk/internal/websocket"
)

// Router wraps the mux router and the services the handlers call
type Router struct {
	*mux.Router
	db       *database.DB
	cfg      *config.Config
	cases    *rmacase.Service
	shipping *deliverysvc.Service
	billbee  *billbee.Client
	zendesk  *zendesk.Client
	hub      *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes. billbee, zendesk
// and shipping may be nil when the integration is not configured.
func NewRouter(db *database.DB, cfg *config.Config, cases *rmacase.Service, hub *websocket.Hub) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		db:     db,
		cfg:    cfg,
		cases:  cases,
		hub:    hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	// Case lifecycle
	api.HandleFunc("/cases", r.listCases).Methods("GET")
	api.HandleFunc("/cases", r.createCase).Methods("POST")
	api.HandleFunc("/cases/{ticket}", r.getCase).Methods("GET")
	api.HandleFunc("/cases/{ticket}", r.updateCase).Methods("PUT")
	api.HandleFunc("/cases/{ticket}", r.deleteCase).Methods("DELETE")
	api.HandleFunc("/cases/{ticket}/archive", r.archiveCase).Methods("POST")
	api.HandleFunc("/cases/{ticket}/restore", r.restoreCase).Methods("POST")
	api.HandleFunc("/cases/{ticket}/tracking", r.caseTracking).Methods("GET")
	api.HandleFunc("/cases/{ticket}/shipments", r.createShipment).Methods("POST")

	// Shipments
	api.HandleFunc("/shipments/{id}/label", r.shipmentLabel).Methods("GET")

	// Lookup tables
	api.HandleFunc("/lookups/handlers", r.listHandlers).Methods("GET")
	api.HandleFunc("/lookups/handlers", r.createHandler).Methods("POST")
	api.HandleFunc("/lookups/storage-locations", r.listStorageLocations).Methods("GET")
	api.HandleFunc("/lookups/storage-locations", r.createStorageLocation).Methods("POST")
	api.HandleFunc("/lookups/problem-causes", r.listProblemCauses).Methods("GET")
	api.HandleFunc("/lookups/problem-causes", r.createProblemCause).Methods("POST")

	// Label printing
	api.HandleFunc("/print/labels", r.printLabels).Methods("POST")

	// Vendor lookups
	api.HandleFunc("/customers/addresses", r.customerAddresses).Methods("GET")
	api.HandleFunc("/customers/orders", r.customerOrders).Methods("GET")
	api.HandleFunc("/tickets/{id}/email", r.ticketEmail).Methods("GET")
	api.HandleFunc("/tickets/{id}/tracking", r.ticketAppendTracking).Methods("POST")

	// Event feed for the desktop UI
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWS(hub, w, req)
	})

	return r
}

// SetShippingService registers the shipment service.
func (r *Router) SetShippingService(s *deliverysvc.Service) { r.shipping = s }

// SetBillbeeClient registers the order system client.
func (r *Router) SetBillbeeClient(c *billbee.Client) { r.billbee = c }

// SetZendeskClient registers the helpdesk client.
func (r *Router) SetZendeskClient(c *zendesk.Client) { r.zendesk = c }

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": r.hub.SessionCount(),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondAppError maps the domain error taxonomy onto HTTP status codes.
// Every error reaching this boundary becomes a user-visible message.
func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrAuth):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperr.ErrConnection):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		if _, ok := apperr.AsRemote(err); ok {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
