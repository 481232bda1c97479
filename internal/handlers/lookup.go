package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/velotec-gmbh/rmadesk/internal/models"
)

// Lookup tables back the dropdowns in the desktop client. They are
// small, so the handlers return the full set unpaged.

func (r *Router) listHandlers(w http.ResponseWriter, req *http.Request) {
	var handlers []models.Handler
	if err := r.db.Where("active = ?", true).Order("initials").Find(&handlers).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load handlers")
		return
	}
	respondJSON(w, http.StatusOK, handlers)
}

func (r *Router) createHandler(w http.ResponseWriter, req *http.Request) {
	var h models.Handler
	if err := json.NewDecoder(req.Body).Decode(&h); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.Initials = strings.ToUpper(strings.TrimSpace(h.Initials))
	if h.Initials == "" {
		respondError(w, http.StatusBadRequest, "Initials must not be blank")
		return
	}
	h.Active = true
	if err := r.db.Create(&h).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create handler (initials might exist)")
		return
	}
	respondJSON(w, http.StatusCreated, h)
}

func (r *Router) listStorageLocations(w http.ResponseWriter, req *http.Request) {
	var locations []models.StorageLocation
	if err := r.db.Order("location_name").Find(&locations).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load storage locations")
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (r *Router) createStorageLocation(w http.ResponseWriter, req *http.Request) {
	var loc models.StorageLocation
	if err := json.NewDecoder(req.Body).Decode(&loc); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	loc.LocationName = strings.TrimSpace(loc.LocationName)
	if loc.LocationName == "" {
		respondError(w, http.StatusBadRequest, "Location name must not be blank")
		return
	}
	if err := r.db.Create(&loc).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create storage location")
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

func (r *Router) listProblemCauses(w http.ResponseWriter, req *http.Request) {
	var causes []models.ProblemCause
	if err := r.db.Order("name").Find(&causes).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load problem causes")
		return
	}
	respondJSON(w, http.StatusOK, causes)
}

func (r *Router) createProblemCause(w http.ResponseWriter, req *http.Request) {
	var cause models.ProblemCause
	if err := json.NewDecoder(req.Body).Decode(&cause); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cause.Name = strings.TrimSpace(cause.Name)
	if cause.Name == "" {
		respondError(w, http.StatusBadRequest, "Name must not be blank")
		return
	}
	if err := r.db.Create(&cause).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create problem cause")
		return
	}
	respondJSON(w, http.StatusCreated, cause)
}
