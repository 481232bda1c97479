package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/velotec-gmbh/rmadesk/internal/models"
	"github.com/velotec-gmbh/rmadesk/internal/services/rmacase"
)

// listCases returns cases from the active or archived set. Query
// parameters: set=active|archived, sort=<column>, dir=asc|desc and an
// optional q=<term> substring search.
func (r *Router) listCases(w http.ResponseWriter, req *http.Request) {
	set := rmacase.Set(req.URL.Query().Get("set"))
	if set == "" {
		set = rmacase.SetActive
	}

	if term := strings.TrimSpace(req.URL.Query().Get("q")); term != "" {
		cases, err := r.cases.Search(req.Context(), set, term)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, cases)
		return
	}

	opts := rmacase.ListOptions{
		SortKey:    req.URL.Query().Get("sort"),
		Descending: req.URL.Query().Get("dir") == "desc",
	}
	cases, err := r.cases.List(req.Context(), set, opts)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cases)
}

func (r *Router) getCase(w http.ResponseWriter, req *http.Request) {
	ticket := mux.Vars(req)["ticket"]
	c, err := r.cases.Get(req.Context(), ticket)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (r *Router) createCase(w http.ResponseWriter, req *http.Request) {
	var c models.RmaCase
	if err := json.NewDecoder(req.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := r.cases.Create(req.Context(), &c); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// decodeCasePatch maps a JSON body onto a rmacase.Patch. The body is read
// key by key so an explicit null (which clears the nullable columns) stays
// distinguishable from an absent key (which leaves the field untouched).
// A plain pointer struct cannot tell the two apart.
func decodeCasePatch(body io.Reader) (rmacase.Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return rmacase.Patch{}, err
	}

	var p rmacase.Patch
	for key, val := range raw {
		if string(val) == "null" {
			switch key {
			case "storageLocationId":
				p.ClearStorageLocation = true
			case "exitDate":
				p.ClearExitDate = true
			case "trackingNumber":
				p.ClearTrackingNumber = true
			}
			continue
		}

		var err error
		switch key {
		case "orderNumber":
			err = json.Unmarshal(val, &p.OrderNumber)
		case "caseType":
			err = json.Unmarshal(val, &p.CaseType)
		case "entryDate":
			err = json.Unmarshal(val, &p.EntryDate)
		case "status":
			err = json.Unmarshal(val, &p.Status)
		case "storageLocationId":
			err = json.Unmarshal(val, &p.StorageLocationID)
		case "exitDate":
			err = json.Unmarshal(val, &p.ExitDate)
		case "trackingNumber":
			err = json.Unmarshal(val, &p.TrackingNumber)
		case "isAmazon":
			err = json.Unmarshal(val, &p.IsAmazon)
		}
		if err != nil {
			return rmacase.Patch{}, fmt.Errorf("field %s: %w", key, err)
		}
	}
	return p, nil
}

func (r *Router) updateCase(w http.ResponseWriter, req *http.Request) {
	ticket := mux.Vars(req)["ticket"]

	patch, err := decodeCasePatch(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := r.cases.Update(req.Context(), ticket, patch)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// archiveCase moves an active case into the archive. The row stays in
// place; only the archive timestamp changes.
func (r *Router) archiveCase(w http.ResponseWriter, req *http.Request) {
	ticket := mux.Vars(req)["ticket"]
	c, err := r.cases.SoftDelete(req.Context(), ticket)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (r *Router) restoreCase(w http.ResponseWriter, req *http.Request) {
	ticket := mux.Vars(req)["ticket"]
	c, err := r.cases.Restore(req.Context(), ticket)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// deleteCase permanently removes an archived case and its child rows.
// Active cases must be archived first.
func (r *Router) deleteCase(w http.ResponseWriter, req *http.Request) {
	ticket := mux.Vars(req)["ticket"]
	if err := r.cases.PermanentDelete(req.Context(), ticket); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Case deleted permanently",
	})
}

func (r *Router) caseTracking(w http.ResponseWriter, req *http.Request) {
	ticket := mux.Vars(req)["ticket"]
	events, err := r.cases.TrackingHistory(req.Context(), ticket)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}
