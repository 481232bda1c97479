package zendesk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "agent@example.com", "api-token")
}

func TestGetCustomerEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/tickets/1001.json", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "agent@example.com/token" || pass != "api-token" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ticket": map[string]interface{}{
				"id":           1001,
				"subject":      "Defektes Gerät",
				"requester_id": 555,
			},
		})
	})
	mux.HandleFunc("/api/v2/users/555.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"email": "kunde@example.com"},
		})
	})

	c := newTestClient(t, mux)
	email, err := c.GetCustomerEmail(context.Background(), 1001)
	if err != nil {
		t.Fatalf("GetCustomerEmail: %v", err)
	}
	if email != "kunde@example.com" {
		t.Errorf("email = %q", email)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))

	_, err := c.GetTicket(context.Background(), 9999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestAppendTrackingNumber(t *testing.T) {
	var captured struct {
		Ticket struct {
			Comment struct {
				Body   string `json:"body"`
				Public bool   `json:"public"`
			} `json:"comment"`
		} `json:"ticket"`
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/api/v2/tickets/1001.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode update payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.AppendTrackingNumber(context.Background(), 1001, "00340434161094015902"); err != nil {
		t.Fatalf("AppendTrackingNumber: %v", err)
	}
	if captured.Ticket.Comment.Body != "Sendungsverfolgung: 00340434161094015902" {
		t.Errorf("comment body = %q", captured.Ticket.Comment.Body)
	}
	if captured.Ticket.Comment.Public {
		t.Error("tracking comment must be internal")
	}
}

func TestUpdateFailurePropagates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))

	err := c.UpdateSerialNumber(context.Background(), 1001, "VLT-1")
	remote, ok := apperr.AsRemote(err)
	if !ok {
		t.Fatalf("err = %v, want remote service error", err)
	}
	if remote.Service != "zendesk" || remote.Status != http.StatusBadGateway {
		t.Errorf("remote = %+v", remote)
	}
}
