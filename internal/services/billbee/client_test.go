package billbee

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
	return NewClient(server.URL, "api-key", "api-user", "api-pass")
}

func TestAuthHeaders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api-user" || pass != "api-pass" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		if got := r.Header.Get("X-Billbee-Api-Key"); got != "api-key" {
			t.Errorf("api key header = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestListCustomerAddresses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Type []string `json:"type"`
			Term string   `json:"term"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode search payload: %v", err)
		}
		if payload.Term != `email:"kunde@example.com"` {
			t.Errorf("search term = %q", payload.Term)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Customers": []map[string]interface{}{
				{"Id": 42, "Name": "Kunde", "Email": "kunde@example.com"},
			},
		})
	})
	mux.HandleFunc("/customers/42/addresses", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Data": []map[string]interface{}{
				{"Id": 1, "FirstName": "Max", "LastName": "Mustermann", "Street": "Musterstraße", "Housenumber": "12", "Zip": "53113", "City": "Bonn", "CountryCode": "DE"},
			},
		})
	})

	c := newTestClient(t, mux)
	addresses, err := c.ListCustomerAddresses(context.Background(), "kunde@example.com")
	if err != nil {
		t.Fatalf("ListCustomerAddresses: %v", err)
	}
	if len(addresses) != 1 {
		t.Fatalf("addresses = %d, want 1", len(addresses))
	}
	if addresses[0].City != "Bonn" || addresses[0].HouseNr != "12" {
		t.Errorf("address = %+v", addresses[0])
	}
}

func TestFindCustomerIDNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"Customers": []interface{}{}})
	}))

	_, err := c.FindCustomerID(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRemoteError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))

	err := c.Ping(context.Background())
	remote, ok := apperr.AsRemote(err)
	if !ok {
		t.Fatalf("err = %v, want remote service error", err)
	}
	if remote.Service != "billbee" || remote.Status != http.StatusTooManyRequests {
		t.Errorf("remote = %+v", remote)
	}
}

func TestExtractSerialNumber(t *testing.T) {
	tests := []struct {
		notes string
		want  string
	}{
		{"SN: VLT-2024-0815", "VLT-2024-0815"},
		{"sn: abc", ""},
		{"Seriennummer A1B2C3", "A1B2C3"},
		{"seriennummer: X99-1", "X99-1"},
		{"Gerät ohne Angaben", ""},
		{"", ""},
		{"Rückläufer, SN ABCD1234, geprüft", "ABCD1234"},
	}

	for _, tt := range tests {
		if got := ExtractSerialNumber(tt.notes); got != tt.want {
			t.Errorf("ExtractSerialNumber(%q) = %q, want %q", tt.notes, got, tt.want)
		}
	}
}
