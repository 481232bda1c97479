package dhl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/delivery"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

func testAddress() delivery.Address {
	return delivery.Address{
		Name:        "Velotec GmbH",
		Street:      "Musterstraße",
		HouseNumber: "12",
		Zip:         "53113",
		City:        "Bonn",
		Country:     "DEU",
	}
}

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewProvider(Config{
		BaseURL:       server.URL,
		ClientID:      "client-id",
		Username:      "user",
		Password:      "pass",
		BillingNumber: "33333333330102",
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p, server
}

func serveToken(w http.ResponseWriter, expiresIn int) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "test-token",
		"expires_in":   expiresIn,
	})
}

func TestCreateShipment(t *testing.T) {
	labelPDF := []byte("%PDF-1.4 fake label")
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if r.Method != http.MethodPost {
			t.Errorf("token method = %s, want POST", r.Method)
		}
		if got := r.FormValue("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		serveToken(w, 3600)
	})
	mux.HandleFunc(ordersPath, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		var payload orderPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode order payload: %v", err)
		}
		if payload.Profile != defaultProfile {
			t.Errorf("profile = %q, want %q", payload.Profile, defaultProfile)
		}
		if len(payload.Shipments) != 1 {
			t.Fatalf("shipments = %d, want 1", len(payload.Shipments))
		}
		sh := payload.Shipments[0]
		if sh.Product != defaultProduct {
			t.Errorf("product = %q, want %q", sh.Product, defaultProduct)
		}
		if sh.BillingNumber != "33333333330102" {
			t.Errorf("billingNumber = %q", sh.BillingNumber)
		}
		if sh.Consignee.PostalCode != "53113" {
			t.Errorf("consignee zip = %q", sh.Consignee.PostalCode)
		}
		if sh.Details.Weight.Value != 2.5 {
			t.Errorf("weight = %v, want 2.5", sh.Details.Weight.Value)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": map[string]string{"title": "OK"},
			"items": []map[string]interface{}{{
				"shipmentNo": "00340434161094015902",
				"label": map[string]string{
					"b64": base64.StdEncoding.EncodeToString(labelPDF),
				},
				"validationMessages": []map[string]string{
					{"validationMessage": "address corrected"},
				},
			}},
		})
	})

	p, _ := newTestProvider(t, mux)

	resp, err := p.CreateShipment(context.Background(), &delivery.ShipmentRequest{
		Reference:       "RMA-2024-0001",
		SenderAddress:   testAddress(),
		ReceiverAddress: testAddress(),
		Parcel:          delivery.Parcel{Weight: 2.5},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if resp.TrackingNumber != "00340434161094015902" {
		t.Errorf("tracking number = %q", resp.TrackingNumber)
	}
	if string(resp.LabelPDF) != string(labelPDF) {
		t.Errorf("label pdf does not round-trip")
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "address corrected" {
		t.Errorf("warnings = %v", resp.Warnings)
	}
	if tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1", tokenCalls)
	}
}

func TestCreateShipmentRejectsIncompleteAddress(t *testing.T) {
	p, _ := newTestProvider(t, http.NewServeMux())

	addr := testAddress()
	addr.Zip = ""
	_, err := p.CreateShipment(context.Background(), &delivery.ShipmentRequest{
		SenderAddress:   testAddress(),
		ReceiverAddress: addr,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestTokenCaching(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		serveToken(w, 3600)
	})
	mux.HandleFunc(ordersPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{{"shipmentNo": "123"}},
		})
	})

	p, _ := newTestProvider(t, mux)
	req := &delivery.ShipmentRequest{
		SenderAddress:   testAddress(),
		ReceiverAddress: testAddress(),
	}
	for i := 0; i < 3; i++ {
		if _, err := p.CreateShipment(context.Background(), req); err != nil {
			t.Fatalf("CreateShipment #%d: %v", i+1, err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1 (cached)", tokenCalls)
	}
}

func TestTokenRefreshOnExpiry(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		// Expires inside the one-minute early-refresh window, so the next
		// request must fetch a fresh token.
		serveToken(w, 30)
	})
	mux.HandleFunc(ordersPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{{"shipmentNo": "123"}},
		})
	})

	p, _ := newTestProvider(t, mux)
	req := &delivery.ShipmentRequest{
		SenderAddress:   testAddress(),
		ReceiverAddress: testAddress(),
	}
	for i := 0; i < 2; i++ {
		if _, err := p.CreateShipment(context.Background(), req); err != nil {
			t.Fatalf("CreateShipment #%d: %v", i+1, err)
		}
	}
	if tokenCalls != 2 {
		t.Errorf("token calls = %d, want 2 (expired)", tokenCalls)
	}
}

func TestCreateShipmentRemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		serveToken(w, 3600)
	})
	mux.HandleFunc(ordersPath, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"title":"Bad Request"}}`, http.StatusBadRequest)
	})

	p, _ := newTestProvider(t, mux)
	_, err := p.CreateShipment(context.Background(), &delivery.ShipmentRequest{
		SenderAddress:   testAddress(),
		ReceiverAddress: testAddress(),
	})
	remote, ok := apperr.AsRemote(err)
	if !ok {
		t.Fatalf("err = %v, want remote service error", err)
	}
	if remote.Service != "dhl" || remote.Status != http.StatusBadRequest {
		t.Errorf("remote = %+v", remote)
	}
}

func TestGetStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(trackingPath, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("DHL-API-Key"); got != "client-id" {
			t.Errorf("DHL-API-Key = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"shipments": []map[string]interface{}{{
				"id": "00340434161094015902",
				"status": map[string]interface{}{
					"timestamp":   "2024-03-01T10:15:00Z",
					"statusCode":  "transit",
					"description": "parcel in transit",
					"location": map[string]interface{}{
						"address": map[string]string{"addressLocality": "Köln"},
					},
				},
				"events": []map[string]interface{}{{
					"timestamp":   "2024-03-01T08:00:00Z",
					"statusCode":  "pre-transit",
					"description": "label created",
				}},
			}},
		})
	})

	p, _ := newTestProvider(t, mux)
	status, err := p.GetStatus(context.Background(), "00340434161094015902")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != models.TrackingStatusInTransit {
		t.Errorf("status = %q, want in_transit", status.Status)
	}
	if status.Location != "Köln" {
		t.Errorf("location = %q", status.Location)
	}
	if len(status.Events) != 1 || status.Events[0].Status != models.TrackingStatusLabelCreated {
		t.Errorf("events = %+v", status.Events)
	}
}

func TestGetStatusNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(trackingPath, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	p, _ := newTestProvider(t, mux)
	_, err := p.GetStatus(context.Background(), "unknown")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		code        string
		description string
		want        string
	}{
		{"pre-transit", "", models.TrackingStatusLabelCreated},
		{"transit", "", models.TrackingStatusInTransit},
		{"delivered", "handed to recipient", models.TrackingStatusDelivered},
		{"delivered", "delivered to neighbor", models.TrackingStatusNeighbor},
		{"delivered", "beim Nachbarn abgegeben", models.TrackingStatusNeighbor},
		{"DELIVERED", "", models.TrackingStatusDelivered},
		{"failure", "", models.TrackingStatusUnknown},
		{"", "", models.TrackingStatusUnknown},
	}

	for _, tt := range tests {
		if got := MapStatus(tt.code, tt.description); got != tt.want {
			t.Errorf("MapStatus(%q, %q) = %q, want %q", tt.code, tt.description, got, tt.want)
		}
	}
}
