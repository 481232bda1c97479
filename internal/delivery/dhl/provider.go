package dhl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/delivery"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

const (
	tokenPath    = "/parcel/de/account/auth/ropc/v1/token"
	ordersPath   = "/parcel/de/shipping/v2/orders"
	trackingPath = "/track/shipments"

	defaultProduct = "V01PAK"
	defaultProfile = "STANDARD_GRUPPENPROFIL"
)

// Config holds configuration for the DHL Parcel DE provider
type Config struct {
	BaseURL       string // defaults to https://api-eu.dhl.com
	ClientID      string // OAuth client id (also sent as dhl-api-key for tracking)
	Username      string // business customer login
	Password      string
	BillingNumber string // EKP + participation, e.g. "33333333330102"
	Timeout       time.Duration
}

// Provider implements delivery.Provider against the DHL REST APIs. An OAuth
// ROPC token is fetched lazily and cached until shortly before expiry.
type Provider struct {
	cfg    Config
	client *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewProvider creates a new DHL provider
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-eu.dhl.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	if cfg.BillingNumber == "" {
		return nil, fmt.Errorf("billing number is required")
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Code returns the provider code
func (p *Provider) Code() string { return "dhl" }

// Name returns the provider name
func (p *Provider) Name() string { return "DHL Paket" }

// authToken returns a valid bearer token, refreshing it when expired.
func (p *Provider) authToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {p.cfg.ClientID},
		"username":   {p.cfg.Username},
		"password":   {p.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperr.Remote("dhl", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperr.Remote("dhl", resp.StatusCode, fmt.Sprintf("token request failed: %s", truncate(body)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	p.token = tok.AccessToken
	// Refresh a minute early so in-flight requests never carry a stale token.
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return p.token, nil
}

type orderPayload struct {
	Profile   string         `json:"profile"`
	Shipments []shipmentBody `json:"shipments"`
}

type shipmentBody struct {
	Product       string      `json:"product"`
	BillingNumber string      `json:"billingNumber"`
	RefNo         string      `json:"refNo,omitempty"`
	Shipper       addressBody `json:"shipper"`
	Consignee     addressBody `json:"consignee"`
	Details       detailsBody `json:"details"`
}

type addressBody struct {
	Name1         string `json:"name1"`
	AddressStreet string `json:"addressStreet"`
	AddressHouse  string `json:"addressHouse,omitempty"`
	PostalCode    string `json:"postalCode"`
	City          string `json:"city"`
	Country       string `json:"country"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type detailsBody struct {
	Weight weightBody `json:"weight"`
}

type weightBody struct {
	UOM   string  `json:"uom"`
	Value float64 `json:"value"`
}

type orderResponse struct {
	Status struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"status"`
	Items []struct {
		ShipmentNo string `json:"shipmentNo"`
		Label      struct {
			B64 string `json:"b64"`
			URL string `json:"url"`
		} `json:"label"`
		ValidationMessages []struct {
			ValidationMessage string `json:"validationMessage"`
		} `json:"validationMessages"`
	} `json:"items"`
}

// CreateShipment creates a label via the Parcel DE Shipping API
func (p *Provider) CreateShipment(ctx context.Context, req *delivery.ShipmentRequest) (*delivery.ShipmentResponse, error) {
	if err := p.ValidateAddress(ctx, &req.ReceiverAddress); err != nil {
		return nil, err
	}

	token, err := p.authToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := orderPayload{
		Profile: defaultProfile,
		Shipments: []shipmentBody{{
			Product:       defaultProduct,
			BillingNumber: p.cfg.BillingNumber,
			RefNo:         req.Reference,
			Shipper:       toAddressBody(req.SenderAddress),
			Consignee:     toAddressBody(req.ReceiverAddress),
			Details: detailsBody{
				Weight: weightBody{UOM: "kg", Value: req.Parcel.Weight},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}

	endpoint := p.cfg.BaseURL + ordersPath
	if req.ValidateOnly {
		endpoint += "?validate=true"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Remote("dhl", 0, err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Remote("dhl", resp.StatusCode, fmt.Sprintf("create shipment failed: %s", truncate(raw)))
	}

	var order orderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if len(order.Items) == 0 {
		return nil, apperr.Remote("dhl", resp.StatusCode, "order response contained no items")
	}

	item := order.Items[0]
	out := &delivery.ShipmentResponse{
		TrackingNumber: item.ShipmentNo,
		LabelURL:       item.Label.URL,
		CreatedAt:      time.Now(),
	}
	for _, vm := range item.ValidationMessages {
		out.Warnings = append(out.Warnings, vm.ValidationMessage)
	}
	if item.Label.B64 != "" {
		pdf, err := base64.StdEncoding.DecodeString(item.Label.B64)
		if err != nil {
			return nil, fmt.Errorf("decode label pdf: %w", err)
		}
		out.LabelPDF = pdf
	}
	var rawMap map[string]interface{}
	if json.Unmarshal(raw, &rawMap) == nil {
		out.RawResponse = rawMap
	}

	return out, nil
}

// CancelShipment deletes an unshipped order at DHL
func (p *Provider) CancelShipment(ctx context.Context, trackingNumber string) error {
	token, err := p.authToken(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s%s?profile=%s&shipment=%s", p.cfg.BaseURL, ordersPath, defaultProfile, url.QueryEscape(trackingNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.Remote("dhl", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return apperr.Remote("dhl", resp.StatusCode, fmt.Sprintf("cancel shipment failed: %s", truncate(body)))
	}
	return nil
}

type trackingResponse struct {
	Shipments []struct {
		ID     string `json:"id"`
		Status struct {
			Timestamp   string `json:"timestamp"`
			StatusCode  string `json:"statusCode"`
			Status      string `json:"status"`
			Description string `json:"description"`
			Location    struct {
				Address struct {
					AddressLocality string `json:"addressLocality"`
				} `json:"address"`
			} `json:"location"`
		} `json:"status"`
		Events []struct {
			Timestamp   string `json:"timestamp"`
			StatusCode  string `json:"statusCode"`
			Status      string `json:"status"`
			Description string `json:"description"`
			Location    struct {
				Address struct {
					AddressLocality string `json:"addressLocality"`
				} `json:"address"`
			} `json:"location"`
		} `json:"events"`
	} `json:"shipments"`
}

// GetStatus queries the unified tracking API
func (p *Provider) GetStatus(ctx context.Context, trackingNumber string) (*delivery.TrackingStatus, error) {
	endpoint := fmt.Sprintf("%s%s?trackingNumber=%s", p.cfg.BaseURL, trackingPath, url.QueryEscape(trackingNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("DHL-API-Key", p.cfg.ClientID)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Remote("dhl", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("shipment", trackingNumber)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.Remote("dhl", resp.StatusCode, fmt.Sprintf("tracking request failed: %s", truncate(body)))
	}

	var tr trackingResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode tracking response: %w", err)
	}
	if len(tr.Shipments) == 0 {
		return nil, apperr.NotFound("shipment", trackingNumber)
	}

	sh := tr.Shipments[0]
	status := &delivery.TrackingStatus{
		TrackingNumber: trackingNumber,
		Status:         MapStatus(sh.Status.StatusCode, sh.Status.Description),
		StatusCode:     sh.Status.StatusCode,
		Location:       sh.Status.Location.Address.AddressLocality,
		UpdatedAt:      parseTime(sh.Status.Timestamp),
	}
	for _, ev := range sh.Events {
		status.Events = append(status.Events, delivery.TrackingEvent{
			Timestamp:   parseTime(ev.Timestamp),
			Status:      MapStatus(ev.StatusCode, ev.Description),
			StatusCode:  ev.StatusCode,
			Location:    ev.Location.Address.AddressLocality,
			Description: ev.Description,
		})
	}
	return status, nil
}

// ValidateAddress checks the minimum DHL requires for a German label
func (p *Provider) ValidateAddress(_ context.Context, addr *delivery.Address) error {
	if addr.Name == "" {
		return apperr.Validation("name", "is required for DHL")
	}
	if addr.Zip == "" {
		return apperr.Validation("zip", "is required for DHL")
	}
	if addr.City == "" {
		return apperr.Validation("city", "is required for DHL")
	}
	if addr.Street == "" {
		return apperr.Validation("street", "is required for DHL")
	}
	return nil
}

// MapStatus translates a DHL status code to the normalized tracking set.
func MapStatus(code, description string) string {
	switch strings.ToLower(code) {
	case "pre-transit":
		return models.TrackingStatusLabelCreated
	case "transit":
		return models.TrackingStatusInTransit
	case "delivered":
		if strings.Contains(strings.ToLower(description), "neighbor") ||
			strings.Contains(strings.ToLower(description), "nachbar") {
			return models.TrackingStatusNeighbor
		}
		return models.TrackingStatusDelivered
	default:
		return models.TrackingStatusUnknown
	}
}

func toAddressBody(a delivery.Address) addressBody {
	country := a.Country
	if country == "" {
		country = "DEU"
	}
	return addressBody{
		Name1:         a.Name,
		AddressStreet: a.Street,
		AddressHouse:  a.HouseNumber,
		PostalCode:    a.Zip,
		City:          a.City,
		Country:       country,
		Email:         a.Email,
		Phone:         a.Phone,
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func truncate(body []byte) string {
	const max = 512
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
