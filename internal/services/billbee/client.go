package billbee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
)

// Client is a thin wrapper around the Billbee order API. Authentication is
// basic auth (API user) plus the account API key header. No retries; the
// caller decides what a failure means.
type Client struct {
	baseURL string
	apiKey  string
	user    string
	pass    string
	client  *http.Client
}

// NewClient creates a new Billbee client
func NewClient(baseURL, apiKey, user, pass string) *Client {
	if baseURL == "" {
		baseURL = "https://api.billbee.io/api/v1"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		user:    user,
		pass:    pass,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("X-Billbee-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Remote("billbee", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Remote("billbee", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode billbee response: %w", err)
		}
	}
	return nil
}

// Ping verifies connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// Customer is a Billbee customer record.
type Customer struct {
	ID    int64  `json:"Id"`
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

// Address is one customer address.
type Address struct {
	ID        int64  `json:"Id"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Street    string `json:"Street"`
	HouseNr   string `json:"Housenumber"`
	Zip       string `json:"Zip"`
	City      string `json:"City"`
	Country   string `json:"CountryCode"`
}

// Order is a trimmed Billbee order.
type Order struct {
	ID          int64  `json:"Id"`
	OrderNumber string `json:"OrderNumber"`
	State       int    `json:"State"`
	CreatedAt   string `json:"CreatedAt"`
	SellerNotes string `json:"SellerComment"`
}

// FindCustomerID resolves a customer by email through the search endpoint.
func (c *Client) FindCustomerID(ctx context.Context, email string) (int64, error) {
	payload := map[string]interface{}{
		"type": []string{"customer"},
		"term": fmt.Sprintf("email:%q", email),
	}
	var result struct {
		Customers []Customer `json:"Customers"`
	}
	if err := c.do(ctx, http.MethodPost, "/search", payload, &result); err != nil {
		return 0, err
	}
	if len(result.Customers) == 0 {
		return 0, apperr.NotFound("customer", email)
	}
	return result.Customers[0].ID, nil
}

// ListCustomerAddresses returns every known address of a customer.
func (c *Client) ListCustomerAddresses(ctx context.Context, email string) ([]Address, error) {
	id, err := c.FindCustomerID(ctx, email)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data []Address `json:"Data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/customers/%d/addresses", id), nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ListCustomerOrders returns the order history of a customer.
func (c *Client) ListCustomerOrders(ctx context.Context, email string) ([]Order, error) {
	id, err := c.FindCustomerID(ctx, email)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data []Order `json:"Data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/customers/%d/orders", id), nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetOrderNotes fetches the seller notes of a single order.
func (c *Client) GetOrderNotes(ctx context.Context, orderID int64) (string, error) {
	var result struct {
		Data Order `json:"Data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &result); err != nil {
		return "", err
	}
	return result.Data.SellerNotes, nil
}

// Serial numbers show up in seller notes in the form "SN: ABC12345" or
// "Seriennummer ABC12345".
var serialPattern = regexp.MustCompile(`(?i)(?:SN|Seriennummer)[:\s]+([A-Z0-9-]{4,})`)

// ExtractSerialNumber pulls a serial number out of free-form order notes.
// Returns the empty string when no serial is present.
func ExtractSerialNumber(notes string) string {
	m := serialPattern.FindStringSubmatch(notes)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
