package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
)

// Client talks to the helpdesk ticket API. Auth is the token scheme:
// "email/token" as user, API token as password.
type Client struct {
	baseURL  string
	email    string
	apiToken string
	client   *http.Client
}

// NewClient creates a new Zendesk client
func NewClient(baseURL, email, apiToken string) *Client {
	return &Client{
		baseURL:  baseURL,
		email:    email,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 30 * time.Second},
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
	req.SetBasicAuth(c.email+"/token", c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Remote("zendesk", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperr.NotFound("ticket", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Remote("zendesk", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode zendesk response: %w", err)
		}
	}
	return nil
}

type ticketEnvelope struct {
	Ticket Ticket `json:"ticket"`
}

// Ticket is the subset of a helpdesk ticket the tool needs.
type Ticket struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	RequesterID int64  `json:"requester_id"`
}

// GetTicket fetches one ticket.
func (c *Client) GetTicket(ctx context.Context, ticketID int64) (*Ticket, error) {
	var env ticketEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/tickets/%d.json", ticketID), nil, &env); err != nil {
		return nil, err
	}
	return &env.Ticket, nil
}

// GetCustomerEmail resolves the email of the ticket requester.
func (c *Client) GetCustomerEmail(ctx context.Context, ticketID int64) (string, error) {
	ticket, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}

	var env struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/users/%d.json", ticket.RequesterID), nil, &env); err != nil {
		return "", err
	}
	return env.User.Email, nil
}

// updateTicket sends a ticket update with an internal comment.
func (c *Client) updateTicket(ctx context.Context, ticketID int64, comment string) error {
	payload := map[string]interface{}{
		"ticket": map[string]interface{}{
			"comment": map[string]interface{}{
				"body":   comment,
				"public": false,
			},
		},
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v2/tickets/%d.json", ticketID), payload, nil)
}

// UpdateProblemDescription attaches the customer's problem description.
func (c *Client) UpdateProblemDescription(ctx context.Context, ticketID int64, description string) error {
	return c.updateTicket(ctx, ticketID, fmt.Sprintf("Problembeschreibung:\n%s", description))
}

// UpdateSerialNumber attaches the unit's serial number.
func (c *Client) UpdateSerialNumber(ctx context.Context, ticketID int64, serialNumber string) error {
	return c.updateTicket(ctx, ticketID, fmt.Sprintf("Seriennummer: %s", serialNumber))
}

// UpdateOrderInfo attaches order information.
func (c *Client) UpdateOrderInfo(ctx context.Context, ticketID int64, orderText string) error {
	return c.updateTicket(ctx, ticketID, fmt.Sprintf("Bestellung: %s", orderText))
}

// AppendTrackingNumber adds a tracking number as a new comment. Appending
// rather than editing keeps earlier tracking numbers visible in the ticket.
func (c *Client) AppendTrackingNumber(ctx context.Context, ticketID int64, trackingNumber string) error {
	return c.updateTicket(ctx, ticketID, fmt.Sprintf("Sendungsverfolgung: %s", trackingNumber))
}
