// Package poap talks to the public POAP API to resolve events and check
// whether a wallet holds a POAP from a given event.
package poap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Event represents a POAP event
type Event struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type scanEntry struct {
	Event Event `json:"event"`
}

// Client talks to the POAP API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a POAP API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.poap.xyz"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("POAP API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POAP API returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode POAP response: %w", err)
	}
	return nil
}

// Events lists all POAP events
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// EventByID fetches one POAP event
func (c *Client) EventByID(ctx context.Context, id int64) (*Event, error) {
	var event Event
	if err := c.get(ctx, fmt.Sprintf("/events/id/%d", id), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// HoldsEvent reports whether address holds a POAP minted from eventID.
// Transport failures return an error so callers can distinguish "could not
// check" from "does not hold".
func (c *Client) HoldsEvent(ctx context.Context, address string, eventID int64) (bool, error) {
	var entries []scanEntry
	if err := c.get(ctx, "/actions/scan/"+address, &entries); err != nil {
		return false, err
	}

	for _, entry := range entries {
		if entry.Event.ID == eventID {
			return true, nil
		}
	}
	return false, nil
}
