// Package notion wraps the external Notion membership-management service the
// gate delegates workspace access to.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmverse/token-gate/internal/domain"
)

// AddMemberRequest asks the workspace to admit a Notion user with the role
// and visible pages of the satisfied lock.
type AddMemberRequest struct {
	SpaceID  string                `json:"spaceId"`
	UserID   string                `json:"userId"`
	Role     *domain.SpaceUserRole `json:"role,omitempty"`
	BlockIDs []string              `json:"blockIds,omitempty"`
}

// MembershipService manages Notion workspace membership
type MembershipService interface {
	// UserByEmail resolves a Notion account id from an email address.
	// Returns domain.ErrUnknownNotionUser when no account exists.
	UserByEmail(ctx context.Context, email string) (string, error)

	// AddMember admits a user to the workspace
	AddMember(ctx context.Context, req AddMemberRequest) error

	// RemoveMember revokes a user's workspace membership
	RemoveMember(ctx context.Context, spaceID, userID string) error
}

// Client is the HTTP implementation of MembershipService
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a Notion membership client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notion API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrUnknownNotionUser
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notion API returned status %d for %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode notion response: %w", err)
		}
	}
	return nil
}

// UserByEmail resolves a Notion account id from an email address
func (c *Client) UserByEmail(ctx context.Context, email string) (string, error) {
	var result struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/byEmail?email="+url.QueryEscape(email), nil, &result); err != nil {
		return "", err
	}
	if result.UserID == "" {
		return "", domain.ErrUnknownNotionUser
	}
	return result.UserID, nil
}

// AddMember admits a user to the workspace
func (c *Client) AddMember(ctx context.Context, req AddMemberRequest) error {
	return c.do(ctx, http.MethodPost, "/spaces/"+req.SpaceID+"/members", req, nil)
}

// RemoveMember revokes a user's workspace membership
func (c *Client) RemoveMember(ctx context.Context, spaceID, userID string) error {
	return c.do(ctx, http.MethodDelete, "/spaces/"+spaceID+"/members/"+userID, nil, nil)
}
