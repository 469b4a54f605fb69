package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rundown/internal/domain"
)

// TeamClient implements Authorizer against the team/subscription service.
// That service owns the tenancy rules (membership, sharing links, plan
// limits); this client only asks yes/no questions.
type TeamClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewTeamClient creates a new team service client. The service key is a
// machine credential; actor identity travels in the request payload.
func NewTeamClient(baseURL, serviceKey string) *TeamClient {
	return &TeamClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type accessCheckRequest struct {
	ActorID   string `json:"actor_id"`
	RundownID string `json:"rundown_id"`
	Access    string `json:"access"` // "read" or "write"
}

type accessCheckResponse struct {
	Allowed bool `json:"allowed"`
}

// CanRead reports whether the actor may view the rundown.
func (c *TeamClient) CanRead(ctx context.Context, actorID, rundownID string) error {
	return c.check(ctx, actorID, rundownID, "read")
}

// CanWrite reports whether the actor may mutate the rundown.
func (c *TeamClient) CanWrite(ctx context.Context, actorID, rundownID string) error {
	return c.check(ctx, actorID, rundownID, "write")
}

func (c *TeamClient) check(ctx context.Context, actorID, rundownID, access string) error {
	body, err := json.Marshal(accessCheckRequest{
		ActorID:   actorID,
		RundownID: rundownID,
		Access:    access,
	})
	if err != nil {
		return fmt.Errorf("marshal access check: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/internal/v1/access-checks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build access check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("access check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("access check returned %d: %s", resp.StatusCode, payload)
	}

	var result accessCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode access check response: %w", err)
	}

	if !result.Allowed {
		return domain.ErrForbidden
	}
	return nil
}

// AllowAll is an Authorizer that grants everything. Used in dev when no
// team service is configured, and in tests.
type AllowAll struct{}

func (AllowAll) CanRead(ctx context.Context, actorID, rundownID string) error  { return nil }
func (AllowAll) CanWrite(ctx context.Context, actorID, rundownID string) error { return nil }
