package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LockClient calls a remote cmd/lockserver instance's /acquire_lock and
// /lock_status/{key} endpoints, the same shape lockapi.Manager implements
// in-process.
type LockClient struct {
	BaseURL string
	Client  *http.Client
}

// NewLockClient creates a LockClient against baseURL (e.g.
// "http://localhost:6000") with a bounded request timeout.
func NewLockClient(baseURL string) *LockClient {
	return &LockClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type acquireLockRequest struct {
	Key           string `json:"key"`
	ClientID      string `json:"client_id"`
	ExpirySeconds int    `json:"expiry"`
}

type lockStatusResponse struct {
	LockStatus string `json:"lock_status"`
	ClientID   string `json:"client_id"`
}

// AcquireLock requests key on behalf of clientID with the given TTL. It
// returns true on a 200 (acquired), false on a 409 (already held by
// another client), and an error for anything else.
func (c *LockClient) AcquireLock(ctx context.Context, key, clientID string, ttl time.Duration) (bool, error) {
	body, err := json.Marshal(acquireLockRequest{Key: key, ClientID: clientID, ExpirySeconds: int(ttl.Seconds())})
	if err != nil {
		return false, fmt.Errorf("ticketing: encode acquire_lock request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/acquire_lock", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("ticketing: build acquire_lock request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ticketing: acquire_lock request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, fmt.Errorf("ticketing: acquire_lock returned status %d", resp.StatusCode)
	}
}

// HasLock reports whether clientID currently holds key, per the remote
// lock service's /lock_status/{key} endpoint.
func (c *LockClient) HasLock(ctx context.Context, key, clientID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/lock_status/"+key, nil)
	if err != nil {
		return false, fmt.Errorf("ticketing: build lock_status request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ticketing: lock_status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ticketing: lock_status returned status %d", resp.StatusCode)
	}

	var status lockStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("ticketing: decode lock_status response: %w", err)
	}
	return status.LockStatus == "locked" && status.ClientID == clientID, nil
}
