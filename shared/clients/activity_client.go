package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"panelgrid-backend/shared/config"
)

// ActivityClient handles communication with the activity service. Other
// services use it to record audit events when a significant action occurs.
type ActivityClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewActivityClient creates a new activity client
func NewActivityClient() *ActivityClient {
	cfg := config.GetConfig()
	return &ActivityClient{
		baseURL: cfg.ActivityServiceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RecordActivityRequest is the payload for recording one audit event
type RecordActivityRequest struct {
	Event       string                 `json:"event"`
	IP          string                 `json:"ip"`
	Description string                 `json:"description,omitempty"`
	ActorType   string                 `json:"actor_type,omitempty"`
	ActorID     string                 `json:"actor_id,omitempty"`
	Batch       string                 `json:"batch,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// Record sends one audit event to the activity service
func (c *ActivityClient) Record(req RecordActivityRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal activity request: %w", err)
	}

	url := fmt.Sprintf("%s/api/activity", c.baseURL)
	resp, err := c.httpClient.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to send activity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("activity service returned status %d", resp.StatusCode)
	}

	return nil
}
