package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
)

// RemoteCrewClient talks to the remote crew execution service (§6.2).
type RemoteCrewClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteCrewClient(baseURL string, httpClient *http.Client) *RemoteCrewClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteCrewClient{baseURL: baseURL, httpClient: httpClient}
}

type executeCrewRequest struct {
	CrewName  string                 `json:"crew_name"`
	Inputs    map[string]interface{} `json:"inputs"`
	RequestID string                 `json:"request_id"`
}

type executeCrewResponse struct {
	Success       bool                   `json:"success"`
	CrewName      string                 `json:"crew_name"`
	Result        map[string]interface{} `json:"result"`
	Error         string                 `json:"error"`
	ExecutionTime float64                `json:"execution_time"`
	Timestamp     string                 `json:"timestamp"`
}

// Execute calls POST /execute_crew with a freshly-minted bearer token
// and maps the response to the local error taxonomy per §4.5's error
// mapping table. requestID is the job_id, propagated as both the
// request body's request_id and the X-Request-ID header so the remote
// service's logs correlate back to the same job (§4.5/§6.2).
func (c *RemoteCrewClient) Execute(ctx context.Context, crewName string, inputs map[string]interface{}, requestID, bearerToken string) (map[string]interface{}, error) {
	body, err := json.Marshal(executeCrewRequest{CrewName: crewName, Inputs: inputs, RequestID: requestID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execute_crew request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute_crew", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute_crew request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.RemoteCrewUnavailable, "remote crew service unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apierr.New(apierr.HandlerNotFound, fmt.Sprintf("remote crew %q not found", crewName))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apierr.New(apierr.Authorization, "remote crew service rejected the internal token")
	case resp.StatusCode >= 500:
		return nil, apierr.New(apierr.RemoteCrewUnavailable, fmt.Sprintf("remote crew service returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, apierr.New(apierr.RemoteCrewUnavailable, fmt.Sprintf("unexpected remote crew status %d", resp.StatusCode))
	}

	var parsed executeCrewResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apierr.Wrap(apierr.RemoteCrewUnavailable, "failed to decode execute_crew response", err)
	}

	if !parsed.Success {
		return nil, apierr.New(apierr.CrewExecutionError, parsed.Error)
	}
	return parsed.Result, nil
}

// Health calls GET /health on the remote crew execution service.
func (c *RemoteCrewClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Wrap(apierr.RemoteCrewUnavailable, "remote crew service health check failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apierr.New(apierr.RemoteCrewUnavailable, fmt.Sprintf("remote crew service unhealthy: %d", resp.StatusCode))
	}
	return nil
}
