package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/reconcile"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// BackendClient talks to the REST backend that owns contract records
type BackendClient struct {
	config     *config.BackendConfig
	httpClient *http.Client
}

// RemoteContract is a contract record as returned by GET /contracts
type RemoteContract struct {
	ID                   string  `json:"id"`
	Agency               string  `json:"agency,omitempty"`
	StartDate            string  `json:"startDate"`
	EndDate              string  `json:"endDate"`
	NextReadjustmentDate *string `json:"nextReadjustmentDate"`
	StoredStatus         string  `json:"storedStatus"`
}

// Record converts the remote contract for the reconciler. Unknown stored
// statuses are kept verbatim so they always differ from the derived one.
func (c RemoteContract) Record() reconcile.Record {
	return reconcile.Record{
		ID:                   c.ID,
		Agency:               c.Agency,
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		NextReadjustmentDate: c.NextReadjustmentDate,
		StoredStatus:         lifecycle.Status(c.StoredStatus),
	}
}

// StatusUpdateRequest is the body of PATCH /contracts/{id}/status
type StatusUpdateRequest struct {
	Status lifecycle.Status `json:"status"`
}

func NewBackendClient(cfg *config.BackendConfig) *BackendClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BackendClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListContracts fetches every contract record from the backend
func (s *BackendClient) ListContracts(ctx context.Context) ([]RemoteContract, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/contracts"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var contracts []RemoteContract
	if err := jsonAPI.Unmarshal(body, &contracts); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return contracts, nil
}

// SyncStatus persists a derived status on the backend. Any non-2xx answer is an error.
func (s *BackendClient) SyncStatus(ctx context.Context, contractID string, status lifecycle.Status) error {
	payload, err := jsonAPI.Marshal(StatusUpdateRequest{Status: status})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	path := "/contracts/" + url.PathEscape(contractID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend returned %d for contract %s", resp.StatusCode, contractID)
	}
	return nil
}

func (s *BackendClient) endpoint(path string) string {
	return strings.TrimRight(s.config.APIURL, "/") + path
}

func (s *BackendClient) authorize(req *http.Request) {
	if s.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	}
}

// WebhookChecksum computes SHA256(agency + seed + content) as hex
func WebhookChecksum(seed, agency, content string) string {
	hash := sha256.Sum256([]byte(agency + seed + content))
	return hex.EncodeToString(hash[:])
}

// VerifyWebhook checks a webhook checksum
func VerifyWebhook(seed, checksum, agency, content string) bool {
	expected := WebhookChecksum(seed, agency, content)
	return subtle.ConstantTimeCompare([]byte(checksum), []byte(expected)) == 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
