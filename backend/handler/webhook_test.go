package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
)

func signedWebhook(agency, content string) WebhookRequest {
	return WebhookRequest{
		Checksum: service.WebhookChecksum(testSeed, agency, content),
		Agency:   agency,
		Content:  content,
	}
}

func postWebhook(env *testEnv, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/webhooks/contracts", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

type webhookResponse struct {
	ID           string           `json:"id"`
	Derived      lifecycle.Result `json:"derived"`
	Label        string           `json:"label"`
	StoredStatus lifecycle.Status `json:"stored_status"`
	Changed      bool             `json:"changed"`
}

func TestWebhookCreatesContract(t *testing.T) {
	env := newTestEnv(t)
	content := `{"id":"remote-1","startDate":"` + day(-100) + `","endDate":"` + day(200) + `","nextReadjustmentDate":"` + day(20) + `","storedStatus":"active"}`

	w := postWebhook(env, signedWebhook(testAgency, content))
	expectStatus(t, w, http.StatusOK)

	resp := decode[webhookResponse](t, w)
	if resp.Derived.Status != lifecycle.StatusExpiring || resp.Derived.ExpiringReason != lifecycle.ReasonReadjustmentApproaching {
		t.Errorf("Expected expiring/readjustment_approaching, got %+v", resp.Derived)
	}
	if !resp.Changed || resp.StoredStatus != lifecycle.StatusActive {
		t.Errorf("Expected a change from active, got changed=%v stored=%s", resp.Changed, resp.StoredStatus)
	}
	if resp.Label != "Vencendo · Reajuste próximo" {
		t.Errorf("Unexpected label %q", resp.Label)
	}

	stored, err := env.store.Contracts.Get(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("Expected contract to be stored: %v", err)
	}
	if stored.Agency != testAgency || stored.Status != lifecycle.StatusExpiring {
		t.Errorf("Expected synced contract of %s, got %+v", testAgency, stored)
	}
}

func TestWebhookUpdatesExistingContract(t *testing.T) {
	env := newTestEnv(t)
	env.saveContract("c1", -300, 10, lifecycle.StatusExpiring)

	// Lease renewed on the backend
	content := `{"id":"c1","startDate":"` + day(-300) + `","endDate":"` + day(400) + `","nextReadjustmentDate":null,"storedStatus":"expiring"}`
	w := postWebhook(env, signedWebhook(testAgency, content))
	expectStatus(t, w, http.StatusOK)

	resp := decode[webhookResponse](t, w)
	if resp.Derived.Status != lifecycle.StatusActive || !resp.Changed {
		t.Errorf("Expected change to active, got %+v", resp)
	}

	stored, _ := env.store.Contracts.Get(context.Background(), "c1")
	if stored.EndDate != day(400) || stored.Status != lifecycle.StatusActive {
		t.Errorf("Expected renewed contract, got %+v", stored)
	}
	if stored.Code != "LOC-c1" || stored.PropertyID != "p1" {
		t.Errorf("Expected registration fields to be kept, got %+v", stored)
	}
}

func TestWebhookRejections(t *testing.T) {
	env := newTestEnv(t)
	env.must(env.store.Contracts.Save(context.Background(), model.Contract{ID: "theirs", Agency: "other", StartDate: day(-1), EndDate: day(10)}))
	valid := `{"id":"r1","startDate":"` + day(-1) + `","endDate":"` + day(100) + `"}`

	tampered := signedWebhook(testAgency, valid)
	tampered.Content = `{"id":"r1","startDate":"` + day(-1) + `","endDate":"` + day(999) + `"}`

	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{"bad checksum", WebhookRequest{Checksum: "deadbeef", Agency: testAgency, Content: valid}, http.StatusUnauthorized},
		{"tampered content", tampered, http.StatusUnauthorized},
		{"other agency signature", WebhookRequest{Checksum: service.WebhookChecksum(testSeed, "other", valid), Agency: testAgency, Content: valid}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"content": valid}, http.StatusBadRequest},
		{"invalid content", signedWebhook(testAgency, "not json"), http.StatusBadRequest},
		{"missing id", signedWebhook(testAgency, `{"startDate":"2024-01-01","endDate":"2025-01-01"}`), http.StatusBadRequest},
		{"invalid date", signedWebhook(testAgency, `{"id":"r2","startDate":"2024-02-30","endDate":"2025-01-01"}`), http.StatusBadRequest},
		{"end before start", signedWebhook(testAgency, `{"id":"r3","startDate":"2025-01-01","endDate":"2024-01-01"}`), http.StatusBadRequest},
		{"foreign contract", signedWebhook(testAgency, `{"id":"theirs","startDate":"2024-01-01","endDate":"2025-01-01"}`), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, postWebhook(env, tt.body), tt.expectedStatus)
		})
	}

	if n, _ := env.store.Contracts.Count(context.Background()); n != 1 {
		t.Errorf("Expected rejected webhooks to store nothing, got %d contracts", n)
	}
}

func TestWebhookDisabledWithoutSeed(t *testing.T) {
	env := newTestEnv(t)
	h := NewWebhookHandler("", env.store, reconcile.New(nil))
	router := newIdentityRouter()
	router.POST("/webhooks/contracts", h.HandleContract)

	content := `{"id":"r1","startDate":"2024-01-01","endDate":"2025-01-01"}`
	data, _ := json.Marshal(signedWebhook(testAgency, content))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/webhooks/contracts", bytes.NewReader(data)))

	expectStatus(t, w, http.StatusServiceUnavailable)
}
