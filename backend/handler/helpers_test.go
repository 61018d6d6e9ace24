package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/middleware"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
	"github.com/shopspring/decimal"
)

const (
	testAgency = "imob-centro"
	testSeed   = "webhook-seed"
)

type testEnv struct {
	t         *testing.T
	cfg       *config.Config
	store     *service.Store
	documents *memoryDocuments
	router    *gin.Engine
	token     string
}

// newTestEnv builds the full router over a memory store seeded with one
// landlord (l1), tenant (t1) and property (p1). Syncs run inline.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 1},
		Webhook: config.WebhookConfig{Seed: testSeed},
	}
	store := service.NewMemoryStore(0)
	documents := newMemoryDocuments()
	reconciler := reconcile.New(service.NewStoreSyncer(store.Contracts),
		reconcile.WithDispatcher(func(task func()) { task() }))

	router, err := NewRouter(RouterDeps{
		Config:     cfg,
		Store:      store,
		Documents:  documents,
		Reconciler: reconciler,
	})
	if err != nil {
		t.Fatalf("Failed to build router: %v", err)
	}

	token, _, err := middleware.GenerateToken("corretor", testAgency, &cfg.Auth)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	env := &testEnv{t: t, cfg: cfg, store: store, documents: documents, router: router, token: token}

	ctx := context.Background()
	created := time.Now().Add(-time.Hour)
	env.must(store.Landlords.Save(ctx, model.Landlord{
		ID: "l1", Agency: testAgency, CreatedAt: created,
		Person: model.Person{Name: "José Antônio", Document: "529.982.247-25"},
	}))
	env.must(store.Tenants.Save(ctx, model.Tenant{
		ID: "t1", Agency: testAgency, CreatedAt: created,
		Person: model.Person{Name: "Conceição Araújo", Document: "12345678909"},
	}))
	env.must(store.Properties.Save(ctx, model.Property{
		ID: "p1", Agency: testAgency, CreatedAt: created, Kind: model.KindResidential,
		Street: "Rua São João", Number: "100", City: "São Paulo", State: "SP",
	}))
	return env
}

func (e *testEnv) must(err error) {
	e.t.Helper()
	if err != nil {
		e.t.Fatalf("Unexpected error: %v", err)
	}
}

// do sends an authenticated JSON request
func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// saveContract stores a contract of the test agency with dates relative to today
func (e *testEnv) saveContract(id string, startOffset, endOffset int, status lifecycle.Status) model.Contract {
	e.t.Helper()
	contract := model.Contract{
		ID:         id,
		Agency:     testAgency,
		Code:       "LOC-" + id,
		PropertyID: "p1",
		LandlordID: "l1",
		TenantID:   "t1",
		StartDate:  day(startOffset),
		EndDate:    day(endOffset),
		PaymentDay: 10,
		RentAmount: decimal.NewFromInt(1500),
		Status:     status,
		CreatedAt:  time.Now(),
	}
	e.must(e.store.Contracts.Save(context.Background(), contract))
	return contract
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
	return v
}

// day returns today plus offset days as an ISO date
func day(offset int) string {
	return lifecycle.FormatDate(time.Now().AddDate(0, 0, offset))
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

type memoryDocuments struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{objects: make(map[string][]byte)}
}

func (m *memoryDocuments) UploadDocument(ctx context.Context, agency, contractID, filename string, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := service.DocumentKey(agency, contractID, filename)
	m.put(key, data)
	return key, nil
}

func (m *memoryDocuments) DocumentURL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return "https://docs.test/" + key + "?signed=1", nil
}

func (m *memoryDocuments) DeleteDocument(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryDocuments) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

func (m *memoryDocuments) has(objectName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectName]
	return ok
}

// newIdentityRouter returns a bare router whose requests are authenticated
// as the test agency
func newIdentityRouter() *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, "corretor", testAgency)
		c.Next()
	})
	return router
}
