package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/middleware"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
	"github.com/shopspring/decimal"
)

const maxDocumentSize = 20 << 20

// DocumentStore keeps signed contract documents
type DocumentStore interface {
	UploadDocument(ctx context.Context, agency, contractID, filename string, r io.Reader, size int64) (string, error)
	DocumentURL(ctx context.Context, key string) (string, error)
	DeleteDocument(ctx context.Context, key string) error
}

type ContractHandler struct {
	store      *service.Store
	documents  DocumentStore
	reconciler *reconcile.Reconciler
	now        func() time.Time
}

// NewContractHandler creates the contract endpoints. documents may be nil
// when document storage is not configured.
func NewContractHandler(store *service.Store, documents DocumentStore, reconciler *reconcile.Reconciler) *ContractHandler {
	return &ContractHandler{
		store:      store,
		documents:  documents,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// ContractInput is the body of contract create and update requests
type ContractInput struct {
	Code                 string          `json:"code" binding:"required"`
	PropertyID           string          `json:"property_id" binding:"required"`
	LandlordID           string          `json:"landlord_id" binding:"required"`
	TenantID             string          `json:"tenant_id" binding:"required"`
	StartDate            string          `json:"start_date" binding:"required,isodate"`
	EndDate              string          `json:"end_date" binding:"required,isodate"`
	NextReadjustmentDate *string         `json:"next_readjustment_date" binding:"omitempty,isodate"`
	ReadjustmentIndex    string          `json:"readjustment_index" binding:"omitempty,oneof=IGP-M IPCA INPC IVAR"`
	RentAmount           decimal.Decimal `json:"rent_amount"`
	PaymentDay           int             `json:"payment_day" binding:"required,min=1,max=31"`
}

// bindContract binds and checks a contract body, writing the error response
// itself when the input is rejected
func (h *ContractHandler) bindContract(c *gin.Context, agency string) (ContractInput, bool) {
	var in ContractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return in, false
	}
	if in.NextReadjustmentDate != nil && strings.TrimSpace(*in.NextReadjustmentDate) == "" {
		in.NextReadjustmentDate = nil
	}

	if !in.RentAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rent_amount must be positive"})
		return in, false
	}

	d, err := lifecycle.ParseDates(in.StartDate, in.EndDate, in.NextReadjustmentDate)
	if err != nil {
		respondError(c, err)
		return in, false
	}
	if d.End.Before(d.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
		return in, false
	}

	if err := h.checkParties(c.Request.Context(), agency, in); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			respondError(c, err)
		}
		return in, false
	}
	return in, true
}

// checkParties verifies that the referenced records exist in the agency
func (h *ContractHandler) checkParties(ctx context.Context, agency string, in ContractInput) error {
	property, err := h.store.Properties.Get(ctx, in.PropertyID)
	if err != nil || property.Agency != agency {
		return orNotFound(err, "property", in.PropertyID)
	}
	landlord, err := h.store.Landlords.Get(ctx, in.LandlordID)
	if err != nil || landlord.Agency != agency {
		return orNotFound(err, "landlord", in.LandlordID)
	}
	tenant, err := h.store.Tenants.Get(ctx, in.TenantID)
	if err != nil || tenant.Agency != agency {
		return orNotFound(err, "tenant", in.TenantID)
	}
	return nil
}

func orNotFound(err error, kind, id string) error {
	if err == nil || errors.Is(err, service.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", service.ErrNotFound, kind, id)
	}
	return err
}

func (in ContractInput) apply(contract *model.Contract) {
	contract.Code = in.Code
	contract.PropertyID = in.PropertyID
	contract.LandlordID = in.LandlordID
	contract.TenantID = in.TenantID
	contract.StartDate = in.StartDate
	contract.EndDate = in.EndDate
	contract.NextReadjustmentDate = in.NextReadjustmentDate
	contract.ReadjustmentIndex = in.ReadjustmentIndex
	contract.RentAmount = in.RentAmount
	contract.PaymentDay = in.PaymentDay
}

// getOwned loads a contract of the caller's agency, writing 404 otherwise
func (h *ContractHandler) getOwned(c *gin.Context) (model.Contract, bool) {
	contract, err := h.store.Contracts.Get(c.Request.Context(), c.Param("id"))
	if err == nil && contract.Agency != middleware.GetAgency(c) {
		err = service.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		} else {
			respondError(c, err)
		}
		return contract, false
	}
	return contract, true
}

// Create registers a contract. Its stored status starts as the derived one.
func (h *ContractHandler) Create(c *gin.Context) {
	agency := middleware.GetAgency(c)
	in, ok := h.bindContract(c, agency)
	if !ok {
		return
	}

	now := h.now()
	contract := model.Contract{
		ID:        uuid.New().String(),
		Agency:    agency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&contract)
	if res, err := contract.Classify(now); err == nil {
		contract.Status = res.Status
	}

	if err := h.store.Contracts.Save(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	logger.Info(c.Request.Context(), "contract created", "contract_id", contract.ID, "status", contract.Status)
	c.JSON(http.StatusCreated, model.NewContractView(contract, now))
}

// List returns the agency's contracts with their derived status, optionally
// filtered by it (?status=expiring)
func (h *ContractHandler) List(c *gin.Context) {
	status, err := lifecycle.ParseStatus(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contracts, err := h.store.Contracts.ListByAgency(c.Request.Context(), middleware.GetAgency(c))
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	views := make([]model.ContractView, 0, len(contracts))
	for _, contract := range contracts {
		view := model.NewContractView(contract, now)
		if status != "" && (view.Derived == nil || view.Derived.Status != status) {
			continue
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"contracts": views})
}

// Get returns a single contract with its derived status
func (h *ContractHandler) Get(c *gin.Context) {
	contract, ok := h.getOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.NewContractView(contract, h.now()))
}

// Update replaces the editable fields of a contract
func (h *ContractHandler) Update(c *gin.Context) {
	existing, ok := h.getOwned(c)
	if !ok {
		return
	}
	in, ok := h.bindContract(c, existing.Agency)
	if !ok {
		return
	}

	var updated model.Contract
	err := h.store.Contracts.Update(c.Request.Context(), existing.ID, func(contract *model.Contract) {
		in.apply(contract)
		contract.UpdatedAt = h.now()
		updated = *contract
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewContractView(updated, h.now()))
}

// Delete removes a contract, its document and its boletos
func (h *ContractHandler) Delete(c *gin.Context) {
	contract, ok := h.getOwned(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if contract.DocumentKey != "" && h.documents != nil {
		if err := h.documents.DeleteDocument(ctx, contract.DocumentKey); err != nil {
			logger.Warn(ctx, "failed to delete contract document", "contract_id", contract.ID, "error", err)
		}
	}

	boletos, err := h.store.Boletos.ListByAgency(ctx, contract.Agency)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, b := range boletos {
		if b.ContractID == contract.ID {
			if err := h.store.Boletos.Delete(ctx, b.ID); err != nil {
				respondError(c, err)
				return
			}
		}
	}

	if err := h.store.Contracts.Delete(ctx, contract.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// GetStatus classifies the contract as of now and compares it with the stored status
func (h *ContractHandler) GetStatus(c *gin.Context) {
	contract, ok := h.getOwned(c)
	if !ok {
		return
	}

	res, err := contract.Classify(h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            contract.ID,
		"derived":       res,
		"label":         res.Label(),
		"badge":         res.Badge(),
		"stored_status": contract.Status,
		"in_sync":       res.Status == contract.Status,
	})
}

type reconcileChange struct {
	ID   string           `json:"id"`
	From lifecycle.Status `json:"from"`
	To   lifecycle.Status `json:"to"`
}

type reconcileFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Reconcile classifies every contract of the agency and dispatches syncs for
// the ones whose stored status is out of date. It does not wait for them.
func (h *ContractHandler) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()
	contracts, err := h.store.Contracts.ListByAgency(ctx, middleware.GetAgency(c))
	if err != nil {
		respondError(c, err)
		return
	}

	outcomes := h.reconciler.Reconcile(ctx, h.now(), service.ReconcileRecords(contracts))

	changes := []reconcileChange{}
	failures := []reconcileFailure{}
	for _, out := range outcomes {
		switch {
		case out.Err != nil:
			failures = append(failures, reconcileFailure{ID: out.ID, Error: out.Err.Error()})
		case out.Changed:
			changes = append(changes, reconcileChange{ID: out.ID, From: out.Stored, To: out.Result.Status})
		}
	}

	summary := reconcile.Summarize(outcomes)
	logger.Info(ctx, "reconcile requested", "total", summary.Total, "changed", summary.Changed, "invalid", summary.Invalid)

	c.JSON(http.StatusAccepted, gin.H{
		"summary": summary,
		"changes": changes,
		"invalid": failures,
	})
}

// Export downloads the agency's contracts as an xlsx workbook
func (h *ContractHandler) Export(c *gin.Context) {
	contracts, err := h.store.Contracts.ListByAgency(c.Request.Context(), middleware.GetAgency(c))
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	filename := fmt.Sprintf("contratos-%s.xlsx", lifecycle.FormatDate(now))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)

	if err := service.ExportContracts(c.Writer, contracts, now); err != nil {
		logger.Error(c.Request.Context(), "contract export failed", "error", err)
		_ = c.Error(err)
	}
}

// UploadDocument stores the signed contract (PDF) in object storage
func (h *ContractHandler) UploadDocument(c *gin.Context) {
	if h.documents == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document storage is not configured"})
		return
	}
	contract, ok := h.getOwned(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}
	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	// Sniff the content instead of trusting the declared type
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if detected := http.DetectContentType(buffer[:n]); !strings.Contains(detected, "pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	key, err := h.documents.UploadDocument(ctx, contract.Agency, contract.ID, header.Filename, file, header.Size)
	if err != nil {
		respondError(c, fmt.Errorf("failed to upload document: %w", err))
		return
	}

	previous := contract.DocumentKey
	err = h.store.Contracts.Update(ctx, contract.ID, func(stored *model.Contract) {
		stored.DocumentKey = key
		stored.UpdatedAt = h.now()
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if previous != "" && previous != key {
		if err := h.documents.DeleteDocument(ctx, previous); err != nil {
			logger.Warn(ctx, "failed to delete replaced document", "object", previous, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": contract.ID, "document_key": key})
}

// GetDocument returns a temporary download URL for the contract document
func (h *ContractHandler) GetDocument(c *gin.Context) {
	if h.documents == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document storage is not configured"})
		return
	}
	contract, ok := h.getOwned(c)
	if !ok {
		return
	}
	if contract.DocumentKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract has no document"})
		return
	}

	url, err := h.documents.DocumentURL(c.Request.Context(), contract.DocumentKey)
	if err != nil {
		respondError(c, fmt.Errorf("failed to generate URL: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": contract.ID, "url": url})
}
