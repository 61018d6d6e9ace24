package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// WebhookHandler receives contract changes pushed by the remote backend
type WebhookHandler struct {
	seed       string
	store      *service.Store
	reconciler *reconcile.Reconciler
	now        func() time.Time
}

func NewWebhookHandler(seed string, store *service.Store, reconciler *reconcile.Reconciler) *WebhookHandler {
	return &WebhookHandler{
		seed:       seed,
		store:      store,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// WebhookRequest carries a contract record as a JSON string in content,
// signed with SHA256(agency + seed + content)
type WebhookRequest struct {
	Checksum string `json:"checksum" binding:"required"`
	Agency   string `json:"agency" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// HandleContract upserts the pushed contract dates and answers with the
// fresh classification. A stale stored status is reconciled in the background.
func (h *WebhookHandler) HandleContract(c *gin.Context) {
	if h.seed == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Webhooks are not configured"})
		return
	}

	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !service.VerifyWebhook(h.seed, req.Checksum, req.Agency, req.Content) {
		logger.Warn(c.Request.Context(), "webhook checksum mismatch", "agency", req.Agency)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	var remote service.RemoteContract
	if err := jsonAPI.Unmarshal([]byte(req.Content), &remote); err != nil || remote.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}
	remote.Agency = req.Agency

	d, err := lifecycle.ParseDates(remote.StartDate, remote.EndDate, remote.NextReadjustmentDate)
	if err != nil {
		respondError(c, err)
		return
	}
	if d.End.Before(d.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must not be before startDate"})
		return
	}

	ctx := logger.WithAgency(c.Request.Context(), req.Agency)
	now := h.now()
	record := remote.Record()

	existing, err := h.store.Contracts.Get(ctx, remote.ID)
	switch {
	case err == nil && existing.Agency != req.Agency:
		c.JSON(http.StatusConflict, gin.H{"error": "Contract belongs to another agency"})
		return
	case err == nil:
		err = h.store.Contracts.Update(ctx, remote.ID, func(contract *model.Contract) {
			contract.StartDate = record.StartDate
			contract.EndDate = record.EndDate
			contract.NextReadjustmentDate = record.NextReadjustmentDate
			contract.Status = record.StoredStatus
			contract.UpdatedAt = now
		})
	case errors.Is(err, service.ErrNotFound):
		err = h.store.Contracts.Save(ctx, model.Contract{
			ID:                   remote.ID,
			Agency:               req.Agency,
			Code:                 remote.ID,
			StartDate:            record.StartDate,
			EndDate:              record.EndDate,
			NextReadjustmentDate: record.NextReadjustmentDate,
			Status:               record.StoredStatus,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}
	if err != nil {
		respondError(c, err)
		return
	}

	out := h.reconciler.Reconcile(ctx, now, []reconcile.Record{record})[0]
	logger.Info(ctx, "contract pushed by backend",
		"contract_id", remote.ID,
		"status", out.Result.Status,
		"changed", out.Changed,
	)

	c.JSON(http.StatusOK, gin.H{
		"id":            remote.ID,
		"derived":       out.Result,
		"label":         out.Result.Label(),
		"badge":         out.Result.Badge(),
		"stored_status": out.Stored,
		"changed":       out.Changed,
	})
}
