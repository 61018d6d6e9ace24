package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imobgestao/locacoes/backend/middleware"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
	"github.com/imobgestao/locacoes/backend/service"
)

type BoletoHandler struct {
	store *service.Store
	now   func() time.Time
}

func NewBoletoHandler(store *service.Store) *BoletoHandler {
	return &BoletoHandler{store: store, now: time.Now}
}

// BoletoView adds the display status (open boletos past due show as overdue)
type BoletoView struct {
	model.Boleto
	DisplayStatus string `json:"display_status"`
}

type issueBoletoRequest struct {
	Reference string `json:"reference" binding:"required,datetime=2006-01"`
}

// Issue creates the boleto of a reference month for a contract
func (h *BoletoHandler) Issue(c *gin.Context) {
	ctx := c.Request.Context()
	contract, err := h.store.Contracts.Get(ctx, c.Param("id"))
	if err == nil && contract.Agency != middleware.GetAgency(c) {
		err = service.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		respondError(c, err)
		return
	}

	var req issueBoletoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	now := h.now()
	boleto, err := service.IssueBoleto(ctx, h.store.Boletos, contract, req.Reference, now)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info(ctx, "boleto issued", "boleto_id", boleto.ID, "contract_id", contract.ID, "reference", boleto.Reference)
	c.JSON(http.StatusCreated, BoletoView{Boleto: boleto, DisplayStatus: boleto.DisplayStatus(now)})
}

// List returns the agency's boletos, optionally filtered by contract_id and
// display status
func (h *BoletoHandler) List(c *gin.Context) {
	contractID := c.Query("contract_id")
	status := c.Query("status")
	switch status {
	case "", model.BoletoOpen, model.BoletoPaid, model.BoletoCancelled, model.BoletoOverdue:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown boleto status " + status})
		return
	}

	boletos, err := h.store.Boletos.ListByAgency(c.Request.Context(), middleware.GetAgency(c))
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	views := make([]BoletoView, 0, len(boletos))
	for _, b := range boletos {
		if contractID != "" && b.ContractID != contractID {
			continue
		}
		view := BoletoView{Boleto: b, DisplayStatus: b.DisplayStatus(now)}
		if status != "" && view.DisplayStatus != status {
			continue
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"boletos": views})
}

// Pay marks an open boleto as paid
func (h *BoletoHandler) Pay(c *gin.Context) {
	h.transition(c, service.MarkBoletoPaid)
}

// Cancel cancels an open boleto
func (h *BoletoHandler) Cancel(c *gin.Context) {
	h.transition(c, service.CancelBoleto)
}

type boletoTransition func(ctx context.Context, boletos service.Repository[model.Boleto], id string, now time.Time) (model.Boleto, error)

func (h *BoletoHandler) transition(c *gin.Context, apply boletoTransition) {
	ctx := c.Request.Context()
	id := c.Param("id")

	existing, err := h.store.Boletos.Get(ctx, id)
	if err == nil && existing.Agency != middleware.GetAgency(c) {
		err = service.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Boleto not found"})
			return
		}
		respondError(c, err)
		return
	}

	now := h.now()
	boleto, err := apply(ctx, h.store.Boletos, id, now)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, BoletoView{Boleto: boleto, DisplayStatus: boleto.DisplayStatus(now)})
}
