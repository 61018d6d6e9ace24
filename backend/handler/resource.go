package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imobgestao/locacoes/backend/middleware"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/service"
)

// stamped is implemented by pointers to registration records
type stamped[T any] interface {
	*T
	Stamp(id, agency string, created, updated time.Time)
}

// InUseFunc reports whether a record is still referenced and may not be deleted
type InUseFunc func(ctx context.Context, agency, id string) (bool, error)

// ResourceHandler serves CRUD endpoints for landlords, tenants and properties
type ResourceHandler[T model.Record, PT stamped[T]] struct {
	name   string
	plural string
	repo   service.Repository[T]
	inUse  InUseFunc
	now    func() time.Time
}

// NewResourceHandler creates the handler; plural names the list in responses
func NewResourceHandler[T model.Record, PT stamped[T]](name, plural string, repo service.Repository[T]) *ResourceHandler[T, PT] {
	return &ResourceHandler[T, PT]{name: name, plural: plural, repo: repo, now: time.Now}
}

// WithDeleteGuard rejects deletes of records for which inUse returns true
func (h *ResourceHandler[T, PT]) WithDeleteGuard(inUse InUseFunc) *ResourceHandler[T, PT] {
	h.inUse = inUse
	return h
}

// ReferencedByContract builds a delete guard over the contracts of an agency
func ReferencedByContract(contracts service.Repository[model.Contract], ref func(model.Contract) string) InUseFunc {
	return func(ctx context.Context, agency, id string) (bool, error) {
		all, err := contracts.ListByAgency(ctx, agency)
		if err != nil {
			return false, err
		}
		for _, c := range all {
			if ref(c) == id {
				return true, nil
			}
		}
		return false, nil
	}
}

// Register mounts the CRUD routes on group
func (h *ResourceHandler[T, PT]) Register(group *gin.RouterGroup) {
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func (h *ResourceHandler[T, PT]) Create(c *gin.Context) {
	var item T
	if err := c.ShouldBindJSON(&item); err != nil {
		respondBindError(c, err)
		return
	}

	now := h.now()
	PT(&item).Stamp(uuid.New().String(), middleware.GetAgency(c), now, now)
	if err := h.repo.Save(c.Request.Context(), item); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *ResourceHandler[T, PT]) List(c *gin.Context) {
	items, err := h.repo.ListByAgency(c.Request.Context(), middleware.GetAgency(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{h.plural: items})
}

func (h *ResourceHandler[T, PT]) Get(c *gin.Context) {
	item, ok := h.getOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, item)
}

// Update replaces the record, keeping its identity and creation time
func (h *ResourceHandler[T, PT]) Update(c *gin.Context) {
	existing, ok := h.getOwned(c)
	if !ok {
		return
	}

	var item T
	if err := c.ShouldBindJSON(&item); err != nil {
		respondBindError(c, err)
		return
	}

	PT(&item).Stamp(existing.RecordID(), existing.RecordAgency(), existing.RecordCreatedAt(), h.now())
	if err := h.repo.Save(c.Request.Context(), item); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ResourceHandler[T, PT]) Delete(c *gin.Context) {
	item, ok := h.getOwned(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.inUse != nil {
		used, err := h.inUse(ctx, item.RecordAgency(), item.RecordID())
		if err != nil {
			respondError(c, err)
			return
		}
		if used {
			c.JSON(http.StatusConflict, gin.H{"error": "The " + h.name + " is referenced by a contract"})
			return
		}
	}

	if err := h.repo.Delete(ctx, item.RecordID()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (h *ResourceHandler[T, PT]) getOwned(c *gin.Context) (T, bool) {
	item, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err == nil && item.RecordAgency() != middleware.GetAgency(c) {
		err = service.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		} else {
			respondError(c, err)
		}
		return item, false
	}
	return item, true
}
