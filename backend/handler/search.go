package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/middleware"
	"github.com/imobgestao/locacoes/backend/service"
)

type SearchHandler struct {
	store *service.Store
	now   func() time.Time
}

func NewSearchHandler(store *service.Store) *SearchHandler {
	return &SearchHandler{store: store, now: time.Now}
}

var searchKinds = map[string]bool{
	service.KindContracts:  true,
	service.KindLandlords:  true,
	service.KindTenants:    true,
	service.KindProperties: true,
}

// Search handles GET /search?q=...&kinds=contracts,tenants&status=expiring
func (h *SearchHandler) Search(c *gin.Context) {
	status, err := lifecycle.ParseStatus(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var kinds []string
	if raw := c.Query("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			k = strings.TrimSpace(k)
			if !searchKinds[k] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind " + k})
				return
			}
			kinds = append(kinds, k)
		}
	}

	results, err := service.Search(c.Request.Context(), h.store, middleware.GetAgency(c), service.SearchQuery{
		Text:   c.Query("q"),
		Kinds:  kinds,
		Status: status,
	}, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": results.Total(), "results": results})
}

// Dashboard handles GET /dashboard
func (h *SearchHandler) Dashboard(c *gin.Context) {
	d, err := service.Summarize(c.Request.Context(), h.store, middleware.GetAgency(c), h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
