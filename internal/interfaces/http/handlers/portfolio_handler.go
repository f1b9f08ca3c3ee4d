package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// timeNow is injectable for tests.
var timeNow = time.Now

// PortfolioHandler serves the owner-facing portfolio read endpoints.
type PortfolioHandler struct {
	repo portfolio.Repository
	log  logging.Logger
}

func NewPortfolioHandler(repo portfolio.Repository, log logging.Logger) *PortfolioHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PortfolioHandler{repo: repo, log: log.Named("handler.portfolio")}
}

// GetCurrent handles GET /v1/portfolios/:owner — the owner's latest version.
func (h *PortfolioHandler) GetCurrent(c *gin.Context) {
	owner := common.OwnerID(c.Param("owner"))
	if owner == "" {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "owner is required"))
		return
	}

	p, err := h.repo.FindCurrentByOwner(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetByID handles GET /v1/portfolios/versions/:id — one specific version.
func (h *PortfolioHandler) GetByID(c *gin.Context) {
	id := common.ID(c.Param("id"))
	if err := id.Validate(); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid portfolio id"))
		return
	}

	p, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
