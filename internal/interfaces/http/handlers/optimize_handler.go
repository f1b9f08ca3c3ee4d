package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folira/folira/internal/application/engine"
	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// OptimizeRequest is the POST /v1/optimize body.  Symbols and the date range
// are optional; when absent the liquid universe and the default lookback
// window are used.
type OptimizeRequest struct {
	Symbols   []string `json:"symbols"`
	RiskScore int      `json:"risk_score" binding:"required"`
	From      string   `json:"from"`
	To        string   `json:"to"`
}

// OptimizeResponse mirrors engine.Output.
type OptimizeResponse struct {
	Weights  allocation.WeightVector `json:"weights"`
	Metrics  allocation.Metrics      `json:"metrics"`
	Fallback bool                    `json:"fallback"`
	Eligible int                     `json:"eligible,omitempty"`
}

// OptimizeHandler serves allocation requests.
type OptimizeHandler struct {
	engine *engine.Service
	log    logging.Logger
}

func NewOptimizeHandler(eng *engine.Service, log logging.Logger) *OptimizeHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &OptimizeHandler{engine: eng, log: log.Named("handler.optimize")}
}

// Optimize handles POST /v1/optimize.
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	profile := allocation.RiskProfile(req.RiskScore)
	if err := profile.Validate(); err != nil {
		respondError(c, err)
		return
	}

	out, err := h.run(c, req, profile)
	if err != nil {
		h.log.Warn("optimize request failed",
			logging.Int("risk_score", req.RiskScore), logging.Err(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, OptimizeResponse{
		Weights:  out.Weights,
		Metrics:  out.Metrics,
		Fallback: out.Fallback,
		Eligible: out.Eligible,
	})
}

func (h *OptimizeHandler) run(c *gin.Context, req OptimizeRequest, profile allocation.RiskProfile) (*engine.Output, error) {
	if len(req.Symbols) == 0 {
		return h.engine.OptimizeUniverse(c.Request.Context(), profile)
	}

	from, to, err := parseWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}
	return h.engine.Optimize(c.Request.Context(), req.Symbols, profile, from, to)
}

// parseWindow resolves the optional date range, defaulting to the last five
// calendar years ending today.
func parseWindow(fromStr, toStr string) (common.Date, common.Date, error) {
	to := common.DateOf(timeNow())
	if toStr != "" {
		parsed, err := common.ParseDate(toStr)
		if err != nil {
			return common.Date{}, common.Date{}, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid to date")
		}
		to = parsed
	}

	from := to.AddYears(-5)
	if fromStr != "" {
		parsed, err := common.ParseDate(fromStr)
		if err != nil {
			return common.Date{}, common.Date{}, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid from date")
		}
		from = parsed
	}

	if to.Before(from) {
		return common.Date{}, common.Date{}, errors.New(errors.ErrCodeBadRequest, "from must not be after to")
	}
	return from, to, nil
}
