package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/testutil"
	"github.com/folira/folira/pkg/errors"
)

func seedRepo(t *testing.T) (*testutil.MemoryPortfolioRepo, *portfolio.Portfolio) {
	t.Helper()
	repo := testutil.NewMemoryPortfolioRepo()

	res := &allocation.Result{
		Weights: allocation.WeightVector{
			"VTI": 0.3, "QQQ": 0.25, "BND": 0.2, "VEA": 0.15, "VOO": 0.1,
		},
		Metrics: allocation.Metrics{ExpectedReturn: 0.08, Volatility: 0.14, SharpeRatio: 0.4286},
	}
	p, err := portfolio.NewPortfolio("owner-1", allocation.RiskBalanced, res,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 6*30*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), p))
	return repo, p
}

func newPortfolioRouter(repo portfolio.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPortfolioHandler(repo, nil)
	r := gin.New()
	r.GET("/v1/portfolios/:owner", h.GetCurrent)
	r.GET("/v1/portfolios/versions/:id", h.GetByID)
	return r
}

func TestGetCurrent_ReturnsLatestVersion(t *testing.T) {
	repo, p := seedRepo(t)
	r := newPortfolioRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/portfolios/owner-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got portfolio.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, p.ID, got.ID)
	assert.InDelta(t, 0.3, got.Weights["VTI"], 1e-12)
}

func TestGetCurrent_UnknownOwner(t *testing.T) {
	repo, _ := seedRepo(t)
	r := newPortfolioRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/portfolios/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errors.ErrCodePortfolioNotFound.String(), resp.Code)
}

func TestGetByID(t *testing.T) {
	repo, p := seedRepo(t)
	r := newPortfolioRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/portfolios/versions/"+p.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got portfolio.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, p.OwnerID, got.OwnerID)
}

func TestGetByID_InvalidUUID(t *testing.T) {
	repo, _ := seedRepo(t)
	r := newPortfolioRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/portfolios/versions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
