package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	poolapp "github.com/payflow/backend/internal/application/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/interfaces/http/dto"
	"github.com/payflow/backend/internal/interfaces/http/middleware"
	"github.com/payflow/backend/tests/testutil"
)

// injectActor simulates an authenticated request without a real JWT
func injectActor(actor shared.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorKey, actor)
		c.Next()
	}
}

func newPoolTestRouter(t *testing.T, actor shared.Actor) (*gin.Engine, *testutil.MemoryUnitOfWork) {
	t.Helper()
	uow := testutil.NewMemoryUnitOfWork()
	svc := poolapp.NewPoolService(uow, uow.PoolRepo)
	h := NewPoolHandler(svc)

	engine := gin.New()
	engine.Use(injectActor(actor))
	engine.GET("/pool", h.GetPool)
	engine.POST("/pool/deposits", h.Deposit)
	engine.POST("/pool/withdrawals", h.Withdraw)
	engine.GET("/pool/holders/:id", h.GetShareHolder)
	return engine, uow
}

func TestPoolHandler_DepositAndGet(t *testing.T) {
	provider := shared.Actor{ID: uuid.New(), Role: shared.RoleProvider}
	engine, _ := newPoolTestRouter(t, provider)

	body, _ := json.Marshal(map[string]any{"amount": "100000.00"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/pool/deposits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "100000", data["shares_minted"])

	// Pool state reflects the deposit
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/pool", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	pool := resp.Data.(map[string]interface{})
	assert.Equal(t, "100000", pool["total_assets"])

	// Holder position is queryable
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/pool/holders/"+provider.ID.String(), nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPoolHandler_Deposit_RejectsMissingAmount(t *testing.T) {
	provider := shared.Actor{ID: uuid.New(), Role: shared.RoleProvider}
	engine, _ := newPoolTestRouter(t, provider)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/pool/deposits", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPoolHandler_Withdraw_OverdrawIsUnprocessable(t *testing.T) {
	provider := shared.Actor{ID: uuid.New(), Role: shared.RoleProvider}
	engine, _ := newPoolTestRouter(t, provider)

	body, _ := json.Marshal(map[string]any{"amount": "1000.00"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/pool/deposits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	body, _ = json.Marshal(map[string]any{"assets": "5000.00"})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/pool/withdrawals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInsufficientLiquidity, resp.Error.Code)
}

func TestPoolHandler_GetPool_EmptyIsNotFound(t *testing.T) {
	operator := shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}
	engine, _ := newPoolTestRouter(t, operator)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/pool", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
