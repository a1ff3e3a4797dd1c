package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/service"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/logger"
)

type tokenStub struct {
	claims *models.JWTClaims
}

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	handlers = append(handlers, func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, gin.H{"actor": c.GetString(logger.ActorKey), "meta": ExtractMeta(c)})
	})
	r.GET("/protected", handlers...)
	return r
}

func perform(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	claims := &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
	r := newRouter(JWT(tokenStub{claims: claims}))

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer bad").Code)

	rec := perform(r, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Actor string                 `json:"actor"`
		Meta  map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "teacher-1", body.Actor)
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestRequireRoles(t *testing.T) {
	teacher := &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
	hod := &models.JWTClaims{UserID: "hod-1", Role: models.RoleHOD}

	r := newRouter(JWT(tokenStub{claims: teacher}), RequireRoles(models.RoleHOD, models.RolePrincipal))
	assert.Equal(t, http.StatusForbidden, perform(r, "Bearer good").Code)

	r = newRouter(JWT(tokenStub{claims: hod}), RequireRoles(models.RoleHOD, models.RolePrincipal))
	assert.Equal(t, http.StatusOK, perform(r, "Bearer good").Code)

	r = newRouter(RequireRoles(models.RoleHOD))
	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
}

func TestMetricsMiddlewareWithoutService(t *testing.T) {
	r := newRouter(Metrics(nil))
	assert.Equal(t, http.StatusOK, perform(r, "").Code)
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, "").Code)
	for _, target := range []string{"/nope", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	body := scrape(t, metrics)
	assert.Contains(t, body, `path="/protected"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, `path="/nope"`)
	assert.NotContains(t, body, `path="/metrics"`)
}

func TestResponseMetaStampsProcessingTime(t *testing.T) {
	rec := perform(newRouter(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
	SetMeta(c, MetaProcessingTime, int64(7))
	SetCacheHit(c, false)
	assert.Equal(t, map[string]interface{}{MetaProcessingTime: int64(7), MetaCacheHit: false}, ExtractMeta(c))
}

func scrape(t *testing.T, metrics *service.MetricsService) string {
	t.Helper()
	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
