package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/internal/models"
	"github.com/fitzone/booking-api/internal/service"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, role models.UserRole, expiry time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		Email:  "member@fitzone.test",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func buildSecuredRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: testSecret})

	router := gin.New()
	group := router.Group("", JWT(auth))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return router
}

func perform(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	router := buildSecuredRouter()
	resp := perform(router, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	router := buildSecuredRouter()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	router := buildSecuredRouter()
	resp := perform(router, signedToken(t, models.RoleMember, -time.Minute))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTAcceptsValidToken(t *testing.T) {
	router := buildSecuredRouter()
	resp := perform(router, signedToken(t, models.RoleMember, time.Hour))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"user_id":"user-1"`)
}

func TestRequireRolesBlocksMember(t *testing.T) {
	router := buildSecuredRouter(models.RoleAdmin, models.RoleTrainer)
	resp := perform(router, signedToken(t, models.RoleMember, time.Hour))
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequireRolesAllowsTrainer(t *testing.T) {
	router := buildSecuredRouter(models.RoleAdmin, models.RoleTrainer)
	resp := perform(router, signedToken(t, models.RoleTrainer, time.Hour))
	require.Equal(t, http.StatusOK, resp.Code)
}
