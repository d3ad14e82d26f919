package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/empire-parts-api/internal/domain"
	jwtinfra "github.com/empire-parts-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
)

func roleReq(role string) *http.Request {
	claims := &jwtinfra.Claims{Role: role}
	ctx := context.WithValue(context.Background(), ClaimsKey, claims)
	return httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
}

func TestRequireRole_NoClaimsInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole_WrongRole(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, roleReq(domain.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireRole_CorrectRole(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, roleReq(domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireRole_StaffAllowedOnBackOffice(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin, domain.RoleStaff)(http.HandlerFunc(okHandler)).ServeHTTP(rr, roleReq(domain.RoleStaff))
	assert.Equal(t, http.StatusOK, rr.Code)
}
