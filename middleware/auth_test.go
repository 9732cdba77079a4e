package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lethabomaepa11/rocketsales-sub001/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testAuthConfig = &config.AuthConfig{
	JWTSecret:        "test-secret-key",
	TokenExpireHours: 24,
}

func TestGenerateToken(t *testing.T) {
	token, expiresAt, err := GenerateToken("testuser", []string{"SalesManager"}, testAuthConfig)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("Expected non-empty token")
	}

	expectedExpiry := time.Now().Add(24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Expiry time %v is not within expected range of %v", expiresAt, expectedExpiry)
	}
}

func TestAuthMiddleware(t *testing.T) {
	token, _, err := GenerateToken("testuser", []string{"Admin"}, testAuthConfig)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	foreign, _, _ := GenerateToken("testuser", []string{"Admin"}, &config.AuthConfig{JWTSecret: "other", TokenExpireHours: 1})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid format", token, http.StatusUnauthorized},
		{"invalid token", "Bearer invalid.token.here", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(testAuthConfig))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	token, _, err := GenerateToken("maria", []string{"sales_manager", "SalesRep"}, testAuthConfig)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	var (
		gotUser  string
		gotRoles []string
	)
	router := gin.New()
	router.Use(AuthMiddleware(testAuthConfig))
	router.GET("/test", func(c *gin.Context) {
		gotUser = GetUsername(c)
		gotRoles = GetRoles(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser != "maria" {
		t.Errorf("Expected username maria, got %q", gotUser)
	}
	if !reflect.DeepEqual(gotRoles, []string{"sales_manager", "SalesRep"}) {
		t.Errorf("Expected roles as issued, got %v", gotRoles)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	claims := Claims{
		Username: "testuser",
		Roles:    []string{"Admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(testAuthConfig.JWTSecret))

	router := gin.New()
	router.Use(AuthMiddleware(testAuthConfig))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d for expired token, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestGetUsername(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUsername(c) != "" {
		t.Error("Expected empty string for unset username")
	}

	c.Set("username", "testuser")
	if GetUsername(c) != "testuser" {
		t.Errorf("Expected 'testuser', got '%s'", GetUsername(c))
	}
}

func TestGetRoles(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetRoles(c) != nil {
		t.Error("Expected nil for unset roles")
	}

	c.Set("roles", []string{"Admin"})
	if got := GetRoles(c); len(got) != 1 || got[0] != "Admin" {
		t.Errorf("Expected [Admin], got %v", got)
	}

	c.Set("roles", "Admin")
	if GetRoles(c) != nil {
		t.Error("Expected nil for a malformed roles value")
	}
}
