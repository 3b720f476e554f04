package mockbackend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const usernameKey = "username"

type accessClaims struct {
	TokenType  string `json:"token_type"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type profile struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (s *Server) handleToken(c echo.Context) error {
	var req tokenRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "No active account found with the given credentials")
	}

	access, err := s.issueAccess(u.Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenPair{Access: access, Refresh: s.issueRefresh(u.Username)})
}

func (s *Server) handleRefresh(c echo.Context) error {
	s.refreshCalls.Add(1)
	if hook := s.refreshHook.Load(); hook != nil {
		(*hook)()
	}
	if s.failRefresh.Load() {
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh unavailable")
	}

	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	username, ok := s.refreshTokens[req.Refresh]
	if ok && s.config.RotateRefresh {
		delete(s.refreshTokens, req.Refresh)
	}
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired")
	}

	access, err := s.issueAccess(username)
	if err != nil {
		return err
	}
	resp := tokenPair{Access: access}
	if s.config.RotateRefresh {
		resp.Refresh = s.issueRefresh(username)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Username]; exists {
		return fieldErrors{"username": {"A user with that username already exists."}}
	}
	u := &user{
		ID:           s.nextUserID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	s.nextUserID++
	s.users[u.Username] = u

	return c.JSON(http.StatusCreated, profile{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (s *Server) issueAccess(username string) (string, error) {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	now := time.Now()
	claims := accessClaims{
		TokenType:  "access",
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", err
	}
	s.issuedTotal.WithLabelValues("access").Inc()
	return token, nil
}

func (s *Server) issueRefresh(username string) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.refreshTokens[token] = username
	s.mu.Unlock()

	s.issuedTotal.WithLabelValues("refresh").Inc()
	return token
}

// requireAuth rejects requests without a valid, current access token
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
		}

		username, err := s.verifyAccess(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Given token not valid for any token type")
		}
		c.Set(usernameKey, username)
		return next(c)
	}
}

func (s *Server) verifyAccess(raw string) (string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.TokenType != "access" {
		return "", errors.New("not an access token")
	}

	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if claims.Generation != current {
		return "", errors.New("token revoked")
	}
	return claims.Subject, nil
}
