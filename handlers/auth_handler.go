package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dartmaster/dartmaster-api/middleware"
	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/services"
	"github.com/golang-jwt/jwt/v4"
)

const accessTokenTTL = 24 * time.Hour

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
}

func NewAuthHandler(authService services.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" || input.Nickname == "" {
		badRequestResponse(w, r, errors.New("nickname, email and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.writeTokens(w, r, result)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID       int    `json:"user_id"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.UserID < 1 || input.RefreshToken == "" {
		badRequestResponse(w, r, errors.New("user_id and refresh_token are required"))
		return
	}

	result, err := h.authService.Refresh(r.Context(), input.UserID, input.RefreshToken)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.writeTokens(w, r, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "logged out"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, r *http.Request, result *services.AuthResult) {
	accessToken, err := h.signAccessToken(result.User)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"user":          result.User,
		"token":         accessToken,
		"refresh_token": result.RefreshToken,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) signAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"name":    user.Nickname,
		"exp":     time.Now().Add(accessTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
