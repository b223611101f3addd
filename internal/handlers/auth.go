package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/services"
	"github.com/niyahq/niya-backend/internal/types"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type authResponse struct {
	User        *types.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	user, token, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, authResponse{User: user, AccessToken: token})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	user, token, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, authResponse{User: user, AccessToken: token})
}
