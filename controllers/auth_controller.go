package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quietcircle/community/middleware"
	"github.com/quietcircle/community/models"
	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

// AuthController handles registration, login and the caller's own profile.
type AuthController struct {
	accounts       *services.AccountService
	captchaEnabled bool
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(accounts *services.AccountService, captchaEnabled bool) *AuthController {
	return &AuthController{accounts: accounts, captchaEnabled: captchaEnabled}
}

// Register creates an account and signs the caller in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username      string `json:"username" binding:"required"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if a.captchaEnabled && !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40042, "captcha invalid or expired")
		return
	}

	account, err := a.accounts.Register(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	payload, ok := a.issueToken(ctx, account)
	if !ok {
		return
	}
	utils.Created(ctx, payload)
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	account, err := a.accounts.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	payload, ok := a.issueToken(ctx, account)
	if !ok {
		return
	}
	utils.Success(ctx, payload)
}

func (a *AuthController) issueToken(ctx *gin.Context, account *models.Account) (gin.H, bool) {
	token, expiresAt, err := utils.GenerateToken(account.ID, account.Username, account.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return nil, false
	}
	return gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"account": gin.H{
			"id":       account.ID,
			"username": account.Username,
			"role":     account.Role,
		},
	}, true
}

// Logout revokes the presented token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims, ok := middleware.Claims(ctx)
	if !ok || claims.ExpiresAt == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	utils.RevokeToken(claims.ID, claims.ExpiresAt.Time)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the account and, once created, its persona. It never creates one.
func (a *AuthController) Me(ctx *gin.Context) {
	info, err := a.accounts.Me(ctx.Request.Context(), middleware.AccountID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, info)
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}
