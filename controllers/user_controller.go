package controllers

import (
	"net/http"
	"time"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/services"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	users        services.UserService
	secureCookie bool
}

func NewUserController(users services.UserService, secureCookie bool) *UserController {
	return &UserController{users: users, secureCookie: secureCookie}
}

func (uc *UserController) Register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	user, err := uc.users.Register(ctx.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}

// Login returns the access token and also sets it as an HttpOnly cookie.
func (uc *UserController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	resp, err := uc.users.Login(ctx.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	maxAge := int(time.Until(resp.ExpiresAt).Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie("token", resp.Token, maxAge, "/", "", uc.secureCookie, true)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged in successfully", "token": resp.Token, "expires_at": resp.ExpiresAt, "user": resp.User})
}

func (uc *UserController) Logout(ctx *gin.Context) {
	ctx.SetCookie("token", "", -1, "/", "", uc.secureCookie, true)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (uc *UserController) GetUser(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	user, err := uc.users.Get(ctx.Request.Context(), id, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (uc *UserController) GetMe(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	user, err := uc.users.Get(ctx.Request.Context(), c.ID, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdateUser(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	user, err := uc.users.UpdateProfile(ctx.Request.Context(), id, c, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (uc *UserController) DeactivateUser(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if err := uc.users.Deactivate(ctx.Request.Context(), id, c); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Account deactivated"})
}

func (uc *UserController) ChangePassword(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if err := uc.users.ChangePassword(ctx.Request.Context(), id, c, &req); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
