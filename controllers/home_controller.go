package controllers

import (
	"net/http"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/services"
	"github.com/gin-gonic/gin"
)

type HomeController struct {
	home services.HomeService
}

func NewHomeController(home services.HomeService) *HomeController {
	return &HomeController{home: home}
}

func (hc *HomeController) GetHome(ctx *gin.Context) {
	page, err := hc.home.Get(ctx.Request.Context())
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

func (hc *HomeController) ClearCache(ctx *gin.Context) {
	if err := hc.home.ClearCache(ctx.Request.Context()); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Home cache cleared"})
}
