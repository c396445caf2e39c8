package controllers

import (
	"net/http"
	"strconv"

	"github.com/Templasan/MarketPlacer/middleware"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parsePaginationParams extracts and validates pagination parameters
func parsePaginationParams(ctx *gin.Context, limitParam string) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery(limitParam, "10")); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}
	return pageInt, limitInt
}

func pageMeta(page, limit int, total int64) gin.H {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return gin.H{"page": page, "limit": limit, "total": total, "totalPages": totalPages}
}

// uuidParam parses a path parameter, answering 400 itself on failure.
func uuidParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return uuid.Nil, false
	}
	return id, true
}

func caller(ctx *gin.Context) (models.Caller, bool) {
	c, err := middleware.GetCaller(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.Caller{}, false
	}
	return c, true
}

func orderResponses(orders []models.Order) []models.OrderResponse {
	out := make([]models.OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, models.NewOrderResponse(o))
	}
	return out
}
