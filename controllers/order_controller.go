package controllers

import (
	"net/http"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/services"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orders   services.OrderService
	checkout services.CheckoutService
}

func NewOrderController(orders services.OrderService, checkout services.CheckoutService) *OrderController {
	return &OrderController{orders: orders, checkout: checkout}
}

// CreateOrder places a pending order directly from a list of items.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	order, err := oc.checkout.CreateOrder(ctx.Request.Context(), c, req.Items)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": models.NewOrderResponse(*order)})
}

// GetOrders returns paginated orders for the authenticated user
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx, "limit")
	orders, total, err := oc.orders.ListMine(ctx.Request.Context(), c, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orderResponses(orders), "meta": pageMeta(page, limit, total)})
}

// GetSellerOrders returns orders containing at least one of the seller's products.
func (oc *OrderController) GetSellerOrders(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx, "limit")
	orders, total, err := oc.orders.ListForSeller(ctx.Request.Context(), c, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orderResponses(orders), "meta": pageMeta(page, limit, total)})
}

// GetAllOrders returns paginated orders for all users (admin only)
func (oc *OrderController) GetAllOrders(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx, "limit")
	orders, total, err := oc.orders.ListAll(ctx.Request.Context(), c, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orderResponses(orders), "meta": pageMeta(page, limit, total)})
}

func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	order, err := oc.orders.Get(ctx.Request.Context(), id, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": models.NewOrderResponse(*order)})
}

// PayOrder confirms payment: stock is taken and the order becomes Pago.
func (oc *OrderController) PayOrder(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	order, err := oc.orders.ConfirmPayment(ctx.Request.Context(), id, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": models.NewOrderResponse(*order)})
}

func (oc *OrderController) UpdateStatus(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	order, err := oc.orders.UpdateStatus(ctx.Request.Context(), id, req.Status, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": models.NewOrderResponse(*order)})
}

func (oc *OrderController) GetHistory(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	history, err := oc.orders.History(ctx.Request.Context(), id, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"history": history})
}
