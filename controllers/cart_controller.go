package controllers

import (
	"net/http"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/services"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	carts    services.CartService
	checkout services.CheckoutService
}

func NewCartController(carts services.CartService, checkout services.CheckoutService) *CartController {
	return &CartController{carts: carts, checkout: checkout}
}

func (cc *CartController) respondWithView(ctx *gin.Context, c models.Caller) {
	view, err := cc.carts.View(ctx.Request.Context(), c.ID, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// GetCart returns the caller's cart priced at current product prices.
func (cc *CartController) GetCart(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	cc.respondWithView(ctx, c)
}

func (cc *CartController) AddItem(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	var req models.AddCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if err := cc.carts.AddItem(ctx.Request.Context(), c.ID, req.ProductID, req.Quantity, c); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	cc.respondWithView(ctx, c)
}

func (cc *CartController) UpdateItem(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	productID, ok := uuidParam(ctx, "productId")
	if !ok {
		return
	}
	var req models.SetCartQuantityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if err := cc.carts.SetQuantity(ctx.Request.Context(), c.ID, productID, req.Quantity, c); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	cc.respondWithView(ctx, c)
}

func (cc *CartController) RemoveItem(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	productID, ok := uuidParam(ctx, "productId")
	if !ok {
		return
	}
	if err := cc.carts.RemoveItem(ctx.Request.Context(), c.ID, productID, c); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	cc.respondWithView(ctx, c)
}

func (cc *CartController) ClearCart(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	if err := cc.carts.Clear(ctx.Request.Context(), c.ID, c); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// Checkout turns the cart into a pending order.
func (cc *CartController) Checkout(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	order, err := cc.checkout.Checkout(ctx.Request.Context(), c.ID, c)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": models.NewOrderResponse(*order)})
}
