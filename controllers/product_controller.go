package controllers

import (
	"net/http"
	"strings"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	service services.CatalogService
}

func NewProductController(service services.CatalogService) *ProductController {
	return &ProductController{service: service}
}

func decimalQuery(ctx *gin.Context, name string) (*decimal.Decimal, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &d, true
}

// SearchProducts lists active products matching the query filters.
func (pc *ProductController) SearchProducts(ctx *gin.Context) {
	minPrice, ok := decimalQuery(ctx, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := decimalQuery(ctx, "max_price")
	if !ok {
		return
	}
	filter := models.ProductFilter{
		Name:     ctx.Query("name"),
		Category: ctx.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}
	page, pageSize := parsePaginationParams(ctx, "pageSize")

	result, err := pc.service.Search(ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (pc *ProductController) GetProduct(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	product, err := pc.service.Get(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, product)
}

func (pc *ProductController) CreateProduct(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	var req models.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	product, err := pc.service.Create(ctx.Request.Context(), c, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, product)
}

func (pc *ProductController) UpdateProduct(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	product, err := pc.service.Update(ctx.Request.Context(), id, c, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, product)
}

// DeleteProduct deactivates the product; it stays readable by id.
func (pc *ProductController) DeleteProduct(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if err := pc.service.Deactivate(ctx.Request.Context(), id, c); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Product deactivated"})
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// AdjustStock is an admin correction of stock by a signed delta.
func (pc *ProductController) AdjustStock(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req adjustStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if err := pc.service.AdjustStock(ctx.Request.Context(), id, req.Delta); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	product, err := pc.service.Get(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, product)
}

func (pc *ProductController) MyProducts(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	products, err := pc.service.ListBySeller(ctx.Request.Context(), c.ID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"products": products})
}

func (pc *ProductController) Categories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"categories": pc.service.Categories()})
}

type imageURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// ImageUploadURL returns a presigned S3 PUT URL for the product image.
func (pc *ProductController) ImageUploadURL(ctx *gin.Context) {
	c, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req imageURLRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	out, err := pc.service.ImageUploadURL(ctx.Request.Context(), id, c, req.Filename, req.ContentType)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}
