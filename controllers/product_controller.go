package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/flash-sale-service/apperrors"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/services"
	"go.uber.org/zap"
)

type ProductService interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	CreateProduct(ctx context.Context, in services.CreateProductInput) (*models.Product, error)
}

// CreateProductRequest carries price as a decimal so it is never parsed
// through a float.
type CreateProductRequest struct {
	Name      string          `json:"name" validate:"required"`
	Stock     *int64          `json:"stock" validate:"required,gte=0"`
	Price     decimal.Decimal `json:"price"`
	SaleStart *time.Time      `json:"saleStart"`
	SaleEnd   *time.Time      `json:"saleEnd"`
}

type ProductStockResponse struct {
	Stock int64           `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

type ProductController struct {
	products ProductService
	logger   *zap.Logger
}

func NewProductController(products ProductService, logger *zap.Logger) *ProductController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductController{products: products, logger: logger}
}

// GetProduct returns the live stock and price of one product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.logger, "Failed to fetch product", err)
		return
	}
	respondSuccess(c, http.StatusOK, "", ProductStockResponse{Stock: product.Stock, Price: product.Price})
}

func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.products.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, pc.logger, "Failed to fetch products", err)
		return
	}
	respondSuccess(c, http.StatusOK, "", products)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.Price.IsPositive() {
		apperrors.Respond(c, apperrors.BadRequest("Price must be greater than 0"))
		return
	}

	product, err := pc.products.CreateProduct(c.Request.Context(), services.CreateProductInput{
		Name:      req.Name,
		Stock:     *req.Stock,
		Price:     req.Price,
		SaleStart: req.SaleStart,
		SaleEnd:   req.SaleEnd,
	})
	if err != nil {
		respondError(c, pc.logger, "Failed to create product", err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Product created successfully", product)
}
