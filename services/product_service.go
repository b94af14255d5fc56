package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultSaleWindow = 24 * time.Hour

// ProductCache is satisfied by *repository.ProductCache. Get returns
// (nil, nil) on a miss.
type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Set(ctx context.Context, p *models.Product) error
}

type CreateProductInput struct {
	Name      string
	Stock     int64
	Price     decimal.Decimal
	SaleStart *time.Time
	SaleEnd   *time.Time
}

// ProductService serves the catalog. Static product fields may come from
// the cache; stock is always read from the inventory store.
type ProductService struct {
	products  repository.ProductRepository
	inventory repository.InventoryStore
	cache     ProductCache
	group     singleflight.Group
	logger    *zap.Logger
	now       clock
}

// NewProductService wires the catalog. cache may be nil.
func NewProductService(products repository.ProductRepository, inventory repository.InventoryStore, cache ProductCache, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products:  products,
		inventory: inventory,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	stock, err := s.inventory.GetStock(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load stock: %w", err)
	}

	out := *product
	out.Stock = stock
	return &out, nil
}

// loadProduct collapses concurrent cache misses for the same id into one
// repository read.
func (s *ProductService) loadProduct(ctx context.Context, id string) (*models.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	// Waiters share this load; it is detached from the first caller's cancel.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		product, err := s.products.FindByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(loadCtx, product); err != nil {
				s.logger.Warn("Product cache write failed", zap.String("product_id", id), zap.Error(err))
			}
		}
		return product, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return v.(*models.Product), nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for _, p := range products {
		stock, err := s.inventory.GetStock(ctx, p.ID)
		if err != nil {
			s.logger.Warn("Stock lookup failed", zap.String("product_id", p.ID), zap.Error(err))
			continue
		}
		p.Stock = stock
	}
	return products, nil
}

// CreateProduct stores a product and seeds its stock. The name is stored
// lower-cased; the sale window defaults to a day starting now.
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if name == "" || in.Stock < 0 || !in.Price.IsPositive() {
		return nil, ErrInvalidProduct
	}

	start := s.now().UTC()
	if in.SaleStart != nil {
		start = in.SaleStart.UTC()
	}
	end := start.Add(defaultSaleWindow)
	if in.SaleEnd != nil {
		end = in.SaleEnd.UTC()
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: saleEnd must be after saleStart", ErrInvalidProduct)
	}

	product := &models.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Stock:     in.Stock,
		Price:     in.Price.Round(2),
		SaleStart: start,
		SaleEnd:   end,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	if err := s.inventory.SetStock(ctx, product.ID, product.Stock); err != nil {
		return nil, fmt.Errorf("seed stock: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int64("stock", product.Stock),
	)
	return product, nil
}
