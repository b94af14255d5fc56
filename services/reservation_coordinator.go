package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/models"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"github.com/yashrajoria/flash-sale-service/repository"
	"go.uber.org/zap"
)

// ReservationCoordinator turns a purchase request into reserved stock, a
// pending payment and a purchase record.
type ReservationCoordinator struct {
	products  repository.ProductRepository
	inventory repository.InventoryStore
	payments  repository.PaymentRepository
	purchases repository.PurchaseRepository
	gateway   PaymentGateway
	metrics   *metricsSink
	logger    *zap.Logger
	currency  string
	now       clock
	newID     func() string
}

// NewReservationCoordinator wires the coordinator. metrics and logger may be nil.
func NewReservationCoordinator(
	products repository.ProductRepository,
	inventory repository.InventoryStore,
	payments repository.PaymentRepository,
	purchases repository.PurchaseRepository,
	gw PaymentGateway,
	currency string,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *ReservationCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationCoordinator{
		products:  products,
		inventory: inventory,
		payments:  payments,
		purchases: purchases,
		gateway:   gw,
		metrics:   newMetricsSink(metrics),
		logger:    logger,
		currency:  currency,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// InitiatePurchase reserves stock and opens a gateway session.
//
// The sale-window check is only a fast path; the conditional decrement is
// what prevents overselling. Nothing is written when the decrement fails.
// Once stock is decremented it is not given back if a later step fails:
// the error is returned and the orphaned reservation is logged and counted.
func (c *ReservationCoordinator) InitiatePurchase(ctx context.Context, req PurchaseRequest) (*PurchaseSession, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := c.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	if !product.SaleActive(c.now()) {
		c.reject(product.ID, "sale_not_active")
		return nil, ErrSaleNotActive
	}

	remaining, err := c.inventory.ReserveStock(ctx, product.ID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			c.reject(product.ID, "insufficient_stock")
			return nil, ErrInsufficientStock
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrProductNotFound
		default:
			return nil, fmt.Errorf("reserve stock: %w", err)
		}
	}
	c.metrics.count(awspkg.MetricInventoryReserved, map[string]string{"ProductID": product.ID})

	amount := product.Price.Mul(decimal.NewFromInt(req.Quantity))

	session, err := c.gateway.Initialize(ctx, gateway.InitializeRequest{
		Email:       req.Email,
		Amount:      amount,
		Currency:    c.currency,
		Description: fmt.Sprintf("payment for %s", product.Name),
		Metadata: map[string]string{
			"user_id":    req.UserID,
			"product_id": product.ID,
			"quantity":   strconv.FormatInt(req.Quantity, 10),
			"purpose":    fmt.Sprintf("payment for %s", product.Name),
		},
	})
	if err != nil {
		c.metrics.count(awspkg.MetricGatewayErrors, map[string]string{"Provider": c.gateway.Name(), "Op": "initialize"})
		c.orphaned(req, remaining, "gateway_initialize", err)
		return nil, fmt.Errorf("initialize payment: %w", err)
	}

	payment := &models.Payment{
		ID:        c.newID(),
		UserID:    req.UserID,
		ProductID: product.ID,
		Amount:    amount,
		Currency:  c.currency,
		Provider:  c.gateway.Name(),
		Reference: session.Reference,
		Status:    models.PaymentPending,
	}
	if err := c.payments.Create(ctx, payment); err != nil {
		c.orphaned(req, remaining, "persist_payment", err)
		return nil, fmt.Errorf("save payment: %w", err)
	}

	purchase := &models.Purchase{
		ID:        c.newID(),
		UserID:    req.UserID,
		ProductID: product.ID,
		PaymentID: payment.ID,
		Quantity:  req.Quantity,
	}
	if err := c.purchases.Create(ctx, purchase); err != nil {
		c.orphaned(req, remaining, "persist_purchase", err)
		return nil, fmt.Errorf("save purchase: %w", err)
	}

	c.metrics.count(awspkg.MetricPurchasesInitiated, map[string]string{"ProductID": product.ID})
	c.logger.Info("Purchase initiated",
		zap.String("user_id", req.UserID),
		zap.String("product_id", product.ID),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("remaining_stock", remaining),
		zap.String("reference", session.Reference),
		zap.String("amount", amount.StringFixed(2)),
	)

	return &PurchaseSession{
		Reference:   session.Reference,
		RedirectURL: session.RedirectURL,
		PaymentID:   payment.ID,
		PurchaseID:  purchase.ID,
		Amount:      amount,
	}, nil
}

func (c *ReservationCoordinator) reject(productID, reason string) {
	c.metrics.count(awspkg.MetricReservationsRejected, map[string]string{"ProductID": productID, "Reason": reason})
}

// orphaned records stock that was decremented without a matching payment.
// Reconciling it is left to an out-of-band job.
func (c *ReservationCoordinator) orphaned(req PurchaseRequest, remaining int64, stage string, err error) {
	c.metrics.count(awspkg.MetricReservationsOrphaned, map[string]string{"ProductID": req.ProductID, "Stage": stage})
	c.logger.Error("Stock reserved but purchase not completed; reservation not compensated",
		zap.String("stage", stage),
		zap.String("user_id", req.UserID),
		zap.String("product_id", req.ProductID),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("remaining_stock", remaining),
		zap.Error(err),
	)
}

// Flush waits for metrics still in flight.
func (c *ReservationCoordinator) Flush() {
	c.metrics.wait()
}
