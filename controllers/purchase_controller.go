package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/flash-sale-service/apperrors"
	"github.com/yashrajoria/flash-sale-service/middleware"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/services"
	"go.uber.org/zap"
)

type PurchaseInitiator interface {
	InitiatePurchase(ctx context.Context, req services.PurchaseRequest) (*services.PurchaseSession, error)
}

type PurchaseFinalizer interface {
	FinalizePurchase(ctx context.Context, reference, userID string) (*services.FinalizeResult, error)
}

type LeaderboardReader interface {
	Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error)
}

type InitPayRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

type PurchaseController struct {
	coordinator PurchaseInitiator
	engine      PurchaseFinalizer
	leaderboard LeaderboardReader
	logger      *zap.Logger
}

func NewPurchaseController(coordinator PurchaseInitiator, engine PurchaseFinalizer, leaderboard LeaderboardReader, logger *zap.Logger) *PurchaseController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseController{coordinator: coordinator, engine: engine, leaderboard: leaderboard, logger: logger}
}

// InitPay reserves stock for the caller and returns the gateway checkout.
func (pc *PurchaseController) InitPay(c *gin.Context) {
	var req InitPayRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := pc.coordinator.InitiatePurchase(c.Request.Context(), services.PurchaseRequest{
		UserID:    middleware.GetUserID(c),
		Email:     middleware.GetEmail(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondError(c, pc.logger, "Failed to initiate purchase", err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Kindly complete the payment", session)
}

// Complete verifies the caller's payment with the gateway and settles it.
func (pc *PurchaseController) Complete(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		apperrors.Respond(c, apperrors.BadRequest("reference is required"))
		return
	}

	result, err := pc.engine.FinalizePurchase(c.Request.Context(), reference, middleware.GetUserID(c))
	if err != nil {
		respondError(c, pc.logger, "Failed to complete payment", err)
		return
	}

	message := "payment updated successfully"
	if result.AlreadyFinalized {
		message = "payment already updated"
	}
	respondSuccess(c, http.StatusOK, message, result.Payment)
}

func (pc *PurchaseController) Leaderboard(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	if err != nil || limit <= 0 {
		limit = services.DefaultLeaderboardSize
	}
	if limit > 100 {
		limit = 100
	}

	entries, err := pc.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, pc.logger, "Failed to fetch leaderboard", err)
		return
	}
	respondSuccess(c, http.StatusOK, "", entries)
}
