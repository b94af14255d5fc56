package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/models"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"github.com/yashrajoria/flash-sale-service/repository"
	"go.uber.org/zap"
)

const (
	sourceWebhook = "webhook"
	sourceVerify  = "verify"
)

// ReconciliationEngine moves payments from pending to a terminal status.
// Webhook deliveries and buyer-initiated verification both go through
// settle, which relies on PaymentRepository.TransitionStatus as the only
// guard; no in-process locking is involved.
type ReconciliationEngine struct {
	payments    repository.PaymentRepository
	gateway     PaymentGateway
	publisher   EventPublisher
	leaderboard repository.LeaderboardRepository
	metrics     *metricsSink
	logger      *zap.Logger
	now         clock
}

// NewReconciliationEngine wires the engine. publisher, leaderboard, metrics
// and logger may be nil.
func NewReconciliationEngine(
	payments repository.PaymentRepository,
	gw PaymentGateway,
	publisher EventPublisher,
	leaderboard repository.LeaderboardRepository,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *ReconciliationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationEngine{
		payments:    payments,
		gateway:     gw,
		publisher:   publisher,
		leaderboard: leaderboard,
		metrics:     newMetricsSink(metrics),
		logger:      logger,
		now:         time.Now,
	}
}

// HandleGatewayEvent applies a provider notification. It never fails from
// the caller's point of view: unknown references, duplicates and storage
// errors are logged so the provider is not pushed into retry storms.
func (e *ReconciliationEngine) HandleGatewayEvent(ctx context.Context, event models.GatewayEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered from panic while handling gateway event",
				zap.String("event", event.Event),
				zap.String("reference", event.Data.Reference),
				zap.Any("panic", r),
			)
		}
	}()

	e.metrics.count(awspkg.MetricWebhooksReceived, map[string]string{"Event": event.Event})

	var to models.PaymentStatus
	switch event.Event {
	case models.GatewayChargeSuccess:
		to = models.PaymentSuccess
	case models.GatewayChargeFailed:
		to = models.PaymentFailed
	default:
		e.metrics.count(awspkg.MetricWebhooksIgnored, map[string]string{"Event": event.Event})
		e.logger.Info("Unhandled gateway event type", zap.String("event", event.Event))
		return
	}

	ref := event.Data.Reference
	if ref == "" {
		e.logger.Warn("Gateway event without reference", zap.String("event", event.Event))
		return
	}

	payment, err := e.settle(ctx, ref, to, sourceWebhook)
	switch {
	case err == nil:
		e.logger.Info("Payment reconciled from webhook",
			zap.String("reference", ref),
			zap.String("status", string(payment.Status)),
		)
	case errors.Is(err, repository.ErrNotFound):
		e.logger.Warn("Gateway event for unknown payment reference",
			zap.String("event", event.Event),
			zap.String("reference", ref),
		)
	case errors.Is(err, repository.ErrAlreadyFinalized):
		e.logger.Info("Skipping duplicate gateway event",
			zap.String("event", event.Event),
			zap.String("reference", ref),
		)
	default:
		e.logger.Error("Failed to reconcile gateway event",
			zap.String("event", event.Event),
			zap.String("reference", ref),
			zap.Error(err),
		)
	}
}

// FinalizePurchase verifies reference with the gateway on behalf of userID
// and settles the payment. A payment that already succeeded is reported
// with AlreadyFinalized and nothing is written.
func (e *ReconciliationEngine) FinalizePurchase(ctx context.Context, reference, userID string) (*FinalizeResult, error) {
	payment, err := e.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if userID != "" && payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}

	switch payment.Status {
	case models.PaymentSuccess:
		return &FinalizeResult{Payment: payment, AlreadyFinalized: true}, nil
	case models.PaymentFailed, models.PaymentFraud:
		return nil, &PaymentNotSuccessfulError{Reference: reference, Status: string(payment.Status)}
	}

	verification, err := e.gateway.Verify(ctx, reference)
	if err != nil {
		e.metrics.count(awspkg.MetricGatewayErrors, map[string]string{"Provider": e.gateway.Name(), "Op": "verify"})
		return nil, fmt.Errorf("verify payment: %w", err)
	}

	to, terminal := statusFromProvider(verification.Status)
	if !terminal {
		return nil, &PaymentNotSuccessfulError{Reference: reference, Status: verification.Status}
	}

	settled, err := e.settle(ctx, reference, to, sourceVerify)
	if errors.Is(err, repository.ErrAlreadyFinalized) {
		// Another path settled it first; report whatever it stored.
		current, lerr := e.payments.FindByReference(ctx, reference)
		if lerr != nil {
			return nil, fmt.Errorf("reload payment: %w", lerr)
		}
		if current.Status == models.PaymentSuccess {
			return &FinalizeResult{Payment: current, AlreadyFinalized: true}, nil
		}
		return nil, &PaymentNotSuccessfulError{Reference: reference, Status: string(current.Status)}
	}
	if err != nil {
		return nil, err
	}

	if settled.Status != models.PaymentSuccess {
		return nil, &PaymentNotSuccessfulError{Reference: reference, Status: verification.Status}
	}
	return &FinalizeResult{Payment: settled}, nil
}

// settle is the single transition path shared by webhooks and verification.
// Side effects after the transition are best effort and only logged.
func (e *ReconciliationEngine) settle(ctx context.Context, reference string, to models.PaymentStatus, source string) (*models.Payment, error) {
	payment, err := e.payments.TransitionStatus(ctx, reference, to)
	if err != nil {
		return nil, err
	}

	e.metrics.count(metricForStatus(to), map[string]string{"Source": source, "Provider": payment.Provider})

	if to == models.PaymentSuccess && e.leaderboard != nil {
		if err := e.leaderboard.Record(ctx, payment.UserID, payment.UpdatedAt); err != nil {
			e.logger.Warn("Failed to record leaderboard entry",
				zap.String("user_id", payment.UserID),
				zap.String("reference", reference),
				zap.Error(err),
			)
		}
	}

	if e.publisher != nil {
		event := models.PaymentEvent{
			Type:      models.EventTypeFor(to),
			PaymentID: payment.ID,
			Reference: payment.Reference,
			UserID:    payment.UserID,
			ProductID: payment.ProductID,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Status:    payment.Status,
			Source:    source,
			Timestamp: e.now().UTC(),
		}
		if err := e.publisher.PublishPaymentEvent(ctx, event); err != nil {
			e.logger.Error("Failed to publish payment event",
				zap.String("event_type", event.Type),
				zap.String("reference", reference),
				zap.Error(err),
			)
		}
	}
	return payment, nil
}

// statusFromProvider maps a provider status onto a terminal payment status.
// The bool is false for statuses that are still in flight.
func statusFromProvider(status string) (models.PaymentStatus, bool) {
	switch status {
	case gateway.StatusSuccess:
		return models.PaymentSuccess, true
	case gateway.StatusFailed, gateway.StatusReversed:
		return models.PaymentFailed, true
	case gateway.StatusFraud:
		return models.PaymentFraud, true
	default:
		return models.PaymentPending, false
	}
}

func metricForStatus(status models.PaymentStatus) string {
	switch status {
	case models.PaymentSuccess:
		return awspkg.MetricPaymentSucceeded
	case models.PaymentFraud:
		return awspkg.MetricPaymentFraud
	default:
		return awspkg.MetricPaymentFailed
	}
}

// Flush waits for metrics still in flight.
func (e *ReconciliationEngine) Flush() {
	e.metrics.wait()
}
