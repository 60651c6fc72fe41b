package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/alertmanager-cachet/internal/engine"
	"github.com/miradorstack/alertmanager-cachet/internal/models"
	"github.com/miradorstack/alertmanager-cachet/internal/utils"
)

// ReconcileService turns one Alertmanager delivery into Cachet component updates.
type ReconcileService struct {
	logger     *slog.Logger
	aggregator *engine.Aggregator
	dispatcher *Dispatcher
}

// NewReconcileService constructs the reconcile service facade.
func NewReconcileService(logger *slog.Logger, aggregator *engine.Aggregator, dispatcher *Dispatcher) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	if aggregator == nil {
		aggregator = engine.NewAggregator(engine.PolicyPerAlert)
	}
	return &ReconcileService{
		logger:     logger,
		aggregator: aggregator,
		dispatcher: dispatcher,
	}
}

// Reconcile reduces the batch to one severity per component and dispatches it with token.
// It fails only with models.ErrMissingCredential; per-component failures are reported in
// the returned outcomes.
func (s *ReconcileService) Reconcile(ctx context.Context, batch models.AlertBatch, token string) ([]models.DirectiveOutcome, error) {
	logger := utils.LoggerFromContext(ctx, s.logger)

	if logger.Enabled(ctx, slog.LevelDebug) {
		now := time.Now()
		for _, alert := range batch.Alerts {
			logger.Debug("alert received",
				slog.Int("component", alert.Component),
				slog.Int("severity", alert.Severity),
				slog.String("status", alert.Status.String()),
				slog.String("fingerprint", alert.Fingerprint),
				slog.Duration("active_for", utils.ActiveFor(alert.StartsAt, alert.EndsAt, now)),
			)
		}
	}

	severities := s.aggregator.Reduce(batch)
	logger.Info("alert batch reduced",
		slog.String("group_key", batch.GroupKey),
		slog.String("receiver", batch.Receiver),
		slog.String("status", batch.Status.String()),
		slog.Int("alerts", len(batch.Alerts)),
		slog.Int("components", len(severities)),
		slog.String("policy", s.aggregator.Policy().String()),
	)

	if s.dispatcher == nil {
		return nil, errors.New("dispatcher not configured")
	}
	outcomes, err := s.dispatcher.Apply(ctx, severities, token)
	if err != nil {
		logger.Warn("unable to resolve a cachet token for the batch", slog.Int("components", len(severities)), slog.Any("error", err))
		return nil, err
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Result == models.DeliveryTransportFailure {
			failed++
		}
	}
	logger.Info("cachet updates dispatched",
		slog.Int("directives", len(outcomes)),
		slog.Int("transport_failures", failed),
		slog.Any("outcomes", outcomes),
	)
	return outcomes, nil
}
