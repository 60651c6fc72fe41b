package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/alertmanager-cachet/internal/metrics"
	"github.com/miradorstack/alertmanager-cachet/internal/models"
	"github.com/miradorstack/alertmanager-cachet/internal/utils"
)

// latencyReportEvery controls how often the dispatcher logs its p95 update latency.
const latencyReportEvery = 50

// StatusClient is the Cachet operation the dispatcher needs.
type StatusClient interface {
	UpdateComponentStatus(ctx context.Context, token string, component, status int) (int, error)
}

// Dispatcher pushes a SeverityMap to Cachet, one update per component.
type Dispatcher struct {
	logger      *slog.Logger
	client      StatusClient
	concurrency int
	latencies   *utils.LatencyTracker
}

// NewDispatcher constructs a dispatcher issuing at most concurrency updates at once.
func NewDispatcher(logger *slog.Logger, client StatusClient, concurrency int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		logger:      logger,
		client:      client,
		concurrency: concurrency,
		latencies:   utils.NewLatencyTracker(1024),
	}
}

// Apply sends one status update per entry of severities using the given Cachet token and
// returns one outcome per entry, ordered by component id. A failed update never aborts its
// siblings. An empty token fails the whole batch with models.ErrMissingCredential before
// anything is sent.
func (d *Dispatcher) Apply(ctx context.Context, severities models.SeverityMap, token string) ([]models.DirectiveOutcome, error) {
	if token == "" {
		return nil, models.ErrMissingCredential
	}

	directives := severities.Directives()
	outcomes := make([]models.DirectiveOutcome, len(directives))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, directive := range directives {
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, token, directive)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, token string, directive models.StatusDirective) models.DirectiveOutcome {
	logger := utils.LoggerFromContext(ctx, d.logger)

	start := time.Now()
	code, err := d.client.UpdateComponentStatus(ctx, token, directive.Component, directive.Severity)
	duration := time.Since(start)

	outcome := models.DirectiveOutcome{Directive: directive}
	if err != nil {
		outcome.HTTPStatus = http.StatusInternalServerError
		outcome.Result = models.DeliveryTransportFailure
		logger.Error("could not contact the cachet API",
			slog.Int("component", directive.Component),
			slog.Int("severity", directive.Severity),
			slog.Any("error", err),
		)
	} else {
		outcome.HTTPStatus = code
		outcome.Result = models.DeliveryDelivered
		logger.Debug("component status updated",
			slog.Int("component", directive.Component),
			slog.Int("severity", directive.Severity),
			slog.Int("http_status", code),
			slog.Duration("duration", duration),
		)
	}

	metrics.ObserveDirective(duration, outcome.Result)
	d.latencies.Observe(duration)
	if total := d.latencies.Total(); total%latencyReportEvery == 0 {
		logger.Info("cachet update latency", slog.Duration("p95", d.latencies.Percentile(95)), slog.Int("samples", d.latencies.Count()))
	}
	return outcome
}
