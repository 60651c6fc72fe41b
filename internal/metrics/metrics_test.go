package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/alertmanager-cachet/internal/models"
)

func TestRegisterTwiceIsTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should be tolerated: %v", err)
	}
}

func TestObserveDirectiveLabels(t *testing.T) {
	delivered := testutil.ToFloat64(directivesTotal.WithLabelValues("delivered"))
	failed := testutil.ToFloat64(directivesTotal.WithLabelValues("transport_failure"))

	ObserveDirective(10*time.Millisecond, models.DeliveryDelivered)
	ObserveDirective(-time.Second, models.DeliveryTransportFailure)
	ObserveDirective(time.Millisecond, models.DeliveryResult("bogus"))

	if got := testutil.ToFloat64(directivesTotal.WithLabelValues("delivered")) - delivered; got != 2 {
		t.Fatalf("expected 2 delivered, got %v", got)
	}
	if got := testutil.ToFloat64(directivesTotal.WithLabelValues("transport_failure")) - failed; got != 1 {
		t.Fatalf("expected 1 transport failure, got %v", got)
	}
}

func TestObserveWebhook(t *testing.T) {
	before := testutil.ToFloat64(webhookRequestsTotal.WithLabelValues(ResultUnauthorized))
	ObserveWebhook(ResultUnauthorized)
	if got := testutil.ToFloat64(webhookRequestsTotal.WithLabelValues(ResultUnauthorized)) - before; got != 1 {
		t.Fatalf("expected one unauthorized request, got %v", got)
	}
}
