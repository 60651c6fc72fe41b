package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miradorstack/alertmanager-cachet/internal/engine"
	"github.com/miradorstack/alertmanager-cachet/internal/models"
	"github.com/miradorstack/alertmanager-cachet/internal/repo"
)

func TestReconcileAgainstCachet(t *testing.T) {
	var (
		mu      sync.Mutex
		updates = map[string]int{}
	)
	cachet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(repo.TokenHeader) != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Status int `json:"status"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		updates[strings.TrimPrefix(r.URL.Path, "/api/v1/components/")] = body.Status
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer cachet.Close()

	client := repo.NewCachetClient(cachet.URL, time.Second)
	service := NewReconcileService(nil, engine.NewAggregator(engine.PolicyPerAlert), NewDispatcher(nil, client, 4))

	batch := models.AlertBatch{
		Status: models.AlertStatusFiring,
		Alerts: []models.AlertRecord{
			{Status: models.AlertStatusFiring, Component: 5, Severity: 3},
			{Status: models.AlertStatusFiring, Component: 5, Severity: 2},
			{Status: models.AlertStatusResolved, Component: 7, Severity: 4},
		},
	}

	outcomes, err := service.Reconcile(context.Background(), batch, "token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if updates["5"] != 3 || updates["7"] != 1 || len(updates) != 2 {
		t.Fatalf("unexpected cachet updates: %v", updates)
	}
	for _, outcome := range outcomes {
		if outcome.HTTPStatus != http.StatusOK {
			t.Fatalf("unexpected outcome: %+v", outcome)
		}
	}
}

func TestReconcileMissingToken(t *testing.T) {
	client := newStatusClientStub()
	service := NewReconcileService(nil, nil, NewDispatcher(nil, client, 1))

	batch := models.AlertBatch{Alerts: []models.AlertRecord{{Status: models.AlertStatusFiring, Component: 1, Severity: 2}}}
	if _, err := service.Reconcile(context.Background(), batch, ""); !errors.Is(err, models.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected no outbound calls")
	}
}

func TestReconcileWithoutDispatcher(t *testing.T) {
	service := NewReconcileService(nil, nil, nil)
	if _, err := service.Reconcile(context.Background(), models.AlertBatch{}, "token"); err == nil {
		t.Fatalf("expected error without dispatcher")
	}
}
