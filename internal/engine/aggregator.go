package engine

import (
	"fmt"

	"github.com/miradorstack/alertmanager-cachet/internal/models"
)

// StatusPolicy decides whose status resolves an alert record.
type StatusPolicy int

const (
	// PolicyPerAlert uses each record's own status.
	PolicyPerAlert StatusPolicy = iota
	// PolicyBatch applies the batch-level status to every record in the batch.
	PolicyBatch
)

// Policy names as they appear in configuration.
const (
	PolicyNameAlert = "alert"
	PolicyNameBatch = "batch"
)

// ParseStatusPolicy maps the configured policy name onto a StatusPolicy.
func ParseStatusPolicy(name string) (StatusPolicy, error) {
	switch name {
	case PolicyNameAlert, "":
		return PolicyPerAlert, nil
	case PolicyNameBatch:
		return PolicyBatch, nil
	default:
		return PolicyPerAlert, fmt.Errorf("unknown status policy %q", name)
	}
}

func (p StatusPolicy) String() string {
	if p == PolicyBatch {
		return PolicyNameBatch
	}
	return PolicyNameAlert
}

// Aggregator folds an alert batch into the status each component should end up with.
// A component only ever moves up within one batch: the highest effective severity wins,
// and a resolved record contributes the baseline severity.
type Aggregator struct {
	policy StatusPolicy
}

// NewAggregator constructs an Aggregator using the given status policy.
func NewAggregator(policy StatusPolicy) *Aggregator {
	return &Aggregator{policy: policy}
}

// Policy returns the status policy in use.
func (a *Aggregator) Policy() StatusPolicy {
	return a.policy
}

// Reduce returns the target severity for every component named in the batch. Components
// whose records never ask for more than severity 0 are left out.
func (a *Aggregator) Reduce(batch models.AlertBatch) models.SeverityMap {
	components := make(models.SeverityMap, len(batch.Alerts))
	for _, alert := range batch.Alerts {
		target := EffectiveSeverity(a.statusOf(batch, alert), alert.Severity)
		// Unseen components read as 0, which is never written back on its own.
		if target > components[alert.Component] {
			components[alert.Component] = target
		}
	}
	return components
}

func (a *Aggregator) statusOf(batch models.AlertBatch, alert models.AlertRecord) models.AlertStatus {
	if a.policy == PolicyBatch {
		return batch.Status
	}
	return alert.Status
}

// EffectiveSeverity is the severity a single record asks for.
func EffectiveSeverity(status models.AlertStatus, declared int) int {
	if status == models.AlertStatusResolved {
		return models.BaselineSeverity
	}
	return declared
}
