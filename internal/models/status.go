package models

import "sort"

// BaselineSeverity is the Cachet status a component returns to once its alerts resolve.
const BaselineSeverity = 1

// SeverityMap maps a Cachet component id to the status it should be set to.
type SeverityMap map[int]int

// Components returns the map keys in ascending order.
func (m SeverityMap) Components() []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Directives expands the map into one directive per component, ordered by component id.
func (m SeverityMap) Directives() []StatusDirective {
	directives := make([]StatusDirective, 0, len(m))
	for _, id := range m.Components() {
		directives = append(directives, StatusDirective{Component: id, Severity: m[id]})
	}
	return directives
}

// StatusDirective is a single intended status update for one component.
type StatusDirective struct {
	Component int `json:"component"`
	Severity  int `json:"severity"`
}

// DeliveryResult classifies how a directive ended.
type DeliveryResult string

const (
	DeliveryDelivered        DeliveryResult = "delivered"
	DeliveryTransportFailure DeliveryResult = "transport_failure"
)

// DirectiveOutcome records what happened to one directive. It is serialised as the
// webhook response body.
type DirectiveOutcome struct {
	HTTPStatus int             `json:"httpStatus"`
	Directive  StatusDirective `json:"status"`
	Result     DeliveryResult  `json:"-"`
}
