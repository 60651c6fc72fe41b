package models

import (
	"fmt"
	"time"
)

// AlertStatus is the lifecycle state Alertmanager attaches to alerts and alert groups.
type AlertStatus uint8

const (
	AlertStatusFiring AlertStatus = iota + 1
	AlertStatusResolved
)

// ParseAlertStatus maps the Alertmanager wire value onto an AlertStatus.
func ParseAlertStatus(value string) (AlertStatus, error) {
	switch value {
	case "firing":
		return AlertStatusFiring, nil
	case "resolved":
		return AlertStatusResolved, nil
	default:
		return 0, fmt.Errorf("unknown alert status %q", value)
	}
}

func (s AlertStatus) String() string {
	switch s {
	case AlertStatusFiring:
		return "firing"
	case AlertStatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s AlertStatus) MarshalText() ([]byte, error) {
	if s != AlertStatusFiring && s != AlertStatusResolved {
		return nil, fmt.Errorf("invalid alert status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AlertStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAlertStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AlertRecord is one alert of a webhook delivery, reduced to what reconciliation needs.
type AlertRecord struct {
	Status       AlertStatus
	Component    int
	Severity     int
	Labels       map[string]string
	StartsAt     time.Time
	EndsAt       time.Time
	GeneratorURL string
	Fingerprint  string
}

// AlertBatch is one webhook delivery: an alert group sharing a group key.
type AlertBatch struct {
	Version     string
	GroupKey    string
	Status      AlertStatus
	Receiver    string
	ExternalURL string
	GroupLabels map[string]string
	Alerts      []AlertRecord
}
