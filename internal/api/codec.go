package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/miradorstack/alertmanager-cachet/internal/models"
	"github.com/miradorstack/alertmanager-cachet/internal/utils"
)

// WebhookPayload is the Alertmanager webhook envelope.
type WebhookPayload struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []WebhookAlert    `json:"alerts"`
}

// WebhookAlert is a single alert inside the envelope.
type WebhookAlert struct {
	Status       string             `json:"status"`
	Labels       map[string]string  `json:"labels"`
	Annotations  WebhookAnnotations `json:"annotations"`
	StartsAt     string             `json:"startsAt"`
	EndsAt       string             `json:"endsAt"`
	GeneratorURL string             `json:"generatorURL"`
	Fingerprint  string             `json:"fingerprint"`
}

// WebhookAnnotations carries the Cachet routing annotations. Any other annotation is ignored.
type WebhookAnnotations struct {
	Component *models.NumericString `json:"component"`
	Severity  *models.NumericString `json:"severity"`
}

// DecodeWebhook reads an Alertmanager payload from r and maps it onto an AlertBatch.
// Every failure wraps models.ErrMalformedPayload.
func DecodeWebhook(r io.Reader) (models.AlertBatch, error) {
	var payload WebhookPayload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return models.AlertBatch{}, utils.NewAppError("decode webhook", "invalid JSON body", fmt.Errorf("%w: %w", models.ErrMalformedPayload, err))
	}
	// The body must hold exactly one document.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after the payload")
		}
		return models.AlertBatch{}, malformed("body", err)
	}
	return FromWebhookPayload(payload)
}

// FromWebhookPayload validates the envelope and converts it into the domain batch.
func FromWebhookPayload(payload WebhookPayload) (models.AlertBatch, error) {
	status, err := models.ParseAlertStatus(payload.Status)
	if err != nil {
		return models.AlertBatch{}, malformed("batch status", err)
	}

	batch := models.AlertBatch{
		Version:     payload.Version,
		GroupKey:    payload.GroupKey,
		Status:      status,
		Receiver:    payload.Receiver,
		ExternalURL: payload.ExternalURL,
		GroupLabels: payload.GroupLabels,
		Alerts:      make([]models.AlertRecord, 0, len(payload.Alerts)),
	}

	for i, alert := range payload.Alerts {
		record, err := fromWebhookAlert(alert)
		if err != nil {
			return models.AlertBatch{}, malformed(fmt.Sprintf("alerts[%d]", i), err)
		}
		batch.Alerts = append(batch.Alerts, record)
	}
	return batch, nil
}

func fromWebhookAlert(alert WebhookAlert) (models.AlertRecord, error) {
	status, err := models.ParseAlertStatus(alert.Status)
	if err != nil {
		return models.AlertRecord{}, err
	}
	if alert.Annotations.Component == nil {
		return models.AlertRecord{}, fmt.Errorf("annotation component is required")
	}
	if alert.Annotations.Severity == nil {
		return models.AlertRecord{}, fmt.Errorf("annotation severity is required")
	}

	startsAt, err := optionalTime(alert.StartsAt)
	if err != nil {
		return models.AlertRecord{}, fmt.Errorf("startsAt: %w", err)
	}
	endsAt, err := optionalTime(alert.EndsAt)
	if err != nil {
		return models.AlertRecord{}, fmt.Errorf("endsAt: %w", err)
	}

	return models.AlertRecord{
		Status:       status,
		Component:    alert.Annotations.Component.Int(),
		Severity:     alert.Annotations.Severity.Int(),
		Labels:       alert.Labels,
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		GeneratorURL: alert.GeneratorURL,
		Fingerprint:  alert.Fingerprint,
	}, nil
}

func optionalTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return utils.ParseRFC3339(value)
}

func malformed(field string, err error) error {
	return utils.NewAppError("decode webhook", field, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err))
}
