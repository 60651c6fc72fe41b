package api

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/alertmanager-cachet/internal/models"
)

const samplePayload = `{
  "version": "4",
  "groupKey": "{}:{alertname=\"ApiDown\"}",
  "status": "firing",
  "receiver": "cachet",
  "groupLabels": {"alertname": "ApiDown"},
  "commonLabels": {"alertname": "ApiDown"},
  "commonAnnotations": {},
  "externalURL": "http://alertmanager:9093",
  "alerts": [
    {
      "status": "firing",
      "labels": {"alertname": "ApiDown", "instance": "api-1"},
      "annotations": {"component": "5", "severity": "3", "summary": "api is down"},
      "startsAt": "2024-05-01T10:00:00.123Z",
      "endsAt": "0001-01-01T00:00:00Z",
      "generatorURL": "http://prometheus:9090/graph",
      "fingerprint": "a1b2"
    },
    {
      "status": "resolved",
      "labels": {"alertname": "ApiDown", "instance": "api-2"},
      "annotations": {"component": 7, "severity": 4},
      "startsAt": "2024-05-01T09:00:00Z",
      "endsAt": "2024-05-01T09:30:00Z",
      "generatorURL": "http://prometheus:9090/graph"
    }
  ]
}`

func TestDecodeWebhook(t *testing.T) {
	batch, err := DecodeWebhook(strings.NewReader(samplePayload))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if batch.Status != models.AlertStatusFiring || batch.Receiver != "cachet" || batch.Version != "4" {
		t.Fatalf("unexpected envelope: %+v", batch)
	}
	if batch.GroupLabels["alertname"] != "ApiDown" {
		t.Fatalf("group labels not carried: %v", batch.GroupLabels)
	}
	if len(batch.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(batch.Alerts))
	}

	first := batch.Alerts[0]
	if first.Component != 5 || first.Severity != 3 || first.Status != models.AlertStatusFiring {
		t.Fatalf("unexpected first alert: %+v", first)
	}
	if first.Fingerprint != "a1b2" || first.Labels["instance"] != "api-1" {
		t.Fatalf("unexpected first alert metadata: %+v", first)
	}
	if !first.StartsAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)) {
		t.Fatalf("unexpected startsAt: %v", first.StartsAt)
	}
	if !first.EndsAt.IsZero() {
		t.Fatalf("expected zero endsAt, got %v", first.EndsAt)
	}

	second := batch.Alerts[1]
	if second.Component != 7 || second.Severity != 4 || second.Status != models.AlertStatusResolved {
		t.Fatalf("unexpected second alert: %+v", second)
	}
}

func TestDecodeWebhookEmptyAlerts(t *testing.T) {
	batch, err := DecodeWebhook(strings.NewReader(`{"status":"resolved","alerts":[]}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(batch.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(batch.Alerts))
	}
}

func TestDecodeWebhookMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":           `{"status":`,
		"unknown status":     `{"status":"pending","alerts":[]}`,
		"alert status":       `{"status":"firing","alerts":[{"status":"silenced","annotations":{"component":"1","severity":"2"}}]}`,
		"missing component":  `{"status":"firing","alerts":[{"status":"firing","annotations":{"severity":"2"}}]}`,
		"missing severity":   `{"status":"firing","alerts":[{"status":"firing","annotations":{"component":"1"}}]}`,
		"null severity":      `{"status":"firing","alerts":[{"status":"firing","annotations":{"component":"1","severity":null}}]}`,
		"non-numeric":        `{"status":"firing","alerts":[{"status":"firing","annotations":{"component":"api","severity":"2"}}]}`,
		"bad startsAt":       `{"status":"firing","alerts":[{"status":"firing","annotations":{"component":"1","severity":"2"},"startsAt":"yesterday"}]}`,
		"alerts wrong shape": `{"status":"firing","alerts":{}}`,
		"trailing document":  `{"status":"firing","alerts":[{"status":"firing","annotations":{"component":"5","severity":"3"}}]} {"status":"nonsense"}`,
		"trailing garbage":   `{"status":"firing","alerts":[]} ]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeWebhook(strings.NewReader(body))
			if !errors.Is(err, models.ErrMalformedPayload) {
				t.Fatalf("expected malformed payload error, got %v", err)
			}
		})
	}
}

func TestResolveCredential(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		fallback string
		want     string
	}{
		{name: "bearer wins", header: "Bearer abc", fallback: "env", want: "abc"},
		{name: "fallback when absent", header: "", fallback: "env", want: "env"},
		{name: "fallback when not bearer", header: "Basic dXNlcg==", fallback: "env", want: "env"},
		{name: "empty bearer", header: "Bearer ", fallback: "", want: ""},
		{name: "blank bearer uses fallback", header: "Bearer   ", fallback: "env", want: "env"},
		{name: "bearer is trimmed", header: "Bearer abc ", fallback: "env", want: "abc"},
		{name: "nothing", header: "", fallback: "", want: ""},
		{name: "token keeps spaces", header: "Bearer a b", fallback: "", want: "a b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveCredential(tc.header, tc.fallback); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
