package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

func TestEncodeDecodeDatasetEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload, err := encodeEvent(domain.DatasetEvent{
		Type: domain.EventDatasetReady, DatasetID: "ds-1", OrganizationID: "org-1", OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}

	event, err := decodeEvent(payload)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if event.Type != domain.EventDatasetReady || event.DatasetID != "ds-1" || !event.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestEncodeRejectsMissingDatasetID(t *testing.T) {
	_, err := encodeEvent(domain.DatasetEvent{Type: domain.EventDatasetReady})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDecodeRejectsLegacyPlainPayload(t *testing.T) {
	if _, err := decodeEvent([]byte("ds-1")); err == nil {
		t.Fatalf("expected error for non-JSON payload")
	}
	if _, err := decodeEvent([]byte(`{"type":"dataset.ready"}`)); err == nil {
		t.Fatalf("expected error for event without dataset_id")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if got := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !got.Retry || !got.Breaks {
		t.Fatalf("closed connection should retry and break, got %+v", got)
	}
	if got := classifyNATSError(context.Canceled); got.Retry || got.Breaks {
		t.Fatalf("cancellation should be ignored, got %+v", got)
	}
	if got := classifyNATSError(nats.ErrBadSubject); got.Retry || !got.Breaks {
		t.Fatalf("bad subject should be permanent, got %+v", got)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrNoServers); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	plain := errors.New("bad payload")
	if err := wrapTemporaryIfNeeded(plain); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be marked temporary")
	}
}

func TestOptionsApplyDefaults(t *testing.T) {
	opts := nats.GetDefaultOptions()
	for _, apply := range (Options{}).natsOptions() {
		if err := apply(&opts); err != nil {
			t.Fatalf("apply option: %v", err)
		}
	}
	if opts.Name != "salesscope" || opts.MaxReconnect != 60 || !opts.RetryOnFailedConnect {
		t.Fatalf("unexpected defaults: name=%q maxReconnect=%d retry=%v", opts.Name, opts.MaxReconnect, opts.RetryOnFailedConnect)
	}

	noRetry := false
	opts = nats.GetDefaultOptions()
	for _, apply := range (Options{Name: "worker", RetryOnFailedConnect: &noRetry}).natsOptions() {
		if err := apply(&opts); err != nil {
			t.Fatalf("apply option: %v", err)
		}
	}
	if opts.Name != "worker" || opts.RetryOnFailedConnect {
		t.Fatalf("overrides not applied: name=%q retry=%v", opts.Name, opts.RetryOnFailedConnect)
	}
}

func TestNewRequiresSubject(t *testing.T) {
	if _, err := New("nats://127.0.0.1:4222", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty subject, got %v", err)
	}
}
