package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/infrastructure/resilience"
)

const queueGroup = "workers"

// Queue carries dataset lifecycle events over a single NATS subject.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

// Options tunes the NATS connection. Zero values fall back to connectDefaults.
type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

var connectDefaults = Options{
	Name:           "salesscope",
	ConnectTimeout: 2 * time.Second,
	ReconnectWait:  2 * time.Second,
	MaxReconnects:  60,
}

func (o Options) natsOptions() []nats.Option {
	if o.Name == "" {
		o.Name = connectDefaults.Name
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = connectDefaults.ConnectTimeout
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = connectDefaults.ReconnectWait
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = connectDefaults.MaxReconnects
	}
	retry := o.RetryOnFailedConnect == nil || *o.RetryOnFailedConnect

	return []nats.Option{
		nats.Name(o.Name),
		nats.Timeout(o.ConnectTimeout),
		nats.ReconnectWait(o.ReconnectWait),
		nats.MaxReconnects(o.MaxReconnects),
		nats.RetryOnFailedConnect(retry),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if subject == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "connect nats", errors.New("subject is required"))
	}
	conn, err := nats.Connect(url, options.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{conn: conn, subject: subject, executor: options.ResilienceExecutor}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDatasetEvent(ctx context.Context, event domain.DatasetEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Run(ctx, "nats.publish", classifyNATSError, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeDatasetEvents blocks until ctx is done, then drains the subscription.
// Undecodable messages are logged and dropped.
func (q *Queue) SubscribeDatasetEvents(ctx context.Context, handler func(context.Context, domain.DatasetEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		event, err := decodeEvent(msg.Data)
		if err != nil {
			slog.Warn("dataset_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("dataset_event_handler_failed",
				"type", event.Type,
				"dataset_id", event.DatasetID,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeEvent(event domain.DatasetEvent) ([]byte, error) {
	if event.DatasetID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode dataset event", errors.New("dataset id is required"))
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal dataset event: %w", err)
	}
	return payload, nil
}

func decodeEvent(data []byte) (domain.DatasetEvent, error) {
	var event domain.DatasetEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.DatasetEvent{}, fmt.Errorf("unmarshal dataset event: %w", err)
	}
	if event.DatasetID == "" || event.Type == "" {
		return domain.DatasetEvent{}, errors.New("dataset event is missing type or dataset_id")
	}
	return event, nil
}
