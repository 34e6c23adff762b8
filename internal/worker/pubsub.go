package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/geo"
)

// Job types accepted on the subscription.
const (
	JobLoad         = "load"
	JobHealthCheck  = "health_check"
	JobCacheRefresh = "cache_refresh"
)

var (
	// ErrUnknownJob is returned by Dispatch for an unrecognized job type.
	ErrUnknownJob = errors.New("unknown job type")

	// ErrPermanent marks a message that can never succeed on redelivery.
	ErrPermanent = errors.New("permanent job failure")
)

// IsPermanent reports whether err should drop the message instead of
// requesting redelivery.
func IsPermanent(err error) bool {
	var verr *geo.ValidationError
	return errors.Is(err, ErrUnknownJob) || errors.Is(err, ErrPermanent) || errors.As(err, &verr)
}

// Loader runs a dashboard refresh cycle. *dashboard.Dashboard satisfies it.
type Loader interface {
	Load(ctx context.Context, coord geo.Coordinate) error
}

// Refresher warms the upstream cache.
type Refresher interface {
	Run(ctx context.Context) *RefreshResult
}

// JobMessage is the Pub/Sub message body.
type JobMessage struct {
	JobType string   `json:"job_type"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Dispatcher executes job messages.
type Dispatcher struct {
	loader    Loader
	refresher Refresher
	logger    zerolog.Logger
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Loader    Loader
	Refresher Refresher
	Logger    zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{loader: cfg.Loader, refresher: cfg.Refresher, logger: cfg.Logger}
}

// Dispatch decodes and runs one message.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: decoding message: %w", ErrPermanent, err)
	}

	switch msg.JobType {
	case JobLoad:
		coord := geo.Default
		if msg.Lat != nil {
			coord.Lat = *msg.Lat
		}
		if msg.Lon != nil {
			coord.Lon = *msg.Lon
		}
		if err := coord.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return d.load(ctx, coord)
	case JobHealthCheck:
		d.logger.Debug().Msg("running health check")
		return d.load(ctx, geo.Default)
	case JobCacheRefresh:
		return d.refresh(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (d *Dispatcher) load(ctx context.Context, coord geo.Coordinate) error {
	if d.loader == nil {
		return errors.New("no dashboard configured")
	}
	if err := d.loader.Load(ctx, coord); err != nil {
		return fmt.Errorf("loading %s: %w", coord, err)
	}
	return nil
}

func (d *Dispatcher) refresh(ctx context.Context) error {
	if d.refresher == nil {
		return errors.New("no refresh job configured")
	}
	result := d.refresher.Run(ctx)

	// Consider it successful if more than half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalPoints)
	}
	return nil
}

// PubSubHandler receives job messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.dispatcher.Dispatch(ctx, msg.Data)
	switch {
	case IsPermanent(err):
		logger.Warn().Err(err).Msg("dropping message")
		msg.Ack() // redelivery would not help
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	default:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed")
		msg.Ack()
	}
}
