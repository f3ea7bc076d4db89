package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler consumes refresh jobs from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	refreshJob       *RefreshJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage is the payload of a job message.
type RefreshMessage struct {
	JobType string `json:"job_type"`
	// Operators limits a gbfs_refresh job. Empty means all.
	Operators []string `json:"operators,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 5 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		refreshJob:       cfg.RefreshJob,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if Dispatch(ctx, h.refreshJob, msg.Data, logger) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// errMalformed marks payloads that will never succeed on redelivery.
var errMalformed = errors.New("malformed job message")

// Dispatch runs the job encoded in data and reports whether the message
// should be acknowledged. Malformed and unknown messages are acknowledged so
// they are not redelivered; failed jobs are not.
func Dispatch(ctx context.Context, job *RefreshJob, data []byte, logger zerolog.Logger) bool {
	start := time.Now()
	logger.Debug().Msg("received job message")

	jobType, err := runJob(ctx, job, data, logger)
	switch {
	case errors.Is(err, errMalformed):
		logger.Error().Err(err).Msg("dropping job message")
		return true
	case err != nil:
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(start)).
		Msg("job completed successfully")
	return true
}

func runJob(ctx context.Context, job *RefreshJob, data []byte, logger zerolog.Logger) (string, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %w", errMalformed, err)
	}

	switch msg.JobType {
	case JobGBFSRefresh:
		result := job.RunOperators(ctx, msg.Operators)
		if result.TotalOperators == 0 {
			return msg.JobType, fmt.Errorf("%w: %w", errMalformed, ErrNoOperators)
		}
		// Partial success is acknowledged; the next run retries the rest.
		if result.Successful > 0 {
			if result.Failed > 0 {
				logger.Warn().Int("failed", result.Failed).Msg("gbfs refresh partially failed")
			}
			return msg.JobType, nil
		}
		return msg.JobType, result.Err()
	case JobHealthCheck:
		return msg.JobType, job.HealthCheck(ctx)
	default:
		return msg.JobType, fmt.Errorf("%w: unknown job type %q", errMalformed, msg.JobType)
	}
}
