package forward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/worker/legacyclocking"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ForwardProcessor handles jobs from the forward queue, pushing Clock In and
// Clock Out rows into the legacy clocking system. A circuit breaker keeps a
// struggling legacy endpoint from being hammered.
type ForwardProcessor struct {
	repo    repository.AttendanceRepository
	legacy  legacyclocking.Client
	breaker *gobreaker.CircuitBreaker
}

// NewProcessor creates a processor for the forward queue.
func NewProcessor(repo repository.AttendanceRepository, legacy legacyclocking.Client) *ForwardProcessor {
	settings := gobreaker.Settings{
		Name:        "Legacy-Clocking",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is bigger then 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &ForwardProcessor{
		repo:    repo,
		legacy:  legacy,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Process forwards one clocking event through the circuit breaker and marks
// the source row processed on success. Failures are retried with exponential
// backoff driven by the message's receive count.
func (p *ForwardProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.ForwardEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal forward event")
		return false, 0, err // Do not retry on malformed message
	}

	log.Ctx(ctx).Info().
		Str("staff_id", event.StaffID).
		Str("clock_event", string(event.ClockEvent)).
		Time("timestamp", event.Timestamp).
		Msg("Forwarding clocking event")

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.legacy.RecordClocking(ctx, event)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Ctx(ctx).Warn().Msg("Circuit breaker is open, skipping legacy clocking call")
		}
		delay := calculateBackoff(receiveCount(msg))
		return true, delay, err
	}

	if err := p.repo.MarkForwarded(ctx, event.StaffID, event.Timestamp); err != nil {
		return true, 10, fmt.Errorf("failed to mark row forwarded: %w", err)
	}
	return false, 0, nil
}

// receiveCount reads how many times SQS has delivered this message.
func receiveCount(msg types.Message) int {
	if v, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 1
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each delivery.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return backoff
}
