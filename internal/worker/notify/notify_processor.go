package notify

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"attendance.service/internal/core/model"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// NotifyProcessor handles run summary jobs from the notify queue.
type NotifyProcessor struct {
	mailer    Mailer
	recipient string
}

// NewProcessor sets up a processor that emails sync run summaries.
func NewProcessor(mailer Mailer, recipient string) *NotifyProcessor {
	return &NotifyProcessor{
		mailer:    mailer,
		recipient: recipient,
	}
}

// Process sends one run summary email, retrying with exponential backoff on
// delivery failure.
func (p *NotifyProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var result model.SyncRunResult
	if err := json.Unmarshal([]byte(*msg.Body), &result); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal run summary")
		return false, 0, err // Do not retry on malformed message
	}

	if err := p.mailer.SendRunSummary(ctx, p.recipient, result); err != nil {
		delay := calculateBackoff(receiveCount(msg))
		return true, delay, err
	}

	log.Ctx(ctx).Info().Str("sync_id", result.SyncID).Msg("Run summary sent")
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
// It increases the delay exponentially with each delivery to avoid
// overwhelming a struggling mail service.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 { // Cap at 1 hour
		return 3600
	}
	return backoff
}
