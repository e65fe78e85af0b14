package forward

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	marked []string
	err    error
}

func (f *fakeRepo) InsertClassified(context.Context, model.ClassifiedEvent) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeRepo) ListUnforwarded(context.Context, int) ([]model.ClassifiedEvent, error) {
	return nil, errors.New("not used")
}

func (f *fakeRepo) MarkForwarded(_ context.Context, staffID string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, staffID)
	return nil
}

type fakeLegacy struct {
	calls int
	err   error
}

func (f *fakeLegacy) RecordClocking(context.Context, messaging.ForwardEvent) error {
	f.calls++
	return f.err
}

func forwardMessage(t *testing.T, receiveCount string) types.Message {
	t.Helper()
	body, err := json.Marshal(messaging.ForwardEvent{
		StaffID:    "MTI0001",
		Timestamp:  time.Date(2024, 3, 15, 7, 10, 0, 0, time.Local),
		ClockEvent: model.ClockEventIn,
		TerminalID: "UNIT-7",
	})
	require.NoError(t, err)

	msg := types.Message{Body: aws.String(string(body))}
	if receiveCount != "" {
		msg.Attributes = map[string]string{
			string(types.MessageSystemAttributeNameApproximateReceiveCount): receiveCount,
		}
	}
	return msg
}

func TestForwardProcessor_Process_Success(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	legacy := &fakeLegacy{}
	p := NewProcessor(repo, legacy)

	retry, _, err := p.Process(context.Background(), forwardMessage(t, "1"))
	require.NoError(t, err)
	assert.False(t, retry)
	assert.Equal(t, 1, legacy.calls)
	assert.Equal(t, []string{"MTI0001"}, repo.marked)
}

func TestForwardProcessor_Process_LegacyFailureRetriesWithBackoff(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	legacy := &fakeLegacy{err: errors.New("legacy down")}
	p := NewProcessor(repo, legacy)

	retry, delay, err := p.Process(context.Background(), forwardMessage(t, "3"))
	require.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(80), delay) // 2^3 * 10
	assert.Empty(t, repo.marked)
}

func TestForwardProcessor_Process_MalformedMessageNotRetried(t *testing.T) {
	t.Parallel()

	p := NewProcessor(&fakeRepo{}, &fakeLegacy{})
	retry, _, err := p.Process(context.Background(), types.Message{Body: aws.String("{not json")})
	require.Error(t, err)
	assert.False(t, retry)
}

func TestForwardProcessor_Process_MarkFailureRetried(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{err: errors.New("update failed")}
	p := NewProcessor(repo, &fakeLegacy{})

	retry, delay, err := p.Process(context.Background(), forwardMessage(t, "1"))
	require.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(10), delay)
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(20), calculateBackoff(1))
	assert.Equal(t, int32(40), calculateBackoff(2))
	assert.Equal(t, int32(1280), calculateBackoff(7))
	// Capped at one hour.
	assert.Equal(t, int32(3600), calculateBackoff(12))
}
