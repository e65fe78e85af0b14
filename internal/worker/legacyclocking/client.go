package legacyclocking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Function keys the legacy clocking importer understands.
const (
	functionKeyClockIn  = 0
	functionKeyClockOut = 1
)

// Client contract for the legacy clocking system.
type Client interface {
	RecordClocking(ctx context.Context, event messaging.ForwardEvent) error
}

// clockingPayload mirrors the legacy importer's row shape. date_log carries
// the calendar date, time_log the wall time as HH:MM.
type clockingPayload struct {
	TerminalID    string `json:"terminal_id"`
	FingerprintID string `json:"finger_print_id"`
	DateLog       string `json:"date_log"`
	TimeLog       string `json:"time_log"`
	FunctionKey   int    `json:"function_key"`
	DateTime      string `json:"date_time"`
	StatusClock   string `json:"status_clock"`
}

// HTTPClient talks to the legacy clocking endpoint over HTTP.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient builds a client with an instrumented transport so legacy
// calls show up in traces.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
	}
}

// RecordClocking pushes one clocking row into the legacy system.
func (c *HTTPClient) RecordClocking(ctx context.Context, event messaging.ForwardEvent) error {
	key, err := functionKey(event.ClockEvent)
	if err != nil {
		return err
	}

	body := clockingPayload{
		TerminalID:    event.TerminalID,
		FingerprintID: event.StaffID,
		DateLog:       event.Timestamp.Format("2006-01-02"),
		TimeLog:       event.Timestamp.Format("15:04"),
		FunctionKey:   key,
		DateTime:      event.Timestamp.Format(time.RFC3339),
		StatusClock:   "NEW",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal clocking payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create clocking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call legacy clocking endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("legacy clocking endpoint returned status %d", resp.StatusCode)
	}

	log.Ctx(ctx).Info().
		Str("staff_id", event.StaffID).
		Str("clock_event", string(event.ClockEvent)).
		Msg("Recorded clocking in legacy system")
	return nil
}

// functionKey maps a clock event onto the legacy importer's numeric key.
// Anything other than Clock In / Clock Out has no legacy representation.
func functionKey(event model.ClockEvent) (int, error) {
	switch event {
	case model.ClockEventIn:
		return functionKeyClockIn, nil
	case model.ClockEventOut:
		return functionKeyClockOut, nil
	default:
		return 0, fmt.Errorf("clock event %q cannot be forwarded", event)
	}
}
