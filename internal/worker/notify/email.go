package notify

import (
	"context"
	"fmt"
	"strings"

	"attendance.service/internal/core/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mailer delivers a sync run summary to the HR mailbox.
type Mailer interface {
	SendRunSummary(ctx context.Context, to string, result model.SyncRunResult) error
}

// SESMailer sends run summaries through Amazon SES.
type SESMailer struct {
	client *ses.Client
	sender string
}

func NewSESMailer(client *ses.Client, sender string) *SESMailer {
	return &SESMailer{client: client, sender: sender}
}

// SendRunSummary emails the counts and any errors of one sync run.
func (s *SESMailer) SendRunSummary(ctx context.Context, to string, result model.SyncRunResult) error {
	tracer := otel.Tracer("ses-mailer")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(attribute.String("app.sync_id", result.SyncID))

	subject := fmt.Sprintf("Attendance sync %s: %s", result.SyncID, result.Status)

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(summaryBody(result)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

// summaryBody renders the run counts as a plain text report.
func summaryBody(result model.SyncRunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance sync %s finished with status %s.\n\n", result.SyncID, result.Status)
	fmt.Fprintf(&b, "Window:    %s to %s\n",
		result.WindowStart.Format("2006-01-02 15:04"), result.WindowEnd.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Mode:      %s\n", result.Mode)
	fmt.Fprintf(&b, "Retrieved: %d\n", result.TotalRetrieved)
	fmt.Fprintf(&b, "Processed: %d (valid %d, invalid %d, skipped %d)\n",
		result.Processed, result.Valid, result.Invalid, result.Skipped)
	fmt.Fprintf(&b, "Inserted:  %d (duplicates %d, failures %d)\n",
		result.Inserted, result.Duplicates, result.InsertFailures)
	fmt.Fprintf(&b, "Duration:  %d ms\n", result.ExecutionMs)

	if len(result.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}
