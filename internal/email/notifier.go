package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codr1/seitai-booking/internal/booking"
)

const notificationTimeout = 5 * time.Second

// BookingNotifier emails the front desk whenever a booking is created. It
// satisfies the workflow's notifier contract: delivery failures are logged
// and never surfaced to the customer.
type BookingNotifier struct {
	sender    Sender
	recipient string
}

// NewBookingNotifier returns a notifier, or nil when email delivery is not
// configured. A nil notifier is safe to pass to the booking workflow.
func NewBookingNotifier(sender Sender, recipient string) *BookingNotifier {
	if sender == nil || strings.TrimSpace(recipient) == "" {
		return nil
	}
	return &BookingNotifier{sender: sender, recipient: recipient}
}

// BookingCreated sends the new-booking notice asynchronously.
func (n *BookingNotifier) BookingCreated(ctx context.Context, b booking.Booking, serviceName string) {
	if n == nil || n.sender == nil {
		return
	}
	logger := zerolog.Ctx(ctx).With().Str("booking_id", b.ID).Logger()

	subject := fmt.Sprintf("New booking: %s %s", b.Date, b.StartTime)
	body := buildBookingNotice(b, serviceName)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		if err := n.sender.Send(sendCtx, n.recipient, subject, body); err != nil {
			logger.Error().Err(err).Str("recipient", n.recipient).Msg("Failed to send booking notification")
		}
	}()
}

func buildBookingNotice(b booking.Booking, serviceName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A new booking was just made.\n\n")
	fmt.Fprintf(&sb, "Date:     %s\n", b.Date)
	fmt.Fprintf(&sb, "Time:     %s - %s\n", b.StartTime, b.EndTime())
	fmt.Fprintf(&sb, "Service:  %s\n", serviceName)
	fmt.Fprintf(&sb, "Customer: %s (%s)\n", b.CustomerName, b.CustomerPhone)
	if b.IsFirstTime {
		sb.WriteString("First visit: yes\n")
	}
	if strings.TrimSpace(b.Notes) != "" {
		fmt.Fprintf(&sb, "Notes:    %s\n", b.Notes)
	}
	return sb.String()
}
