package notify

import (
	"context"
	"fmt"

	"github.com/lexvoice/legal-intake-platform/internal/intake"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

// Service composes and sends intake notifications.
type Service struct {
	sender EmailSender
	logger *logging.Logger
}

// NewService creates a notification service over the configured sender.
func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, logger: logger}
}

// SendConfirmation emails the caller their appointment details.
func (s *Service) SendConfirmation(ctx context.Context, caller *intake.Caller, appt *intake.Appointment) error {
	if s.sender == nil {
		return fmt.Errorf("notify: no email sender configured")
	}

	date := appt.StartsAt.Format("January 02, 2006")
	clock := appt.StartsAt.Format("03:04 PM")

	msg := EmailMessage{
		To:      caller.Email,
		ToName:  caller.FullName,
		Subject: fmt.Sprintf("Appointment Confirmation - %s", appt.PracticeArea),
		Body:    confirmationText(caller.FullName, string(appt.PracticeArea), date, clock),
		HTML:    confirmationHTML(caller.FullName, string(appt.PracticeArea), date, clock),
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send confirmation: %w", err)
	}
	s.logger.Info("confirmation email sent", "to", caller.Email, "appointment_id", appt.ID)
	return nil
}

func confirmationText(name, area, date, clock string) string {
	return fmt.Sprintf(`Appointment Confirmation

Dear %s,

This email confirms your appointment for a %s consultation.

Appointment Details:
- Date: %s
- Time: %s
- Practice Area: %s

Next Steps:
Please arrive 10 minutes early for your appointment. If you need to reschedule or cancel, please contact us at least 24 hours in advance.

If you have any questions, please don't hesitate to reach out.

Best regards,
Legal Intake Team
`, name, area, date, clock, area)
}

func confirmationHTML(name, area, date, clock string) string {
	return fmt.Sprintf(`<html>
  <body>
    <h2>Appointment Confirmation</h2>
    <p>Dear %s,</p>
    <p>This email confirms your appointment for a %s consultation.</p>
    <h3>Appointment Details:</h3>
    <ul>
      <li><strong>Date:</strong> %s</li>
      <li><strong>Time:</strong> %s</li>
      <li><strong>Practice Area:</strong> %s</li>
    </ul>
    <h3>Next Steps:</h3>
    <p>Please arrive 10 minutes early for your appointment. If you need to reschedule or cancel, please contact us at least 24 hours in advance.</p>
    <p>If you have any questions, please don't hesitate to reach out.</p>
    <p>Best regards,<br>Legal Intake Team</p>
  </body>
</html>`, name, area, date, clock, area)
}
