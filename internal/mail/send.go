package mail

import (
	"context"
	"fmt"
)

type templateName string

const (
	Verification       templateName = "verification.gohtml"
	Welcome            templateName = "welcome.gohtml"
	LaunchNotification templateName = "launch_notification.gohtml"
)

var templateSubjects = map[templateName]string{
	Verification:       "Confirm your spot on the waitlist",
	Welcome:            "You're on the waitlist",
	LaunchNotification: "We're live",
}

// SendVerification sends the confirm-your-address email with a single-use
// verification link.
func (m *Mailer) SendVerification(ctx context.Context, to, verificationToken string) error {
	verifyURL := fmt.Sprintf("%s/api/waitlist/verify?token=%s", m.c.PublicBaseURL, verificationToken)
	data := struct {
		VerifyURL string
	}{
		VerifyURL: verifyURL,
	}
	text := fmt.Sprintf("Confirm your spot on the waitlist: %s", verifyURL)
	return m.dispatch(ctx, Verification, to, data, text, []string{"waitlist", "verification"})
}

// SendWelcome sends the welcome email with the signup's waitlist position.
func (m *Mailer) SendWelcome(ctx context.Context, to string, position int, unsubscribeToken string) error {
	unsubURL := fmt.Sprintf("%s/api/waitlist/unsubscribe?token=%s", m.c.PublicBaseURL, unsubscribeToken)
	data := struct {
		Position       int
		UnsubscribeURL string
	}{
		Position:       position,
		UnsubscribeURL: unsubURL,
	}
	text := fmt.Sprintf("You're on the waitlist at position %d. Unsubscribe: %s", position, unsubURL)
	return m.dispatch(ctx, Welcome, to, data, text, []string{"waitlist", "welcome"})
}

// SendLaunchNotification tells a verified signup that the product is live.
func (m *Mailer) SendLaunchNotification(ctx context.Context, to, unsubscribeToken string) error {
	unsubURL := fmt.Sprintf("%s/api/waitlist/unsubscribe?token=%s", m.c.PublicBaseURL, unsubscribeToken)
	data := struct {
		UnsubscribeURL string
	}{
		UnsubscribeURL: unsubURL,
	}
	text := fmt.Sprintf("We're live. Unsubscribe: %s", unsubURL)
	return m.dispatch(ctx, LaunchNotification, to, data, text, []string{"waitlist", "launch"})
}
