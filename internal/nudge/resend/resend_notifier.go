package resend

import (
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

type ResendNotifier struct {
	ApiKey string
	Email  string
}

func (r *ResendNotifier) SendNudge(habits []string, hoursTillExpiry int) error {
	client := resend.NewClient(r.ApiKey)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>These streaks expire in about %d hour(s):</p><ul>", hoursTillExpiry)
	for _, h := range habits {
		fmt.Fprintf(&body, "<li>%s</li>", h)
	}
	body.WriteString("</ul>")

	params := &resend.SendEmailRequest{
		From:    "habitd@resend.dev",
		To:      []string{r.Email},
		Subject: fmt.Sprintf("%d habit streak(s) about to expire", len(habits)),
		Html:    body.String(),
	}
	_, err := client.Emails.Send(params)
	return err
}
