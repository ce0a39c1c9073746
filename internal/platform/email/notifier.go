package email

import (
	"context"
	"fmt"
	"strings"

	"marketingops/internal/domain/compliance"
)

// RequestNotifier mails the requester when a data subject request closes.
type RequestNotifier struct {
	mailer Mailer
	from   string
}

func NewRequestNotifier(mailer Mailer, from string) *RequestNotifier {
	return &RequestNotifier{mailer: mailer, from: from}
}

func (n *RequestNotifier) RequestClosed(ctx context.Context, req compliance.DataSubjectRequest) error {
	subject, body := requestClosedMessage(req)
	return n.mailer.Send(ctx, n.from, req.RequesterEmail, subject, body)
}

func requestClosedMessage(req compliance.DataSubjectRequest) (string, string) {
	kind := strings.ReplaceAll(string(req.RequestType), "_", " ")
	var b strings.Builder
	subject := fmt.Sprintf("Your %s request has been %s", kind, req.Status)
	fmt.Fprintf(&b, "Hello,\r\n\r\nYour data %s request (reference %s) has been %s.\r\n", kind, req.ID, req.Status)
	if req.CompletionNotes != nil && strings.TrimSpace(*req.CompletionNotes) != "" {
		fmt.Fprintf(&b, "\r\nNotes from our privacy team:\r\n%s\r\n", *req.CompletionNotes)
	}
	b.WriteString("\r\nIf you have questions, reply to this message.\r\n")
	return subject, b.String()
}
