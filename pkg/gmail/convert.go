package gmail

import (
	"encoding/base64"
	"net/mail"
	"time"

	emaildomain "mailiq-backend/internal/email/domain"

	"google.golang.org/api/gmail/v1"
)

const noSubject = "(No Subject)"

// convertMessage maps a full Gmail message into the local record shape.
// Body extraction is deliberately lossy: inline payload, else the first
// text/plain part, else the snippet. HTML-only mail falls back to the
// snippet; downstream views depend on that fallback.
func convertMessage(msg *gmail.Message) *emaildomain.Email {
	headers := msg.Payload.Headers

	subject := getHeader(headers, "Subject")
	if subject == "" {
		subject = noSubject
	}

	email := &emaildomain.Email{
		GmailID:   msg.Id,
		ThreadID:  msg.ThreadId,
		From:      getHeader(headers, "From"),
		To:        getHeader(headers, "To"),
		Subject:   subject,
		Snippet:   msg.Snippet,
		Body:      extractBody(msg.Payload, msg.Snippet),
		Date:      messageDate(getHeader(headers, "Date"), msg.InternalDate),
		Labels:    emaildomain.Labels(msg.LabelIds),
		IsRead:    !hasLabel(msg.LabelIds, "UNREAD"),
		IsStarred: hasLabel(msg.LabelIds, "STARRED"),
	}

	return email
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func extractBody(payload *gmail.MessagePart, snippet string) string {
	if payload == nil {
		return snippet
	}

	// Inline body on the root part
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}

	// First text/plain sub-part
	for _, part := range payload.Parts {
		if part.MimeType != "text/plain" {
			continue
		}
		if part.Body != nil && part.Body.Data != "" {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(data)
			}
		}
	}

	return snippet
}

// messageDate parses the Date header, falling back to Gmail's internal
// delivery timestamp (milliseconds) when the header is missing or mangled.
func messageDate(dateHeader string, internalDate int64) time.Time {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t
		}
	}
	return time.Unix(internalDate/1000, 0)
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
