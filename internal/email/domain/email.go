package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Email is the local mirror of a single Gmail message. GmailID carries a
// global unique index: a message is created at most once across the whole
// store, which is what makes re-running a sync pass idempotent.
type Email struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"index:idx_user_date;not null"`
	GmailID  string `json:"gmail_id" gorm:"uniqueIndex;not null"`
	ThreadID string `json:"thread_id"`

	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Body    string `json:"body"`

	Date      time.Time `json:"date" gorm:"index:idx_user_date"`
	Labels    Labels    `json:"labels" gorm:"type:text"`
	IsRead    bool      `json:"is_read"`
	IsStarred bool      `json:"is_starred"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailRef is the {id, gmail_id} projection the reconciler loads for a user.
type EmailRef struct {
	ID      string
	GmailID string
}

// MessageRef is the lightweight reference produced by listing a mailbox
// page, before the full message is fetched. It lives for one sync pass.
type MessageRef struct {
	ID       string
	ThreadID string
}

// TokenUpdateFunc is invoked when the OAuth access token is refreshed so the
// new credential triple can be persisted on the user record.
type TokenUpdateFunc func(token *oauth2.Token) error

// MailProvider opens authenticated sessions against the remote mailbox.
type MailProvider interface {
	NewSession(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (MailSession, error)
}

// MailSession is one user's authenticated view of the remote mailbox for the
// duration of a pass. Implementations must be safe for concurrent use by the
// batch runner.
type MailSession interface {
	// ListRefs returns one page of message references matching query,
	// along with the token for the next page ("" when exhausted).
	ListRefs(ctx context.Context, query, pageToken string) ([]MessageRef, string, error)

	// GetEmail fetches the full message and maps it into an Email record.
	// The returned record has no ID or UserID set.
	GetEmail(ctx context.Context, gmailID string) (*Email, error)

	// MarkAsRead removes the UNREAD label from the remote message.
	MarkAsRead(ctx context.Context, gmailID string) error

	// BatchDelete permanently deletes up to 1000 messages in one call.
	BatchDelete(ctx context.Context, gmailIDs []string) error

	// DeleteOne permanently deletes a single message.
	DeleteOne(ctx context.Context, gmailID string) error
}
