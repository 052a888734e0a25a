package usecase

import (
	"context"

	emaildomain "mailiq-backend/internal/email/domain"
	emaildto "mailiq-backend/internal/email/dto"
)

// EmailUsecase defines the email business logic surface.
type EmailUsecase interface {
	// SyncEmails runs one full sync pass: enumerate the remote mailbox,
	// ingest missing messages in bounded-concurrency batches, then delete
	// local records whose remote counterpart vanished.
	SyncEmails(ctx context.Context, userID string) (*emaildto.SyncResponse, error)

	GetEmails(userID string, page, limit int) (*emaildto.EmailsResponse, error)
	GetEmail(userID, emailID string) (*emaildomain.Email, error)
	MarkEmailAsRead(ctx context.Context, userID, emailID string) error

	GetDomainStats(userID string) (*emaildto.DomainStatsResponse, error)
	GetFromsForDomain(userID, domain string) (*emaildto.FromsResponse, error)
	GetEmailsByFrom(userID, fromEmail string) (*emaildto.EmailsByFromResponse, error)
	DeleteEmailsByFrom(ctx context.Context, userID, fromEmail string) (*emaildto.DeleteByFromResponse, error)
}
