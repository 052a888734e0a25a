package repository

import (
	emaildomain "mailiq-backend/internal/email/domain"
)

// EmailRepository defines persistence operations for mirrored emails.
type EmailRepository interface {
	// Create inserts a new record. Returns gorm.ErrDuplicatedKey when a
	// record with the same gmail_id already exists.
	Create(email *emaildomain.Email) error

	// FindByGmailID looks up a record by its Gmail id, across all users.
	// Returns (nil, nil) when absent.
	FindByGmailID(gmailID string) (*emaildomain.Email, error)

	// FindByID looks up one record scoped to its owner.
	FindByID(userID, id string) (*emaildomain.Email, error)

	// FindByUser returns one page of a user's records, newest first,
	// along with the total count.
	FindByUser(userID string, page, limit int) ([]*emaildomain.Email, int64, error)

	// FindRefsByUser projects {id, gmail_id} for every record the user
	// owns. Input to reconciliation.
	FindRefsByUser(userID string) ([]emaildomain.EmailRef, error)

	// FindFromsByUser projects {id, gmail_id, from} for every record the
	// user owns. Input to the derived sender/domain views.
	FindFromsByUser(userID string) ([]*emaildomain.Email, error)

	// FindByIDs returns full records for the given ids, newest first,
	// scoped to the owner.
	FindByIDs(userID string, ids []string) ([]*emaildomain.Email, error)

	// DeleteByIDs bulk-deletes the given records. The user_id clause is a
	// hard safety invariant: a malformed id set must never touch another
	// user's records. Returns the number of rows actually deleted.
	DeleteByIDs(userID string, ids []string) (int64, error)

	// MarkAsRead flips is_read on one owned record.
	MarkAsRead(userID, id string) error
}
