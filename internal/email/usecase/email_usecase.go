package usecase

import (
	"context"
	"fmt"
	"log"

	authdomain "mailiq-backend/internal/auth/domain"
	authrepo "mailiq-backend/internal/auth/repository"
	emaildomain "mailiq-backend/internal/email/domain"
	emaildto "mailiq-backend/internal/email/dto"
	"mailiq-backend/internal/email/repository"

	"golang.org/x/oauth2"
)

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	emailRepo    repository.EmailRepository
	userRepo     authrepo.UserRepository
	mailProvider emaildomain.MailProvider
}

// NewEmailUsecase creates a new instance of emailUsecase
func NewEmailUsecase(emailRepo repository.EmailRepository, userRepo authrepo.UserRepository, mailProvider emaildomain.MailProvider) EmailUsecase {
	return &emailUsecase{
		emailRepo:    emailRepo,
		userRepo:     userRepo,
		mailProvider: mailProvider,
	}
}

// sessionForUser opens a Gmail session from the user's stored credential
// triple. Refreshed tokens are persisted back to the user row; the stored
// refresh token is only replaced when Google issues a new one. Two
// concurrent passes may both refresh; the overwrite is idempotent.
func (u *emailUsecase) sessionForUser(ctx context.Context, user *authdomain.User) (emaildomain.MailSession, error) {
	if user.RefreshToken == "" {
		return nil, emaildomain.ErrNotAuthenticated
	}

	onRefresh := func(token *oauth2.Token) error {
		expiry := token.Expiry
		return u.userRepo.UpdateTokens(user.ID, token.AccessToken, token.RefreshToken, &expiry)
	}

	session, err := u.mailProvider.NewSession(ctx, user.AccessToken, user.RefreshToken, onRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", emaildomain.ErrNotAuthenticated, err)
	}
	return session, nil
}

func (u *emailUsecase) GetEmails(userID string, page, limit int) (*emaildto.EmailsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	emails, total, err := u.emailRepo.FindByUser(userID, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	return &emaildto.EmailsResponse{
		Emails:      emails,
		TotalPages:  totalPages,
		CurrentPage: page,
		Total:       total,
	}, nil
}

func (u *emailUsecase) GetEmail(userID, emailID string) (*emaildomain.Email, error) {
	email, err := u.emailRepo.FindByID(userID, emailID)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, emaildomain.ErrEmailNotFound
	}
	return email, nil
}

// MarkEmailAsRead updates the local record, then mirrors the change to
// Gmail on a best-effort basis. Local state is authoritative until the next
// sync pass re-derives flags from the label set.
func (u *emailUsecase) MarkEmailAsRead(ctx context.Context, userID, emailID string) error {
	email, err := u.emailRepo.FindByID(userID, emailID)
	if err != nil {
		return err
	}
	if email == nil {
		return emaildomain.ErrEmailNotFound
	}

	if err := u.emailRepo.MarkAsRead(userID, emailID); err != nil {
		return err
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil || user == nil || user.RefreshToken == "" {
		return nil
	}
	session, err := u.sessionForUser(ctx, user)
	if err != nil {
		log.Printf("[Email] Could not open Gmail session to mark %s as read: %v", email.GmailID, err)
		return nil
	}
	if err := session.MarkAsRead(ctx, email.GmailID); err != nil {
		log.Printf("[Email] Failed to mark %s as read in Gmail: %v", email.GmailID, err)
	}
	return nil
}

// GetDomainStats aggregates the user's emails by sending domain.
func (u *emailUsecase) GetDomainStats(userID string) (*emaildto.DomainStatsResponse, error) {
	emails, err := u.emailRepo.FindFromsByUser(userID)
	if err != nil {
		return nil, err
	}

	type domainAgg struct {
		count       int
		uniqueFroms map[string]struct{}
	}
	stats := make(map[string]*domainAgg)

	for _, email := range emails {
		domain := extractDomain(email.From)
		from := extractEmailAddress(email.From)

		agg, ok := stats[domain]
		if !ok {
			agg = &domainAgg{uniqueFroms: make(map[string]struct{})}
			stats[domain] = agg
		}
		agg.count++
		agg.uniqueFroms[from] = struct{}{}
	}

	result := make([]emaildto.DomainStat, 0, len(stats))
	for domain, agg := range stats {
		result = append(result, emaildto.DomainStat{
			Domain:          domain,
			EmailCount:      agg.count,
			UniqueFromCount: len(agg.uniqueFroms),
		})
	}
	sortDomainStats(result)

	return &emaildto.DomainStatsResponse{Domains: result, Total: len(result)}, nil
}

// GetFromsForDomain aggregates sender counts within one domain.
func (u *emailUsecase) GetFromsForDomain(userID, domain string) (*emaildto.FromsResponse, error) {
	emails, err := u.emailRepo.FindFromsByUser(userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, email := range emails {
		if extractDomain(email.From) != domain {
			continue
		}
		counts[extractEmailAddress(email.From)]++
	}

	result := make([]emaildto.FromStat, 0, len(counts))
	for from, count := range counts {
		result = append(result, emaildto.FromStat{From: from, Count: count})
	}
	sortFromStats(result)

	return &emaildto.FromsResponse{Froms: result, Domain: domain, Total: len(result)}, nil
}

func (u *emailUsecase) GetEmailsByFrom(userID, fromEmail string) (*emaildto.EmailsByFromResponse, error) {
	all, err := u.emailRepo.FindFromsByUser(userID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, email := range all {
		if extractEmailAddress(email.From) == fromEmail {
			ids = append(ids, email.ID)
		}
	}

	if len(ids) == 0 {
		return &emaildto.EmailsByFromResponse{Emails: []*emaildomain.Email{}, From: fromEmail}, nil
	}

	emails, err := u.emailRepo.FindByIDs(userID, ids)
	if err != nil {
		return nil, err
	}

	return &emaildto.EmailsByFromResponse{Emails: emails, From: fromEmail, Total: len(emails)}, nil
}

// DeleteEmailsByFrom removes every email from one sender, both remotely and
// locally. Remote deletion tolerates partial success; a permission-denied
// rejection stops further remote attempts and flags re-authentication. The
// local delete always runs.
func (u *emailUsecase) DeleteEmailsByFrom(ctx context.Context, userID, fromEmail string) (*emaildto.DeleteByFromResponse, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, emaildomain.ErrUserNotFound
	}
	if user.RefreshToken == "" {
		return nil, emaildomain.ErrNotAuthenticated
	}

	all, err := u.emailRepo.FindFromsByUser(userID)
	if err != nil {
		return nil, err
	}

	var matching []*emaildomain.Email
	for _, email := range all {
		if extractEmailAddress(email.From) == fromEmail {
			matching = append(matching, email)
		}
	}
	if len(matching) == 0 {
		return &emaildto.DeleteByFromResponse{Message: "No emails found to delete", From: fromEmail}, nil
	}

	var gmailIDs []string
	for _, email := range matching {
		if email.GmailID != "" {
			gmailIDs = append(gmailIDs, email.GmailID)
		}
	}

	var gmailDeleted int
	var gmailErrors []string
	var requiresReauth bool

	if len(gmailIDs) > 0 {
		session, err := u.sessionForUser(ctx, user)
		if err != nil {
			log.Printf("[Email] Gmail API error: %v", err)
			gmailErrors = append(gmailErrors, "Failed to connect to Gmail API")
		} else {
			gmailDeleted, gmailErrors, requiresReauth = u.deleteRemote(ctx, session, gmailIDs)
		}
	}

	var localIDs []string
	for _, email := range matching {
		localIDs = append(localIDs, email.ID)
	}
	deleted, err := u.emailRepo.DeleteByIDs(userID, localIDs)
	if err != nil {
		return nil, err
	}

	resp := &emaildto.DeleteByFromResponse{
		Message:       "Emails deleted successfully",
		Deleted:       deleted,
		From:          fromEmail,
		GmailDeleted:  gmailDeleted,
		TotalGmailIDs: len(gmailIDs),
		GmailErrors:   gmailErrors,
	}
	if requiresReauth {
		resp.RequiresReauth = true
		resp.Warning = "Gmail deletion failed: Please log out and log back in to grant delete permissions"
	} else if len(gmailErrors) > 0 {
		resp.Warning = "Some emails may not have been deleted from Gmail"
	}
	return resp, nil
}

const gmailBatchDeleteSize = 1000

// deleteRemote deletes messages from Gmail in batches, falling back to
// per-id deletes when a batch fails for a reason other than missing scope.
func (u *emailUsecase) deleteRemote(ctx context.Context, session emaildomain.MailSession, gmailIDs []string) (deleted int, errs []string, requiresReauth bool) {
	for start := 0; start < len(gmailIDs); start += gmailBatchDeleteSize {
		end := start + gmailBatchDeleteSize
		if end > len(gmailIDs) {
			end = len(gmailIDs)
		}
		batch := gmailIDs[start:end]

		err := session.BatchDelete(ctx, batch)
		if err == nil {
			deleted += len(batch)
			continue
		}
		log.Printf("[Email] Error deleting Gmail batch %d-%d: %v", start, end, err)

		if emaildomain.IsPermissionDenied(err) {
			errs = append(errs, "Insufficient permissions: User needs to re-authenticate with gmail.modify scope")
			return deleted, errs, true
		}
		errs = append(errs, fmt.Sprintf("Failed to delete %d emails from Gmail", len(batch)))

		// Per-id fallback for this batch only
		for _, id := range batch {
			if err := session.DeleteOne(ctx, id); err != nil {
				if emaildomain.IsPermissionDenied(err) {
					return deleted, errs, true
				}
				log.Printf("[Email] Error deleting Gmail message %s: %v", id, err)
				continue
			}
			deleted++
		}
	}
	return deleted, errs, false
}
