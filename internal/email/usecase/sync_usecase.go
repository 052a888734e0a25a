package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	emaildomain "mailiq-backend/internal/email/domain"
	emaildto "mailiq-backend/internal/email/dto"

	"golang.org/x/sync/errgroup"
)

const (
	// syncBatchSize caps peak concurrency at one batch width. Independent
	// of the provider's 500-item page size.
	syncBatchSize = 10

	// allFoldersQuery enumerates every mailbox section, matching the set
	// of messages the reconciler treats as "still present remotely".
	allFoldersQuery = "in:inbox OR in:sent OR in:drafts OR in:trash OR in:spam"
)

type itemStatus int

const (
	itemSynced itemStatus = iota
	itemSkipped
	itemFailed
)

type syncOutcome struct {
	synced  int
	skipped int
	errors  int
}

// SyncEmails runs one full sync pass for the user. Enumeration failure is
// fatal and aborts before ingestion; per-item failures are counted and never
// abort the pass. Reconciliation only runs after a complete enumeration,
// otherwise it would delete records for messages that were merely missed.
func (u *emailUsecase) SyncEmails(ctx context.Context, userID string) (*emaildto.SyncResponse, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, emaildomain.ErrUserNotFound
	}

	session, err := u.sessionForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	refs, err := u.listAllRefs(ctx, session)
	if err != nil {
		return nil, err
	}
	log.Printf("[Sync] Total emails fetched from Gmail: %d", len(refs))

	outcome, err := u.runBatches(ctx, session, userID, refs)
	if err != nil {
		return nil, err
	}
	log.Printf("[Sync] Completed: %d new, %d already existed, %d errors", outcome.synced, outcome.skipped, outcome.errors)

	deleted, totalInDB, err := u.reconcile(userID, refs)
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	if deleted > 0 {
		log.Printf("[Sync] Deleted %d emails that no longer exist in Gmail", deleted)
	}

	return &emaildto.SyncResponse{
		Message:         "Emails synced successfully",
		Synced:          outcome.synced,
		Skipped:         outcome.skipped,
		Errors:          outcome.errors,
		Deleted:         deleted,
		TotalInGmail:    len(refs),
		TotalInDatabase: totalInDB,
	}, nil
}

// listAllRefs walks the paginated listing endpoint until the provider stops
// returning a cursor, concatenating pages in order. Any page failure aborts
// the whole enumeration.
func (u *emailUsecase) listAllRefs(ctx context.Context, session emaildomain.MailSession) ([]emaildomain.MessageRef, error) {
	var all []emaildomain.MessageRef
	pageToken := ""
	page := 0

	for {
		refs, next, err := session.ListRefs(ctx, allFoldersQuery, pageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", emaildomain.ErrRemoteFetch, err)
		}
		all = append(all, refs...)
		page++
		log.Printf("[Sync] Fetched page %d: %d emails (total so far: %d)", page, len(refs), len(all))

		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}

// runBatches processes the reference list in fixed-size batches. Items
// within a batch run concurrently; batches themselves are strictly
// sequential. Each item writes its result into a fixed slot so failures are
// isolated and counted without aborting anything.
func (u *emailUsecase) runBatches(ctx context.Context, session emaildomain.MailSession, userID string, refs []emaildomain.MessageRef) (syncOutcome, error) {
	var outcome syncOutcome

	for start := 0; start < len(refs); start += syncBatchSize {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		end := start + syncBatchSize
		if end > len(refs) {
			end = len(refs)
		}
		batch := refs[start:end]

		results := make([]itemStatus, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, ref := range batch {
			i, ref := i, ref
			g.Go(func() error {
				results[i] = u.syncOne(gctx, session, userID, ref)
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range results {
			switch res {
			case itemSynced:
				outcome.synced++
			case itemSkipped:
				outcome.skipped++
			case itemFailed:
				outcome.errors++
			}
		}

		if outcome.synced > 0 && outcome.synced%50 == 0 {
			log.Printf("[Sync] Progress: %d new emails synced, %d already exist", outcome.synced, outcome.skipped)
		}
	}

	return outcome, nil
}

// syncOne normalizes a single reference: cheap existence check first, full
// fetch only when the record is missing, then insert. A duplicate-key
// failure means another goroutine won the race and counts as a skip.
func (u *emailUsecase) syncOne(ctx context.Context, session emaildomain.MailSession, userID string, ref emaildomain.MessageRef) itemStatus {
	existing, err := u.emailRepo.FindByGmailID(ref.ID)
	if err != nil {
		log.Printf("[Sync] Error checking email %s: %v", ref.ID, err)
		return itemFailed
	}
	if existing != nil {
		return itemSkipped
	}

	email, err := session.GetEmail(ctx, ref.ID)
	if err != nil {
		log.Printf("[Sync] Error processing email %s: %v", ref.ID, err)
		return itemFailed
	}
	email.UserID = userID

	if err := u.emailRepo.Create(email); err != nil {
		if errors.Is(err, emaildomain.ErrDuplicateEmail) {
			return itemSkipped
		}
		log.Printf("[Sync] Error saving email %s: %v", ref.ID, err)
		return itemFailed
	}
	return itemSynced
}

// reconcile deletes local records whose Gmail id was not part of this
// pass's enumeration. The delete is always scoped to the owning user.
// Records without a Gmail id are never deletion candidates.
func (u *emailUsecase) reconcile(userID string, refs []emaildomain.MessageRef) (deleted int64, totalInDB int64, err error) {
	remote := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		remote[ref.ID] = struct{}{}
	}

	dbRefs, err := u.emailRepo.FindRefsByUser(userID)
	if err != nil {
		return 0, 0, err
	}

	var stale []string
	for _, ref := range dbRefs {
		if ref.GmailID == "" {
			continue
		}
		if _, ok := remote[ref.GmailID]; !ok {
			stale = append(stale, ref.ID)
		}
	}

	if len(stale) > 0 {
		deleted, err = u.emailRepo.DeleteByIDs(userID, stale)
		if err != nil {
			return 0, 0, err
		}
	}

	return deleted, int64(len(dbRefs)) - deleted, nil
}
