package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	authdomain "mailiq-backend/internal/auth/domain"
	emaildomain "mailiq-backend/internal/email/domain"

	"github.com/google/go-cmp/cmp"
)

// fakeSession simulates the remote mailbox for one pass.
type fakeSession struct {
	mu sync.Mutex

	pages    [][]emaildomain.MessageRef
	pageErrs map[int]error // 0-based page index -> error
	listCall int
	tokens   []string // page tokens received

	messages map[string]*emaildomain.Email
	getErrs  map[string]error

	marked []string

	batchDeleteErr error
	deletedBatches [][]string
	deletedOnes    []string
	deleteOneErr   error
}

func (f *fakeSession) ListRefs(_ context.Context, _ string, pageToken string) ([]emaildomain.MessageRef, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCall++
	f.tokens = append(f.tokens, pageToken)

	// Resolve the page from the token itself so the session can be
	// enumerated again from the start on a later pass.
	idx := 0
	if pageToken != "" {
		if _, err := fmt.Sscanf(pageToken, "page-%d", &idx); err != nil {
			return nil, "", fmt.Errorf("bad page token %q", pageToken)
		}
	}

	if err, ok := f.pageErrs[idx]; ok {
		return nil, "", err
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}

	next := ""
	if idx < len(f.pages)-1 {
		next = fmt.Sprintf("page-%d", idx+1)
	}
	return f.pages[idx], next, nil
}

func (f *fakeSession) GetEmail(_ context.Context, gmailID string) (*emaildomain.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.getErrs[gmailID]; ok {
		return nil, err
	}
	msg, ok := f.messages[gmailID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", gmailID)
	}
	clone := *msg
	return &clone, nil
}

func (f *fakeSession) MarkAsRead(_ context.Context, gmailID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, gmailID)
	return nil
}

func (f *fakeSession) BatchDelete(_ context.Context, gmailIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchDeleteErr != nil {
		return f.batchDeleteErr
	}
	f.deletedBatches = append(f.deletedBatches, append([]string(nil), gmailIDs...))
	return nil
}

func (f *fakeSession) DeleteOne(_ context.Context, gmailID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteOneErr != nil {
		return f.deleteOneErr
	}
	f.deletedOnes = append(f.deletedOnes, gmailID)
	return nil
}

type fakeProvider struct {
	session *fakeSession
	err     error
}

func (f *fakeProvider) NewSession(_ context.Context, _, _ string, _ emaildomain.TokenUpdateFunc) (emaildomain.MailSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// fakeEmailRepo is an in-memory store enforcing gmail_id uniqueness.
type fakeEmailRepo struct {
	mu      sync.Mutex
	seq     int
	emails  map[string]*emaildomain.Email // local id -> record
	byGmail map[string]string             // gmail id -> local id

	dupOnCreate bool // force a duplicate-key error on every Create
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{
		emails:  make(map[string]*emaildomain.Email),
		byGmail: make(map[string]string),
	}
}

func (r *fakeEmailRepo) Create(email *emaildomain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dupOnCreate {
		return emaildomain.ErrDuplicateEmail
	}
	if _, exists := r.byGmail[email.GmailID]; exists {
		return emaildomain.ErrDuplicateEmail
	}

	r.seq++
	clone := *email
	if clone.ID == "" {
		clone.ID = fmt.Sprintf("local-%d", r.seq)
	}
	r.emails[clone.ID] = &clone
	r.byGmail[clone.GmailID] = clone.ID
	email.ID = clone.ID
	return nil
}

func (r *fakeEmailRepo) FindByGmailID(gmailID string) (*emaildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byGmail[gmailID]
	if !ok {
		return nil, nil
	}
	clone := *r.emails[id]
	return &clone, nil
}

func (r *fakeEmailRepo) FindByID(userID, id string) (*emaildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email, ok := r.emails[id]
	if !ok || email.UserID != userID {
		return nil, nil
	}
	clone := *email
	return &clone, nil
}

func (r *fakeEmailRepo) FindByUser(userID string, page, limit int) ([]*emaildomain.Email, int64, error) {
	all, _ := r.FindFromsByUser(userID)
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	total := int64(len(all))

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeEmailRepo) FindRefsByUser(userID string) ([]emaildomain.EmailRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []emaildomain.EmailRef
	for _, email := range r.emails {
		if email.UserID == userID {
			refs = append(refs, emaildomain.EmailRef{ID: email.ID, GmailID: email.GmailID})
		}
	}
	return refs, nil
}

func (r *fakeEmailRepo) FindFromsByUser(userID string) ([]*emaildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var emails []*emaildomain.Email
	for _, email := range r.emails {
		if email.UserID == userID {
			clone := *email
			emails = append(emails, &clone)
		}
	}
	return emails, nil
}

func (r *fakeEmailRepo) FindByIDs(userID string, ids []string) ([]*emaildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var emails []*emaildomain.Email
	for _, id := range ids {
		if email, ok := r.emails[id]; ok && email.UserID == userID {
			clone := *email
			emails = append(emails, &clone)
		}
	}
	return emails, nil
}

func (r *fakeEmailRepo) DeleteByIDs(userID string, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		email, ok := r.emails[id]
		if !ok || email.UserID != userID {
			continue
		}
		delete(r.byGmail, email.GmailID)
		delete(r.emails, id)
		deleted++
	}
	return deleted, nil
}

func (r *fakeEmailRepo) MarkAsRead(userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if email, ok := r.emails[id]; ok && email.UserID == userID {
		email.IsRead = true
	}
	return nil
}

// gmailIDsForUser reports the set of gmail ids the user currently owns.
func (r *fakeEmailRepo) gmailIDsForUser(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, email := range r.emails {
		if email.UserID == userID {
			ids = append(ids, email.GmailID)
		}
	}
	sort.Strings(ids)
	return ids
}

type fakeUserRepo struct {
	mu           sync.Mutex
	users        map[string]*authdomain.User
	tokenUpdates int
}

func newFakeUserRepo(users ...*authdomain.User) *fakeUserRepo {
	m := make(map[string]*authdomain.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (r *fakeUserRepo) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByGoogleID(googleID string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateTokens(userID, accessToken, refreshToken string, expiry *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenUpdates++
	if u, ok := r.users[userID]; ok {
		u.AccessToken = accessToken
		if refreshToken != "" {
			u.RefreshToken = refreshToken
		}
		u.TokenExpiry = expiry
	}
	return nil
}

func testUser(id string) *authdomain.User {
	return &authdomain.User{
		ID:           id,
		Email:        id + "@example.com",
		Provider:     "google",
		AccessToken:  "access",
		RefreshToken: "refresh",
	}
}

func remoteMessage(gmailID string) *emaildomain.Email {
	return &emaildomain.Email{
		GmailID:  gmailID,
		ThreadID: "thread-" + gmailID,
		From:     "Sender <sender@example.com>",
		Subject:  "Subject " + gmailID,
		Snippet:  "snippet",
		Body:     "body",
		Date:     time.Now(),
		Labels:   emaildomain.Labels{"INBOX"},
		IsRead:   true,
	}
}

func refs(ids ...string) []emaildomain.MessageRef {
	out := make([]emaildomain.MessageRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, emaildomain.MessageRef{ID: id, ThreadID: "thread-" + id})
	}
	return out
}

func sessionWithMessages(pages ...[]emaildomain.MessageRef) *fakeSession {
	messages := make(map[string]*emaildomain.Email)
	for _, page := range pages {
		for _, ref := range page {
			messages[ref.ID] = remoteMessage(ref.ID)
		}
	}
	return &fakeSession{pages: pages, messages: messages}
}

func newTestUsecase(session *fakeSession, users ...*authdomain.User) (*emailUsecase, *fakeEmailRepo, *fakeUserRepo) {
	emailRepo := newFakeEmailRepo()
	userRepo := newFakeUserRepo(users...)
	uc := &emailUsecase{
		emailRepo:    emailRepo,
		userRepo:     userRepo,
		mailProvider: &fakeProvider{session: session},
	}
	return uc, emailRepo, userRepo
}

func TestSyncPaginationTermination(t *testing.T) {
	session := sessionWithMessages(refs("a1", "a2"), refs("b1"), refs("c1"))
	uc, repo, _ := newTestUsecase(session, testUser("u1"))

	resp, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncEmails: %v", err)
	}

	if session.listCall != 3 {
		t.Errorf("list calls = %d, want exactly 3", session.listCall)
	}
	wantTokens := []string{"", "page-1", "page-2"}
	if diff := cmp.Diff(wantTokens, session.tokens); diff != "" {
		t.Errorf("page tokens (-want +got):\n%s", diff)
	}
	if resp.TotalInGmail != 4 || resp.Synced != 4 {
		t.Errorf("totalInGmail/synced = %d/%d, want 4/4", resp.TotalInGmail, resp.Synced)
	}
	want := []string{"a1", "a2", "b1", "c1"}
	if diff := cmp.Diff(want, repo.gmailIDsForUser("u1")); diff != "" {
		t.Errorf("stored gmail ids (-want +got):\n%s", diff)
	}
}

func TestSyncIdempotentResync(t *testing.T) {
	session := sessionWithMessages(refs("a", "b", "c"))
	uc, _, _ := newTestUsecase(session, testUser("u1"))

	first, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Synced != 3 || first.Skipped != 0 {
		t.Fatalf("first pass synced/skipped = %d/%d, want 3/0", first.Synced, first.Skipped)
	}

	second, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Synced != 0 {
		t.Errorf("second pass synced = %d, want 0", second.Synced)
	}
	if second.Skipped != second.TotalInGmail {
		t.Errorf("second pass skipped = %d, want totalInGmail %d", second.Skipped, second.TotalInGmail)
	}
	if second.Deleted != 0 {
		t.Errorf("second pass deleted = %d, want 0", second.Deleted)
	}
}

func TestReconciliationCompleteness(t *testing.T) {
	// Remote {A, B, C}, prior local {A, B, D}: expect C created, D deleted,
	// A and B untouched.
	session := sessionWithMessages(refs("A", "B", "C"))
	uc, repo, _ := newTestUsecase(session, testUser("u1"))

	for _, id := range []string{"A", "B", "D"} {
		email := remoteMessage(id)
		email.UserID = "u1"
		if err := repo.Create(email); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	resp, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncEmails: %v", err)
	}

	if resp.Synced != 1 || resp.Skipped != 2 || resp.Deleted != 1 {
		t.Errorf("synced/skipped/deleted = %d/%d/%d, want 1/2/1", resp.Synced, resp.Skipped, resp.Deleted)
	}
	want := []string{"A", "B", "C"}
	if diff := cmp.Diff(want, repo.gmailIDsForUser("u1")); diff != "" {
		t.Errorf("local set after reconcile (-want +got):\n%s", diff)
	}
}

func TestReconciliationOwnershipIsolation(t *testing.T) {
	// u2's records must survive u1's reconciliation even though none of
	// them appear in u1's remote set.
	session := sessionWithMessages(refs("A"))
	uc, repo, _ := newTestUsecase(session, testUser("u1"), testUser("u2"))

	stale := remoteMessage("D")
	stale.UserID = "u1"
	if err := repo.Create(stale); err != nil {
		t.Fatal(err)
	}
	other := remoteMessage("Z")
	other.UserID = "u2"
	if err := repo.Create(other); err != nil {
		t.Fatal(err)
	}

	resp, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncEmails: %v", err)
	}
	if resp.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", resp.Deleted)
	}
	if diff := cmp.Diff([]string{"Z"}, repo.gmailIDsForUser("u2")); diff != "" {
		t.Errorf("u2 records (-want +got):\n%s", diff)
	}
}

func TestPerItemFailureIsolation(t *testing.T) {
	// 25 refs across 3 batches; one fetch failure in the first batch must
	// not stop later batches.
	var ids []string
	for i := 1; i <= 25; i++ {
		ids = append(ids, fmt.Sprintf("m%02d", i))
	}
	session := sessionWithMessages(refs(ids...))
	session.getErrs = map[string]error{"m05": errors.New("fetch blew up")}

	uc, repo, _ := newTestUsecase(session, testUser("u1"))

	resp, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncEmails: %v", err)
	}
	if resp.Errors != 1 {
		t.Errorf("errors = %d, want 1", resp.Errors)
	}
	if resp.Synced != 24 {
		t.Errorf("synced = %d, want 24", resp.Synced)
	}
	if got := len(repo.gmailIDsForUser("u1")); got != 24 {
		t.Errorf("stored records = %d, want 24", got)
	}
}

func TestEnumerationFailureAbortsBeforeReconcile(t *testing.T) {
	// A failed page makes the whole pass abort; the stale local record
	// must survive because reconciliation never ran.
	session := sessionWithMessages(refs("A"), refs("B"))
	session.pageErrs = map[int]error{1: errors.New("gmail 500")}

	uc, repo, _ := newTestUsecase(session, testUser("u1"))

	stale := remoteMessage("D")
	stale.UserID = "u1"
	if err := repo.Create(stale); err != nil {
		t.Fatal(err)
	}

	_, err := uc.SyncEmails(context.Background(), "u1")
	if !errors.Is(err, emaildomain.ErrRemoteFetch) {
		t.Fatalf("err = %v, want ErrRemoteFetch", err)
	}
	if diff := cmp.Diff([]string{"D"}, repo.gmailIDsForUser("u1")); diff != "" {
		t.Errorf("local records after failed pass (-want +got):\n%s", diff)
	}
}

func TestSyncRequiresRefreshToken(t *testing.T) {
	user := testUser("u1")
	user.RefreshToken = ""
	uc, _, _ := newTestUsecase(sessionWithMessages(refs("A")), user)

	_, err := uc.SyncEmails(context.Background(), "u1")
	if !errors.Is(err, emaildomain.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestDuplicateInsertCountsAsSkip(t *testing.T) {
	// Simulates losing the insert race after the existence pre-check
	// missed: the duplicate-key failure resolves to a skip, not an error.
	session := sessionWithMessages(refs("A", "B"))
	uc, repo, _ := newTestUsecase(session, testUser("u1"))
	repo.dupOnCreate = true

	resp, err := uc.SyncEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncEmails: %v", err)
	}
	if resp.Skipped != 2 || resp.Errors != 0 {
		t.Errorf("skipped/errors = %d/%d, want 2/0", resp.Skipped, resp.Errors)
	}
}

func TestSyncCanceledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := sessionWithMessages(refs("A"))
	uc, _, _ := newTestUsecase(session, testUser("u1"))

	_, err := uc.SyncEmails(ctx, "u1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
