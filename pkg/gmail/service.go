package gmail

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	emaildomain "mailiq-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	// Gmail caps Users.Messages.List at 500 results per page.
	listPageSize = 500

	// Gmail batchDelete accepts at most 1000 ids per request.
	batchDeleteLimit = 1000
)

// Service opens per-user Gmail sessions. It holds only the OAuth client
// credentials; all per-user state lives on the session so two users (or two
// passes for the same user) never share client state.
type Service struct {
	clientID     string
	clientSecret string
	limiter      *rate.Limiter
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		// Keeps a full-mailbox sync under Gmail's per-user quota.
		limiter: rate.NewLimiter(rate.Limit(25), 50),
	}
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	callback emaildomain.TokenUpdateFunc

	// mu guards current; Token is called concurrently by the batch workers.
	mu      sync.Mutex
	current *oauth2.Token
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback == nil {
		return t, nil
	}

	s.mu.Lock()
	changed := s.current.AccessToken != t.AccessToken
	if changed {
		s.current = t
	}
	s.mu.Unlock()

	if changed {
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// Session is one user's authenticated Gmail handle for the duration of a
// sync pass or request.
type Session struct {
	srv     *gmail.Service
	limiter *rate.Limiter
}

var _ emaildomain.MailSession = (*Session)(nil)

// NewSession builds a Gmail session from the user's stored credential
// triple. When a refresh token is present the token source is forced to
// refresh on first use; onTokenRefresh is invoked with the new triple so it
// can be written back to the user record. A missing refresh token must be
// rejected by the caller before reaching here.
func (s *Service) NewSession(ctx context.Context, accessToken, refreshToken string, onTokenRefresh emaildomain.TokenUpdateFunc) (emaildomain.MailSession, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &Session{srv: srv, limiter: s.limiter}, nil
}

// ListRefs fetches one page of message references matching query.
func (s *Session) ListRefs(ctx context.Context, query, pageToken string) ([]emaildomain.MessageRef, string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	call := s.srv.Users.Messages.List("me").MaxResults(listPageSize).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("unable to list messages: %w", err)
	}

	refs := make([]emaildomain.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, emaildomain.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, resp.NextPageToken, nil
}

// GetEmail fetches the full message and maps it into an Email record.
func (s *Session) GetEmail(ctx context.Context, gmailID string) (*emaildomain.Email, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	msg, err := s.srv.Users.Messages.Get("me", gmailID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message %s: %w", gmailID, err)
	}

	return convertMessage(msg), nil
}

// MarkAsRead removes the UNREAD label from the remote message.
func (s *Session) MarkAsRead(ctx context.Context, gmailID string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}

	_, err := s.srv.Users.Messages.Modify("me", gmailID, modifyReq).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to mark message as read: %w", err)
	}
	return nil
}

// BatchDelete permanently deletes the given messages. Gmail accepts at most
// 1000 ids per call; callers are expected to chunk accordingly.
func (s *Session) BatchDelete(ctx context.Context, gmailIDs []string) error {
	if len(gmailIDs) == 0 {
		return nil
	}
	if len(gmailIDs) > batchDeleteLimit {
		return fmt.Errorf("batch delete limited to %d ids, got %d", batchDeleteLimit, len(gmailIDs))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req := &gmail.BatchDeleteMessagesRequest{Ids: gmailIDs}
	if err := s.srv.Users.Messages.BatchDelete("me", req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to batch delete messages: %w", err)
	}
	return nil
}

// DeleteOne permanently deletes a single message.
func (s *Session) DeleteOne(ctx context.Context, gmailID string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.srv.Users.Messages.Delete("me", gmailID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete message %s: %w", gmailID, err)
	}
	return nil
}
