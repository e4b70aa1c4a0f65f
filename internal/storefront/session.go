package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionLimit       = errors.New("session limit reached")
	ErrSessionRateLimited = errors.New("too many new sessions")
)

// Sessions maps browser sessions to their pages. A page lives until its
// session has been idle for the TTL; expiry is the page's teardown.
type Sessions struct {
	tokens  *SessionTokens
	ttl     time.Duration
	newPage func() *Page
	log     *zap.Logger
	now     func() time.Time
	limit   int

	mu    sync.Mutex
	pages map[string]*session
}

type session struct {
	page     *Page
	lastSeen time.Time
}

func NewSessions(tokens *SessionTokens, ttl time.Duration, newPage func() *Page, log *zap.Logger) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{
		tokens:  tokens,
		ttl:     ttl,
		newPage: newPage,
		log:     log,
		now:     time.Now,
		pages:   make(map[string]*session),
	}
}

// WithLimit caps the number of live pages. Zero means no cap.
func (s *Sessions) WithLimit(n int) *Sessions {
	s.limit = n
	return s
}

// Acquire returns the page for token. When the token is missing, invalid or
// its page expired, a fresh page is mounted and a new token is returned,
// provided admit (if non-nil) allows it and the live page count is under the
// limit. Tokens past half their lifetime are reissued for the same page.
// Otherwise newToken is empty.
func (s *Sessions) Acquire(token string, admit func() bool) (page *Page, newToken string, err error) {
	now := s.now()

	if id, issued, perr := s.tokens.Parse(token); perr == nil {
		s.mu.Lock()
		sess, ok := s.pages[id]
		if ok {
			sess.lastSeen = now
		}
		s.mu.Unlock()

		if ok {
			if now.Sub(issued) > s.ttl/2 {
				if newToken, err = s.tokens.New(id, s.ttl); err != nil {
					return nil, "", err
				}
			}
			return sess.page, newToken, nil
		}
	}

	if admit != nil && !admit() {
		return nil, "", ErrSessionRateLimited
	}

	id := uuid.NewString()
	newToken, err = s.tokens.New(id, s.ttl)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	var expired []*Page
	if s.limit > 0 && len(s.pages) >= s.limit {
		expired = s.expireLocked(now)
	}
	if s.limit > 0 && len(s.pages) >= s.limit {
		s.mu.Unlock()
		closePages(expired)
		return nil, "", ErrSessionLimit
	}
	page = s.newPage()
	s.pages[id] = &session{page: page, lastSeen: now}
	n := len(s.pages)
	s.mu.Unlock()
	closePages(expired)

	s.log.Debug("session started", zap.String("session_id", id), zap.Int("sessions", n))
	return page, newToken, nil
}

// Reap closes pages idle for longer than the TTL and returns how many.
func (s *Sessions) Reap() int {
	s.mu.Lock()
	expired := s.expireLocked(s.now())
	s.mu.Unlock()

	closePages(expired)
	if len(expired) > 0 {
		s.log.Info("sessions expired", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *Sessions) expireLocked(now time.Time) []*Page {
	cutoff := now.Add(-s.ttl)

	var expired []*Page
	for id, sess := range s.pages {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess.page)
			delete(s.pages, id)
		}
	}
	return expired
}

func closePages(pages []*Page) {
	for _, p := range pages {
		p.Close()
	}
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Sessions) RunReaper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Reap()
		}
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Close tears down every page.
func (s *Sessions) Close() {
	s.mu.Lock()
	pages := s.pages
	s.pages = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range pages {
		sess.page.Close()
	}
}
