package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"gorm.io/gorm"

	"github.com/quickcred/quickcred/internal/models"
)

var (
	errSessionNotFound = errors.New("session not found")
	errSessionExpired  = errors.New("session expired")
)

// sessionStore keeps login sessions in the database, with a short-lived
// in-memory cache in front of lookups
type sessionStore struct {
	db       *gorm.DB
	ttl      time.Duration
	cacheTTL time.Duration
	cache    *ttlcache.Cache[string, models.Session]
	now      func() time.Time
}

func newSessionStore(db *gorm.DB, ttl, cacheTTL time.Duration) *sessionStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, models.Session](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, models.Session](),
	)

	// Start the cleanup process
	go cache.Start()

	return &sessionStore{
		db:       db,
		ttl:      ttl,
		cacheTTL: cacheTTL,
		cache:    cache,
		now:      time.Now,
	}
}

// Create starts a new session for userID
func (s *sessionStore) Create(ctx context.Context, userID string) (*models.Session, error) {
	session := &models.Session{
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.remember(*session)
	return session, nil
}

// Lookup returns a live session. Expired sessions are deleted on sight.
func (s *sessionStore) Lookup(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session

	if item := s.cache.Get(id); item != nil {
		session = item.Value()
	} else {
		err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	if session.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, errSessionExpired
	}

	s.remember(session)
	return &session, nil
}

// Delete ends a session. Deleting an unknown session is not an error.
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	s.cache.Delete(id)
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired session and returns how many rows went
func (s *sessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.cache.DeleteExpired()

	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close stops the cache cleanup goroutine
func (s *sessionStore) Close() {
	s.cache.Stop()
}

func (s *sessionStore) remember(session models.Session) {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	s.cache.Set(session.ID, session, min(ttl, s.cacheTTL))
}
