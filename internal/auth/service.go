package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"menu-planner/internal/backend"
	"menu-planner/internal/retry"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful login or register.
type Session struct {
	Token   string    `json:"token"`
	Expiry  time.Time `json:"expiry"`
	UserID  string    `json:"user_id"`
	Profile *Profile  `json:"profile"`
}

// SessionCache stores pre-renewed session tokens between refresh calls.
type SessionCache interface {
	Get(key string) string
	Set(key, value string)
	Remove(key string)
}

// renewedSession is the cached payload written by proactive renewal.
type renewedSession struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// Service handles registration, login, and profile access.
type Service struct {
	repo      *Repository
	jwtSecret string
	tokenTTL  time.Duration
	cache     SessionCache

	mu       sync.Mutex
	renewals map[string]*backend.TokenRefresher
}

// NewService creates a new auth Service. cache may be nil, which disables
// proactive session renewal.
func NewService(repo *Repository, jwtSecret string, tokenTTL time.Duration, cache SessionCache) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		cache:     cache,
		renewals:  make(map[string]*backend.TokenRefresher),
	}
}

// Register creates a new user. Duplicate emails are rejected.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("hash password failed")
	}

	user := &User{Email: email, PasswordHash: string(hashed)}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	profile := &Profile{ID: user.ID, FullName: strings.TrimSpace(fullName)}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	return s.newSession(user.ID, profile)
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.EnsureProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return s.newSession(user.ID, profile)
}

// EnsureProfile fetches the user's profile, creating an empty one on first
// access. The fetch and create are retried on the auth-critical schedule.
func (s *Service) EnsureProfile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := retry.Do(ctx, "fetch profile", func(ctx context.Context) (*Profile, error) {
		return s.repo.GetProfile(ctx, userID)
	}, retry.AuthCritical())
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	profile = &Profile{ID: userID}
	_, err = retry.Do(ctx, "create profile", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.CreateProfile(ctx, profile)
	}, retry.AuthCritical())
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile persists edits to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, profile *Profile) error {
	return s.repo.UpdateProfile(ctx, profile)
}

// Refresh returns a fresh token for an already-authenticated user. A token
// parked by proactive renewal is consumed first; otherwise a new one is
// issued on the spot.
func (s *Service) Refresh(userID string) (*Session, error) {
	if cached := s.takeRenewedSession(userID); cached != nil {
		s.scheduleRenewal(userID, cached.Expiry)
		return cached, nil
	}
	return s.newSession(userID, nil)
}

func (s *Service) newSession(userID string, profile *Profile) (*Session, error) {
	token, expiry, err := IssueToken(userID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	s.scheduleRenewal(userID, expiry)
	return &Session{
		Token:   token,
		Expiry:  expiry,
		UserID:  userID,
		Profile: profile,
	}, nil
}

func sessionKey(userID string) string {
	return backend.Namespace + "session." + userID
}

// scheduleRenewal arms the user's refresher so a replacement token is ready
// in the cache before the current one expires.
func (s *Service) scheduleRenewal(userID string, expiry time.Time) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	r, ok := s.renewals[userID]
	if !ok {
		r = backend.NewTokenRefresher(func() (time.Time, error) {
			return s.renewSession(userID)
		})
		s.renewals[userID] = r
	}
	s.mu.Unlock()
	r.Schedule(expiry)
}

func (s *Service) renewSession(userID string) (time.Time, error) {
	token, expiry, err := IssueToken(userID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return time.Time{}, err
	}
	payload, err := json.Marshal(renewedSession{Token: token, Expiry: expiry})
	if err != nil {
		return time.Time{}, err
	}
	s.cache.Set(sessionKey(userID), string(payload))
	return expiry, nil
}

// takeRenewedSession pops the pre-renewed token for userID if one is cached
// and still valid.
func (s *Service) takeRenewedSession(userID string) *Session {
	if s.cache == nil {
		return nil
	}
	key := sessionKey(userID)
	raw := s.cache.Get(key)
	if raw == "" {
		return nil
	}
	s.cache.Remove(key)

	var cached renewedSession
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || !cached.Expiry.After(time.Now()) {
		return nil
	}
	return &Session{
		Token:  cached.Token,
		Expiry: cached.Expiry,
		UserID: userID,
	}
}

// StopRenewals cancels all pending renewal timers, used on shutdown.
func (s *Service) StopRenewals() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.renewals {
		r.Stop()
	}
	s.renewals = make(map[string]*backend.TokenRefresher)
}

// VerifyToken parses a bearer token and returns the user id.
func (s *Service) VerifyToken(tokenStr string) (string, error) {
	return ParseToken(tokenStr, s.jwtSecret)
}
