package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	auth "github.com/goliatone/go-anon-auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// testConfig implements auth.Config with fixed values tests can tweak.
type testConfig struct {
	signingKey string
	issuer     string
	audience   []string
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey: "test-signing-key",
		issuer:     "test-issuer",
		audience:   []string{"test-audience"},
		accessTTL:  15 * time.Minute,
		refreshTTL: 30 * 24 * time.Hour,
		emailTTL:   5 * time.Minute,
	}
}

func (c *testConfig) GetSigningKey() string                   { return c.signingKey }
func (c *testConfig) GetIssuer() string                       { return c.issuer }
func (c *testConfig) GetAudience() []string                   { return c.audience }
func (c *testConfig) GetAccessTokenExpiration() time.Duration { return c.accessTTL }
func (c *testConfig) GetRefreshTokenExpiration() time.Duration {
	return c.refreshTTL
}
func (c *testConfig) GetEmailTokenExpiration() time.Duration { return c.emailTTL }
func (c *testConfig) GetAccessTokenName() string             { return "access_token" }
func (c *testConfig) GetRefreshTokenName() string            { return "refresh_token" }
func (c *testConfig) GetCookiePath() string                  { return "/" }
func (c *testConfig) GetCookieDomain() string                { return "" }
func (c *testConfig) GetCookieSameSite() string              { return "Lax" }
func (c *testConfig) GetCookieSecure() bool                  { return false }

// testIdentity implements auth.Identity
type testIdentity struct {
	id          string
	username    string
	isAnonymous bool
	secret      string
}

func (i testIdentity) ID() string            { return i.id }
func (i testIdentity) Username() string      { return i.username }
func (i testIdentity) IsAnonymous() bool     { return i.isAnonymous }
func (i testIdentity) SigningSecret() string { return i.secret }

// memStore is a mutex-guarded in-memory backing store shared by the fake
// Users and RefreshTokens repositories.
type memStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*auth.User
	byName  map[string]uuid.UUID
	records map[uuid.UUID]*auth.RefreshToken
	seq     int64
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[uuid.UUID]*auth.User{},
		byName:  map[string]uuid.UUID{},
		records: map[uuid.UUID]*auth.RefreshToken{},
	}
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memStore) liveRecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := 0
	for _, r := range s.records {
		if !r.IsRevoked {
			live++
		}
	}
	return live
}

func (s *memStore) record(id uuid.UUID) *auth.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		return cloneRecord(r)
	}
	return nil
}

func (s *memStore) deleteRecord(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

func (s *memStore) deleteUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		delete(s.byName, u.Username)
		delete(s.users, id)
	}
}

func (s *memStore) seedUser(user *auth.User) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = cloneUser(user)
	s.byName[user.Username] = user.ID
	return cloneUser(user)
}

func cloneUser(u *auth.User) *auth.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func cloneRecord(r *auth.RefreshToken) *auth.RefreshToken {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

func notFound(key, value string) error {
	return repository.NewRecordNotFound().WithMetadata(map[string]any{key: value})
}

// memUsers is an in-memory auth.Users.
type memUsers struct {
	store *memStore
}

func newMemUsers(store *memStore) *memUsers {
	return &memUsers{store: store}
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.GetByIDTx(ctx, nil, id)
}

func (m *memUsers) GetByIDTx(_ context.Context, _ bun.IDB, id uuid.UUID) (*auth.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if u, ok := m.store.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, notFound("id", id.String())
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return m.GetByUsernameTx(ctx, nil, username)
}

func (m *memUsers) GetByUsernameTx(_ context.Context, _ bun.IDB, username string) (*auth.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if id, ok := m.store.byName[username]; ok {
		return cloneUser(m.store.users[id]), nil
	}
	return nil, notFound("username", username)
}

func (m *memUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	return m.CreateTx(ctx, nil, record, criteria...)
}

func (m *memUsers) CreateTx(_ context.Context, _ bun.IDB, record *auth.User, _ ...repository.InsertCriteria) (*auth.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	m.store.users[record.ID] = cloneUser(record)
	m.store.byName[record.Username] = record.ID
	return cloneUser(record), nil
}

func (m *memUsers) RotateSecret(ctx context.Context, id uuid.UUID) (string, error) {
	return m.RotateSecretTx(ctx, nil, id)
}

func (m *memUsers) RotateSecretTx(_ context.Context, _ bun.IDB, id uuid.UUID) (string, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	user, ok := m.store.users[id]
	if !ok {
		return "", notFound("id", id.String())
	}
	secret, err := auth.NewSigningSecret()
	if err != nil {
		return "", err
	}
	user.JWTSecret = secret
	return secret, nil
}

func (m *memUsers) NextAccountSeq(ctx context.Context) (int64, error) {
	return m.NextAccountSeqTx(ctx, nil)
}

func (m *memUsers) NextAccountSeqTx(_ context.Context, _ bun.IDB) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.seq++
	return m.store.seq, nil
}

var _ auth.Users = (*memUsers)(nil)

// memRefreshTokens is an in-memory auth.RefreshTokens. Consume is a real
// compare-and-swap under the store mutex, so concurrent redemption behaves
// like the SQL implementation.
type memRefreshTokens struct {
	store *memStore
}

func newMemRefreshTokens(store *memStore) *memRefreshTokens {
	return &memRefreshTokens{store: store}
}

func (m *memRefreshTokens) Issue(ctx context.Context, ownerID uuid.UUID, expiresAt time.Time) (*auth.RefreshToken, error) {
	return m.IssueTx(ctx, nil, ownerID, expiresAt)
}

func (m *memRefreshTokens) IssueTx(_ context.Context, _ bun.IDB, ownerID uuid.UUID, expiresAt time.Time) (*auth.RefreshToken, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	record := &auth.RefreshToken{
		ID:        uuid.New(),
		UserID:    ownerID,
		ExpiresAt: expiresAt,
	}
	m.store.records[record.ID] = cloneRecord(record)
	return cloneRecord(record), nil
}

func (m *memRefreshTokens) GetByID(ctx context.Context, id uuid.UUID) (*auth.RefreshToken, error) {
	return m.GetByIDTx(ctx, nil, id)
}

func (m *memRefreshTokens) GetByIDTx(_ context.Context, _ bun.IDB, id uuid.UUID) (*auth.RefreshToken, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if r, ok := m.store.records[id]; ok {
		return cloneRecord(r), nil
	}
	return nil, notFound("id", id.String())
}

func (m *memRefreshTokens) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.ConsumeTx(ctx, nil, id)
}

func (m *memRefreshTokens) ConsumeTx(_ context.Context, _ bun.IDB, id uuid.UUID) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	record, ok := m.store.records[id]
	if !ok || record.IsRevoked {
		return false, nil
	}
	record.IsRevoked = true
	return true, nil
}

func (m *memRefreshTokens) RevokeAllForUser(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return m.RevokeAllForUserTx(ctx, nil, ownerID)
}

func (m *memRefreshTokens) RevokeAllForUserTx(_ context.Context, _ bun.IDB, ownerID uuid.UUID) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var affected int64
	for _, r := range m.store.records {
		if r.UserID == ownerID && !r.IsRevoked {
			r.IsRevoked = true
			affected++
		}
	}
	return affected, nil
}

var _ auth.RefreshTokens = (*memRefreshTokens)(nil)

// fakeRunner satisfies auth.TransactionRunner without a database; the fake
// stores are atomic on their own.
type fakeRunner struct{}

func (fakeRunner) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

var _ auth.TransactionRunner = fakeRunner{}

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) has(eventType auth.ActivityEventType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}
