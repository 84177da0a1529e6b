package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/identity-platform/internal/cache"
	"github.com/iliyamo/identity-platform/internal/database"
	"github.com/iliyamo/identity-platform/internal/model"
	"github.com/iliyamo/identity-platform/internal/repository"
	"github.com/iliyamo/identity-platform/internal/token"
)

// testEnv wires the services against an in-memory credential store
// and a miniredis instance, mirroring the production construction in
// cmd/server.
type testEnv struct {
	db        *gorm.DB
	store     *repository.Store
	redis     *redis.Client
	mr        *miniredis.Miniredis
	permCache *cache.PermissionCache
	sessions  *cache.SessionStore
	tokens    *token.Service
	publisher *fakePublisher
	roles     *RoleService
	auth      *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "identity.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedCatalog(context.Background(), db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens, err := token.New(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		EmailSecret:   "email-secret",
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		EmailTTL:      24 * time.Hour,
	})
	require.NoError(t, err)

	store := repository.NewStore(db)
	permCache := cache.NewPermissionCache(client)
	sessions := cache.NewSessionStore(client, 0)
	publisher := &fakePublisher{}

	return &testEnv{
		db:        db,
		store:     store,
		redis:     client,
		mr:        mr,
		permCache: permCache,
		sessions:  sessions,
		tokens:    tokens,
		publisher: publisher,
		roles:     NewRoleService(store, permCache, nil),
		auth:      NewAuthService(store, sessions, tokens, publisher, 4, nil),
	}
}

// permissionID looks up a catalog id by code.
func (env *testEnv) permissionID(t *testing.T, code string) uint64 {
	t.Helper()
	var perm model.Permission
	require.NoError(t, env.db.Where("code = ?", code).First(&perm).Error)
	return perm.ID
}

// createUser registers an account and optionally deactivates it.
func (env *testEnv) createUser(t *testing.T, email string, active bool) *model.User {
	t.Helper()
	user, err := env.auth.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	if !active {
		require.NoError(t, env.db.Model(user).Update("is_active", false).Error)
		user.IsActive = false
	}
	return user
}

// fakePublisher records published events and optionally fails, so
// tests can assert that fire-and-forget delivery never rolls back the
// main flow.
type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []publishedEvent
}

type publishedEvent struct {
	Queue string
	Data  interface{}
}

func (p *fakePublisher) Publish(_ context.Context, queueName string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEvent{Queue: queueName, Data: data})
	return nil
}

func (p *fakePublisher) events(queueName string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.published {
		if e.Queue == queueName {
			out = append(out, e)
		}
	}
	return out
}
