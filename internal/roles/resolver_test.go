package roles

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-funding/internal/common/auth"
	"creative-funding/internal/common/config"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/models"
	"creative-funding/internal/repository"
)

// ==========================
// Test Helper Functions
// ==========================

var profileColumns = []string{"id", "email", "full_name", "phone", "role", "details", "created_at", "updated_at"}

func authConfig(admins ...string) config.AuthConfig {
	return config.AuthConfig{BootstrapAdmins: admins, RoleCacheTTL: 60000}
}

func profileRow(id, email, role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileColumns).AddRow(id, email, nil, nil, role, []byte(`{}`), now, now)
}

// memoryStore is a concurrency-safe ProfileStore with failure injection.
type memoryStore struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	creates  int
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{profiles: make(map[string]*models.UserProfile)}
}

func (m *memoryStore) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, errors.NewNotFoundError("user_profile", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memoryStore) CreateIfAbsent(ctx context.Context, id, email string, role models.Role, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.profiles[id]; ok {
		return false, nil
	}
	m.creates++
	m.profiles[id] = &models.UserProfile{ID: id, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	return true, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (a *recordingAudit) Append(ctx context.Context, entry *models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// ==========================
// Resolution Tests
// ==========================

func TestResolve_Anonymous(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(store, nil, authConfig(), nil, logger.NewTestLogger(t))

	access, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Access{}, access)
	assert.Zero(t, store.creates)
}

func TestResolve_FirstAccessCreatesProfileOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewResolver(repository.NewProfiles(db), nil, authConfig(), nil, logger.NewTestLogger(t))
	identity := &auth.Identity{ID: "user-1", Email: "ada@example.org"}

	getQuery := `FROM user_profiles WHERE id = \$1`
	mock.ExpectQuery(getQuery).WithArgs("user-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO NOTHING`)).
		WithArgs("user-1", "ada@example.org", "user", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(getQuery).WithArgs("user-1").WillReturnRows(profileRow("user-1", "ada@example.org", "user"))

	access, err := r.Resolve(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, Access{Role: models.RoleUser}, access)

	// The second call finds the existing record and creates nothing.
	mock.ExpectQuery(getQuery).WithArgs("user-1").WillReturnRows(profileRow("user-1", "ada@example.org", "user"))

	access, err = r.Resolve(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, access.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_ConcurrentFirstAccess(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(store, nil, authConfig(), nil, logger.NewNoOpLogger())
	identity := &auth.Identity{ID: "user-1", Email: "ada@example.org"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			access, err := r.Resolve(context.Background(), identity)
			assert.NoError(t, err)
			assert.Equal(t, models.RoleUser, access.Role)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.creates)
}

func TestResolve_StoredRoles(t *testing.T) {
	tests := []struct {
		role     models.Role
		expected Access
	}{
		{role: models.RoleUser, expected: Access{Role: models.RoleUser}},
		{role: models.RoleReviewer, expected: Access{Role: models.RoleReviewer, IsReviewer: true, HasAdminAccess: true}},
		{role: models.RoleAdmin, expected: Access{Role: models.RoleAdmin, IsAdmin: true, HasAdminAccess: true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			store := newMemoryStore()
			store.profiles["user-1"] = &models.UserProfile{ID: "user-1", Role: tt.role}
			r := NewResolver(store, nil, authConfig(), nil, logger.NewNoOpLogger())

			access, err := r.Resolve(context.Background(), &auth.Identity{ID: "user-1", Email: "someone@example.org"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, access)
		})
	}
}

// ==========================
// Bootstrap Admin Tests
// ==========================

func TestResolve_BootstrapAdminOverridesStoredRole(t *testing.T) {
	store := newMemoryStore()
	store.profiles["root"] = &models.UserProfile{ID: "root", Email: "root@example.org", Role: models.RoleUser}
	audit := &recordingAudit{}
	r := NewResolver(store, nil, authConfig("root@example.org"), audit, logger.NewTestLogger(t))

	access, err := r.Resolve(context.Background(), &auth.Identity{ID: "root", Email: "root@example.org"})
	require.NoError(t, err)

	assert.True(t, access.IsAdmin)
	assert.True(t, access.HasAdminAccess)
	assert.Equal(t, models.RoleUser, access.Role)
	assert.Equal(t, models.RoleUser, store.profiles["root"].Role)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionAdminOverride, audit.entries[0].Action)
	assert.Equal(t, "root", audit.entries[0].EntityID)
}

func TestResolve_BootstrapAdminWithoutProfile(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(store, nil, authConfig("root@example.org"), nil, logger.NewNoOpLogger())

	access, err := r.Resolve(context.Background(), &auth.Identity{ID: "root", Email: "root@example.org"})
	require.NoError(t, err)
	assert.True(t, access.IsAdmin)
	assert.Equal(t, models.RoleUser, store.profiles["root"].Role)
}

func TestResolve_OverrideRequiresExactEmail(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(store, nil, authConfig("root@example.org"), nil, logger.NewNoOpLogger())

	access, err := r.Resolve(context.Background(), &auth.Identity{ID: "u", Email: "ROOT@example.org"})
	require.NoError(t, err)
	assert.False(t, access.IsAdmin)
}

// ==========================
// Failure Handling Tests
// ==========================

func TestResolve_FallbackOnPersistenceFailure(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.NewPersistenceError("get profile", sql.ErrConnDone)
	r := NewResolver(store, nil, authConfig("root@example.org"), nil, logger.NewTestLogger(t))

	access, err := r.Resolve(context.Background(), &auth.Identity{ID: "u", Email: "u@example.org"})
	require.NoError(t, err)
	assert.Equal(t, Access{Role: models.RoleUser}, access)

	access, err = r.Resolve(context.Background(), &auth.Identity{ID: "root", Email: "root@example.org"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, access.Role)
	assert.True(t, access.IsAdmin)
}

func TestResolve_CancelledContextIsReported(t *testing.T) {
	store := newMemoryStore()
	store.err = context.Canceled
	r := NewResolver(store, nil, authConfig(), nil, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, &auth.Identity{ID: "u", Email: "u@example.org"})
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Cache Tests
// ==========================

func TestResolve_UsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := newMemoryStore()
	store.profiles["user-1"] = &models.UserProfile{ID: "user-1", Role: models.RoleReviewer}
	r := NewResolver(store, client, authConfig(), nil, logger.NewNoOpLogger())
	identity := &auth.Identity{ID: "user-1", Email: "rev@example.org"}

	_, err := r.Resolve(context.Background(), identity)
	require.NoError(t, err)
	assert.True(t, mr.Exists("profile:role:user-1"))

	store.err = errors.NewPersistenceError("get profile", sql.ErrConnDone)
	access, err := r.Resolve(context.Background(), identity)
	require.NoError(t, err)
	assert.True(t, access.IsReviewer)

	require.NoError(t, r.Invalidate(context.Background(), "user-1"))
	assert.False(t, mr.Exists("profile:role:user-1"))
}

func TestResolve_CacheOutageReadsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()

	store := newMemoryStore()
	store.profiles["user-1"] = &models.UserProfile{ID: "user-1", Role: models.RoleAdmin}
	r := NewResolver(store, client, authConfig(), nil, logger.NewNoOpLogger())

	mock.ExpectGet("profile:role:user-1").SetErr(redis.ErrClosed)
	mock.ExpectSet("profile:role:user-1", []byte(`{"role":"admin"}`), time.Minute).SetErr(redis.ErrClosed)

	access, err := r.Resolve(context.Background(), &auth.Identity{ID: "user-1"})
	require.NoError(t, err)
	assert.True(t, access.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}
