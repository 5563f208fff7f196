// internal/roles/resolver.go
package roles

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"creative-funding/internal/common/auth"
	"creative-funding/internal/common/config"
	"creative-funding/internal/common/database"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
	"creative-funding/internal/models"
)

const cacheKeyPrefix = "profile:role:"

// Access is the resolved authorization of one identity.
type Access struct {
	Role           models.Role `json:"role"`
	IsAdmin        bool        `json:"is_admin"`
	IsReviewer     bool        `json:"is_reviewer"`
	HasAdminAccess bool        `json:"has_admin_access"`
}

// Actor converts access into the lifecycle actor for userID.
func (a Access) Actor(userID string) models.Actor {
	return models.Actor{UserID: userID, HasAdminAccess: a.HasAdminAccess}
}

// ProfileStore is the persistence the resolver needs.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	CreateIfAbsent(ctx context.Context, id, email string, role models.Role, now time.Time) (bool, error)
}

type AuditAppender interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

type cachedRole struct {
	Role models.Role `json:"role"`
}

// Resolver maps an identity to its role, creating the profile on first access.
type Resolver struct {
	store    ProfileStore
	cache    redis.Cmdable
	cacheTTL time.Duration
	auth     config.AuthConfig
	audit    AuditAppender
	logger   logger.Logger
	now      func() time.Time
}

// NewResolver wires a resolver. cache and audit may be nil.
func NewResolver(store ProfileStore, cache redis.Cmdable, cfg config.AuthConfig, audit AuditAppender, log logger.Logger) *Resolver {
	return &Resolver{
		store:    store,
		cache:    cache,
		cacheTTL: config.GetDuration(cfg.RoleCacheTTL),
		auth:     cfg,
		audit:    audit,
		logger:   logger.Component(log, "role-resolver"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve never fails on persistence errors; it falls back to a synthesized
// profile instead. The only error returned is the context's, so callers can
// report the state as still loading.
func (r *Resolver) Resolve(ctx context.Context, identity *auth.Identity) (Access, error) {
	if identity == nil || identity.ID == "" {
		return Access{}, nil
	}

	role, outcome, err := r.lookup(ctx, identity)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Access{}, ctxErr
		}
		role = models.RoleUser
		if r.auth.IsBootstrapAdmin(identity.Email) {
			role = models.RoleAdmin
		}
		r.logger.Warn("Role lookup failed, using fallback profile", map[string]interface{}{
			"userId": identity.ID,
			"role":   string(role),
			"error":  err,
		})
		metrics.RoleResolutions.WithLabelValues(metrics.RoleOutcomeFallback).Inc()
		return accessFor(role), nil
	}

	metrics.RoleResolutions.WithLabelValues(outcome).Inc()
	access := accessFor(role)

	if !access.IsAdmin && r.auth.IsBootstrapAdmin(identity.Email) {
		access.IsAdmin = true
		access.HasAdminAccess = true
		r.recordOverride(ctx, identity, role, outcome != metrics.RoleOutcomeCached)
	}

	return access, nil
}

func (r *Resolver) lookup(ctx context.Context, identity *auth.Identity) (models.Role, string, error) {
	if role, ok := r.cached(ctx, identity.ID); ok {
		return role, metrics.RoleOutcomeCached, nil
	}

	outcome := metrics.RoleOutcomeStored
	profile, err := r.store.Get(ctx, identity.ID)
	if stderrors.Is(err, errors.ErrNotFound) {
		created, createErr := r.store.CreateIfAbsent(ctx, identity.ID, identity.Email, models.RoleUser, r.now())
		if createErr != nil {
			return "", "", createErr
		}
		if created {
			outcome = metrics.RoleOutcomeCreated
			r.logger.Info("Created user profile", map[string]interface{}{"userId": identity.ID})
		}
		profile, err = r.store.Get(ctx, identity.ID)
	}
	if err != nil {
		return "", "", err
	}

	role := profile.Role
	if !role.Valid() {
		return "", "", fmt.Errorf("profile %s has unknown role %q", identity.ID, role)
	}

	r.storeInCache(ctx, identity.ID, role)
	return role, outcome, nil
}

func (r *Resolver) cached(ctx context.Context, userID string) (models.Role, bool) {
	if r.cache == nil {
		return "", false
	}

	var entry cachedRole
	err := database.GetJSON(ctx, r.cache, cacheKeyPrefix+userID, &entry)
	if err != nil {
		if !stderrors.Is(err, database.ErrCacheMiss) {
			r.logger.Debug("Role cache read failed", map[string]interface{}{"userId": userID, "error": err})
		}
		return "", false
	}
	if !entry.Role.Valid() {
		return "", false
	}
	return entry.Role, true
}

func (r *Resolver) storeInCache(ctx context.Context, userID string, role models.Role) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	if err := database.SetJSON(ctx, r.cache, cacheKeyPrefix+userID, cachedRole{Role: role}, r.cacheTTL); err != nil {
		r.logger.Debug("Role cache write failed", map[string]interface{}{"userId": userID, "error": err})
	}
}

// Invalidate drops the cached role, used after a role grant.
func (r *Resolver) Invalidate(ctx context.Context, userID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Del(ctx, cacheKeyPrefix+userID).Err()
}

// recordOverride logs and counts every use. The audit row is written only when
// the role was read from the store, which bounds it to once per cache period.
func (r *Resolver) recordOverride(ctx context.Context, identity *auth.Identity, stored models.Role, audit bool) {
	metrics.RoleResolutions.WithLabelValues(metrics.RoleOutcomeOverride).Inc()
	r.logger.Warn("Bootstrap admin override applied", map[string]interface{}{
		"userId":     identity.ID,
		"email":      identity.Email,
		"storedRole": string(stored),
	})

	if !audit || r.audit == nil {
		return
	}
	err := r.audit.Append(ctx, &models.AuditEntry{
		EntityType: models.EntityProfile,
		EntityID:   identity.ID,
		Action:     models.AuditActionAdminOverride,
		ActorID:    identity.ID,
		Details:    map[string]interface{}{"stored_role": string(stored)},
		CreatedAt:  r.now(),
	})
	if err != nil {
		r.logger.Warn("Failed to audit bootstrap admin override", map[string]interface{}{"userId": identity.ID, "error": err})
	}
}

func accessFor(role models.Role) Access {
	a := Access{
		Role:       role,
		IsAdmin:    role == models.RoleAdmin,
		IsReviewer: role == models.RoleReviewer,
	}
	a.HasAdminAccess = a.IsAdmin || a.IsReviewer
	return a
}
