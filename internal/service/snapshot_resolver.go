package service

import (
	"context"
	"fmt"
	"time"

	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/permission"

	"golang.org/x/sync/singleflight"
)

// GrantSource fetches the authoritative grant set for a user from
// the upstream backend.
type GrantSource interface {
	FetchGrants(ctx context.Context, userID string) ([]permission.Grant, error)
}

type GrantSourceFunc func(ctx context.Context, userID string) ([]permission.Grant, error)

func (f GrantSourceFunc) FetchGrants(ctx context.Context, userID string) ([]permission.Grant, error) {
	return f(ctx, userID)
}

// CachedSnapshotResolver builds permission snapshots from cached
// grants, collapsing concurrent fetches for the same user into one
// upstream call. Fetch failures produce an empty deny-all snapshot
// that records the error; they are never cached.
type CachedSnapshotResolver struct {
	store  SnapshotStore
	source GrantSource
	ttl    time.Duration
	sf     singleflight.Group
}

func NewCachedSnapshotResolver(store SnapshotStore, source GrantSource, ttl time.Duration) *CachedSnapshotResolver {
	return &CachedSnapshotResolver{store: store, source: source, ttl: ttl}
}

func (r *CachedSnapshotResolver) Resolve(ctx context.Context, userID string) *permission.Snapshot {
	if userID == "" {
		return permission.EmptySnapshot(fmt.Errorf("missing user id"))
	}
	if r.store != nil && r.ttl > 0 {
		grants, ok, err := r.store.Get(ctx, userID)
		if err == nil && ok {
			observability.RecordPermissionCacheEvent(ctx, "hit")
			return permission.BuildSnapshot(grants)
		}
	}

	sfKey := "snapshot:user:" + userID
	result, err, shared := r.sf.Do(sfKey, func() (interface{}, error) {
		if r.store != nil && r.ttl > 0 {
			grants, ok, err := r.store.Get(ctx, userID)
			if err == nil && ok {
				return grants, nil
			}
		}
		grants, err := r.source.FetchGrants(ctx, userID)
		if err != nil {
			return nil, err
		}
		if r.store != nil && r.ttl > 0 {
			_ = r.store.Set(ctx, userID, grants, r.ttl)
		}
		return grants, nil
	})
	if shared {
		observability.RecordPermissionCacheEvent(ctx, "singleflight_shared")
	} else {
		observability.RecordPermissionCacheEvent(ctx, "singleflight_leader")
	}
	if err != nil {
		observability.RecordPermissionCacheEvent(ctx, "fetch_error")
		return permission.EmptySnapshot(err)
	}
	grants, ok := result.([]permission.Grant)
	if !ok {
		return permission.EmptySnapshot(fmt.Errorf("invalid grant result type"))
	}
	return permission.BuildSnapshot(grants)
}

func (r *CachedSnapshotResolver) InvalidateUser(ctx context.Context, userID string) error {
	if r.store == nil {
		return nil
	}
	return r.store.InvalidateUser(ctx, userID)
}
