package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/filter"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
)

// AccessScope is the set of recordings a principal may see and touch,
// resolved once per request and reusable across query building within it.
type AccessScope struct {
	// Unrestricted means global read: no read predicate at all.
	Unrestricted bool
	// GlobalWrite additionally grants modification of any recording and
	// exempts the principal from the location precision floor.
	GlobalWrite bool
	GroupIDs    []uuid.UUID
	DeviceIDs   []uuid.UUID
}

// Predicate returns the read-access fragment: unrestricted scopes impose no
// constraint, otherwise a recording must be public or owned by a group or
// device the principal belongs to.
func (s *AccessScope) Predicate() filter.Expr {
	if s.Unrestricted {
		return filter.True{}
	}
	alts := filter.Or{filter.Eq("public", true)}
	if len(s.GroupIDs) > 0 {
		alts = append(alts, filter.In("group_id", s.GroupIDs))
	}
	if len(s.DeviceIDs) > 0 {
		alts = append(alts, filter.In("device_id", s.DeviceIDs))
	}
	return alts
}

// CanModify reports whether the scope grants write access to a recording.
// Public visibility alone never grants writes.
func (s *AccessScope) CanModify(rec *entities.Recording) bool {
	if s.GlobalWrite {
		return true
	}
	for _, id := range s.GroupIDs {
		if id == rec.GroupID {
			return true
		}
	}
	for _, id := range s.DeviceIDs {
		if id == rec.DeviceID {
			return true
		}
	}
	return false
}

type AccessResolver struct {
	store repository.RecordingStore
}

func NewAccessResolver(store repository.RecordingStore) *AccessResolver {
	return &AccessResolver{store: store}
}

// ScopeFor fetches a principal's membership sets. Global writers skip the
// membership tables entirely; global readers still need them for write
// checks, but read unrestricted.
func (r *AccessResolver) ScopeFor(ctx context.Context, user *entities.User) (*AccessScope, error) {
	scope := &AccessScope{
		Unrestricted: user.HasGlobalRead(),
		GlobalWrite:  user.HasGlobalWrite(),
	}
	if scope.GlobalWrite {
		return scope, nil
	}
	groupIDs, err := r.store.GroupIDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	deviceIDs, err := r.store.DeviceIDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	scope.GroupIDs = groupIDs
	scope.DeviceIDs = deviceIDs
	return scope, nil
}
