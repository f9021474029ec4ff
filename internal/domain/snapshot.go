package domain

import "context"

// Snapshot is the immutable identity resolved for a request. It is copied
// out of the session and never re-read from the credential store, so a role
// change only takes effect on the next login.
type Snapshot struct {
	UserID   int64
	Username string
	Role     Role
}

func (s Snapshot) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type snapshotKey struct{}

// WithSnapshot returns a child context carrying the resolved identity.
func WithSnapshot(ctx context.Context, s Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, s)
}

// SnapshotFromContext returns the identity stored by WithSnapshot, if any.
func SnapshotFromContext(ctx context.Context) (Snapshot, bool) {
	s, ok := ctx.Value(snapshotKey{}).(Snapshot)
	return s, ok
}
