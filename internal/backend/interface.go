// Package backend selects and wires the persistence backend: the local
// JSON record store for single-user installs, or the hosted SQLite
// gateway with per-user scoping.
package backend

import (
	"einkauf/internal/amqp"
	"einkauf/internal/auth"
	"einkauf/internal/localstore"
	"einkauf/internal/remote"
	"einkauf/internal/store"
)

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result is the wired backend. The local store is always open: the
// migration routine reads it even when the serving backend is remote.
// The gateway is open only in remote mode.
type Result struct {
	Type    Type
	Local   *localstore.Store
	Gateway *remote.Gateway
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// StoreFor resolves the persistence surface for one request. Remote
// stores are scoped to the session's user; the local store ignores the
// session entirely.
func (r *Result) StoreFor(session auth.Session) store.Store {
	if r.Type == RemoteBackend {
		return r.Gateway.ForUser(session.UserID)
	}
	return r.Local
}

// Type represents the configured backend kind.
type Type string

const (
	LocalBackend  Type = "local"
	RemoteBackend Type = "remote"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case LocalBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
