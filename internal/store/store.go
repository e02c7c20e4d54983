// Package store defines the persistence boundary for the coordinator:
// users, distinguished points, and collisions, plus the serialization
// contract the collision-detection critical section requires.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rawblock/collision-engine/pkg/models"
)

// ErrBadCredentials is returned by AuthenticateUser on a username/token miss.
var ErrBadCredentials = errors.New("store: bad username and/or usertoken")

// PendingResult is one decoded (start, end) pair awaiting ingest.
type PendingResult struct {
	Start []byte
	End   []byte
}

// IngestReport summarizes the outcome of one Ingest call, used both for
// the HTTP response (§6) and the websocket telemetry feed.
type IngestReport struct {
	Accepted   int
	Collisions []models.IngestOutcome
}

// Store is the persistence boundary the coordinator depends on. A single
// Ingest call must perform authentication-already-done insert logic
// atomically: the existence check, the conditional DP insert, and the
// collision insert are one transaction, and the whole call must be
// serialized with respect to other Ingest calls touching the same
// instance. SerialWriter (writer.go) provides that serialization for
// any Store implementation that doesn't already guarantee it itself.
type Store interface {
	// AuthenticateUser looks up a user by (username, token) using
	// constant-time comparison on the token. Returns ErrBadCredentials
	// on miss.
	AuthenticateUser(ctx context.Context, username, token string) (userID int64, err error)

	// Ingest performs the insert-or-collision logic for every result in
	// one atomic unit, then increments the user's dp_count by the total
	// accepted count. MemStore writes rows in input order; PostgresStore
	// inserts colliding rows as it meets them and the remaining rows
	// afterwards in one batch.
	Ingest(ctx context.Context, userID int64, results []PendingResult) (IngestReport, error)

	// DPCount and CollisionCount back the coordinator's /health endpoint.
	DPCount(ctx context.Context) (int64, error)
	CollisionCount(ctx context.Context) (int64, error)

	// RecentDPCount counts DPs ingested since the given time, used for a
	// rolling hashrate estimate via a time-indexed query.
	RecentDPCount(ctx context.Context, since time.Time) (int64, error)

	Close()
}
