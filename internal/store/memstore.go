package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/rawblock/collision-engine/pkg/models"
)

// MemStore is an in-process Store used by coordinator tests and by
// --dry-run-adjacent tooling; it implements the exact same insert-or-
// collision semantics as PostgresStore without needing a live database.
type MemStore struct {
	mu          sync.Mutex
	users       map[string]*memUser
	dps         []models.DistinguishedPoint
	collisions  []models.Collision
	byEnd       map[string]int64 // hex(end) -> dp id
}

type memUser struct {
	id      int64
	token   string
	dpCount int64
}

// NewMemStore constructs an empty store with the given seed users
// (username -> token).
func NewMemStore(seedUsers map[string]string) *MemStore {
	m := &MemStore{
		users: make(map[string]*memUser),
		byEnd: make(map[string]int64),
	}
	var id int64
	for username, token := range seedUsers {
		id++
		m.users[username] = &memUser{id: id, token: token}
	}
	return m
}

func (m *MemStore) AuthenticateUser(ctx context.Context, username, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(u.token), []byte(token)) != 1 {
		return 0, ErrBadCredentials
	}
	return u.id, nil
}

func (m *MemStore) Ingest(ctx context.Context, userID int64, results []PendingResult) (IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := IngestReport{}
	now := time.Now()

	for _, r := range results {
		key := string(r.End)
		if existingID, ok := m.byEnd[key]; ok {
			newID := int64(len(m.dps) + 1)
			m.dps = append(m.dps, models.DistinguishedPoint{
				ID: newID, UserID: userID, Start: r.Start, End: r.End, Time: now,
			})
			collID := int64(len(m.collisions) + 1)
			m.collisions = append(m.collisions, models.Collision{
				ID: collID, DPIDOne: existingID, DPIDTwo: newID,
			})
			report.Collisions = append(report.Collisions, models.IngestOutcome{
				UserID: userID, DPID: newID, IsCollision: true, CollidesDP: existingID,
			})
			report.Accepted++
		} else {
			newID := int64(len(m.dps) + 1)
			m.dps = append(m.dps, models.DistinguishedPoint{
				ID: newID, UserID: userID, Start: r.Start, End: r.End, Time: now,
			})
			m.byEnd[key] = newID
			report.Accepted++
		}
	}

	for _, u := range m.users {
		if u.id == userID {
			u.dpCount += int64(report.Accepted)
			break
		}
	}
	return report, nil
}

func (m *MemStore) DPCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.dps)), nil
}

func (m *MemStore) CollisionCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.collisions)), nil
}

func (m *MemStore) RecentDPCount(ctx context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, dp := range m.dps {
		if dp.Time.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) Close() {}

// UserDPCount is a test helper exposing the cached counter.
func (m *MemStore) UserDPCount(username string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u.dpCount
	}
	return -1
}

var _ Store = (*MemStore)(nil)
