package store

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/collision-engine/pkg/models"
)

// PostgresStore persists users, distinguished points, and collisions in
// Postgres via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and pings it.
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: unable to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}
	log.Println("[Store] Connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// InitSchema loads and executes schema.sql. Bootstrapping the schema
// itself (table creation, migrations) is explicitly out of scope per
// this simply reads and executes a schema file so an operator can point
// it at whatever schema their deployment ships.
func (s *PostgresStore) InitSchema(ctx context.Context, path string) error {
	schemaBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("store: failed to read schema file: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("store: failed to execute schema: %w", err)
	}
	log.Println("[Store] Schema initialized")
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// AuthenticateUser looks up the user and compares the token in constant
// time so a timing side-channel can't be used to enumerate valid tokens.
func (s *PostgresStore) AuthenticateUser(ctx context.Context, username, token string) (int64, error) {
	var userID int64
	var storedToken string
	err := s.pool.QueryRow(ctx,
		`SELECT userid, usertoken FROM "user" WHERE username = $1`, username,
	).Scan(&userID, &storedToken)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrBadCredentials
		}
		return 0, fmt.Errorf("store: authenticate query failed: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(storedToken), []byte(token)) != 1 {
		return 0, ErrBadCredentials
	}
	return userID, nil
}

// Ingest runs the per-request transaction: for each result,
// check for an existing DP with the same end (a pre-collision), insert
// accordingly, batch the rest, then bump the user's dp_count. Intended to
// be called only through a SerialWriter so concurrent Ingest calls never
// race the existence check against each other.
func (s *PostgresStore) Ingest(ctx context.Context, userID int64, results []PendingResult) (IngestReport, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return IngestReport{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	report := IngestReport{}
	var batchStarts, batchEnds [][]byte
	now := time.Now()

	for _, r := range results {
		var existingID int64
		var existingStart []byte
		err := tx.QueryRow(ctx,
			`SELECT dpid, dpstart FROM dp WHERE dpend = $1`, r.End,
		).Scan(&existingID, &existingStart)

		switch {
		case err == nil:
			// Pre-collision: insert the new DP now (so we can grab its id),
			// then record the collision linking the prior DP to this one.
			var newID int64
			err := tx.QueryRow(ctx,
				`INSERT INTO dp (dpuserid, dpstart, dpend, dptime) VALUES ($1, $2, $3, $4) RETURNING dpid`,
				userID, r.Start, r.End, now.Unix(),
			).Scan(&newID)
			if err != nil {
				return IngestReport{}, fmt.Errorf("store: insert colliding dp: %w", err)
			}
			var collID int64
			err = tx.QueryRow(ctx,
				`INSERT INTO collision (colldpidone, colldpidtwo) VALUES ($1, $2) RETURNING collid`,
				existingID, newID,
			).Scan(&collID)
			if err != nil {
				return IngestReport{}, fmt.Errorf("store: insert collision: %w", err)
			}
			log.Printf("[Store] COLLISION dp=%d <-> dp=%d end=%x", existingID, newID, r.End)
			report.Collisions = append(report.Collisions, models.IngestOutcome{
				UserID:      userID,
				DPID:        newID,
				IsCollision: true,
				CollidesDP:  existingID,
			})
			report.Accepted++
		case err == pgx.ErrNoRows:
			batchStarts = append(batchStarts, r.Start)
			batchEnds = append(batchEnds, r.End)
			report.Accepted++
		default:
			return IngestReport{}, fmt.Errorf("store: collision lookup: %w", err)
		}
	}

	if len(batchStarts) > 0 {
		batch := &pgx.Batch{}
		for i := range batchStarts {
			batch.Queue(
				`INSERT INTO dp (dpuserid, dpstart, dpend, dptime) VALUES ($1, $2, $3, $4)`,
				userID, batchStarts[i], batchEnds[i], now.Unix(),
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range batchStarts {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return IngestReport{}, fmt.Errorf("store: bulk insert dp: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return IngestReport{}, fmt.Errorf("store: bulk insert close: %w", err)
		}
	}

	if report.Accepted > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE "user" SET userdpcount = userdpcount + $1 WHERE userid = $2`,
			report.Accepted, userID,
		); err != nil {
			return IngestReport{}, fmt.Errorf("store: increment dpcount: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return IngestReport{}, fmt.Errorf("store: commit: %w", err)
	}
	return report, nil
}

func (s *PostgresStore) DPCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dp`).Scan(&n)
	return n, err
}

func (s *PostgresStore) CollisionCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM collision`).Scan(&n)
	return n, err
}

func (s *PostgresStore) RecentDPCount(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dp WHERE dptime > $1`, since.Unix()).Scan(&n)
	return n, err
}
