package store

import (
	"context"
	"encoding/hex"
	"testing"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestAuthentication(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(map[string]string{"alice": "alicetoken"})

	if _, err := s.AuthenticateUser(ctx, "alice", "wrong"); err != ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if _, err := s.AuthenticateUser(ctx, "alice", "alicetoken"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestIngestEmptyResults(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(map[string]string{"alice": "alicetoken"})
	userID, err := s.AuthenticateUser(ctx, "alice", "alicetoken")
	if err != nil {
		t.Fatal(err)
	}
	report, err := s.Ingest(ctx, userID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Accepted != 0 {
		t.Fatalf("expected 0 accepted, got %d", report.Accepted)
	}
}

func TestCollisionInsertion(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(map[string]string{"alice": "alicetoken", "bob": "bobtoken"})
	aliceID, _ := s.AuthenticateUser(ctx, "alice", "alicetoken")
	bobID, _ := s.AuthenticateUser(ctx, "bob", "bobtoken")

	end := hexBytes(t, "1111111111111111")

	if _, err := s.Ingest(ctx, aliceID, []PendingResult{
		{Start: hexBytes(t, "deadbeefcafebabe"), End: end},
	}); err != nil {
		t.Fatal(err)
	}

	report, err := s.Ingest(ctx, bobID, []PendingResult{
		{Start: hexBytes(t, "fedcba9876543210"), End: end},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Collisions) != 1 {
		t.Fatalf("expected exactly one collision, got %d", len(report.Collisions))
	}

	dpCount, _ := s.DPCount(ctx)
	if dpCount != 2 {
		t.Fatalf("expected 2 DPs, got %d", dpCount)
	}
	collCount, _ := s.CollisionCount(ctx)
	if collCount != 1 {
		t.Fatalf("expected 1 collision, got %d", collCount)
	}

	got := s.collisions[0]
	if got.DPIDOne != 1 || got.DPIDTwo != 2 {
		t.Fatalf("collision should link alice's DP (1) to bob's (2) in that order, got (%d,%d)", got.DPIDOne, got.DPIDTwo)
	}
}

func TestUserCounterIncrementsByAcceptedCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(map[string]string{"alice": "alicetoken"})
	aliceID, _ := s.AuthenticateUser(ctx, "alice", "alicetoken")

	_, err := s.Ingest(ctx, aliceID, []PendingResult{
		{Start: hexBytes(t, "aaaaaaaaaaaaaaaa"), End: hexBytes(t, "0000000000000001")},
		{Start: hexBytes(t, "bbbbbbbbbbbbbbbb"), End: hexBytes(t, "0000000000000002")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.UserDPCount("alice"); got != 2 {
		t.Fatalf("expected alice.dp_count == 2, got %d", got)
	}
}
