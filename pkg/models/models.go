// Package models holds the persisted and wire-format types shared between
// the coordinator's HTTP handlers and its store.
package models

import "time"

// User is a registered miner account. Created once by an administrative
// tool (out of scope); never deleted. Invariant: DPCount >= 0.
type User struct {
	ID       int64  `json:"userId"`
	Username string `json:"username"`
	// Token is compared by constant-time equality at ingest; never logged.
	Token   string `json:"-"`
	DPCount int64  `json:"dpCount"`
}

// DistinguishedPoint is a reported chain endpoint. Immutable after insert.
// Invariants: len(Start) == len(End) == L, and End satisfies D_k for the
// instance's dp_bits (trusted, not re-checked server-side).
type DistinguishedPoint struct {
	ID     int64
	UserID int64
	Start  []byte
	End    []byte
	Time   time.Time
}

// Collision links two DPs that reached the same endpoint from different
// starts. DPIDOne is the pre-existing DP, DPIDTwo the one whose insert
// triggered detection (insertion order is preserved for auditability).
type Collision struct {
	ID      int64
	DPIDOne int64
	DPIDTwo int64
}

// SubmitWorkRequest is the decoded body of POST /submit_work.
type SubmitWorkRequest struct {
	Username  string              `json:"username"`
	UserToken string              `json:"usertoken"`
	Results   []SubmitWorkResult  `json:"results"`
}

// SubmitWorkResult is one (start, dp) pair reported by a worker.
type SubmitWorkResult struct {
	Start string `json:"start"`
	DP    string `json:"dp"`
}

// IngestOutcome summarizes what happened to one SubmitWorkResult during
// ingest, used for the websocket telemetry feed (§6 expansion).
type IngestOutcome struct {
	UserID      int64 `json:"userId"`
	DPID        int64 `json:"dpId"`
	IsCollision bool  `json:"isCollision"`
	CollidesDP  int64 `json:"collidesWithDpId,omitempty"`
}
