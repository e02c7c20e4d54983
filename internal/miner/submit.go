package miner

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/collision-engine/pkg/models"
)

// Submitter batches DPResults found by the mining loop and POSTs them to
// the coordinator's /submit_work endpoint on a fixed tick: an unbounded
// queue fed by the producer, drained by a single background goroutine so
// a slow or unreachable coordinator never blocks mining.
type Submitter struct {
	url        string
	username   string
	token      string
	instanceID string
	client     *http.Client

	mu      sync.Mutex
	pending []DPResult

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSubmitter builds a Submitter targeting the coordinator's submit_work
// URL. Call Start to begin the background ticker and Enqueue from the
// mining loop to feed it; call Stop to drain and join. Each Submitter is
// tagged with a fresh instance ID so operators can correlate coordinator
// logs with a specific worker process across restarts.
func NewSubmitter(url, username, token string) *Submitter {
	return &Submitter{
		url:        url,
		username:   username,
		token:      token,
		instanceID: uuid.New().String(),
		client:     &http.Client{Timeout: 10 * time.Second},
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Enqueue adds a discovered distinguished point to the outgoing queue.
// Safe to call from the mining loop concurrently with the submit tick.
func (s *Submitter) Enqueue(dp DPResult) {
	s.mu.Lock()
	s.pending = append(s.pending, dp)
	s.mu.Unlock()
}

// Start runs the submission loop on a 1 second ticker until Stop is
// called.
func (s *Submitter) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Submitter) run(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopCh:
			s.flush()
			return
		case <-ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *Submitter) flush() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	req := models.SubmitWorkRequest{
		Username:  s.username,
		UserToken: s.token,
		Results:   make([]models.SubmitWorkResult, len(batch)),
	}
	for i, dp := range batch {
		req.Results[i] = models.SubmitWorkResult{
			Start: hex.EncodeToString(dp.Start),
			DP:    hex.EncodeToString(dp.End),
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		log.Printf("[Submitter] marshal error: %v (dropping %d results)", err, len(batch))
		return
	}

	httpReq, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[Submitter] request build error: %v (dropping %d results)", err, len(batch))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Worker-Instance", s.instanceID)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		log.Printf("[Submitter] POST %s failed: %v (requeuing %d results)", s.url, err, len(batch))
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Submitter] coordinator rejected submission: status=%d (dropping %d results)", resp.StatusCode, len(batch))
		return
	}
	log.Printf("[Submitter] submitted %d results", len(batch))
}

// Stop signals the submission loop to flush and exit, waiting up to
// timeout for it to join.
func (s *Submitter) Stop(timeout time.Duration) {
	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-time.After(timeout):
		log.Printf("[Submitter] shutdown timed out after %s; remaining queued results are lost", timeout)
	}
}
