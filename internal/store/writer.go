package store

import (
	"context"
	"time"
)

// SerialWriter serializes Ingest calls through a single goroutine reading
// from a request channel, so the existence check and the two inserts for
// a collision are atomic with respect to other ingest requests,
// independently of whatever the underlying Store does internally: one
// loop, one piece of shared mutable state touched at a time.
//
// AuthenticateUser and the read-only counters bypass the writer — only
// the insert-or-collision critical section needs serialization.
type SerialWriter struct {
	inner Store
	reqCh chan ingestJob
	done  chan struct{}
}

type ingestJob struct {
	ctx     context.Context
	userID  int64
	results []PendingResult
	reply   chan ingestReply
}

type ingestReply struct {
	report IngestReport
	err    error
}

// NewSerialWriter starts the background writer goroutine wrapping inner.
func NewSerialWriter(inner Store) *SerialWriter {
	w := &SerialWriter{
		inner: inner,
		reqCh: make(chan ingestJob),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *SerialWriter) run() {
	defer close(w.done)
	for job := range w.reqCh {
		report, err := w.inner.Ingest(job.ctx, job.userID, job.results)
		job.reply <- ingestReply{report: report, err: err}
	}
}

// AuthenticateUser passes through to the wrapped store; authentication is
// read-only and needs no serialization.
func (w *SerialWriter) AuthenticateUser(ctx context.Context, username, token string) (int64, error) {
	return w.inner.AuthenticateUser(ctx, username, token)
}

// Ingest hands the request to the single writer goroutine and blocks for
// its reply, guaranteeing only one Ingest body runs at a time.
func (w *SerialWriter) Ingest(ctx context.Context, userID int64, results []PendingResult) (IngestReport, error) {
	reply := make(chan ingestReply, 1)
	select {
	case w.reqCh <- ingestJob{ctx: ctx, userID: userID, results: results, reply: reply}:
	case <-ctx.Done():
		return IngestReport{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.report, r.err
	case <-ctx.Done():
		return IngestReport{}, ctx.Err()
	}
}

func (w *SerialWriter) DPCount(ctx context.Context) (int64, error) {
	return w.inner.DPCount(ctx)
}

func (w *SerialWriter) CollisionCount(ctx context.Context) (int64, error) {
	return w.inner.CollisionCount(ctx)
}

func (w *SerialWriter) RecentDPCount(ctx context.Context, since time.Time) (int64, error) {
	return w.inner.RecentDPCount(ctx, since)
}

// Close stops accepting new requests and waits for the writer to drain.
func (w *SerialWriter) Close() {
	close(w.reqCh)
	<-w.done
	w.inner.Close()
}

var _ Store = (*SerialWriter)(nil)
