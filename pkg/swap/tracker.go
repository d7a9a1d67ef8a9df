package swap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

// DefaultPollInterval is the status re-fetch cadence.
const DefaultPollInterval = 60 * time.Second

// Tracker polls the upstream status endpoint for one transaction id at a
// time: an immediate fetch on Track, then one poll per interval, strictly
// sequential, until a terminal status. Tracking a new id cancels the
// previous loop first, so two pollers never run concurrently.
type Tracker struct {
	client   *client.Client
	store    *Store
	interval time.Duration

	// OnStatus receives every fetched transaction record, terminal ones
	// included.
	OnStatus func(types.Transaction)
	// Logf receives background progress lines.
	Logf func(format string, args ...interface{})

	mu   sync.Mutex
	id   string
	stop chan struct{}
	done chan struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPollInterval overrides the poll cadence.
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.interval = d }
}

// NewTracker creates a status tracker. store may be nil.
func NewTracker(c *client.Client, store *Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		client:   c,
		store:    store,
		interval: DefaultPollInterval,
		Logf: func(format string, args ...interface{}) {
			fmt.Printf("[tracker] "+format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track starts polling the transaction id, cancelling any loop for a
// previous id first.
func (t *Tracker) Track(id string) {
	t.mu.Lock()
	prevStop, prevDone := t.stop, t.done
	t.id = id
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop = stop
	t.done = done
	t.mu.Unlock()

	if prevStop != nil {
		close(prevStop)
		<-prevDone
	}

	go t.loop(id, stop, done)
}

// Stop cancels the current polling loop, if any, and waits for it to
// exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop = nil
	t.done = nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// TrackingID returns the id of the currently tracked transaction.
func (t *Tracker) TrackingID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// loop polls sequentially: the next poll is never issued before the
// previous response (or its timeout) came back.
func (t *Tracker) loop(id string, stop, done chan struct{}) {
	defer close(done)

	if t.poll(id, stop) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.poll(id, stop) {
				return
			}
		}
	}
}

// poll fetches the transaction once. A transient failure is logged and
// tolerated; the schedule continues. Returns true once a terminal status
// ends tracking.
func (t *Tracker) poll(id string, stop chan struct{}) bool {
	ctx, cancel := context.WithTimeout(context.Background(), t.interval)
	defer cancel()

	tx, err := t.client.Status(ctx, id)
	if err != nil {
		select {
		case <-stop:
			return true
		default:
		}
		t.Logf("status poll for %s failed: %v", id, err)
		return false
	}

	if t.store != nil {
		_ = t.store.Record(*tx)
	}
	if t.OnStatus != nil {
		t.OnStatus(*tx)
	}

	if tx.Status.Terminal() {
		t.Logf("transaction %s reached terminal status %s", id, tx.Status)
		return true
	}
	return false
}
