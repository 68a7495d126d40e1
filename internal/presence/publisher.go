// Package presence publishes Status snapshots to Discord Rich Presence.
//
// The [Publisher] runs its own goroutine so a slow or absent Discord never
// stalls the log-reading loop: the poll loop hands snapshots to [Publisher.Offer]
// and moves on. Offers within the debounce window collapse to the latest
// snapshot, and the same latest-wins slot carries the snapshot across
// disconnects, so a burst of log lines costs at most one socket write and a
// reconnect flushes exactly the newest state.
package presence

import (
	"log/slog"
	"sync"
	"time"

	"tools.zach/dev/exilecord/internal/discord"
	"tools.zach/dev/exilecord/internal/status"
)

// ///////////////////////////////////////////////
// Sink
// ///////////////////////////////////////////////

// Sink is the presence endpoint the publisher drives. *discord.Client
// implements it; tests substitute a fake.
type Sink interface {
	Connect() error
	SetActivity(*discord.Activity) error
	ClearActivity() error
	Close() error
}

// ///////////////////////////////////////////////
// Connection State
// ///////////////////////////////////////////////

// State is the publisher's view of the sink connection.
type State int

const (
	// StateDisconnected means no usable connection; pending snapshots are
	// retained until one exists.
	StateDisconnected State = iota
	// StateConnecting means a connection attempt is in progress.
	StateConnecting
	// StateConnected means the handshake succeeded and publishes flow.
	StateConnected
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options configures the publisher's timing and presentation.
type Options struct {
	// Debounce is how long to wait after an offer before publishing, so a
	// burst of snapshots collapses to its last value.
	Debounce time.Duration
	// ReconnectInterval is the delay before retrying after a connect or
	// publish failure.
	ReconnectInterval time.Duration

	// DetailsFormat and StateFormat are the presence line templates.
	// Placeholders: {character} {class} {level} {area} {area_level}.
	DetailsFormat string
	StateFormat   string
	// StateNoLevelFormat is the state template for towns, hideouts, and
	// areas with no known level.
	StateNoLevelFormat string

	// HideCharacterName substitutes the class for the character name.
	HideCharacterName bool
	// IgnoredCharacters suppresses presence entirely for matching names
	// (doublestar patterns).
	IgnoredCharacters []string
}

// DefaultOptions returns the publisher defaults used when config values are
// absent.
func DefaultOptions() Options {
	return Options{
		Debounce:           1500 * time.Millisecond,
		ReconnectInterval:  15 * time.Second,
		DetailsFormat:      "{character} (Level {level})",
		StateFormat:        "{area} ({area_level})",
		StateNoLevelFormat: "{area}",
	}
}

// ///////////////////////////////////////////////
// Publisher
// ///////////////////////////////////////////////

// Publisher owns the sink connection and the debounce/retry loop.
type Publisher struct {
	sink Sink
	opts Options
	log  *slog.Logger

	// mu protects pending, state, and haveShown.
	mu      sync.Mutex
	pending *status.Status
	state   State
	// haveShown tracks whether an activity is currently displayed, so a
	// suppressed snapshot clears presence once instead of repeatedly.
	haveShown bool

	// kick wakes the run loop; buffered so offers coalesce without blocking.
	kick    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// lastHash dedups payloads. Reset on reconnect so the first publish
	// after an outage always goes out.
	lastHash string
}

// NewPublisher creates a Publisher and starts its goroutine.
func NewPublisher(sink Sink, opts Options, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		sink:    sink,
		opts:    opts,
		log:     log,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// Offer hands the publisher a new snapshot. It never blocks; within a
// debounce window only the latest offered snapshot survives.
func (p *Publisher) Offer(s status.Status) {
	p.mu.Lock()
	p.pending = &s
	p.mu.Unlock()
	p.notify()
}

// State returns the current connection state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stop shuts the publisher down: the loop exits, presence is cleared
// best-effort, and the sink is closed. Safe to call more than once.
func (p *Publisher) Stop() {
	p.once.Do(func() {
		close(p.done)
		<-p.stopped
		if err := p.sink.Close(); err != nil {
			p.log.Debug("sink close", "error", err)
		}
	})
}

// notify coalesces wake-ups, mirroring the watcher's event channel.
func (p *Publisher) notify() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// run is the publisher goroutine: wait for an offer, let the debounce window
// pass, then flush whatever snapshot is newest by then.
func (p *Publisher) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.done:
			return
		case <-p.kick:
		}

		select {
		case <-p.done:
			// Let the in-flight snapshot out before shutdown.
			p.flush()
			return
		case <-time.After(p.opts.Debounce):
		}

		p.flush()
	}
}

// takePending removes and returns the pending snapshot.
func (p *Publisher) takePending() (status.Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return status.Status{}, false
	}
	s := *p.pending
	p.pending = nil
	return s, true
}

// restorePending puts a snapshot back after a failed flush, unless a newer
// offer superseded it in the meantime.
func (p *Publisher) restorePending(s status.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		p.pending = &s
	}
}

func (p *Publisher) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// retryLater schedules a wake-up after the reconnect interval. The pending
// snapshot is already restored, so the retry flushes the newest state.
func (p *Publisher) retryLater() {
	time.AfterFunc(p.opts.ReconnectInterval, p.notify)
}

// flush publishes the pending snapshot, connecting first if needed. Failures
// transition to Disconnected, keep the snapshot, and schedule a retry; they
// never propagate to the caller.
func (p *Publisher) flush() {
	snap, ok := p.takePending()
	if !ok {
		return
	}

	if p.State() != StateConnected {
		p.setState(StateConnecting)
		if err := p.sink.Connect(); err != nil {
			p.log.Warn("discord connect failed", "error", err)
			p.setState(StateDisconnected)
			p.restorePending(snap)
			p.retryLater()
			return
		}
		p.log.Info("connected to Discord")
		p.setState(StateConnected)
		p.lastHash = ""
	}

	activity := BuildActivity(snap, p.opts)

	if activity == nil {
		p.clearIfShown()
		return
	}

	hash := activityHash(activity)
	if hash == p.lastHash {
		return
	}

	if err := p.sink.SetActivity(activity); err != nil {
		p.log.Warn("failed to set activity", "error", err)
		p.setState(StateDisconnected)
		p.restorePending(snap)
		p.retryLater()
		return
	}
	p.lastHash = hash
	p.mu.Lock()
	p.haveShown = true
	p.mu.Unlock()
	p.log.Debug("presence updated", "details", activity.Details, "state", activity.State)
}

// clearIfShown clears presence once when the current snapshot has nothing to
// show. A clear failure is treated like any other publish failure, except
// there is no snapshot worth retrying.
func (p *Publisher) clearIfShown() {
	p.mu.Lock()
	shown := p.haveShown
	p.mu.Unlock()
	if !shown {
		return
	}
	if err := p.sink.ClearActivity(); err != nil {
		p.log.Warn("failed to clear activity", "error", err)
		p.setState(StateDisconnected)
		return
	}
	p.mu.Lock()
	p.haveShown = false
	p.mu.Unlock()
	p.lastHash = ""
	p.log.Debug("presence cleared")
}
