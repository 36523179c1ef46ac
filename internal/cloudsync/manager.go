package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/events"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/progress"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/state"
)

var (
	ErrNoUser       = errors.New("no signed-in user")
	ErrSyncDisabled = errors.New("cloud sync is not configured")
)

const (
	TriggerSignIn       = "sign-in"
	TriggerInterval     = "interval"
	TriggerGameFinished = "game-finished"
	TriggerManual       = "manual"
	TriggerCleared      = "cleared"
	triggerProgress     = "progress"
)

type Options struct {
	Interval      time.Duration
	DebounceDelay time.Duration
	Logger        *logging.Logger
}

// SyncManager pushes the local progress snapshot to the cloud whenever a
// trigger fires. Pushes are serialized and never retried on their own: a
// failed push waits for the next trigger, which re-reads local state.
type SyncManager struct {
	// mu serializes sync runs.
	mu sync.Mutex

	st     *state.AgentState
	client *Client
	store  *progress.Store
	bus    *events.Bus
	logger *logging.Logger

	interval time.Duration
	debounce time.Duration

	signedIn chan struct{}
	finished chan struct{}
	cleared  chan struct{}

	// resets counts user resets of the local store; pushedResets, guarded by
	// mu, is the count already covered by a successful push.
	resets       atomic.Uint64
	pushedResets uint64
}

func NewSyncManager(st *state.AgentState, client *Client, store *progress.Store, bus *events.Bus, opts Options) *SyncManager {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = 2 * time.Second
	}
	return &SyncManager{
		st:       st,
		client:   client,
		store:    store,
		bus:      bus,
		logger:   opts.Logger,
		interval: opts.Interval,
		debounce: opts.DebounceDelay,
		signedIn: make(chan struct{}, 1),
		finished: make(chan struct{}, 1),
		cleared:  make(chan struct{}, 1),
	}
}

// SignIn records the identity and publishes auth.signed-in, which starts the initial sync.
func (m *SyncManager) SignIn(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrNoUser
	}
	m.st.SetUser(userID)
	m.bus.Publish(events.Event{Topic: events.TopicSignedIn, Key: userID})
	return nil
}

func (m *SyncManager) GameFinished() {
	m.bus.Publish(events.Event{Topic: events.TopicGameFinished})
}

func (m *SyncManager) State() state.SyncStatus {
	return m.st.SyncStatusSnapshot()
}

// Run drives background syncs until ctx is done.
func (m *SyncManager) Run(ctx context.Context) {
	debouncer := events.NewDebouncer(m.debounce)
	defer debouncer.Stop()

	unsubs := []func(){
		m.bus.Subscribe(events.TopicProgressChanged, func(ev events.Event) {
			if progress.IsWatched(ev.Key) {
				debouncer.Trigger(ev.Key)
			}
		}),
		m.bus.Subscribe(events.TopicGameFinished, func(events.Event) { signal(m.finished) }),
		m.bus.Subscribe(events.TopicSignedIn, func(events.Event) { signal(m.signedIn) }),
		m.bus.Subscribe(events.TopicProgressCleared, func(events.Event) {
			m.resets.Add(1)
			signal(m.cleared)
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	if m.st.UserID() != "" {
		m.background(ctx, TriggerSignIn, m.InitialSync)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.signedIn:
			m.background(ctx, TriggerSignIn, m.InitialSync)
		case <-ticker.C:
			m.background(ctx, TriggerInterval, m.pushTrigger(TriggerInterval))
		case keys := <-debouncer.C():
			trigger := triggerProgress + ":" + strings.Join(keys, ",")
			m.background(ctx, trigger, m.pushTrigger(trigger))
		case <-m.finished:
			m.background(ctx, TriggerGameFinished, m.pushTrigger(TriggerGameFinished))
		case <-m.cleared:
			m.background(ctx, TriggerCleared, m.pushTrigger(TriggerCleared))
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (m *SyncManager) pushTrigger(trigger string) func(context.Context) error {
	return func(ctx context.Context) error { return m.sync(ctx, trigger) }
}

func (m *SyncManager) background(ctx context.Context, trigger string, fn func(context.Context) error) {
	err := fn(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoUser), errors.Is(err, ErrSyncDisabled):
		m.logger.Debugf("[cloudsync] %s skipped: %v", trigger, err)
	case ctx.Err() != nil:
	default:
		m.logger.Warnf("[cloudsync] %s sync failed: %v", trigger, err)
	}
}

// SyncNow is the manual trigger. Unlike background triggers it reports failure.
func (m *SyncManager) SyncNow(ctx context.Context) error {
	return m.sync(ctx, TriggerManual)
}

func (m *SyncManager) sync(ctx context.Context, trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, err := m.identity()
	if err != nil {
		return err
	}
	m.st.MarkSyncing(trigger)
	if err := m.pushLocked(ctx, userID); err != nil {
		m.st.MarkSyncError(err.Error())
		return err
	}
	m.st.MarkSyncSuccess()
	return nil
}

// InitialSync pulls the cloud row, restores it into an empty local store, then
// pushes the local snapshot.
func (m *SyncManager) InitialSync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, err := m.identity()
	if err != nil {
		return err
	}
	m.st.MarkSyncing(TriggerSignIn)
	if err := m.pullAndRestore(ctx, userID); err != nil {
		m.st.MarkSyncError(err.Error())
		return err
	}
	if err := m.pushLocked(ctx, userID); err != nil {
		m.st.MarkSyncError(err.Error())
		return err
	}
	m.st.MarkSyncSuccess()
	return nil
}

func (m *SyncManager) identity() (string, error) {
	status := m.st.SyncStatusSnapshot()
	if !status.Enabled {
		return "", ErrSyncDisabled
	}
	if status.UserID == "" {
		return "", ErrNoUser
	}
	return status.UserID, nil
}

func (m *SyncManager) pullAndRestore(ctx context.Context, userID string) error {
	pulled, err := m.client.Pull(ctx, userID)
	if err != nil {
		return err
	}
	if !pulled.HasCloudData || len(pulled.Data) == 0 {
		return nil
	}
	if m.resets.Load() != m.pushedResets {
		m.logger.Debugf("[cloudsync] local reset pending, not restoring cloud copy")
		return nil
	}
	empty, err := m.store.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		m.logger.Debugf("[cloudsync] local progress present, keeping it over cloud copy")
		return nil
	}
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(pulled.Data, &snapshot); err != nil {
		return fmt.Errorf("decode cloud snapshot: %w", err)
	}
	if err := m.store.Restore(ctx, snapshot); err != nil {
		return fmt.Errorf("restore cloud snapshot: %w", err)
	}
	m.logger.Infof("[cloudsync] restored %d slots from cloud", len(snapshot))
	return nil
}

func (m *SyncManager) pushLocked(ctx context.Context, userID string) error {
	resets := m.resets.Load()
	snapshot, err := m.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read local progress: %w", err)
	}
	// An empty device never overwrites the cloud row unless the user reset it.
	if len(snapshot) == 0 && resets == m.pushedResets {
		return nil
	}
	res, err := m.client.Push(ctx, userID, snapshot, m.st.SessionID())
	if err != nil {
		return err
	}
	m.pushedResets = resets
	m.logger.Debugf("[cloudsync] pushed %d slots for %s at %s", len(snapshot), userID, res.LastSynced.Format(time.RFC3339))
	return nil
}
