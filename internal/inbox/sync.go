package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/azteclab/trueblue-cli/internal/realtime"
	"github.com/azteclab/trueblue-cli/internal/store"
)

// DefaultRebuildDelay is how long the syncer waits after a structural change
// before refetching, so a burst of events collapses into one rebuild.
const DefaultRebuildDelay = 50 * time.Millisecond

// FetchFunc loads the raw rows for a full view rebuild.
type FetchFunc func(ctx context.Context) ([]store.Conversation, []store.Message, []store.Profile, error)

// StoreFetch returns a FetchFunc that loads conversations, messages, and
// profiles from the store concurrently.
func StoreFetch(client *store.Client) FetchFunc {
	return func(ctx context.Context) ([]store.Conversation, []store.Message, []store.Profile, error) {
		var (
			convs    []store.Conversation
			msgs     []store.Message
			profiles []store.Profile
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			convs, err = client.Conversations().List(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			msgs, err = client.Messages().ListAll(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			profiles, err = client.Profiles().List(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, nil, nil, err
		}
		return convs, msgs, profiles, nil
	}
}

// Syncer keeps a consolidated view current against the change feed.
//
// Cheap events are applied in place: a conversation update patches the
// affected view, a message insert appends to its thread. Structural events
// (conversation insert/delete, message update/delete) schedule a coalesced
// full rebuild instead, since they can change consolidation itself.
type Syncer struct {
	fetch        FetchFunc
	rebuildDelay time.Duration

	mu       sync.Mutex
	views    []ConversationView
	byConvID map[string]int // canonical conversation id -> views index
	msgIDs   map[string]struct{}
	patches  map[string]*Patch

	rebuildPending bool
	rebuildCh      chan struct{}
	updates        chan struct{}
}

// NewSyncer creates a syncer over the given fetch function.
func NewSyncer(fetch FetchFunc) *Syncer {
	return &Syncer{
		fetch:        fetch,
		rebuildDelay: DefaultRebuildDelay,
		byConvID:     map[string]int{},
		msgIDs:       map[string]struct{}{},
		patches:      map[string]*Patch{},
		rebuildCh:    make(chan struct{}, 1),
		updates:      make(chan struct{}, 1),
	}
}

// SetRebuildDelay overrides the coalescing delay. Zero still coalesces
// events that are already queued.
func (s *Syncer) SetRebuildDelay(d time.Duration) { s.rebuildDelay = d }

// Updates signals after every applied change or completed rebuild. The
// channel carries no data; read the current view with View.
func (s *Syncer) Updates() <-chan struct{} { return s.updates }

// View returns a copy of the current consolidated view.
func (s *Syncer) View() []ConversationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConversationView, len(s.views))
	copy(out, s.views)
	return out
}

// Refresh refetches everything and rebuilds the view. On error the previous
// view is left untouched.
func (s *Syncer) Refresh(ctx context.Context) error {
	convs, msgs, profiles, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh inbox: %w", err)
	}
	views := BuildView(convs, msgs, profiles)

	s.mu.Lock()
	s.views = views
	s.byConvID = make(map[string]int, len(views))
	s.msgIDs = make(map[string]struct{})
	for i, v := range views {
		s.byConvID[v.Conversation.ID] = i
		for _, m := range v.Messages {
			s.msgIDs[m.ID] = struct{}{}
		}
	}
	// Confirmed rows older than an optimistic patch keep the patch alive;
	// anything newer supersedes it.
	for id, p := range s.patches {
		i, ok := s.byConvID[id]
		if !ok {
			delete(s.patches, id)
			continue
		}
		if !s.views[i].Conversation.UpdatedAt.Before(p.AppliedAt) {
			delete(s.patches, id)
		} else {
			s.views[i].Conversation = p.apply(s.views[i].Conversation)
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// ApplyOptimistic patches the local view after a confirmed store write and
// remembers the patch for change-feed reconciliation.
func (s *Syncer) ApplyOptimistic(conversationID string, patch Patch) {
	s.mu.Lock()
	s.patches[conversationID] = &patch
	if i, ok := s.byConvID[conversationID]; ok {
		s.views[i].Conversation = patch.apply(s.views[i].Conversation)
		s.resortLocked()
	}
	s.mu.Unlock()
	s.notify()
}

// AppendLocal adds a just-sent message to its thread without waiting for
// the change feed. The duplicate-id guard makes the later confirmed insert
// event a no-op.
func (s *Syncer) AppendLocal(msg store.Message) {
	s.mu.Lock()
	s.appendMessageLocked(msg)
	s.mu.Unlock()
	s.notify()
}

// Apply folds one change-feed event into the view. Malformed events are
// logged and skipped; unexpected shapes degrade to a scheduled rebuild
// rather than failing the loop.
func (s *Syncer) Apply(change *realtime.Change) {
	switch {
	case change.Table == store.TableConversations && change.Type == realtime.ChangeUpdate:
		var conv store.Conversation
		if err := json.Unmarshal(change.Record, &conv); err != nil || conv.ID == "" {
			slog.Warn("skipping malformed conversation event", "error", err)
			return
		}
		s.applyConversationUpdate(conv)

	case change.Table == store.TableMessages && change.Type == realtime.ChangeInsert:
		var msg store.Message
		if err := json.Unmarshal(change.Record, &msg); err != nil || msg.ID == "" {
			slog.Warn("skipping malformed message event", "error", err)
			return
		}
		s.applyMessageInsert(msg)

	default:
		// Conversation insert/delete or message update/delete can change
		// which row is canonical; only a refetch answers that.
		s.scheduleRebuild()
	}
}

// Run consumes the event stream until it closes or ctx is cancelled,
// executing coalesced rebuilds as they come due. A rebuild failure is
// logged and retried on the next structural event.
func (s *Syncer) Run(ctx context.Context, events <-chan realtime.Event) error {
	var timer *time.Timer
	var timerCh <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return fmt.Errorf("change feed: %w", ev.Err)
			}
			s.Apply(ev.Change)

		case <-s.rebuildCh:
			if timer == nil {
				timer = time.NewTimer(s.rebuildDelay)
			} else {
				timer.Reset(s.rebuildDelay)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			s.mu.Lock()
			s.rebuildPending = false
			s.mu.Unlock()
			if err := s.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("inbox rebuild failed, keeping previous view", "error", err)
				s.scheduleRebuild()
			}
		}
	}
}

func (s *Syncer) applyConversationUpdate(conv store.Conversation) {
	s.mu.Lock()
	i, ok := s.byConvID[conv.ID]
	if !ok {
		s.mu.Unlock()
		// An update for a row we do not track (likely a consolidated
		// duplicate); the rebuild will sort it out.
		s.scheduleRebuild()
		return
	}
	prevAssigned := s.views[i].Conversation.AssignedAgentID
	s.views[i].Conversation = Reconcile(s.views[i].Conversation, s.patches[conv.ID], conv)
	if p := s.patches[conv.ID]; p != nil && !conv.UpdatedAt.Before(p.AppliedAt) {
		delete(s.patches, conv.ID)
	}
	if s.views[i].Conversation.AssignedAgentID != prevAssigned {
		s.views[i].Agent = nil // reattached on the next rebuild
	}
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Syncer) applyMessageInsert(msg store.Message) {
	s.mu.Lock()
	applied := s.appendMessageLocked(msg)
	s.mu.Unlock()
	if !applied {
		s.scheduleRebuild()
		return
	}
	s.notify()
}

func (s *Syncer) appendMessageLocked(msg store.Message) bool {
	if _, seen := s.msgIDs[msg.ID]; seen {
		return true
	}
	i, ok := s.byConvID[msg.ConversationID]
	if !ok {
		return false
	}
	s.msgIDs[msg.ID] = struct{}{}
	s.views[i].Messages = append(s.views[i].Messages, msg)
	if msg.CreatedAt.After(s.views[i].Conversation.UpdatedAt) {
		s.views[i].Conversation.UpdatedAt = msg.CreatedAt
	}
	s.resortLocked()
	return true
}

func (s *Syncer) resortLocked() {
	sort.SliceStable(s.views, func(i, j int) bool {
		return s.views[i].Conversation.UpdatedAt.After(s.views[j].Conversation.UpdatedAt)
	})
	for i, v := range s.views {
		s.byConvID[v.Conversation.ID] = i
	}
}

func (s *Syncer) scheduleRebuild() {
	s.mu.Lock()
	pending := s.rebuildPending
	s.rebuildPending = true
	s.mu.Unlock()
	if pending {
		return
	}
	select {
	case s.rebuildCh <- struct{}{}:
	default:
	}
}

func (s *Syncer) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
