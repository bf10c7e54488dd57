package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/cache"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/config"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/persistence"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

const memberSnapshotCacheSize = 1024

// Coordinator orchestrates the engine for each public operation. All room
// mutations (join, leave, send, state recomputation) run under a per-room
// mutex; room creation runs under a per-(variant,post) mutex so two
// concurrent first joins cannot double-create.
type Coordinator struct {
	store     persistence.Store
	msgCache  cache.MessageCache // nil disables the cache tier
	posts     PostDirectory
	members   MemberDirectory
	roster    VisitRoster
	publisher EventPublisher

	lifecycle *Lifecycle
	registry  *Registry

	historyPageSize int
	roomPageSize    int
	cacheWarmCount  int

	now func() time.Time

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
	lastSent map[uint]time.Time

	// memberSnapshots caches display name/avatar for message framing.
	// Access-policy inputs (age, gender) always bypass it: the predicate
	// must see the aggregates fresh on every join attempt.
	memberSnapshots *lru.ARCCache
}

func NewCoordinator(store persistence.Store, msgCache cache.MessageCache,
	posts PostDirectory, members MemberDirectory, roster VisitRoster,
	publisher EventPublisher, cfg *config.Config) (*Coordinator, error) {

	snapshots, err := lru.NewARC(memberSnapshotCacheSize)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	c := &Coordinator{
		store:           store,
		msgCache:        msgCache,
		posts:           posts,
		members:         members,
		roster:          roster,
		publisher:       publisher,
		lifecycle:       NewLifecycle(store, nil),
		registry:        NewRegistry(store, nil),
		historyPageSize: cfg.ChatConfig.HistoryPageSize,
		roomPageSize:    cfg.ChatConfig.RoomPageSize,
		cacheWarmCount:  cfg.CacheConfig.WarmCount,
		now:             time.Now,
		keyLocks:        make(map[string]*sync.Mutex),
		lastSent:        make(map[uint]time.Time),
		memberSnapshots: snapshots,
	}
	return c, nil
}

// SetClock replaces the time source; tests pin it to control SentAt and
// LastEnteredAt stamps.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
	c.lifecycle.now = now
	c.registry.now = now
}

func roomKey(roomID uint) string {
	return fmt.Sprintf("room:%d", roomID)
}

func postKey(variant types.Variant, postID uint) string {
	return fmt.Sprintf("post:%s:%d", variant, postID)
}

// lockKey acquires the named mutex and returns its unlock.
func (c *Coordinator) lockKey(key string) func() {
	c.mu.Lock()
	l, ok := c.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.keyLocks[key] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateOrJoin finds or creates the room bound to the post and joins the
// caller. Room creation auto-registers the post's author as the first
// membership, so an author's first call ends there.
func (c *Coordinator) CreateOrJoin(ctx context.Context, variant types.Variant, postID, memberID uint) (*RoomView, error) {
	post, err := c.lookupPost(ctx, variant, postID)
	if err != nil {
		return nil, err
	}
	member, err := c.lookupMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	unlock := c.lockKey(postKey(variant, postID))
	room, err := c.store.GetRoomByPost(variant, postID)
	if errors.Is(err, persistence.ErrNotFound) {
		room, err = c.createRoom(ctx, post, member, variant)
	}
	unlock()
	if err != nil {
		return nil, err
	}
	return c.join(ctx, room, member)
}

// createRoom runs under the post mutex. The caller's access is checked
// before the room is spun up so a denied member cannot leave an empty
// author-only room behind.
func (c *Coordinator) createRoom(ctx context.Context, post *types.Post, member *types.Member, variant types.Variant) (*types.Room, error) {
	wasParticipant, err := c.rosterAnswer(ctx, variant, post, member.ID)
	if err != nil {
		return nil, err
	}
	if err := PolicyFor(variant).CanJoin(post, member, wasParticipant); err != nil {
		return nil, err
	}
	room, err := c.lifecycle.Create(post, variant)
	if err != nil {
		return nil, err
	}
	globals.AppLogger.Info("room created", "room_id", room.ID, "variant", variant, "post_id", post.ID)
	if author, err := c.lookupMember(ctx, post.AuthorID); err == nil {
		c.emitSystem(ctx, room, author, types.MessageTypeEnter)
	}
	return room, nil
}

// JoinExisting joins the caller into an already existing room.
func (c *Coordinator) JoinExisting(ctx context.Context, roomID, memberID uint) (*RoomView, error) {
	room, err := c.lookupRoom(roomID)
	if err != nil {
		return nil, err
	}
	member, err := c.lookupMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return c.join(ctx, room, member)
}

func (c *Coordinator) join(ctx context.Context, room *types.Room, member *types.Member) (*RoomView, error) {
	unlock := c.lockKey(roomKey(room.ID))
	defer unlock()

	// re-read under the lock, a concurrent join/leave may have moved it
	room, err := c.lookupRoom(room.ID)
	if err != nil {
		return nil, err
	}
	// the post is re-read on every attempt: its status may have changed
	post, err := c.lookupPost(ctx, room.Variant, room.PostID)
	if err != nil {
		return nil, err
	}
	wasParticipant, err := c.rosterAnswer(ctx, room.Variant, post, member.ID)
	if err != nil {
		return nil, err
	}
	if err := PolicyFor(room.Variant).CanJoin(post, member, wasParticipant); err != nil {
		return nil, err
	}

	_, joined, err := c.registry.Join(room, member.ID, room.Variant.Capacity())
	if err != nil {
		return nil, err
	}
	if joined {
		if err := c.lifecycle.Recompute(room, false); err != nil {
			return nil, err
		}
		c.emitSystem(ctx, room, member, types.MessageTypeEnter)
	}
	return NewRoomView(room), nil
}

// Leave deactivates the caller's membership and re-derives the room state.
// A mate author may only leave once the owning post completed; the room
// then turns permanently read-only for whoever stays behind.
func (c *Coordinator) Leave(ctx context.Context, roomID, memberID uint) error {
	unlock := c.lockKey(roomKey(roomID))
	defer unlock()

	room, err := c.lookupRoom(roomID)
	if err != nil {
		return err
	}

	authorLeft := false
	if memberID == room.AuthorID && room.Variant == types.VariantMate {
		post, err := c.lookupPost(ctx, room.Variant, room.PostID)
		if err != nil {
			return err
		}
		if post.Status != types.PostCompleted {
			return ErrAuthorLeaveNotAllowed
		}
		authorLeft = true
	}

	_, left, err := c.registry.Leave(room, memberID)
	if err != nil {
		return err
	}
	if !left {
		return nil
	}
	if err := c.lifecycle.Recompute(room, authorLeft); err != nil {
		return err
	}

	if member, err := c.lookupMember(ctx, memberID); err == nil {
		c.emitSystem(ctx, room, member, types.MessageTypeLeave)
	}

	// evicted after the final LEAVE so the system message does not
	// resurrect the key; reclaim only, never required for correctness
	if room.State == types.RoomClosed && c.msgCache != nil {
		if err := c.msgCache.EvictAll(ctx, room.ID); err != nil {
			globals.AppLogger.Warn("could not evict room cache", "room_id", room.ID, "error", err)
		}
	}
	return nil
}

// Send appends a TALK message and broadcasts it. The append is the
// transaction: a persistence failure means the send did not happen.
func (c *Coordinator) Send(ctx context.Context, roomID, memberID uint, text string) error {
	member, err := c.memberSnapshot(ctx, memberID)
	if err != nil {
		return err
	}

	unlock := c.lockKey(roomKey(roomID))
	defer unlock()

	room, err := c.lookupRoom(roomID)
	if err != nil {
		return err
	}
	membership, err := c.store.GetMembership(roomID, memberID)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotParticipant
	}
	if err != nil {
		return err
	}
	if !membership.IsActive {
		return ErrNotParticipant
	}
	if !room.State.Messageable() {
		return ErrRoomNotMessageable
	}

	msg, err := c.appendLocked(ctx, room, memberID, text, types.MessageTypeTalk, member)
	if err != nil {
		return err
	}
	// bump the room's recency, the member room list sorts by last activity
	if err := c.store.SaveRoom(room); err != nil {
		globals.AppLogger.Warn("could not bump room recency", "room_id", room.ID, "error", err)
	}
	c.publisher.Publish(room.Variant.Topic(room.ID), types.NewWireMessage(msg, member))
	return nil
}

// FetchHistory returns the caller's visible page of the room's log, newest
// first. Only messages sent after the caller's most recent join are
// visible; a member does not see what was said while they were away.
func (c *Coordinator) FetchHistory(ctx context.Context, roomID, memberID uint, cursor time.Time, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = c.historyPageSize
	}
	room, err := c.lookupRoom(roomID)
	if err != nil {
		return nil, err
	}
	membership, err := c.store.GetMembership(roomID, memberID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}
	if !membership.IsActive {
		return nil, ErrNotParticipant
	}
	window := membership.LastEnteredAt

	if c.msgCache != nil && room.Variant == types.VariantGoods {
		msgs, hit, err := c.msgCache.Fetch(ctx, roomID, cursor, limit)
		if err != nil {
			globals.AppLogger.Warn("cache fetch failed, falling back to store", "room_id", roomID, "error", err)
		} else if hit && len(msgs) >= limit {
			// full page from the cache; the visibility cutoff truncates
			// it exactly because the window is a time boundary
			return applyWindow(msgs, window), nil
		} else if !hit {
			c.warmCache(ctx, roomID)
		}
		// short cached pages are re-read from the store: partial warmth
		// must not be mistaken for end-of-history
	}
	return c.store.MessageHistory(roomID, window, cursor, limit)
}

// ListMyRooms pages through the rooms the member currently participates
// in, most recently active first, with a last-message preview per room.
func (c *Coordinator) ListMyRooms(ctx context.Context, memberID uint, page int) ([]*RoomSummary, error) {
	if _, err := c.lookupMember(ctx, memberID); err != nil {
		return nil, err
	}
	if page < 0 {
		page = 0
	}
	rooms, err := c.store.RoomsByMember(memberID, page, c.roomPageSize)
	if err != nil {
		return nil, err
	}
	summaries := lo.Map(rooms, func(room *types.Room, _ int) *RoomSummary {
		s := &RoomSummary{
			RoomID:      room.ID,
			PostID:      room.PostID,
			Variant:     room.Variant,
			PostTitle:   room.Tags["post_title"],
			State:       room.State,
			MemberCount: room.CurrentMemberCount,
		}
		if latest, err := c.store.LatestMessage(room.ID); err == nil {
			s.LastMessage = latest.Content
			s.LastMessageType = latest.Type
			at := latest.SentAt
			s.LastMessageAt = &at
		}
		return s
	})
	return summaries, nil
}

// IsActiveParticipant reports whether the member currently holds an
// active membership in the room. The realtime layer gates subscriptions
// on it without mutating anything.
func (c *Coordinator) IsActiveParticipant(roomID, memberID uint) (bool, error) {
	if _, err := c.lookupRoom(roomID); err != nil {
		return false, err
	}
	membership, err := c.store.GetMembership(roomID, memberID)
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return membership.IsActive, nil
}

// --- internals ---

func (c *Coordinator) lookupRoom(roomID uint) (*types.Room, error) {
	room, err := c.store.GetRoom(roomID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

func (c *Coordinator) lookupPost(ctx context.Context, variant types.Variant, postID uint) (*types.Post, error) {
	post, err := c.posts.PostByID(ctx, variant, postID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return post, err
}

func (c *Coordinator) lookupMember(ctx context.Context, memberID uint) (*types.Member, error) {
	member, err := c.members.MemberByID(ctx, memberID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	return member, err
}

// rosterAnswer consults the visit roster only when the post completed;
// the policy needs no roster otherwise.
func (c *Coordinator) rosterAnswer(ctx context.Context, variant types.Variant, post *types.Post, memberID uint) (bool, error) {
	if post.Status != types.PostCompleted {
		return false, nil
	}
	was, err := c.roster.IsParticipant(ctx, variant, post.ID, memberID)
	if err != nil {
		return false, fmt.Errorf("roster lookup for post %d member %d: %w", post.ID, memberID, err)
	}
	return was, nil
}

// memberSnapshot returns the display snapshot used on outgoing messages,
// via the ARC cache.
func (c *Coordinator) memberSnapshot(ctx context.Context, memberID uint) (types.SenderSnapshot, error) {
	if cached, ok := c.memberSnapshots.Get(memberID); ok {
		return cached.(types.SenderSnapshot), nil
	}
	member, err := c.lookupMember(ctx, memberID)
	if err != nil {
		return types.SenderSnapshot{}, err
	}
	snap := types.SenderSnapshot{Nickname: member.Nickname, ImageURL: member.ImageURL}
	c.memberSnapshots.Add(memberID, snap)
	return snap, nil
}

// stampLocked assigns the room's next SentAt. Monotonic per room: a stamp
// never repeats and never goes backwards, so SentAt alone totally orders a
// room's log. Caller holds the room mutex.
func (c *Coordinator) stampLocked(roomID uint) time.Time {
	c.mu.Lock()
	last, ok := c.lastSent[roomID]
	c.mu.Unlock()
	if !ok {
		if latest, err := c.store.LatestMessage(roomID); err == nil {
			last = latest.SentAt
		}
	}
	stamp := c.now()
	if !stamp.After(last) {
		stamp = last.Add(time.Nanosecond)
	}
	c.mu.Lock()
	c.lastSent[roomID] = stamp
	c.mu.Unlock()
	return stamp
}

// appendLocked persists one message (TALK or system) and mirrors it into
// the cache tier. Caller holds the room mutex.
func (c *Coordinator) appendLocked(ctx context.Context, room *types.Room, senderID uint, content string, typ types.MessageType, snap types.SenderSnapshot) (*types.Message, error) {
	info, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	msg := &types.Message{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		SenderID:   senderID,
		Content:    content,
		Type:       typ,
		SentAt:     c.stampLocked(room.ID),
		SenderInfo: datatypes.JSON(info),
	}
	if err := c.store.AppendMessage(msg); err != nil {
		return nil, fmt.Errorf("append message to room %d: %w", room.ID, err)
	}
	if c.msgCache != nil && room.Variant == types.VariantGoods {
		if err := c.msgCache.Put(ctx, room.ID, msg); err != nil {
			globals.AppLogger.Warn("could not cache message", "room_id", room.ID, "error", err)
		}
	}
	return msg, nil
}

// emitSystem records and broadcasts an ENTER/LEAVE message. Deliberately
// decoupled from the membership mutation that triggered it: a failure here
// is logged and never rolls the mutation back.
func (c *Coordinator) emitSystem(ctx context.Context, room *types.Room, member *types.Member, typ types.MessageType) {
	content := fmt.Sprintf("%s joined the room", member.Nickname)
	if typ == types.MessageTypeLeave {
		content = fmt.Sprintf("%s left the room", member.Nickname)
	}
	snap := types.SenderSnapshot{Nickname: member.Nickname, ImageURL: member.ImageURL}
	msg, err := c.appendLocked(ctx, room, member.ID, content, typ, snap)
	if err != nil {
		globals.AppLogger.Error("could not record system message", "room_id", room.ID, "type", typ, "error", err)
		return
	}
	c.publisher.Publish(room.Variant.Topic(room.ID), types.NewWireMessage(msg, snap))
}

// warmCache rebuilds the per-room cache from the newest unwindowed page of
// the durable log; any viewer's window can then be applied on top.
func (c *Coordinator) warmCache(ctx context.Context, roomID uint) {
	recent, err := c.store.MessageHistory(roomID, time.Time{}, time.Time{}, c.cacheWarmCount)
	if err != nil {
		globals.AppLogger.Warn("could not read recent messages for cache warm-up", "room_id", roomID, "error", err)
		return
	}
	if err := c.msgCache.PutAll(ctx, roomID, recent); err != nil {
		globals.AppLogger.Warn("could not warm message cache", "room_id", roomID, "error", err)
	}
}

// applyWindow truncates a descending page at the viewer's visibility
// cutoff. Messages at or before the member's last join stay hidden.
func applyWindow(msgs []*types.Message, lastEnteredAt time.Time) []*types.Message {
	for i, msg := range msgs {
		if !msg.SentAt.After(lastEnteredAt) {
			return msgs[:i]
		}
	}
	return msgs
}
