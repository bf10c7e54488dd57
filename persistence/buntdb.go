package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/tidwall/buntdb"
)

// BuntMessageLog is an embedded, file-backed MessageStore. It only covers
// the message log; rooms and memberships stay relational. Each room gets
// its own index over a numeric sent_at_ns field because RFC3339Nano
// strings do not sort lexically.
type BuntMessageLog struct {
	db *buntdb.DB
}

// storedMessage wraps a message with the numeric ordering key used by the
// per-room buntdb index.
type storedMessage struct {
	types.Message
	SentAtNS int64 `json:"sent_at_ns"`
}

func NewBuntMessageLog(path string) (*BuntMessageLog, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &BuntMessageLog{db: db}, nil
}

func messageKey(roomID uint, id string) string {
	return fmt.Sprintf("message:%d:%s", roomID, id)
}

func roomIndex(roomID uint) string {
	return fmt.Sprintf("room_%d_sent", roomID)
}

func (p *BuntMessageLog) ensureRoomIndex(roomID uint) error {
	err := p.db.CreateIndex(roomIndex(roomID), fmt.Sprintf("message:%d:*", roomID), buntdb.IndexJSON("sent_at_ns"))
	if err != nil && err != buntdb.ErrIndexExists {
		return err
	}
	return nil
}

func (p *BuntMessageLog) AppendMessage(msg *types.Message) error {
	if err := p.ensureRoomIndex(msg.RoomID); err != nil {
		return err
	}
	stored := storedMessage{Message: *msg, SentAtNS: msg.SentAt.UnixNano()}
	data, err := json.Marshal(stored)
	if err != nil {
		globals.AppLogger.Error("could not marshal message", "error", err)
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(messageKey(msg.RoomID, msg.ID), string(data), nil)
		return err
	})
}

func (p *BuntMessageLog) MessageHistory(roomID uint, visibleAfter, before time.Time, limit int) ([]*types.Message, error) {
	if err := p.ensureRoomIndex(roomID); err != nil {
		return nil, err
	}
	messages := make([]*types.Message, 0)
	var afterNS, beforeNS int64
	if !visibleAfter.IsZero() {
		afterNS = visibleAfter.UnixNano()
	}
	if !before.IsZero() {
		beforeNS = before.UnixNano()
	}
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend(roomIndex(roomID), func(key, val string) bool {
			stored := storedMessage{}
			if err := json.Unmarshal([]byte(val), &stored); err != nil {
				globals.AppLogger.Warn("skipping unreadable message entry", "key", key, "error", err)
				return true
			}
			if beforeNS > 0 && stored.SentAtNS >= beforeNS {
				return true // still above the cursor, keep descending
			}
			if afterNS > 0 && stored.SentAtNS <= afterNS {
				return false // below the visibility window, everything older is too
			}
			msg := stored.Message
			messages = append(messages, &msg)
			return limit <= 0 || len(messages) < limit
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (p *BuntMessageLog) LatestMessage(roomID uint) (*types.Message, error) {
	if err := p.ensureRoomIndex(roomID); err != nil {
		return nil, err
	}
	var latest *types.Message
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend(roomIndex(roomID), func(key, val string) bool {
			stored := storedMessage{}
			if err := json.Unmarshal([]byte(val), &stored); err != nil {
				return true
			}
			msg := stored.Message
			latest = &msg
			return false
		})
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (p *BuntMessageLog) Close() error {
	return p.db.Close()
}

// SplitStore routes the message log to a separate backend while rooms and
// memberships stay in the relational store.
type SplitStore struct {
	*GormStore
	log *BuntMessageLog
}

func NewSplitStore(store *GormStore, log *BuntMessageLog) *SplitStore {
	return &SplitStore{GormStore: store, log: log}
}

func (s *SplitStore) AppendMessage(msg *types.Message) error {
	return s.log.AppendMessage(msg)
}

func (s *SplitStore) MessageHistory(roomID uint, visibleAfter, before time.Time, limit int) ([]*types.Message, error) {
	return s.log.MessageHistory(roomID, visibleAfter, before, limit)
}

func (s *SplitStore) LatestMessage(roomID uint) (*types.Message, error) {
	return s.log.LatestMessage(roomID)
}

func (s *SplitStore) Close() error {
	if err := s.GormStore.Close(); err != nil {
		return err
	}
	return s.log.Close()
}
