package persistence

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/config"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var _ driver.Valuer = &datatypes.JSON{}

type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the relational store configured in cfg ("sqlite" or
// "postgres") and migrates the chat tables.
func NewGormStore(cfg *config.Config) (*GormStore, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewGormStoreWithDB(db)
}

// NewGormStoreWithDB wraps an already opened gorm handle (tests use an
// in-memory sqlite handle here).
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	err := db.AutoMigrate(&types.Room{}, &types.Membership{}, &types.Message{})
	if err != nil {
		return nil, fmt.Errorf("migrate chat tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration: type %q", cfg.PersistenceConfig.Type)
	}
	return gorm.Open(dial, &gorm.Config{})
}

func mapGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) SaveRoom(room *types.Room) error {
	return s.db.Save(room).Error
}

func (s *GormStore) GetRoom(id uint) (*types.Room, error) {
	room := types.Room{}
	if err := s.db.First(&room, id).Error; err != nil {
		return nil, mapGormError(err)
	}
	return &room, nil
}

func (s *GormStore) GetRoomByPost(variant types.Variant, postID uint) (*types.Room, error) {
	room := types.Room{}
	err := s.db.Where("variant = ? AND post_id = ?", variant, postID).First(&room).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &room, nil
}

// Rooms lists all rooms, most recently updated first. Used by the admin
// tooling, the service itself always scopes room listings to a member.
func (s *GormStore) Rooms(page, size int) ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := s.db.Order("updated_at DESC").Limit(size).Offset(page * size).Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *GormStore) RoomsByMember(memberID uint, page, size int) ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := s.db.
		Joins("JOIN memberships ON memberships.room_id = rooms.id").
		Where("memberships.member_id = ? AND memberships.is_active = ?", memberID, true).
		Order("rooms.updated_at DESC").
		Limit(size).Offset(page * size).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *GormStore) SaveMembership(m *types.Membership) error {
	return s.db.Save(m).Error
}

func (s *GormStore) GetMembership(roomID, memberID uint) (*types.Membership, error) {
	membership := types.Membership{}
	err := s.db.Where("room_id = ? AND member_id = ?", roomID, memberID).First(&membership).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &membership, nil
}

func (s *GormStore) ActiveMemberships(roomID uint) ([]*types.Membership, error) {
	memberships := make([]*types.Membership, 0)
	err := s.db.Where("room_id = ? AND is_active = ?", roomID, true).Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (s *GormStore) CountActiveMemberships(roomID uint) (int, error) {
	var count int64
	err := s.db.Model(&types.Membership{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) AppendMessage(msg *types.Message) error {
	return s.db.Create(msg).Error
}

func (s *GormStore) MessageHistory(roomID uint, visibleAfter, before time.Time, limit int) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	q := s.db.Where("room_id = ?", roomID)
	if !visibleAfter.IsZero() {
		q = q.Where("sent_at > ?", visibleAfter)
	}
	if !before.IsZero() {
		q = q.Where("sent_at < ?", before)
	}
	err := q.Order("sent_at DESC, id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *GormStore) LatestMessage(roomID uint) (*types.Message, error) {
	msg := types.Message{}
	err := s.db.Where("room_id = ?", roomID).Order("sent_at DESC").First(&msg).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &msg, nil
}

func (s *GormStore) Close() error {
	return nil
}

// DB exposes the underlying handle so the collaborator directory can share
// the same connection.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}
