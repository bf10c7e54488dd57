package persistence

import (
	"context"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"gorm.io/gorm"
)

// GormDirectory reads the collaborator aggregates (posts, members, visit
// rosters) owned by the rest of the platform. Strictly read-only from the
// chat engine's point of view.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// postRow mirrors the columns the engine needs from the per-variant post
// tables.
type postRow struct {
	ID                uint
	AuthorID          uint
	Title             string
	Status            types.PostStatus
	AgeRestriction    types.AgeRestriction
	GenderRestriction types.GenderRestriction
	MaxParticipants   int
}

type memberRow struct {
	ID       uint
	Nickname string
	ImageURL string
	Age      int
	Gender   types.Gender
}

func (memberRow) TableName() string { return "members" }

// visitPart is one row of the closed roster recorded when a post reaches
// its completed state.
type visitPart struct {
	ID       uint
	Variant  types.Variant `gorm:"index:idx_visit_parts_post"`
	PostID   uint          `gorm:"index:idx_visit_parts_post"`
	MemberID uint
}

func (visitPart) TableName() string { return "visit_parts" }

func postTable(variant types.Variant) string {
	if variant == types.VariantGoods {
		return "goods_posts"
	}
	return "mate_posts"
}

func (d *GormDirectory) PostByID(ctx context.Context, variant types.Variant, postID uint) (*types.Post, error) {
	row := postRow{}
	err := d.db.WithContext(ctx).Table(postTable(variant)).Where("id = ?", postID).First(&row).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &types.Post{
		ID:                row.ID,
		AuthorID:          row.AuthorID,
		Title:             row.Title,
		Status:            row.Status,
		AgeRestriction:    row.AgeRestriction,
		GenderRestriction: row.GenderRestriction,
		MaxParticipants:   row.MaxParticipants,
	}, nil
}

func (d *GormDirectory) MemberByID(ctx context.Context, memberID uint) (*types.Member, error) {
	row := memberRow{}
	err := d.db.WithContext(ctx).Where("id = ?", memberID).First(&row).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &types.Member{
		ID:       row.ID,
		Nickname: row.Nickname,
		ImageURL: row.ImageURL,
		Age:      row.Age,
		Gender:   row.Gender,
	}, nil
}

func (d *GormDirectory) IsParticipant(ctx context.Context, variant types.Variant, postID, memberID uint) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&visitPart{}).
		Where("variant = ? AND post_id = ? AND member_id = ?", variant, postID, memberID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
