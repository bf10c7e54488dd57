package persistence

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The collaborator tables are owned elsewhere; the tests create just
// enough of their shape to read through.
func newTestDirectory(t *testing.T) (*GormDirectory, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Table("mate_posts").AutoMigrate(&postRow{}))
	require.NoError(t, db.Table("goods_posts").AutoMigrate(&postRow{}))
	require.NoError(t, db.AutoMigrate(&memberRow{}, &visitPart{}))
	return NewGormDirectory(db), db
}

func TestGormDirectoryPosts(t *testing.T) {
	dir, db := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, db.Table("mate_posts").Create(&postRow{
		ID: 1, AuthorID: 100, Title: "11/20 away game", Status: types.PostOpen,
		AgeRestriction: types.AgeTwenties, GenderRestriction: types.GenderFemale,
		MaxParticipants: 4,
	}).Error)
	require.NoError(t, db.Table("goods_posts").Create(&postRow{
		ID: 1, AuthorID: 200, Title: "signed ball", Status: types.PostCompleted,
	}).Error)

	post, err := dir.PostByID(ctx, types.VariantMate, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(100), post.AuthorID)
	assert.Equal(t, types.AgeTwenties, post.AgeRestriction)
	assert.Equal(t, types.GenderFemale, post.GenderRestriction)

	// same id, different variant, different table
	post, err = dir.PostByID(ctx, types.VariantGoods, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(200), post.AuthorID)
	assert.Equal(t, types.PostCompleted, post.Status)

	_, err = dir.PostByID(ctx, types.VariantMate, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormDirectoryMembers(t *testing.T) {
	dir, db := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&memberRow{
		ID: 100, Nickname: "catcher", Age: 27, Gender: types.Female,
	}).Error)

	member, err := dir.MemberByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "catcher", member.Nickname)
	assert.Equal(t, 27, member.Age)

	_, err = dir.MemberByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormDirectoryRoster(t *testing.T) {
	dir, db := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&visitPart{
		Variant: types.VariantMate, PostID: 1, MemberID: 101,
	}).Error)

	was, err := dir.IsParticipant(ctx, types.VariantMate, 1, 101)
	require.NoError(t, err)
	assert.True(t, was)

	was, err = dir.IsParticipant(ctx, types.VariantMate, 1, 102)
	require.NoError(t, err)
	assert.False(t, was)

	// the roster is variant-scoped
	was, err = dir.IsParticipant(ctx, types.VariantGoods, 1, 101)
	require.NoError(t, err)
	assert.False(t, was)
}
