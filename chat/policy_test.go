package chat

import (
	"testing"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/stretchr/testify/assert"
)

func TestMatePolicy(t *testing.T) {
	post := &types.Post{
		ID:                1,
		AuthorID:          100,
		Status:            types.PostOpen,
		AgeRestriction:    types.AgeTwenties,
		GenderRestriction: types.GenderFemale,
	}
	author := &types.Member{ID: 100, Age: 45, Gender: types.Male}
	fitting := &types.Member{ID: 101, Age: 25, Gender: types.Female}

	policy := PolicyFor(types.VariantMate)

	t.Run("author bypasses demographics", func(t *testing.T) {
		assert.NoError(t, policy.CanJoin(post, author, false))
	})

	t.Run("fitting member admitted", func(t *testing.T) {
		assert.NoError(t, policy.CanJoin(post, fitting, false))
	})

	t.Run("wrong age bracket", func(t *testing.T) {
		tooOld := &types.Member{ID: 102, Age: 31, Gender: types.Female}
		assert.ErrorIs(t, policy.CanJoin(post, tooOld, false), ErrAgeRestrictionViolated)
	})

	t.Run("wrong gender", func(t *testing.T) {
		male := &types.Member{ID: 103, Age: 25, Gender: types.Male}
		assert.ErrorIs(t, policy.CanJoin(post, male, false), ErrGenderRestrictionViolated)
	})

	t.Run("no restrictions admits everyone", func(t *testing.T) {
		open := &types.Post{ID: 2, AuthorID: 100, Status: types.PostOpen, AgeRestriction: types.AgeAll, GenderRestriction: types.GenderAny}
		anyone := &types.Member{ID: 104, Age: 63, Gender: types.Male}
		assert.NoError(t, policy.CanJoin(open, anyone, false))
	})

	t.Run("completed post closes to outsiders", func(t *testing.T) {
		done := &types.Post{ID: 3, AuthorID: 100, Status: types.PostCompleted}
		assert.ErrorIs(t, policy.CanJoin(done, fitting, false), ErrAccessDenied)
		assert.NoError(t, policy.CanJoin(done, fitting, true))
	})

	t.Run("author may not re-enter after completion", func(t *testing.T) {
		done := &types.Post{ID: 4, AuthorID: 100, Status: types.PostCompleted}
		assert.ErrorIs(t, policy.CanJoin(done, author, true), ErrAuthorJoinDenied)
	})

	t.Run("restrictions still apply to roster members", func(t *testing.T) {
		done := &types.Post{ID: 5, AuthorID: 100, Status: types.PostCompleted, GenderRestriction: types.GenderFemale}
		male := &types.Member{ID: 105, Age: 25, Gender: types.Male}
		assert.ErrorIs(t, policy.CanJoin(done, male, true), ErrGenderRestrictionViolated)
	})
}

func TestGoodsPolicy(t *testing.T) {
	policy := PolicyFor(types.VariantGoods)
	seller := &types.Member{ID: 200}
	buyer := &types.Member{ID: 201, Age: 15, Gender: types.Male}

	t.Run("no demographic gates", func(t *testing.T) {
		// goods posts carry no restrictions even if the columns are set
		post := &types.Post{ID: 10, AuthorID: 200, Status: types.PostOpen, AgeRestriction: types.AgeFifties, GenderRestriction: types.GenderFemale}
		assert.NoError(t, policy.CanJoin(post, buyer, false))
	})

	t.Run("completed trade closes to outsiders", func(t *testing.T) {
		post := &types.Post{ID: 11, AuthorID: 200, Status: types.PostCompleted}
		assert.ErrorIs(t, policy.CanJoin(post, buyer, false), ErrAccessDenied)
		assert.NoError(t, policy.CanJoin(post, buyer, true))
		assert.ErrorIs(t, policy.CanJoin(post, seller, true), ErrAuthorJoinDenied)
	})
}
