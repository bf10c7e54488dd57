package chat

import (
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// AccessPolicy is the pure join predicate. It is evaluated before every
// join attempt and never cached: the owning post's state can change
// between calls. wasParticipant is the caller-supplied roster answer for
// completed posts (the predicate itself does no IO).
type AccessPolicy interface {
	CanJoin(post *types.Post, member *types.Member, wasParticipant bool) error
}

// MatePolicy gates mate rooms: demographic restrictions for non-authors,
// and a closed roster once the post completed.
type MatePolicy struct{}

func (MatePolicy) CanJoin(post *types.Post, member *types.Member, wasParticipant bool) error {
	if member.ID == post.AuthorID {
		if post.Status == types.PostCompleted {
			return ErrAuthorJoinDenied
		}
		return nil
	}
	if !post.AgeRestriction.Allows(member.Age) {
		return ErrAgeRestrictionViolated
	}
	if !post.GenderRestriction.Allows(member.Gender) {
		return ErrGenderRestrictionViolated
	}
	if post.Status == types.PostCompleted && !wasParticipant {
		return ErrAccessDenied
	}
	return nil
}

// GoodsPolicy gates goods rooms: no demographic restrictions, only the
// post status and, after completion, the recorded trade participants.
type GoodsPolicy struct{}

func (GoodsPolicy) CanJoin(post *types.Post, member *types.Member, wasParticipant bool) error {
	if member.ID == post.AuthorID {
		if post.Status == types.PostCompleted {
			return ErrAuthorJoinDenied
		}
		return nil
	}
	if post.Status == types.PostCompleted && !wasParticipant {
		return ErrAccessDenied
	}
	return nil
}

// PolicyFor returns the variant's access policy.
func PolicyFor(variant types.Variant) AccessPolicy {
	if variant == types.VariantGoods {
		return GoodsPolicy{}
	}
	return MatePolicy{}
}
