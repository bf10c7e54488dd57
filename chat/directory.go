package chat

import (
	"context"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// The engine reads the post, member and visit aggregates through these
// narrow interfaces; it never mutates them. persistence.GormDirectory is
// the production implementation.

type PostDirectory interface {
	PostByID(ctx context.Context, variant types.Variant, postID uint) (*types.Post, error)
}

type MemberDirectory interface {
	MemberByID(ctx context.Context, memberID uint) (*types.Member, error)
}

// VisitRoster answers "was this member a recorded participant of the
// completed post's visit/trade".
type VisitRoster interface {
	IsParticipant(ctx context.Context, variant types.Variant, postID, memberID uint) (bool, error)
}
