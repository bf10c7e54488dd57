package chat

import "errors"

// Engine error taxonomy. Everything is surfaced synchronously to the
// caller as one of these sentinels; nothing is swallowed or retried.
var (
	// not found
	ErrRoomNotFound   = errors.New("chat: room not found")
	ErrPostNotFound   = errors.New("chat: post not found")
	ErrMemberNotFound = errors.New("chat: member not found")

	// forbidden
	ErrAuthorJoinDenied          = errors.New("chat: author may not re-enter a completed room")
	ErrAgeRestrictionViolated    = errors.New("chat: member age outside the post's age restriction")
	ErrGenderRestrictionViolated = errors.New("chat: member gender outside the post's gender restriction")
	ErrAccessDenied              = errors.New("chat: post completed, only recorded participants may enter")
	ErrAuthorLeaveNotAllowed     = errors.New("chat: author may not leave before the visit completed")
	ErrNotParticipant            = errors.New("chat: member is not a participant of this room")

	// capacity
	ErrRoomFull = errors.New("chat: room is at capacity")

	// invalid state
	ErrRoomNotMessageable = errors.New("chat: room does not accept messages")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrMemberNotFound)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrAuthorJoinDenied) ||
		errors.Is(err, ErrAgeRestrictionViolated) ||
		errors.Is(err, ErrGenderRestrictionViolated) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrAuthorLeaveNotAllowed) ||
		errors.Is(err, ErrNotParticipant)
}

func IsCapacity(err error) bool {
	return errors.Is(err, ErrRoomFull)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrRoomNotMessageable)
}
