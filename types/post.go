package types

// PostStatus is the lifecycle status of the post a room hangs off. The
// post aggregate is owned by another subsystem; the chat engine only ever
// reads it.
type PostStatus string

const (
	PostOpen      PostStatus = "OPEN"
	PostClosed    PostStatus = "CLOSED"
	PostCompleted PostStatus = "COMPLETED"
)

// AgeRestriction is the demographic age gate configured on a mate post.
type AgeRestriction string

const (
	AgeAll      AgeRestriction = "ALL"
	AgeTeens    AgeRestriction = "TEENS"
	AgeTwenties AgeRestriction = "TWENTIES"
	AgeThirties AgeRestriction = "THIRTIES"
	AgeForties  AgeRestriction = "FORTIES"
	AgeFifties  AgeRestriction = "FIFTIES"
)

// Allows reports whether the given age falls inside the configured bracket.
func (a AgeRestriction) Allows(age int) bool {
	switch a {
	case AgeAll, "":
		return true
	case AgeTeens:
		return age >= 10 && age < 20
	case AgeTwenties:
		return age >= 20 && age < 30
	case AgeThirties:
		return age >= 30 && age < 40
	case AgeForties:
		return age >= 40 && age < 50
	case AgeFifties:
		return age >= 50 && age < 60
	}
	return false
}

// GenderRestriction is the demographic gender gate configured on a mate post.
type GenderRestriction string

const (
	GenderAny    GenderRestriction = "ANY"
	GenderMale   GenderRestriction = "MALE"
	GenderFemale GenderRestriction = "FEMALE"
)

// Allows reports whether the given gender passes the gate.
func (g GenderRestriction) Allows(gender Gender) bool {
	switch g {
	case GenderAny, "":
		return true
	case GenderMale:
		return gender == Male
	case GenderFemale:
		return gender == Female
	}
	return false
}

// Post is the read-only view of the owning post aggregate: just enough to
// drive access decisions and room creation, never mutated here.
type Post struct {
	ID                uint              `json:"id"`
	AuthorID          uint              `json:"author_id"`
	Title             string            `json:"title"`
	Status            PostStatus        `json:"status"`
	AgeRestriction    AgeRestriction    `json:"age_restriction"`
	GenderRestriction GenderRestriction `json:"gender_restriction"`
	MaxParticipants   int               `json:"max_participants"`
}
