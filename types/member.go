package types

type Gender string

const (
	Male   Gender = "MALE"
	Female Gender = "FEMALE"
)

// Member is the read-only view of the member aggregate. The caller's
// identity has already been resolved to a member id upstream.
type Member struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
	ImageURL string `json:"image_url"`
	Age      int    `json:"age"`
	Gender   Gender `json:"gender"`
}
