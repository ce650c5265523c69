package models

// UserRef identifies an account in follower, following, block and mute files.
type UserRef struct {
	AccountID string `json:"accountId"`
	UserLink  string `json:"userLink,omitempty"`
}

type Moment struct {
	ID             string   `json:"momentId"`
	CreatedAt      string   `json:"createdAt"`
	CreatedBy      string   `json:"createdBy"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	CoverMediaURLs []string `json:"coverMediaUrls,omitempty"`
}

// ListInfo is one entry of the lists-created, lists-member and
// lists-subscribed files.
type ListInfo struct {
	URL string `json:"url"`
}
