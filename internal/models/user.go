package models

// User is the author reference attached to tweets.
type User struct {
	ID              string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	ProfileImageURL string `json:"profile_image_url_https,omitempty"`
	Description     string `json:"description,omitempty"`
	Location        string `json:"location,omitempty"`
	URL             string `json:"url,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// Account is the content of account.js.
type Account struct {
	AccountID   string `json:"accountId"`
	Username    string `json:"username"`
	DisplayName string `json:"accountDisplayName"`
	Email       string `json:"email,omitempty"`
	CreatedAt   string `json:"createdAt"`
	CreatedVia  string `json:"createdVia,omitempty"`
}

type ProfileDescription struct {
	Bio      string `json:"bio"`
	Website  string `json:"website"`
	Location string `json:"location"`
}

// Profile is the content of profile.js.
type Profile struct {
	Description    ProfileDescription `json:"description"`
	AvatarMediaURL string             `json:"avatarMediaUrl"`
	HeaderMediaURL string             `json:"headerMediaUrl,omitempty"`
}

// NewUser builds the shared author reference from account metadata.
func NewUser(account Account, profile Profile) *User {
	return &User{
		ID:              account.AccountID,
		Name:            account.DisplayName,
		ScreenName:      account.Username,
		ProfileImageURL: profile.AvatarMediaURL,
		Description:     profile.Description.Bio,
		Location:        profile.Description.Location,
		URL:             profile.Description.Website,
		CreatedAt:       account.CreatedAt,
	}
}
