package conversations

import "time"

type MessageURL struct {
	URL      string `json:"url"`
	Expanded string `json:"expanded"`
	Display  string `json:"display"`
}

type Reaction struct {
	SenderID    string `json:"senderId"`
	ReactionKey string `json:"reactionKey"`
	EventID     string `json:"eventId"`
	CreatedAt   string `json:"createdAt"`
}

// Message is one direct message. Neighbour identifiers and annotations are
// set by Conversation.Indexate and are not serialized.
type Message struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"senderId,omitempty"`
	RecipientID string       `json:"recipientId,omitempty"`
	Text        string       `json:"text"`
	MediaURLs   []string     `json:"mediaUrls"`
	URLs        []MessageURL `json:"urls,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	CreatedAt   string       `json:"createdAt"`

	ConversationID string       `json:"-"`
	PreviousID     string       `json:"-"`
	NextID         string       `json:"-"`
	EventsBefore   *Annotations `json:"-"`
	EventsAfter    *Annotations `json:"-"`

	source *Event
	date   time.Time
}

func (m *Message) EntityID() string {
	return m.ID
}

func (m *Message) Date() time.Time {
	if m.date.IsZero() {
		m.date = parseTime(m.CreatedAt)
	}
	return m.date
}

// Kind reports whether the message is a regular or a welcome message.
func (m *Message) Kind() Kind {
	if m.source != nil {
		return m.source.Kind
	}
	return KindMessageCreate
}

// HasRecipient is false for group messages whose recipient is absent or the
// "0" placeholder.
func (m *Message) HasRecipient() bool {
	return m.RecipientID != "" && m.RecipientID != "0"
}
