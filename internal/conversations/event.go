package conversations

import (
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

type Kind int

const (
	KindMessageCreate Kind = iota
	KindWelcomeMessage
	KindNameChange
	KindJoin
	KindLeave
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindMessageCreate:
		return "messageCreate"
	case KindWelcomeMessage:
		return "welcomeMessageCreate"
	case KindNameChange:
		return "conversationNameUpdate"
	case KindJoin:
		return "participantsJoin"
	case KindLeave:
		return "participantsLeave"
	default:
		return "unknown"
	}
}

// IsMessage reports whether events of this kind carry a Message.
func (k Kind) IsMessage() bool {
	return k == KindMessageCreate || k == KindWelcomeMessage
}

// NameChange renames a group conversation.
type NameChange struct {
	InitiatingUserID string `json:"initiatingUserId"`
	Name             string `json:"name"`
	CreatedAt        string `json:"createdAt"`
}

// Membership is a join or leave of one or more participants.
type Membership struct {
	InitiatingUserID     string   `json:"initiatingUserId,omitempty"`
	UserIDs              []string `json:"userIds,omitempty"`
	ParticipantsSnapshot []string `json:"participantsSnapshot,omitempty"`
	CreatedAt            string   `json:"createdAt"`
}

// Event is one record of a conversation. Exactly one payload is set,
// selected by Kind.
type Event struct {
	Kind       Kind
	CreatedAt  time.Time
	Message    *Message
	NameChange *NameChange
	Membership *Membership

	// key is the JSON key the event was read from
	key string
	raw json.RawMessage
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// NewMessageEvent wraps m into a message-create event.
func NewMessageEvent(m *Message) *Event {
	e := &Event{Kind: KindMessageCreate, Message: m, CreatedAt: m.Date()}
	m.source = e
	return e
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if len(fields) != 1 {
		return fmt.Errorf("conversations: event must have exactly one key, got %d", len(fields))
	}
	for key, payload := range fields {
		e.key = key
		switch key {
		case "messageCreate", "welcomeMessageCreate":
			e.Kind = KindMessageCreate
			if key == "welcomeMessageCreate" {
				e.Kind = KindWelcomeMessage
			}
			m := &Message{}
			if err := json.Unmarshal(payload, m); err != nil {
				return fmt.Errorf("conversations: %s: %w", key, err)
			}
			m.source = e
			e.Message = m
			e.CreatedAt = m.Date()
		case "conversationNameUpdate":
			e.Kind = KindNameChange
			nc := &NameChange{}
			if err := json.Unmarshal(payload, nc); err != nil {
				return fmt.Errorf("conversations: %s: %w", key, err)
			}
			e.NameChange = nc
			e.CreatedAt = parseTime(nc.CreatedAt)
		case "participantsJoin", "joinConversation", "participantsLeave":
			e.Kind = KindJoin
			if key == "participantsLeave" {
				e.Kind = KindLeave
			}
			ms := &Membership{}
			if err := json.Unmarshal(payload, ms); err != nil {
				return fmt.Errorf("conversations: %s: %w", key, err)
			}
			e.Membership = ms
			e.CreatedAt = parseTime(ms.CreatedAt)
		default:
			e.Kind = KindUnknown
			e.raw = payload
		}
	}
	return nil
}

func (e *Event) MarshalJSON() ([]byte, error) {
	key := e.key
	if key == "" {
		key = e.Kind.String()
	}
	var payload any
	switch e.Kind {
	case KindMessageCreate, KindWelcomeMessage:
		payload = e.Message
	case KindNameChange:
		payload = e.NameChange
	case KindJoin, KindLeave:
		payload = e.Membership
	default:
		payload = e.raw
	}
	return json.Marshal(map[string]any{key: payload})
}

// Annotations holds the non-message events seen between two messages,
// grouped by kind in arrival order.
type Annotations struct {
	NameChanges []*Event
	Joins       []*Event
	Leaves      []*Event
}

func (a *Annotations) add(e *Event) {
	switch e.Kind {
	case KindNameChange:
		a.NameChanges = append(a.NameChanges, e)
	case KindJoin:
		a.Joins = append(a.Joins, e)
	case KindLeave:
		a.Leaves = append(a.Leaves, e)
	}
}

func (a *Annotations) Len() int {
	return len(a.NameChanges) + len(a.Joins) + len(a.Leaves)
}

// Events returns every annotation in chronological order.
func (a *Annotations) Events() []*Event {
	out := make([]*Event, 0, a.Len())
	out = append(out, a.NameChanges...)
	out = append(out, a.Joins...)
	out = append(out, a.Leaves...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
