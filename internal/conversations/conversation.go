// Package conversations links direct-message events into chronological
// per-conversation chains.
package conversations

import (
	"archivist/internal/index"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

var (
	ErrConversationMismatch = errors.New("conversations: fragment belongs to another conversation")
	ErrNotIndexed           = errors.New("conversations: conversation is not indexed")
	ErrMessageNotFound      = errors.New("conversations: message not found")
	ErrReadOnlyView         = errors.New("conversations: cannot add to a derived view")
)

// DefaultAroundContext is the number of neighbours Around returns on each side.
const DefaultAroundContext = 20

// RawConversation is one wrapper record of direct-message.js. Records may be
// wrapped in {"dmConversation": {...}}.
type RawConversation struct {
	ID       string   `json:"conversationId"`
	Messages []*Event `json:"messages"`
	Group    bool     `json:"-"`
}

func (r *RawConversation) UnmarshalJSON(b []byte) error {
	type plain RawConversation
	var wrapper struct {
		Conversation *plain `json:"dmConversation"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return err
	}
	if wrapper.Conversation != nil {
		*r = RawConversation(*wrapper.Conversation)
		return nil
	}
	return json.Unmarshal(b, (*plain)(r))
}

func (r RawConversation) MarshalJSON() ([]byte, error) {
	type plain RawConversation
	return json.Marshal(struct {
		Conversation plain `json:"dmConversation"`
	}{plain(r)})
}

// chain is the chronological message sequence of an indexed conversation.
// Views share the chain of the conversation they were derived from.
type chain struct {
	messages []*Message
	pos      map[string]int
}

func (c *chain) at(id string) (*Message, int, bool) {
	p, ok := c.pos[id]
	if !ok {
		return nil, 0, false
	}
	return c.messages[p], p, true
}

// Conversation accumulates raw fragments until Indexate links them. Query
// methods return read-only views that share the linked chain.
type Conversation struct {
	ID    string
	Group bool

	opts    index.Options
	pending []*Event
	indexed bool
	view    bool

	chain        *chain
	ordered      []*Message
	index        *index.Index[*Message]
	participants []string
	first        *Message
}

func NewConversation(id string, opts index.Options) *Conversation {
	return &Conversation{ID: id, opts: opts, Group: !strings.Contains(id, "-")}
}

// Add queues a fragment. The conversation must be indexed again before it
// can be queried.
func (c *Conversation) Add(fragment RawConversation) error {
	if c.view {
		return ErrReadOnlyView
	}
	if fragment.ID != c.ID {
		return fmt.Errorf("%w: %q into %q", ErrConversationMismatch, fragment.ID, c.ID)
	}
	if fragment.Group {
		c.Group = true
	}
	c.pending = append(c.pending, fragment.Messages...)
	c.indexed = false
	return nil
}

// Indexate merges pending fragments with already linked events, orders them
// by timestamp and rebuilds the chain.
func (c *Conversation) Indexate() {
	if c.view {
		return
	}
	events := slices.Clone(c.pending)
	if c.chain != nil {
		events = slices.AppendSeq(events, c.eventsOf(c.chain.messages, true))
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })

	ch := &chain{pos: make(map[string]int)}
	var prev *Message
	var buffer *Annotations
	for _, e := range events {
		if e.Kind == KindUnknown {
			continue
		}
		if !e.Kind.IsMessage() {
			if buffer == nil {
				buffer = &Annotations{}
			}
			buffer.add(e)
			if prev != nil && prev.EventsAfter == nil {
				prev.EventsAfter = buffer
			}
			continue
		}

		m := e.Message
		if m == nil || m.SenderID == "" {
			continue
		}
		if _, dup := ch.pos[m.ID]; dup {
			continue
		}
		m.source = e
		m.ConversationID = c.ID
		m.PreviousID, m.NextID = "", ""
		m.EventsBefore, m.EventsAfter = nil, nil
		if prev != nil {
			m.PreviousID = prev.ID
			prev.NextID = m.ID
		}
		if buffer != nil {
			m.EventsBefore = buffer
			buffer = nil
		}
		ch.pos[m.ID] = len(ch.messages)
		ch.messages = append(ch.messages, m)
		prev = m
	}

	c.chain = ch
	c.pending = nil
	c.indexed = true
	c.setMessages(ch.messages)
}

// setMessages fills the per-view state from messages in chain order.
func (c *Conversation) setMessages(messages []*Message) {
	c.ordered = messages
	c.index = index.New[*Message](c.opts)
	c.index.Add(messages...)
	c.participants = nil
	c.first = nil
	if len(messages) > 0 {
		c.first = messages[0]
	}
	seen := make(map[string]struct{})
	for _, m := range messages {
		for _, id := range []string{m.SenderID, m.RecipientID} {
			if id == "" || id == "0" {
				continue
			}
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				c.participants = append(c.participants, id)
			}
		}
	}
}

// derive builds a view holding messages, which are sorted into chain order.
func (c *Conversation) derive(messages []*Message) *Conversation {
	sort.Slice(messages, func(i, j int) bool {
		return c.chain.pos[messages[i].ID] < c.chain.pos[messages[j].ID]
	})
	v := &Conversation{
		ID:      c.ID,
		Group:   c.Group,
		opts:    c.opts,
		indexed: true,
		view:    true,
		chain:   c.chain,
	}
	v.setMessages(messages)
	return v
}

func (c *Conversation) filter(keep func(*Message) bool) *Conversation {
	var out []*Message
	for _, m := range c.ordered {
		if keep(m) {
			out = append(out, m)
		}
	}
	return c.derive(out)
}

func (c *Conversation) IsIndexed() bool {
	return c.indexed
}

func (c *Conversation) IsView() bool {
	return c.view
}

// First is the earliest message of the view, nil when empty.
func (c *Conversation) First() *Message {
	return c.first
}

func (c *Conversation) Last() *Message {
	if len(c.ordered) == 0 {
		return nil
	}
	return c.ordered[len(c.ordered)-1]
}

// Participants lists sender and recipient identifiers in order of first
// appearance.
func (c *Conversation) Participants() []string {
	return slices.Clone(c.participants)
}

func (c *Conversation) Len() int {
	return len(c.ordered)
}

// All returns the messages of the view in chronological order.
func (c *Conversation) All() []*Message {
	return slices.Clone(c.ordered)
}

func (c *Conversation) Messages() iter.Seq[*Message] {
	return slices.Values(c.ordered)
}

func (c *Conversation) Single(id string) (*Message, bool) {
	if c.index == nil {
		return nil, false
	}
	return c.index.Single(id)
}

func (c *Conversation) Has(id string) bool {
	_, ok := c.Single(id)
	return ok
}

// Previous follows the chain backwards, across view boundaries.
func (c *Conversation) Previous(m *Message) *Message {
	if c.chain == nil || m.PreviousID == "" {
		return nil
	}
	p, _, _ := c.chain.at(m.PreviousID)
	return p
}

func (c *Conversation) Next(m *Message) *Message {
	if c.chain == nil || m.NextID == "" {
		return nil
	}
	n, _, _ := c.chain.at(m.NextID)
	return n
}

// Names returns the names the conversation was given, oldest first.
func (c *Conversation) Names() []string {
	var names []string
	for e := range c.Events(false) {
		if e.Kind == KindNameChange {
			names = append(names, e.NameChange.Name)
		}
	}
	return names
}

// LastActivity is the date of the latest message, zero when empty.
func (c *Conversation) LastActivity() time.Time {
	if last := c.Last(); last != nil {
		return last.Date()
	}
	return time.Time{}
}

// Events replays annotations in chronological order, interleaving the
// messages themselves when includeMessages is set. An annotation shared
// between two neighbours is emitted once.
func (c *Conversation) Events(includeMessages bool) iter.Seq[*Event] {
	return c.eventsOf(c.ordered, includeMessages)
}

func (c *Conversation) eventsOf(messages []*Message, includeMessages bool) iter.Seq[*Event] {
	return func(yield func(*Event) bool) {
		seen := make(map[*Annotations]struct{})
		emit := func(a *Annotations) bool {
			if a == nil {
				return true
			}
			if _, ok := seen[a]; ok {
				return true
			}
			seen[a] = struct{}{}
			for _, e := range a.Events() {
				if !yield(e) {
					return false
				}
			}
			return true
		}
		for _, m := range messages {
			if !emit(m.EventsBefore) {
				return
			}
			if includeMessages {
				e := m.source
				if e == nil {
					e = NewMessageEvent(m)
				}
				if !yield(e) {
					return
				}
			}
			if !emit(m.EventsAfter) {
				return
			}
		}
	}
}

// Raw rebuilds the wrapper record of the view from its events.
func (c *Conversation) Raw() RawConversation {
	return RawConversation{
		ID:       c.ID,
		Messages: slices.Collect(c.Events(true)),
		Group:    c.Group,
	}
}
