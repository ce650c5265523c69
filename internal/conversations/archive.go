package conversations

import (
	"archivist/internal/index"
	"iter"
	"maps"
	"regexp"
	"slices"
	"sort"
	"time"
)

// Archive is the direct-message collection of one account.
type Archive struct {
	opts          index.Options
	conversations map[string]*Conversation
	messages      map[string]*Message
}

func NewArchive(opts index.Options) *Archive {
	return &Archive{
		opts:          opts,
		conversations: make(map[string]*Conversation),
		messages:      make(map[string]*Message),
	}
}

// AddRaw groups fragments by conversation identifier. Conversations must be
// indexed before they are queried.
func (a *Archive) AddRaw(raw []RawConversation) error {
	for _, fragment := range raw {
		c, ok := a.conversations[fragment.ID]
		if !ok {
			c = NewConversation(fragment.ID, a.opts)
			a.conversations[fragment.ID] = c
		}
		if err := c.Add(fragment); err != nil {
			return err
		}
	}
	return nil
}

// Indexate links every conversation that has pending fragments.
func (a *Archive) Indexate() {
	for _, c := range a.conversations {
		if !c.IsIndexed() {
			c.Indexate()
		}
	}
	a.messages = make(map[string]*Message)
	for _, c := range a.conversations {
		for m := range c.Messages() {
			a.messages[m.ID] = m
		}
	}
}

func (a *Archive) Get(id string) (*Conversation, bool) {
	c, ok := a.conversations[id]
	return c, ok
}

// All returns conversations ordered by identifier.
func (a *Archive) All() []*Conversation {
	ids := slices.Sorted(maps.Keys(a.conversations))
	out := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.conversations[id])
	}
	return out
}

func (a *Archive) Count() int {
	return len(a.conversations)
}

func (a *Archive) MessageCount() int {
	return len(a.messages)
}

// Single finds a message in any conversation.
func (a *Archive) Single(id string) (*Message, bool) {
	m, ok := a.messages[id]
	return m, ok
}

func (a *Archive) Groups() []*Conversation {
	return a.where(func(c *Conversation) bool { return c.Group })
}

func (a *Archive) Directs() []*Conversation {
	return a.where(func(c *Conversation) bool { return !c.Group })
}

func (a *Archive) where(keep func(*Conversation) bool) []*Conversation {
	var out []*Conversation
	for _, c := range a.All() {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Messages yields every indexed message, conversation by conversation.
func (a *Archive) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, c := range a.All() {
			for m := range c.Messages() {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// LastActivity is the date of the most recent message across conversations.
func (a *Archive) LastActivity() time.Time {
	var last time.Time
	for _, c := range a.conversations {
		if d := c.LastActivity(); d.After(last) {
			last = d
		}
	}
	return last
}

// SortedByActivity returns conversations with the most recent first.
func (a *Archive) SortedByActivity() []*Conversation {
	out := a.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity().After(out[j].LastActivity())
	})
	return out
}

// collect applies query to every conversation and keeps non-empty views.
func (a *Archive) collect(query func(*Conversation) (*Conversation, error)) ([]*Conversation, error) {
	var out []*Conversation
	for _, c := range a.All() {
		v, err := query(c)
		if err != nil {
			return nil, err
		}
		if v.Len() > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

func (a *Archive) Month(month time.Month, year int) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.Month(month, year) })
}

func (a *Archive) Day(day int, month time.Month, year int) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.Day(day, month, year) })
}

func (a *Archive) FromThatDay(ref time.Time) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.FromThatDay(ref) })
}

func (a *Archive) Between(since, until time.Time) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.Between(since, until) })
}

func (a *Archive) Find(re *regexp.Regexp) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.Find(re) })
}

func (a *Archive) Sender(ids ...string) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.Sender(ids...) })
}

func (a *Archive) Recipient(ids ...string) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.Recipient(ids...) })
}

func (a *Archive) From(ids ...string) ([]*Conversation, error) {
	return a.collect(func(c *Conversation) (*Conversation, error) { return c.From(ids...) })
}
