package conversations

import (
	"archivist/internal/models"
	"fmt"
	"regexp"
	"time"
)

func (c *Conversation) ready() error {
	if !c.indexed {
		return fmt.Errorf("%w: %s", ErrNotIndexed, c.ID)
	}
	return nil
}

func (c *Conversation) Month(month time.Month, year int) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.derive(c.index.Month(month, year)), nil
}

func (c *Conversation) Day(day int, month time.Month, year int) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []*Message
	for _, m := range c.index.Month(month, year) {
		if m.Date().Day() == day {
			out = append(out, m)
		}
	}
	return c.derive(out), nil
}

// FromThatDay keeps messages sent on ref's month and day in any year.
func (c *Conversation) FromThatDay(ref time.Time) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.derive(c.index.FromThatDay(ref)), nil
}

func (c *Conversation) Between(since, until time.Time) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	messages, err := c.index.Between(since, until)
	if err != nil {
		return nil, err
	}
	return c.derive(messages), nil
}

// BetweenIDs walks the chain from the lower to the higher identifier, both
// included. Messages outside the view are skipped.
func (c *Conversation) BetweenIDs(id1, id2 string) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if models.CompareIDs(id1, id2) > 0 {
		id1, id2 = id2, id1
	}
	from, ok := c.Single(id1)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id1)
	}
	if !c.Has(id2) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id2)
	}

	var out []*Message
	for m := from; m != nil; m = c.Next(m) {
		if c.Has(m.ID) {
			out = append(out, m)
		}
		if m.ID == id2 {
			break
		}
	}
	return c.derive(out), nil
}

// Find keeps messages whose text matches re.
func (c *Conversation) Find(re *regexp.Regexp) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.filter(func(m *Message) bool { return re.MatchString(m.Text) }), nil
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// From keeps messages sent or received by any of ids.
func (c *Conversation) From(ids ...string) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	set := idSet(ids)
	return c.filter(func(m *Message) bool {
		_, s := set[m.SenderID]
		_, r := set[m.RecipientID]
		return s || r
	}), nil
}

func (c *Conversation) Sender(ids ...string) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	set := idSet(ids)
	return c.filter(func(m *Message) bool {
		_, ok := set[m.SenderID]
		return ok
	}), nil
}

func (c *Conversation) Recipient(ids ...string) (*Conversation, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	set := idSet(ids)
	return c.filter(func(m *Message) bool {
		_, ok := set[m.RecipientID]
		return ok
	}), nil
}

// Around is a message with its chain neighbours, oldest first on both sides.
type Around struct {
	Before  []*Message `json:"before"`
	Message *Message   `json:"message"`
	After   []*Message `json:"after"`
}

// Around returns up to context messages on each side of id, stopping at the
// ends of the chain. A non-positive context means DefaultAroundContext.
func (c *Conversation) Around(id string, context int) (Around, error) {
	if err := c.ready(); err != nil {
		return Around{}, err
	}
	if context <= 0 {
		context = DefaultAroundContext
	}
	m, ok := c.Single(id)
	if !ok {
		return Around{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	res := Around{Message: m}
	for p := c.Previous(m); p != nil && len(res.Before) < context; p = c.Previous(p) {
		res.Before = append(res.Before, p)
	}
	for i, j := 0, len(res.Before)-1; i < j; i, j = i+1, j-1 {
		res.Before[i], res.Before[j] = res.Before[j], res.Before[i]
	}
	for n := c.Next(m); n != nil && len(res.After) < context; n = c.Next(n) {
		res.After = append(res.After, n)
	}
	return res, nil
}
