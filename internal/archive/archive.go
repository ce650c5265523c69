// Package archive assembles a full account archive from a container: user,
// tweets, likes, direct messages and the extended metadata files.
package archive

import (
	"archivist/internal/container"
	"archivist/internal/conversations"
	"archivist/internal/index"
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/tweets"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Lists groups the three list metadata files.
type Lists struct {
	Created    []models.ListInfo `json:"created"`
	Member     []models.ListInfo `json:"member"`
	Subscribed []models.ListInfo `json:"subscribed"`
}

func (l Lists) Len() int {
	return len(l.Created) + len(l.Member) + len(l.Subscribed)
}

type Counts struct {
	Tweets        int `json:"tweets"`
	Favorites     int `json:"favorites"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
	Followers     int `json:"followers"`
	Followings    int `json:"followings"`
	Blocks        int `json:"blocks"`
	Mutes         int `json:"mutes"`
	Moments       int `json:"moments"`
	Lists         int `json:"lists"`
}

// Records maps each collection to its size, keyed the way metrics label it.
func (c Counts) Records() map[string]int {
	return map[string]int{
		"tweets":        c.Tweets,
		"favorites":     c.Favorites,
		"conversations": c.Conversations,
		"messages":      c.Messages,
		"followers":     c.Followers,
		"followings":    c.Followings,
		"blocks":        c.Blocks,
		"mutes":         c.Mutes,
		"moments":       c.Moments,
		"lists":         c.Lists,
	}
}

type Step string

const (
	StepUser     Step = "user"
	StepTweets   Step = "tweets"
	StepMessages Step = "messages"
	StepExtended Step = "extended"
	StepDone     Step = "done"
)

type Options struct {
	Index     index.Options
	Container []container.Option
	Logger    providers.Logger
	Metrics   providers.MetricsProviderInterface
	// Progress is called once each step completes.
	Progress func(step Step)
}

type Archive struct {
	LoadID      string
	Fingerprint string
	LoadedAt    time.Time
	Account     models.Account
	Profile     models.Profile

	Tweets     *tweets.Archive
	Favorites  *tweets.Favorites
	Messages   *conversations.Archive
	Followers  *UserSet
	Followings *UserSet
	Blocks     *UserSet
	Mutes      *UserSet
	Moments    []models.Moment
	Lists      Lists
	Media      *Media

	reader      container.Reader
	unsubscribe func()
}

// New returns an empty archive with a fresh load identifier.
func New(opts Options) *Archive {
	return &Archive{
		LoadID:     uuid.NewString(),
		LoadedAt:   time.Now(),
		Tweets:     tweets.NewArchive(opts.Index),
		Favorites:  tweets.NewFavorites(opts.Index),
		Messages:   conversations.NewArchive(opts.Index),
		Followers:  NewUserSet(),
		Followings: NewUserSet(),
		Blocks:     NewUserSet(),
		Mutes:      NewUserSet(),
		Media:      newMedia(nil),
	}
}

func (a *Archive) User() *models.User {
	return a.Tweets.User()
}

// SetUser shares u with every tweet normalized afterwards.
func (a *Archive) SetUser(u *models.User) {
	a.Tweets.SetUser(u)
}

func (a *Archive) Counts() Counts {
	return Counts{
		Tweets:        a.Tweets.Len(),
		Favorites:     a.Favorites.Len(),
		Conversations: a.Messages.Count(),
		Messages:      a.Messages.MessageCount(),
		Followers:     a.Followers.Len(),
		Followings:    a.Followings.Len(),
		Blocks:        a.Blocks.Len(),
		Mutes:         a.Mutes.Len(),
		Moments:       len(a.Moments),
		Lists:         a.Lists.Len(),
	}
}

// Mutuals returns the accounts that both follow and are followed.
func (a *Archive) Mutuals() *UserSet {
	return a.Followers.Intersect(a.Followings)
}

// Attach serves media from r, typically for an archive restored from a save
// file. Any previously attached container is closed. r must be ready.
func (a *Archive) Attach(r container.Reader, opts Options) {
	_ = a.Close()
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	a.reader = r
	a.unsubscribe = r.Subscribe(forwardEvents(opts.Logger, opts.Metrics))
	a.Media = newMedia(dataDir(r))
}

// Close releases the container the archive was read from. Media stays
// unavailable afterwards.
func (a *Archive) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.Media != nil {
		a.Media.close()
	}
	if a.reader == nil {
		return nil
	}
	err := a.reader.Close()
	a.reader = nil
	return err
}

// Fingerprint hashes the archive listing: every file path with its size and
// modification time. It changes when any entry is added, removed or rewritten.
func Fingerprint(r container.Reader) string {
	h := xxhash.New()
	for _, e := range r.Entries() {
		if e.Dir {
			continue
		}
		_, _ = h.WriteString(e.Path)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(strconv.FormatInt(e.Size, 10))
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(strconv.FormatInt(e.Modified.Unix(), 10))
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
