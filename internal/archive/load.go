package archive

import (
	"archivist/internal/container"
	"archivist/internal/conversations"
	"archivist/internal/models"
	"archivist/internal/providers"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

var ErrMissingAccount = errors.New("archive: account metadata missing")

// Open reads the archive file at path and loads it.
func Open(ctx context.Context, path string, opts Options) (*Archive, error) {
	r, err := container.OpenFile(path, opts.Container...)
	if err != nil {
		return nil, err
	}
	a, err := Load(ctx, r, opts)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return a, nil
}

type loader struct {
	ctx    context.Context
	r      container.Reader
	opts   Options
	logger providers.Logger
	a      *Archive
}

// Load reads r in a fixed order: account and profile, tweets, direct
// messages, then the optional extended files. Extended files that are
// missing or unreadable are logged and skipped. The archive keeps r open
// for media access until Close.
func Load(ctx context.Context, r container.Reader, opts Options) (*Archive, error) {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	unsubscribe := r.Subscribe(forwardEvents(opts.Logger, opts.Metrics))
	if err := r.Ready(ctx); err != nil {
		unsubscribe()
		return nil, err
	}

	l := &loader{ctx: ctx, r: dataDir(r), opts: opts, logger: opts.Logger, a: New(opts)}
	l.a.reader = r
	l.a.unsubscribe = unsubscribe
	l.a.Fingerprint = Fingerprint(r)
	l.a.Media = newMedia(l.r)

	steps := []struct {
		step Step
		run  func() error
	}{
		{StepUser, l.loadUser},
		{StepTweets, l.loadTweets},
		{StepMessages, l.loadMessages},
		{StepExtended, l.loadExtended},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			unsubscribe()
			return nil, err
		}
		if err := s.run(); err != nil {
			unsubscribe()
			return nil, fmt.Errorf("archive: %s: %w", s.step, err)
		}
		l.progress(s.step)
	}
	l.a.LoadedAt = time.Now()
	l.progress(StepDone)
	return l.a, nil
}

func (l *loader) progress(step Step) {
	l.logger.Debugf(providers.TypeArchive, "Archive %s: step %s done", l.r.Name(), step)
	if l.opts.Progress != nil {
		l.opts.Progress(step)
	}
}

// dataDir returns the data directory when the export has one, the root
// otherwise.
func dataDir(r container.Reader) container.Reader {
	dirs, err := r.SearchDir(`data`)
	if err == nil && len(dirs) > 0 {
		return r.Dir(dirs[0].Name)
	}
	return r
}

// firstOf returns the first of names present in the reader.
func (l *loader) firstOf(names ...string) (string, bool) {
	for _, n := range names {
		if l.r.Has(n) {
			return n, true
		}
	}
	return "", false
}

// parts returns base.js followed by base-part1.js, base-part2.js and so on
// until the numbering breaks. Parts are listed even when base.js is absent.
// The first base yielding any file wins.
func (l *loader) parts(bases ...string) []string {
	for _, base := range bases {
		var out []string
		if l.r.Has(base + ".js") {
			out = append(out, base+".js")
		}
		for i := 1; ; i++ {
			name := base + "-part" + strconv.Itoa(i) + ".js"
			if !l.r.Has(name) {
				break
			}
			out = append(out, name)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (l *loader) loadUser() error {
	accountFile, ok := l.firstOf("account.js")
	if !ok {
		return ErrMissingAccount
	}
	accounts, err := decodeWrapped[models.Account](l.ctx, l.r, accountFile, "account")
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return ErrMissingAccount
	}
	profileFile, ok := l.firstOf("profile.js")
	if !ok {
		return fmt.Errorf("%w: profile.js", container.ErrNotFound)
	}
	profiles, err := decodeWrapped[models.Profile](l.ctx, l.r, profileFile, "profile")
	if err != nil {
		return err
	}
	var profile models.Profile
	if len(profiles) > 0 {
		profile = profiles[0]
	}

	l.a.Account = accounts[0]
	l.a.Profile = profile
	l.a.SetUser(models.NewUser(accounts[0], profile))
	l.logger.Infof(providers.TypeArchive, "Archive of @%s (%s)", accounts[0].Username, accounts[0].AccountID)
	return nil
}

func (l *loader) loadTweets() error {
	files := l.parts("tweet", "tweets")
	if len(files) == 0 {
		l.logger.Warnf(providers.TypeArchive, "No tweet file in %s", l.r.Name())
		return nil
	}
	for _, name := range files {
		var raw []models.RawTweet
		if err := l.r.Decode(l.ctx, name, &raw); err != nil {
			return err
		}
		if err := l.a.Tweets.AddRaw(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	l.logger.Infof(providers.TypeArchive, "Loaded %d tweets from %d files", l.a.Tweets.Len(), len(files))
	return nil
}

func (l *loader) loadMessages() error {
	sources := []struct {
		bases []string
		group bool
	}{
		{[]string{"direct-message", "direct-messages"}, false},
		{[]string{"direct-message-group", "direct-messages-group"}, true},
	}
	for _, src := range sources {
		for _, name := range l.parts(src.bases...) {
			var raw []conversations.RawConversation
			if err := l.r.Decode(l.ctx, name, &raw); err != nil {
				return err
			}
			for i := range raw {
				raw[i].Group = src.group
			}
			if err := l.a.Messages.AddRaw(raw); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	l.a.Messages.Indexate()
	l.logger.Infof(providers.TypeArchive, "Loaded %d messages in %d conversations", l.a.Messages.MessageCount(), l.a.Messages.Count())
	return nil
}

func (l *loader) loadExtended() error {
	l.optional("like.js", func(name string) error {
		var raw []models.RawLike
		if err := l.r.Decode(l.ctx, name, &raw); err != nil {
			return err
		}
		return l.a.Favorites.AddRaw(raw)
	})
	l.userSet("follower.js", "follower", l.a.Followers)
	l.userSet("following.js", "following", l.a.Followings)
	l.userSet("block.js", "blocking", l.a.Blocks)
	l.userSet("mute.js", "muting", l.a.Mutes)
	l.optional("moment.js", func(name string) error {
		moments, err := decodeWrapped[models.Moment](l.ctx, l.r, name, "moment")
		l.a.Moments = moments
		return err
	})
	for name, dst := range map[string]*[]models.ListInfo{
		"lists-created.js":    &l.a.Lists.Created,
		"lists-member.js":     &l.a.Lists.Member,
		"lists-subscribed.js": &l.a.Lists.Subscribed,
	} {
		l.optional(name, func(name string) error {
			lists, err := decodeWrapped[models.ListInfo](l.ctx, l.r, name, "userListInfo")
			*dst = lists
			return err
		})
	}
	return nil
}

func (l *loader) userSet(name, key string, dst *UserSet) {
	l.optional(name, func(name string) error {
		refs, err := decodeWrapped[models.UserRef](l.ctx, l.r, name, key)
		if err != nil {
			return err
		}
		dst.addRefs(refs)
		return nil
	})
}

// optional runs load for name when present. Failures never abort the load.
func (l *loader) optional(name string, load func(name string) error) {
	if !l.r.Has(name) {
		l.logger.Debugf(providers.TypeArchive, "Optional file %s not found, skipped", name)
		return
	}
	if err := load(name); err != nil {
		l.logger.Warnf(providers.TypeArchive, "Optional file %s skipped: %s", name, err)
	}
}

// decodeWrapped decodes a list of {"key": {...}} records.
func decodeWrapped[T any](ctx context.Context, r container.Reader, name, key string) ([]T, error) {
	var raw []map[string]json.RawMessage
	if err := r.Decode(ctx, name, &raw); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, rec := range raw {
		payload, ok := rec[key]
		if !ok {
			return nil, fmt.Errorf("%s: record %d has no %q key", name, i, key)
		}
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", name, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// forwardEvents reports container diagnostics through the zip log and the
// entry read counter.
func forwardEvents(logger providers.Logger, metrics providers.MetricsProviderInterface) func(container.Event) {
	return func(e container.Event) {
		if metrics != nil && e.Kind != container.EventReady {
			metrics.IncEntryReads(e.Kind.String())
		}
		switch e.Kind {
		case container.EventReady:
			logger.Infof(providers.TypeZip, "Container %s ready: %d files", e.Name, e.Count)
		case container.EventRead:
			logger.Debugf(providers.TypeZip, "Read %s", e.Name)
		case container.EventNotFound:
			logger.Debugf(providers.TypeZip, "Entry %s not found", e.Name)
		case container.EventError:
			logger.Warnf(providers.TypeZip, "Entry %s: %s", e.Name, e.Err)
		}
	}
}

type nopLogger struct{}

func (nopLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Close()                                                  {}
