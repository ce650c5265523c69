package controllers

import (
	"archivist/internal/archive"
	"archivist/internal/container"
	"archivist/internal/conversations"
	"archivist/internal/index"
	"archivist/internal/models"
	"archivist/internal/persistence"
	"archivist/internal/persistence/interfaces"
	"archivist/internal/providers"
	"archivist/internal/search"
	"archivist/internal/services"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

type ArchiveController struct {
	logger    providers.Logger
	service   services.ArchiveServiceInterface
	cache     providers.CacheProviderInterface
	scheduler interfaces.SchedulerInterface
}

func NewArchiveController(logger providers.Logger, service services.ArchiveServiceInterface, cache providers.CacheProviderInterface, scheduler interfaces.SchedulerInterface) *ArchiveController {
	return &ArchiveController{
		logger:    logger,
		service:   service,
		cache:     cache,
		scheduler: scheduler,
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNoArchive):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest), errors.Is(err, search.ErrSyntax),
		errors.Is(err, search.ErrUnknownFilter), errors.Is(err, index.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound), errors.Is(err, container.ErrNotFound),
		errors.Is(err, conversations.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, persistence.ErrReloadInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (ac *ArchiveController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
		http.Error(w, "Internal Server Error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// serveFromCacheOrCompute caches responses per served archive: the key
// starts with the load identifier, so a reload never serves stale data.
func (ac *ArchiveController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, compute func(a *archive.Archive) (any, error)) {
	a, err := ac.service.Current()
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	cacheKey := a.LoadID + ":" + r.URL.Path + "?" + r.URL.Query().Encode()
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute(a)
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

func intParam(r *http.Request, name string, required bool) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%w: missing parameter %s", errBadRequest, name)
		}
		return 0, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid parameter %s", errBadRequest, name)
	}
	return n, nil
}

func monthParams(r *http.Request) (time.Month, int, error) {
	year, err := intParam(r, "year", true)
	if err != nil {
		return 0, 0, err
	}
	month, err := intParam(r, "month", true)
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: month out of range", errBadRequest)
	}
	return time.Month(month), year, nil
}

func dateParam(r *http.Request, name string) (time.Time, error) {
	d, err := search.ParseDate(r.URL.Query().Get(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid parameter %s: %v", errBadRequest, name, err)
	}
	return d, nil
}

// newestFirst orders entities by descending identifier.
func newestFirst[T index.Entity](items []T) []T {
	slices.SortFunc(items, func(a, b T) int { return models.CompareIDs(b.EntityID(), a.EntityID()) })
	return items
}

func (ac *ArchiveController) GetTweet(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		id := r.URL.Query().Get("id")
		t, ok := a.Tweets.Single(id)
		if !ok {
			return nil, fmt.Errorf("%w: tweet %s", errNotFound, id)
		}
		return t, nil
	})
}

func (ac *ArchiveController) GetTweetsByMonth(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		month, year, err := monthParams(r)
		if err != nil {
			return nil, err
		}
		return newestFirst(a.Tweets.Month(month, year)), nil
	})
}

func (ac *ArchiveController) GetTweetsBetween(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		since, err := dateParam(r, "since")
		if err != nil {
			return nil, err
		}
		until, err := dateParam(r, "until")
		if err != nil {
			return nil, err
		}
		found, err := a.Tweets.Between(since, until)
		if err != nil {
			return nil, err
		}
		return newestFirst(found), nil
	})
}

func (ac *ArchiveController) GetTweetsFromThatDay(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		ref := time.Now()
		if r.URL.Query().Get("date") != "" {
			d, err := dateParam(r, "date")
			if err != nil {
				return nil, err
			}
			ref = d
		}
		return newestFirst(a.Tweets.FromThatDay(ref)), nil
	})
}

func (ac *ArchiveController) SearchTweets(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(_ *archive.Archive) (any, error) {
		q := r.URL.Query()
		opts := search.Options{Flags: q.Get("flags")}
		if raw := q.Get("regex"); raw != "" {
			regex, err := cast.ToBoolE(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid parameter regex", errBadRequest)
			}
			opts.Regex = regex
		}
		for _, f := range strings.Split(q.Get("filters"), ",") {
			if f = strings.TrimSpace(f); f != "" {
				opts.Filters = append(opts.Filters, f)
			}
		}
		limit, err := intParam(r, "limit", false)
		if err != nil {
			return nil, err
		}

		found, err := ac.service.Search(q.Get("q"), opts)
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(found) > limit {
			found = found[:limit]
		}
		return found, nil
	})
}

func (ac *ArchiveController) GetFavoritesByMonth(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		month, year, err := monthParams(r)
		if err != nil {
			return nil, err
		}
		return newestFirst(a.Favorites.Month(month, year)), nil
	})
}

type conversationSummary struct {
	ID           string    `json:"id"`
	Group        bool      `json:"group"`
	Names        []string  `json:"names,omitempty"`
	Participants []string  `json:"participants"`
	Messages     int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

func summarize(c *conversations.Conversation) conversationSummary {
	return conversationSummary{
		ID:           c.ID,
		Group:        c.Group,
		Names:        c.Names(),
		Participants: c.Participants(),
		Messages:     c.Len(),
		LastActivity: c.LastActivity(),
	}
}

func (ac *ArchiveController) GetConversations(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		all := a.Messages.SortedByActivity()
		out := make([]conversationSummary, 0, len(all))
		for _, c := range all {
			out = append(out, summarize(c))
		}
		return out, nil
	})
}

func (ac *ArchiveController) GetConversation(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		id := r.URL.Query().Get("id")
		c, ok := a.Messages.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: conversation %s", errNotFound, id)
		}
		if r.URL.Query().Has("year") || r.URL.Query().Has("month") {
			month, year, err := monthParams(r)
			if err != nil {
				return nil, err
			}
			if c, err = c.Month(month, year); err != nil {
				return nil, err
			}
		}
		return struct {
			conversationSummary
			Messages []*conversations.Message `json:"messages"`
		}{summarize(c), c.All()}, nil
	})
}

func (ac *ArchiveController) GetAround(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		id := r.URL.Query().Get("conversation")
		c, ok := a.Messages.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: conversation %s", errNotFound, id)
		}
		n, err := intParam(r, "context", false)
		if err != nil {
			return nil, err
		}
		return c.Around(r.URL.Query().Get("id"), n)
	})
}

type conversationMatch struct {
	ID       string                   `json:"id"`
	Messages []*conversations.Message `json:"messages"`
}

func (ac *ArchiveController) FindMessages(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			return nil, fmt.Errorf("%w: missing parameter q", errBadRequest)
		}
		found, err := a.Messages.Find(regexp.MustCompile("(?i)" + regexp.QuoteMeta(q)))
		if err != nil {
			return nil, err
		}
		out := make([]conversationMatch, 0, len(found))
		for _, c := range found {
			out = append(out, conversationMatch{ID: c.ID, Messages: c.All()})
		}
		return out, nil
	})
}

type infoResponse struct {
	LoadID      string         `json:"load_id"`
	Fingerprint string         `json:"fingerprint"`
	LoadedAt    time.Time      `json:"loaded_at"`
	User        *models.User   `json:"user"`
	Counts      archive.Counts `json:"counts"`
}

func info(a *archive.Archive) infoResponse {
	return infoResponse{
		LoadID:      a.LoadID,
		Fingerprint: a.Fingerprint,
		LoadedAt:    a.LoadedAt,
		User:        a.User(),
		Counts:      a.Counts(),
	}
}

func (ac *ArchiveController) GetInfo(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, func(a *archive.Archive) (any, error) {
		return info(a), nil
	})
}

var mediaKinds = map[string]archive.MediaKind{
	"direct": archive.DirectMedia,
	"group":  archive.GroupMedia,
	"tweet":  archive.TweetMedia,
}

func (ac *ArchiveController) GetMedia(w http.ResponseWriter, r *http.Request) {
	a, err := ac.service.Current()
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	kind, ok := mediaKinds[r.URL.Query().Get("kind")]
	file := r.URL.Query().Get("file")
	if !ok || file == "" || strings.Contains(file, "/") {
		ac.writeError(w, r, fmt.Errorf("%w: invalid media reference", errBadRequest))
		return
	}
	data, err := a.Media.Get(r.Context(), kind, file)
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (ac *ArchiveController) Reload(w http.ResponseWriter, r *http.Request) {
	if err := ac.scheduler.Reload(r.Context()); err != nil {
		ac.writeError(w, r, err)
		return
	}
	a, err := ac.service.Current()
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	gson, err := json.Marshal(info(a))
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}
