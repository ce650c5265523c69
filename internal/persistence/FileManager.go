// Package persistence saves a loaded archive to a ZIP of JSON documents and
// restores it without re-parsing the original export.
package persistence

import (
	"archivist/internal/archive"
	"archivist/internal/container"
	"archivist/internal/conversations"
	"archivist/internal/models"
	"archivist/internal/persistence/interfaces"
	"archivist/internal/providers"
	"archivist/internal/zipstream"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
)

// FormatVersion is written to info.json and checked on restore.
const FormatVersion = 1

const (
	infoFile     = "info.json"
	tweetFile    = "tweet.json"
	dmFile       = "dm.json"
	extendedFile = "extended.json"
)

var ErrUnsupportedVersion = errors.New("persistence: unsupported save format version")

type Summary struct {
	Version      int            `json:"version"`
	Hash         string         `json:"hash"`
	LoadID       string         `json:"load_id"`
	SavedAt      time.Time      `json:"saved_at"`
	User         *models.User   `json:"user"`
	Account      models.Account `json:"account"`
	Profile      models.Profile `json:"profile"`
	Counts       archive.Counts `json:"counts"`
	LastActivity time.Time      `json:"last_activity"`
}

type savedMessages struct {
	Direct []conversations.RawConversation `json:"direct"`
	Group  []conversations.RawConversation `json:"group"`
}

type savedExtended struct {
	Favorites  []*models.Favorite `json:"favorites"`
	Followers  []string           `json:"followers"`
	Followings []string           `json:"followings"`
	Blocks     []string           `json:"blocks"`
	Mutes      []string           `json:"mutes"`
	Moments    []models.Moment    `json:"moments"`
	Lists      archive.Lists      `json:"lists"`
}

type FileManager struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewFileManager(compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
}

func lastActivity(a *archive.Archive) time.Time {
	last := a.Messages.LastActivity()
	for t := range a.Tweets.Sorted(true) {
		if d := t.Date(); d.After(last) {
			last = d
		}
		break
	}
	return last
}

func NewSummary(a *archive.Archive) *Summary {
	return &Summary{
		Version:      FormatVersion,
		Hash:         a.Fingerprint,
		LoadID:       a.LoadID,
		SavedAt:      time.Now().UTC(),
		User:         a.User(),
		Account:      a.Account,
		Profile:      a.Profile,
		Counts:       a.Counts(),
		LastActivity: lastActivity(a),
	}
}

func writeEntry(zw *zip.Writer, method uint16, name string, v any) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: time.Now()})
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(v)
}

// SaveToFile writes a to fileName atomically and returns the stored summary.
func (f *FileManager) SaveToFile(fileName string, a *archive.Archive) (*Summary, error) {
	start := time.Now()
	defer func() { f.metrics.ObservePersistenceDuration(time.Since(start)) }()

	summary := NewSummary(a)
	messages := savedMessages{Direct: []conversations.RawConversation{}, Group: []conversations.RawConversation{}}
	for _, c := range a.Messages.All() {
		if c.Group {
			messages.Group = append(messages.Group, c.Raw())
		} else {
			messages.Direct = append(messages.Direct, c.Raw())
		}
	}
	extended := savedExtended{
		Favorites:  slices.Collect(a.Favorites.Sorted(false)),
		Followers:  a.Followers.IDs(),
		Followings: a.Followings.IDs(),
		Blocks:     a.Blocks.IDs(),
		Mutes:      a.Mutes.IDs(),
		Moments:    a.Moments,
		Lists:      a.Lists,
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Summary, error) {
		file.Close()
		os.Remove(tmpFile)
		return nil, err
	}

	method := f.compressor.Method()
	zw := zip.NewWriter(file)
	zw.RegisterCompressor(method, f.compressor.Writer)
	zw.SetComment(fmt.Sprintf("archivist save v%d", FormatVersion))

	entries := []struct {
		name string
		v    any
	}{
		{infoFile, summary},
		{tweetFile, slices.Collect(a.Tweets.Sorted(false))},
		{dmFile, messages},
		{extendedFile, extended},
	}
	for _, e := range entries {
		if err := writeEntry(zw, method, e.name, e.v); err != nil {
			return fail(fmt.Errorf("write %s: %w", e.name, err))
		}
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := file.Sync(); err != nil {
		return fail(err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpFile)
		return nil, err
	}
	if err := os.Rename(tmpFile, fileName); err != nil {
		os.Remove(tmpFile)
		return nil, err
	}
	f.logger.Infof(providers.TypeApp, "Saved archive %s (%d tweets, %d messages) to %s",
		summary.LoadID, summary.Counts.Tweets, summary.Counts.Messages, fileName)
	return summary, nil
}

// ReadSummary returns the info.json of a save file, or nil when the file
// does not exist.
func (f *FileManager) ReadSummary(ctx context.Context, fileName string) (*Summary, error) {
	r, err := f.open(ctx, fileName)
	if r == nil || err != nil {
		return nil, err
	}
	defer r.Close()
	return readSummary(ctx, r)
}

func (f *FileManager) open(ctx context.Context, fileName string) (container.Reader, error) {
	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	r := container.NewStreamReader(zipstream.NewFileSource(fileName))
	if err := r.Ready(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func readSummary(ctx context.Context, r container.Reader) (*Summary, error) {
	var summary Summary
	if err := r.Decode(ctx, infoFile, &summary); err != nil {
		return nil, err
	}
	if summary.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, summary.Version)
	}
	return &summary, nil
}

// LoadFromFile rebuilds an archive from a save file. A missing file yields
// nil results and no error. The restored archive has no media until a
// container is attached.
func (f *FileManager) LoadFromFile(ctx context.Context, fileName string, opts archive.Options) (*archive.Archive, *Summary, error) {
	start := time.Now()
	r, err := f.open(ctx, fileName)
	if r == nil || err != nil {
		return nil, nil, err
	}
	defer r.Close()
	defer func() { f.metrics.ObservePersistenceDuration(time.Since(start)) }()

	summary, err := readSummary(ctx, r)
	if err != nil {
		return nil, nil, err
	}

	var tweets []*models.Tweet
	if err := r.Decode(ctx, tweetFile, &tweets); err != nil {
		return nil, nil, err
	}
	var messages savedMessages
	if err := r.Decode(ctx, dmFile, &messages); err != nil {
		return nil, nil, err
	}
	var extended savedExtended
	if err := r.Decode(ctx, extendedFile, &extended); err != nil {
		return nil, nil, err
	}

	a := archive.New(opts)
	a.LoadID = summary.LoadID
	a.Fingerprint = summary.Hash
	a.Account = summary.Account
	a.Profile = summary.Profile
	a.SetUser(summary.User)

	for _, t := range tweets {
		// share one author reference like a fresh load does
		if summary.User != nil && t.User != nil && t.User.ID == summary.User.ID {
			t.User = summary.User
		}
	}
	a.Tweets.Add(tweets...)

	for _, group := range []struct {
		raw   []conversations.RawConversation
		group bool
	}{{messages.Direct, false}, {messages.Group, true}} {
		for i := range group.raw {
			group.raw[i].Group = group.group
		}
		if err := a.Messages.AddRaw(group.raw); err != nil {
			return nil, nil, err
		}
	}
	a.Messages.Indexate()

	a.Favorites.Add(extended.Favorites...)
	a.Followers.Add(extended.Followers...)
	a.Followings.Add(extended.Followings...)
	a.Blocks.Add(extended.Blocks...)
	a.Mutes.Add(extended.Mutes...)
	a.Moments = extended.Moments
	a.Lists = extended.Lists

	f.logger.Infof(providers.TypeApp, "Restored archive %s from %s", summary.LoadID, fileName)
	return a, summary, nil
}
