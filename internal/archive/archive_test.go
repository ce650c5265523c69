package archive_test

import (
	"archive/zip"
	"archivist/internal/archive"
	"archivist/internal/container"
	"archivist/internal/index"
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/testutil"
	"archivist/internal/testutil/fixtures"
	"archivist/internal/testutil/ziptest"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, data []byte, opts archive.Options) *archive.Archive {
	t.Helper()
	a, err := archive.Load(context.Background(), container.OpenBytes(data, container.WithName("fixture.zip")), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestLoad_FullExport(t *testing.T) {
	logger := &testutil.MockLogger{}
	var steps []archive.Step
	a := load(t, fixtures.Build(t), archive.Options{
		Index:    index.Options{Cache: true},
		Logger:   logger,
		Progress: func(s archive.Step) { steps = append(steps, s) },
	})

	assert.Equal(t, []archive.Step{archive.StepUser, archive.StepTweets, archive.StepMessages, archive.StepExtended, archive.StepDone}, steps)

	u := a.User()
	require.NotNil(t, u)
	assert.Equal(t, fixtures.AccountID, u.ID)
	assert.Equal(t, fixtures.ScreenName, u.ScreenName)
	assert.Equal(t, "John Doe", u.Name)
	assert.Equal(t, "Paris", u.Location)

	assert.Equal(t, fixtures.Tweets, a.Tweets.Len())
	assert.False(t, a.Tweets.Has("1200000000000000000"), "parts after a numbering gap are ignored")
	rt, ok := a.Tweets.Single("1094623948391485441")
	require.True(t, ok)
	assert.True(t, rt.IsRetweet())
	assert.Equal(t, "alice", rt.RetweetedStatus.User.ScreenName)

	assert.Equal(t, 2, a.Messages.Count())
	assert.Equal(t, 3, a.Messages.MessageCount())
	require.Len(t, a.Messages.Groups(), 1)
	assert.Equal(t, "900100", a.Messages.Groups()[0].ID)

	assert.Equal(t, 1, a.Favorites.Len())
	assert.Equal(t, []string{"7", "8"}, a.Followers.IDs())
	assert.Equal(t, []string{"7"}, a.Mutuals().IDs())
	assert.True(t, a.Blocks.Has("666"))
	assert.Zero(t, a.Mutes.Len())
	require.Len(t, a.Moments, 1)
	assert.Equal(t, "Trip", a.Moments[0].Title)
	assert.Len(t, a.Lists.Created, 1)
	assert.Empty(t, a.Lists.Member)

	counts := a.Counts()
	assert.Equal(t, fixtures.Tweets, counts.Tweets)
	assert.Equal(t, 3, counts.Messages)
	assert.Equal(t, 1, counts.Lists)
	assert.Equal(t, 2, counts.Records()["followings"])

	var skipped []string
	for _, e := range logger.Entries("warn") {
		if e.Type == providers.TypeArchive {
			skipped = append(skipped, e.Args[0].(string))
		}
	}
	assert.Equal(t, []string{"mute.js"}, skipped)
}

func TestLoad_Media(t *testing.T) {
	nested := ziptest.Build(t, ziptest.Stored("direct_message_group_media/600-pic.png", "png-bytes"))
	a := load(t, fixtures.Build(t, ziptest.Entry{Name: "data/direct_message_group_media.zip", Body: nested, Method: zip.Store}), archive.Options{})
	ctx := context.Background()

	data, err := a.Media.Get(ctx, archive.DirectMedia, "500-photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	data, err = a.Media.Get(ctx, archive.GroupMedia, "600-pic.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = a.Media.Get(ctx, archive.DirectMedia, "missing.jpg")
	assert.ErrorIs(t, err, container.ErrNotFound)
	_, err = a.Media.Get(ctx, archive.GroupMedia, "missing.png")
	assert.ErrorIs(t, err, container.ErrNotFound)
	_, err = a.Media.Get(ctx, archive.TweetMedia, "x.jpg")
	assert.ErrorIs(t, err, container.ErrNotFound)
	_, err = a.Media.Get(ctx, archive.MediaKind(9), "x.jpg")
	assert.ErrorIs(t, err, archive.ErrUnknownMediaKind)
}

func TestLoad_MediaArchiveInsideDirectory(t *testing.T) {
	nested := ziptest.Build(t,
		ziptest.Stored("600-pic.png", "png-bytes"),
		ziptest.File("sub/601-clip.mp4", "mp4-bytes"),
	)
	a := load(t, fixtures.Build(t, ziptest.Entry{Name: "data/direct_message_group_media/media.zip", Body: nested, Method: zip.Store}), archive.Options{})
	ctx := context.Background()

	data, err := a.Media.Get(ctx, archive.GroupMedia, "600-pic.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	data, err = a.Media.Get(ctx, archive.GroupMedia, "601-clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))

	_, err = a.Media.Get(ctx, archive.GroupMedia, "missing.png")
	assert.ErrorIs(t, err, container.ErrNotFound)

	// loose files next to no archive keep working
	data, err = a.Media.Get(ctx, archive.DirectMedia, "500-photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLoad_RootLevelExport(t *testing.T) {
	var entries []ziptest.Entry
	for _, e := range fixtures.Entries() {
		e.Name = strings.TrimPrefix(e.Name, "data/")
		entries = append(entries, e)
	}
	a := load(t, ziptest.Build(t, entries...), archive.Options{})
	assert.Equal(t, fixtures.Tweets, a.Tweets.Len())
	assert.Equal(t, fixtures.ScreenName, a.User().ScreenName)
}

func TestLoad_PartsWithoutBaseFile(t *testing.T) {
	var entries []ziptest.Entry
	for _, e := range fixtures.Entries() {
		if e.Name != "data/tweet.js" {
			entries = append(entries, e)
		}
	}
	a := load(t, ziptest.Build(t, entries...), archive.Options{})

	assert.Equal(t, 2, a.Tweets.Len())
	assert.True(t, a.Tweets.Has("1100000000000000000"))
	assert.True(t, a.Tweets.Has("990000000000000000"))
	assert.False(t, a.Tweets.Has("1200000000000000000"))
}

func TestLoad_MissingAccount(t *testing.T) {
	data := ziptest.Build(t, ziptest.File("data/tweet.js", `window.YTD.tweet.part0 = []`))
	_, err := archive.Load(context.Background(), container.OpenBytes(data), archive.Options{})
	assert.ErrorIs(t, err, archive.ErrMissingAccount)
}

func TestLoad_InvalidTweetFailsLoad(t *testing.T) {
	var entries []ziptest.Entry
	for _, e := range fixtures.Entries() {
		if e.Name == "data/tweet-part1.js" {
			e.Body = []byte(`window.YTD.tweet.part1 = [{"tweet": {"id_str": "5", "full_text": "no date"}}]`)
		}
		entries = append(entries, e)
	}
	_, err := archive.Load(context.Background(), container.OpenBytes(ziptest.Build(t, entries...)), archive.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTweetParse)
	assert.Contains(t, err.Error(), "tweets")
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := archive.Load(ctx, container.OpenBytes(fixtures.Build(t)), archive.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_FileBothModes(t *testing.T) {
	path := fixtures.Write(t, t.TempDir())
	ctx := context.Background()

	streamed, err := archive.Open(ctx, path, archive.Options{})
	require.NoError(t, err)
	defer streamed.Close()

	inMemory, err := archive.Open(ctx, path, archive.Options{Container: []container.Option{container.InMemory()}})
	require.NoError(t, err)
	defer inMemory.Close()

	assert.Equal(t, streamed.Counts(), inMemory.Counts())
	assert.NotEmpty(t, streamed.Fingerprint)
	assert.NotEqual(t, streamed.LoadID, inMemory.LoadID)

	_, err = archive.Open(ctx, path+".missing", archive.Options{})
	assert.Error(t, err)
}

func TestFingerprint_TracksListing(t *testing.T) {
	a := load(t, fixtures.Build(t), archive.Options{})
	b := load(t, fixtures.Build(t), archive.Options{})
	c := load(t, fixtures.Build(t, ziptest.File("data/extra.js", "[]")), archive.Options{})

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestUserSet(t *testing.T) {
	s := archive.NewUserSet("10", "2", "abc", "", "2")
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"2", "10", "abc"}, s.IDs())
	assert.True(t, s.Has("abc"))
	assert.False(t, s.Has("3"))

	both := s.Intersect(archive.NewUserSet("10", "abc", "11"))
	assert.Equal(t, []string{"10", "abc"}, both.IDs())
	assert.Equal(t, uint64(2), s.Bitmap().GetCardinality())
}

func TestAttach_ServesMediaFromContainer(t *testing.T) {
	r := container.OpenBytes(fixtures.Build(t))
	require.NoError(t, r.Ready(context.Background()))

	a := archive.New(archive.Options{})
	_, err := a.Media.Get(context.Background(), archive.DirectMedia, "500-photo.jpg")
	assert.ErrorIs(t, err, container.ErrNotFound)

	a.Attach(r, archive.Options{})
	defer a.Close()
	data, err := a.Media.Get(context.Background(), archive.DirectMedia, "500-photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}
