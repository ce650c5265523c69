package tweets

import (
	"archivist/internal/index"
	"archivist/internal/models"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTweets(t *testing.T, src string) []models.RawTweet {
	t.Helper()
	var raw []models.RawTweet
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	return raw
}

func newArchive() *Archive {
	a := NewArchive(index.Options{Cache: true})
	a.SetUser(&models.User{ID: "1", Name: "John", ScreenName: "jdoe"})
	return a
}

func TestAddRaw_Normalizes(t *testing.T) {
	a := newArchive()
	err := a.AddRaw(rawTweets(t, `[
		{"tweet": {"id_str": "100", "created_at": "Sun Feb 10 15:47:41 +0000 2019",
			"full_text": "hello there", "retweet_count": "4", "favorite_count": "11",
			"display_text_range": ["0", "11"]}},
		{"tweet": {"id_str": "101", "created_at": "Mon Feb 11 10:00:00 +0000 2019",
			"text": "legacy text field", "retweet_count": 2, "favorite_count": "0"}}
	]`))
	require.NoError(t, err)
	require.Equal(t, 2, a.Len())

	tw, ok := a.Single("100")
	require.True(t, ok)
	assert.Equal(t, "hello there", tw.Text)
	assert.Equal(t, 4, tw.RetweetCount)
	assert.Equal(t, 11, tw.FavoriteCount)
	assert.Equal(t, []int{0, 11}, tw.DisplayTextRange)
	assert.Same(t, a.User(), tw.User)
	assert.False(t, tw.IsRetweet())
	assert.Equal(t, time.Date(2019, time.February, 10, 15, 47, 41, 0, time.UTC), tw.Date())

	legacy, _ := a.Single("101")
	assert.Equal(t, "legacy text field", legacy.Text)
	assert.Equal(t, 2, legacy.RetweetCount)
	assert.Same(t, tw.User, legacy.User)
}

func TestAddRaw_SynthesizesRetweet(t *testing.T) {
	a := newArchive()
	require.NoError(t, a.AddRaw(rawTweets(t, `[
		{"id_str": "200", "created_at": "Sun Feb 10 15:47:41 +0000 2019", "full_text": "RT @alice: hello world"}
	]`)))

	tw, _ := a.Single("200")
	require.True(t, tw.IsRetweet())
	rt := tw.RetweetedStatus
	assert.Equal(t, "hello world", rt.Text)
	assert.Equal(t, "alice", rt.User.ScreenName)
	assert.Equal(t, "alice", rt.User.Name)
	assert.True(t, rt.Retweeted)
	assert.Nil(t, rt.RetweetedStatus)
	assert.Equal(t, "RT @alice: hello world", tw.Text)
	assert.Equal(t, "jdoe", tw.User.ScreenName)
}

func TestAddRaw_RetweetPrefersSourceUserID(t *testing.T) {
	a := newArchive()
	require.NoError(t, a.AddRaw(rawTweets(t, `[
		{"id_str": "201", "created_at": "Sun Feb 10 15:47:41 +0000 2019",
		 "full_text": "RT @bob: look\nat this https://t.co/x",
		 "extended_entities": {"media": [{"id_str": "9", "type": "photo", "source_user_id_str": "424242"}]}}
	]`)))

	tw, _ := a.Single("201")
	require.NotNil(t, tw.RetweetedStatus)
	assert.Equal(t, "424242", tw.RetweetedStatus.User.ID)
	assert.Equal(t, "look\nat this https://t.co/x", tw.RetweetedStatus.Text)
}

func TestAddRaw_KeepsDeclaredRetweet(t *testing.T) {
	a := newArchive()
	require.NoError(t, a.AddRaw(rawTweets(t, `[
		{"id_str": "202", "created_at": "Sun Feb 10 15:47:41 +0000 2019", "full_text": "RT @carol: original",
		 "retweeted_status": {"id_str": "50", "text": "declared", "created_at": "Sat Feb 09 15:47:41 +0000 2019",
		   "user": {"id_str": "3", "name": "Carol", "screen_name": "carol"}}}
	]`)))

	tw, _ := a.Single("202")
	assert.Equal(t, "declared", tw.RetweetedStatus.Text)
	assert.Equal(t, "3", tw.RetweetedStatus.User.ID)
}

func TestAddRaw_InvalidRecordFailsBatch(t *testing.T) {
	a := newArchive()
	err := a.AddRaw(rawTweets(t, `[
		{"id_str": "300", "created_at": "Sun Feb 10 15:47:41 +0000 2019", "full_text": "fine"},
		{"id_str": "301", "full_text": "no date"},
		{"id_str": "302"}
	]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTweetParse)

	var perr *models.TweetParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "301", perr.Record.ID)
	assert.Equal(t, "created_at", perr.Field)
	assert.Equal(t, 0, a.Len())
}

func TestAddRaw_BadCount(t *testing.T) {
	a := newArchive()
	err := a.AddRaw(rawTweets(t, `[
		{"id_str": "400", "created_at": "Sun Feb 10 15:47:41 +0000 2019", "full_text": "x", "retweet_count": "many"}
	]`))
	var perr *models.TweetParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "retweet_count", perr.Field)
}

func TestArchive_UpsertFromNormalized(t *testing.T) {
	a := newArchive()
	require.NoError(t, a.AddRaw(rawTweets(t, `[{"id_str": "500", "created_at": "Sun Feb 10 15:47:41 +0000 2019", "full_text": "v1"}]`)))
	require.NoError(t, a.AddRaw(rawTweets(t, `[{"id_str": "500", "created_at": "Sun Feb 10 15:47:41 +0000 2019", "full_text": "v2"}]`)))

	assert.Equal(t, 1, a.Len())
	tw, _ := a.Single("500")
	assert.Equal(t, "v2", tw.Text)
	assert.Len(t, a.Month(time.February, 2019), 1)
}

func TestFavorites_AddRaw(t *testing.T) {
	f := NewFavorites(index.Options{})
	var raw []models.RawLike
	require.NoError(t, json.Unmarshal([]byte(`[
		{"like": {"tweetId": "1094623948391485440", "fullText": "liked"}},
		{"like": {"tweetId": "1094623948391485441"}}
	]`), &raw))
	require.NoError(t, f.AddRaw(raw))

	assert.Equal(t, 2, f.Len())
	assert.Len(t, f.Month(time.February, 2019), 2)
	fav, ok := f.Single("1094623948391485440")
	require.True(t, ok)
	assert.Equal(t, "liked", fav.FullText)

	err := f.AddRaw([]models.RawLike{{FullText: "no id"}})
	assert.ErrorIs(t, err, ErrInvalidLike)
}
