package persistence

import (
	"archivist/internal/archive"
	"archivist/internal/container"
	"archivist/internal/index"
	"archivist/internal/testutil"
	"archivist/internal/testutil/fixtures"
	"archivist/internal/testutil/ziptest"
	"archivist/internal/zipstream"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *archive.Archive {
	t.Helper()
	a, err := archive.Load(context.Background(), container.OpenBytes(fixtures.Build(t)), archive.Options{Index: index.Options{Cache: true}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// sortedJSON serializes tweets and favorites in ascending order and every
// conversation rebuilt from its chain.
func sortedJSON(t *testing.T, a *archive.Archive) map[string]string {
	t.Helper()
	out := make(map[string]string)
	tweets, err := json.Marshal(slices.Collect(a.Tweets.Sorted(false)))
	require.NoError(t, err)
	out["tweets"] = string(tweets)
	favorites, err := json.Marshal(slices.Collect(a.Favorites.Sorted(false)))
	require.NoError(t, err)
	out["favorites"] = string(favorites)
	for _, c := range a.Messages.All() {
		raw, err := json.Marshal(c.Raw())
		require.NoError(t, err)
		out["dm:"+c.ID] = string(raw)
	}
	return out
}

func newTestFileManager(compressor string) (*FileManager, *testutil.MockMetrics) {
	var comp = NewDeflateCompressor()
	if compressor == "zstd" {
		comp = NewZstdCompressor()
	}
	metrics := &testutil.MockMetrics{}
	return NewFileManager(comp, &testutil.MockLogger{}, metrics), metrics
}

func TestFileManager_RoundTrip(t *testing.T) {
	for _, compression := range []string{"deflate", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "save.zip")
			src := loadFixture(t)
			fm, metrics := newTestFileManager(compression)

			summary, err := fm.SaveToFile(path, src)
			require.NoError(t, err)
			assert.Equal(t, FormatVersion, summary.Version)
			assert.Equal(t, src.Fingerprint, summary.Hash)
			assert.Equal(t, src.Counts(), summary.Counts)

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err))

			restored, stored, err := fm.LoadFromFile(ctx, path, archive.Options{})
			require.NoError(t, err)
			require.NotNil(t, restored)
			assert.Equal(t, 2, metrics.Persistences)

			assert.Equal(t, summary.LoadID, stored.LoadID)
			assert.Equal(t, src.LoadID, restored.LoadID)
			assert.Equal(t, src.Fingerprint, restored.Fingerprint)
			assert.Equal(t, src.Counts(), restored.Counts())
			assert.Equal(t, src.User(), restored.User())
			assert.Equal(t, src.Account, restored.Account)

			orig, _ := src.Tweets.Single("1094623948391485440")
			got, ok := restored.Tweets.Single("1094623948391485440")
			require.True(t, ok)
			assert.Equal(t, orig.Text, got.Text)
			assert.Equal(t, orig.Date(), got.Date())
			assert.Same(t, restored.User(), got.User)

			rt, _ := restored.Tweets.Single("1094623948391485441")
			require.True(t, rt.IsRetweet())
			assert.Equal(t, "alice", rt.RetweetedStatus.User.ScreenName)

			assert.Equal(t, sortedJSON(t, src), sortedJSON(t, restored))

			require.Len(t, restored.Messages.Groups(), 1)
			c, ok := restored.Messages.Get("7-42")
			require.True(t, ok)
			assert.True(t, c.IsIndexed())
			ids := []string{}
			for m := range c.Messages() {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, []string{"500", "501"}, ids)
			assert.Equal(t, src.Messages.LastActivity(), restored.Messages.LastActivity())

			assert.Equal(t, src.Followers.IDs(), restored.Followers.IDs())
			assert.Equal(t, src.Mutuals().IDs(), restored.Mutuals().IDs())
			assert.Equal(t, src.Moments, restored.Moments)
			assert.Equal(t, src.Lists, restored.Lists)
			assert.Equal(t, slices.Collect(src.Favorites.Sorted(false))[0].TweetID,
				slices.Collect(restored.Favorites.Sorted(false))[0].TweetID)
		})
	}
}

func TestFileManager_EntryMethod(t *testing.T) {
	for compression, method := range map[string]uint16{"deflate": zipstream.Deflate, "zstd": zipstream.Zstd} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "save.zip")
			fm, _ := newTestFileManager(compression)
			_, err := fm.SaveToFile(path, loadFixture(t))
			require.NoError(t, err)

			zr, err := zipstream.Open(context.Background(), zipstream.NewFileSource(path))
			require.NoError(t, err)
			defer zr.Close()
			names := []string{}
			for _, f := range zr.Files() {
				names = append(names, f.Name)
				assert.Equal(t, method, f.Method, f.Name)
			}
			assert.Equal(t, []string{infoFile, tweetFile, dmFile, extendedFile}, names)
		})
	}
}

func TestFileManager_LoadFromFile_FileNotExist(t *testing.T) {
	fm, _ := newTestFileManager("deflate")
	a, summary, err := fm.LoadFromFile(context.Background(), "/nonexistent/path/save.zip", archive.Options{})
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.Nil(t, summary)

	summary, err = fm.ReadSummary(context.Background(), "/nonexistent/path/save.zip")
	assert.NoError(t, err)
	assert.Nil(t, summary)
}

func TestFileManager_LoadFromFile_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	fm, _ := newTestFileManager("deflate")
	_, _, err := fm.LoadFromFile(context.Background(), path, archive.Options{})
	assert.ErrorIs(t, err, zipstream.ErrBadArchive)
}

func TestFileManager_LoadFromFile_UnsupportedVersion(t *testing.T) {
	path := ziptest.Write(t, t.TempDir(), "save.zip", ziptest.File(infoFile, `{"version": 99}`))

	fm, _ := newTestFileManager("deflate")
	_, _, err := fm.LoadFromFile(context.Background(), path, archive.Options{})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestFileManager_SaveToFile_WriteError(t *testing.T) {
	fm, _ := newTestFileManager("deflate")
	_, err := fm.SaveToFile(filepath.Join(t.TempDir(), "missing", "save.zip"), loadFixture(t))
	assert.Error(t, err)
}

func TestFileManager_ReadSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.zip")
	fm, _ := newTestFileManager("zstd")
	src := loadFixture(t)
	_, err := fm.SaveToFile(path, src)
	require.NoError(t, err)

	summary, err := fm.ReadSummary(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, src.LoadID, summary.LoadID)
	assert.Equal(t, fixtures.ScreenName, summary.User.ScreenName)
	assert.Equal(t, fixtures.Tweets, summary.Counts.Tweets)
	assert.False(t, summary.LastActivity.IsZero())
}

func TestNewCompressor(t *testing.T) {
	for _, tc := range []struct {
		name   string
		method uint16
	}{{"", zipstream.Deflate}, {"deflate", zipstream.Deflate}, {"zstd", zipstream.Zstd}} {
		conf := testConfig(t, "")
		conf.Persistence.Compression = tc.name
		c, err := NewCompressor(conf)
		require.NoError(t, err)
		assert.Equal(t, tc.method, c.Method())
	}

	conf := testConfig(t, "")
	conf.Persistence.Compression = "lzma"
	_, err := NewCompressor(conf)
	assert.Error(t, err)
}
