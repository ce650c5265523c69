package persistence

import (
	"archivist/internal/archive"
	"archivist/internal/services"
	"archivist/internal/structures"
	"archivist/internal/testutil"
	"archivist/internal/testutil/fixtures"
	"archivist/internal/testutil/ziptest"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, dir string) *structures.Config {
	t.Helper()
	return &structures.Config{
		Archive: structures.ArchiveConfig{
			Path:       filepath.Join(dir, "twitter-archive.zip"),
			Streaming:  true,
			EntryCache: true,
		},
		Index:       structures.IndexConfig{Cache: true},
		Persistence: structures.Persistence{FilePath: filepath.Join(dir, "save.zip"), Compression: "deflate"},
	}
}

type schedulerEnv struct {
	conf    *structures.Config
	service services.ArchiveServiceInterface
	metrics *testutil.MockMetrics
	cache   *testutil.MockCache
	s       *Scheduler
}

func newEnv(t *testing.T, conf *structures.Config) *schedulerEnv {
	t.Helper()
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}
	cache := testutil.NewMockCache()
	svc := services.NewArchiveService(conf, logger)
	fm := NewFileManager(NewDeflateCompressor(), logger, metrics)
	s := NewScheduler(conf, logger, svc, fm, metrics, cache).(*Scheduler)
	t.Cleanup(func() {
		if a, err := svc.Current(); err == nil {
			_ = a.Close()
		}
	})
	return &schedulerEnv{conf: conf, service: svc, metrics: metrics, cache: cache, s: s}
}

func current(t *testing.T, env *schedulerEnv) *archive.Archive {
	t.Helper()
	a, err := env.service.Current()
	require.NoError(t, err)
	return a
}

func TestScheduler_Restore_ParsesAndSaves(t *testing.T) {
	dir := t.TempDir()
	fixtures.Write(t, dir)
	env := newEnv(t, testConfig(t, dir))

	require.NoError(t, env.s.Restore())
	a := current(t, env)
	assert.Equal(t, fixtures.Tweets, a.Tweets.Len())
	assert.Equal(t, fixtures.Tweets, env.metrics.Records["tweets"])
	assert.Equal(t, 1, env.metrics.Ingests)
	assert.NotEmpty(t, env.cache.Data, "entry cache is used while streaming")

	_, err := os.Stat(env.conf.Persistence.FilePath)
	assert.NoError(t, err)
}

func TestScheduler_Restore_UsesMatchingSave(t *testing.T) {
	dir := t.TempDir()
	fixtures.Write(t, dir)
	conf := testConfig(t, dir)

	first := newEnv(t, conf)
	require.NoError(t, first.s.Restore())
	loadID := current(t, first).LoadID

	second := newEnv(t, conf)
	require.NoError(t, second.s.Restore())
	a := current(t, second)
	assert.Equal(t, loadID, a.LoadID)
	assert.Zero(t, second.metrics.Ingests)
	assert.Equal(t, fixtures.Tweets, a.Tweets.Len())

	data, err := a.Media.Get(context.Background(), archive.DirectMedia, "500-photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestScheduler_Restore_StaleSave(t *testing.T) {
	dir := t.TempDir()
	fixtures.Write(t, dir)
	conf := testConfig(t, dir)

	first := newEnv(t, conf)
	require.NoError(t, first.s.Restore())
	loadID := current(t, first).LoadID

	fixtures.Write(t, dir, ziptest.File("data/extra.js", "[]"))
	second := newEnv(t, conf)
	require.NoError(t, second.s.Restore())
	assert.NotEqual(t, loadID, current(t, second).LoadID)
	assert.Equal(t, 1, second.metrics.Ingests)
}

func TestScheduler_Restore_SaveWithoutExport(t *testing.T) {
	dir := t.TempDir()
	fixtures.Write(t, dir)
	conf := testConfig(t, dir)

	first := newEnv(t, conf)
	require.NoError(t, first.s.Restore())
	require.NoError(t, os.Remove(conf.Archive.Path))

	second := newEnv(t, conf)
	require.NoError(t, second.s.Restore())
	a := current(t, second)
	assert.Equal(t, fixtures.Tweets, a.Tweets.Len())
	_, err := a.Media.Get(context.Background(), archive.DirectMedia, "500-photo.jpg")
	assert.Error(t, err)
}

func TestScheduler_Restore_NothingToServe(t *testing.T) {
	env := newEnv(t, testConfig(t, t.TempDir()))
	assert.Error(t, env.s.Restore())
	assert.False(t, env.service.Loaded())
}

func TestScheduler_Reload(t *testing.T) {
	dir := t.TempDir()
	fixtures.Write(t, dir)
	env := newEnv(t, testConfig(t, dir))
	require.NoError(t, env.s.Restore())
	before := current(t, env).LoadID

	changed, err := env.s.changed()
	require.NoError(t, err)
	assert.False(t, changed)

	fixtures.Write(t, dir, ziptest.File("data/extra.js", "[]"))
	changed, err = env.s.changed()
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, env.s.Reload(context.Background()))
	assert.NotEqual(t, before, current(t, env).LoadID)
	changed, err = env.s.changed()
	require.NoError(t, err)
	assert.False(t, changed)

	summary, err := env.s.fileManager.ReadSummary(context.Background(), env.conf.Persistence.FilePath)
	require.NoError(t, err)
	assert.Equal(t, current(t, env).LoadID, summary.LoadID)
}

func TestScheduler_Reload_InProgress(t *testing.T) {
	dir := t.TempDir()
	fixtures.Write(t, dir)
	env := newEnv(t, testConfig(t, dir))

	require.True(t, env.service.BeginReload())
	assert.ErrorIs(t, env.s.Reload(context.Background()), ErrReloadInProgress)
	env.service.EndReload()
	assert.NoError(t, env.s.Reload(context.Background()))
}

func TestScheduler_Persist_NoArchive(t *testing.T) {
	env := newEnv(t, testConfig(t, t.TempDir()))
	require.NoError(t, env.s.Persist())
	_, err := os.Stat(env.conf.Persistence.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestScheduler_StopNilCron(t *testing.T) {
	env := newEnv(t, testConfig(t, t.TempDir()))
	// Should not panic with nil cron
	env.s.Stop()
}

func TestScheduler_InitAndStop(t *testing.T) {
	conf := testConfig(t, t.TempDir())
	conf.Archive.WatchInterval = time.Hour
	env := newEnv(t, conf)
	env.s.Init()
	// Give the cron a moment to start
	time.Sleep(50 * time.Millisecond)
	env.s.Stop()
}
