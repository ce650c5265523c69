package persistence

import (
	"archivist/internal/archive"
	"archivist/internal/container"
	"archivist/internal/index"
	"archivist/internal/persistence/interfaces"
	"archivist/internal/providers"
	"archivist/internal/services"
	"archivist/internal/structures"
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

var ErrReloadInProgress = errors.New("persistence: reload already in progress")

// fileState is what the watcher compares to detect a replaced export.
type fileState struct {
	size    int64
	modTime time.Time
}

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	service     services.ArchiveServiceInterface
	fileManager *FileManager
	metrics     providers.MetricsProviderInterface
	cache       providers.CacheProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
	watched     fileState
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	interval := s.config.Archive.WatchInterval

	if interval > 0 {
		s.cron.AddFunc(gron.Every(interval), func() {
			changed, err := s.changed()
			if err != nil {
				s.logger.Warnf(providers.TypeArchive, "Cannot stat archive %s: %s", s.config.Archive.Path, err)
				return
			}
			if !changed {
				return
			}
			s.logger.Infof(providers.TypeArchive, "Archive %s changed, reloading", s.config.Archive.Path)
			if err := s.Reload(context.Background()); err != nil {
				s.logger.Errorf(providers.TypeArchive, "Reload failed: %s", err)
			}
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func stat(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{size: info.Size(), modTime: info.ModTime()}, nil
}

func (s *Scheduler) changed() (bool, error) {
	st, err := stat(s.config.Archive.Path)
	if err != nil {
		return false, err
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
	return st.size != s.watched.size || !st.modTime.Equal(s.watched.modTime), nil
}

func (s *Scheduler) archiveOptions() archive.Options {
	opts := archive.Options{
		Index:   index.Options{Cache: s.config.Index.Cache},
		Logger:  s.logger,
		Metrics: s.metrics,
	}
	if !s.config.Archive.Streaming {
		opts.Container = append(opts.Container, container.InMemory())
	}
	if s.config.Archive.EntryCache {
		opts.Container = append(opts.Container, container.WithCache(s.cache))
	}
	return opts
}

func (s *Scheduler) openArchive(ctx context.Context, opts archive.Options) (container.Reader, fileState, error) {
	st, err := stat(s.config.Archive.Path)
	if err != nil {
		return nil, st, err
	}
	r, err := container.OpenFile(s.config.Archive.Path, opts.Container...)
	if err != nil {
		return nil, st, err
	}
	if err := r.Ready(ctx); err != nil {
		r.Close()
		return nil, st, err
	}
	return r, st, nil
}

func (s *Scheduler) serve(a *archive.Archive, st fileState) {
	s.watched = st
	s.service.Replace(a)
	for kind, n := range a.Counts().Records() {
		s.metrics.SetRecordsTotal(kind, n)
	}
}

// Restore serves the save file when it was written from the current export,
// and parses the export otherwise. A save file is also served when the
// export itself is gone.
func (s *Scheduler) Restore() error {
	ctx := context.Background()
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	opts := s.archiveOptions()
	r, st, openErr := s.openArchive(ctx, opts)

	saved, summary, err := s.fileManager.LoadFromFile(ctx, s.config.Persistence.FilePath, opts)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Ignoring save file %s: %s", s.config.Persistence.FilePath, err)
		saved = nil
	}

	if openErr != nil {
		if saved == nil {
			return openErr
		}
		s.logger.Warnf(providers.TypeArchive, "Archive %s unavailable (%s), serving save file without media", s.config.Archive.Path, openErr)
		s.serve(saved, st)
		return nil
	}

	if saved != nil && summary.Hash == archive.Fingerprint(r) {
		saved.Attach(r, opts)
		s.serve(saved, st)
		s.logger.Infof(providers.TypeApp, "Restored archive %s from save file", summary.LoadID)
		return nil
	}
	if saved != nil {
		s.logger.Infof(providers.TypeApp, "Save file is stale, parsing %s", s.config.Archive.Path)
	}

	if err := s.load(ctx, r, st, opts); err != nil {
		return err
	}
	return s.persist()
}

func (s *Scheduler) load(ctx context.Context, r container.Reader, st fileState, opts archive.Options) error {
	start := time.Now()
	a, err := archive.Load(ctx, r, opts)
	if err != nil {
		r.Close()
		return err
	}
	s.metrics.ObserveIngestDuration(time.Since(start))
	s.serve(a, st)
	s.logger.Infof(providers.TypeArchive, "Loaded archive %s in %s", a.LoadID, time.Since(start))
	return nil
}

// Reload parses the export again, serves it and saves it.
func (s *Scheduler) Reload(ctx context.Context) error {
	if !s.service.BeginReload() {
		return ErrReloadInProgress
	}
	defer s.service.EndReload()

	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	opts := s.archiveOptions()
	s.cache.Clear()
	r, st, err := s.openArchive(ctx, opts)
	if err != nil {
		return err
	}
	if err := s.load(ctx, r, st, opts); err != nil {
		return err
	}
	return s.persist()
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting archive to file...")
	return s.persist()
}

func (s *Scheduler) persist() error {
	a, err := s.service.Current()
	if err != nil {
		if errors.Is(err, services.ErrNoArchive) {
			return nil
		}
		return err
	}
	if _, err := s.fileManager.SaveToFile(s.config.Persistence.FilePath, a); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.ArchiveServiceInterface, fileManager *FileManager, metrics providers.MetricsProviderInterface, cache providers.CacheProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		service:     service,
		fileManager: fileManager,
		metrics:     metrics,
		cache:       cache,
	}
}
