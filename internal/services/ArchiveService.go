package services

import (
	"archivist/internal/archive"
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/search"
	"archivist/internal/structures"
	"errors"
	"slices"
	"time"

	"go.uber.org/atomic"
)

var ErrNoArchive = errors.New("services: no archive loaded")

type ArchiveServiceInterface interface {
	Current() (*archive.Archive, error)
	Replace(a *archive.Archive)
	Loaded() bool
	LoadedAt() time.Time
	Counts() archive.Counts
	// BeginReload reports false when a reload is already running.
	BeginReload() bool
	EndReload()
	Search(query string, opts search.Options) ([]*models.Tweet, error)
}

type ArchiveService struct {
	logger    providers.Logger
	engine    *search.Engine
	current   atomic.Pointer[archive.Archive]
	reloading atomic.Bool
}

func NewArchiveService(conf *structures.Config, logger providers.Logger) ArchiveServiceInterface {
	engine := search.NewEngine()
	if conf.Search.Flags != "" {
		engine.DefaultFlags = conf.Search.Flags
	}
	return &ArchiveService{logger: logger, engine: engine}
}

func (s *ArchiveService) Current() (*archive.Archive, error) {
	a := s.current.Load()
	if a == nil {
		return nil, ErrNoArchive
	}
	return a, nil
}

// Replace serves a from now on and releases the previous archive.
func (s *ArchiveService) Replace(a *archive.Archive) {
	prev := s.current.Swap(a)
	if prev == nil || prev == a {
		return
	}
	if err := prev.Close(); err != nil {
		s.logger.Warnf(providers.TypeArchive, "Closing archive %s: %s", prev.LoadID, err)
	}
}

func (s *ArchiveService) Loaded() bool {
	return s.current.Load() != nil
}

func (s *ArchiveService) LoadedAt() time.Time {
	if a := s.current.Load(); a != nil {
		return a.LoadedAt
	}
	return time.Time{}
}

func (s *ArchiveService) Counts() archive.Counts {
	if a := s.current.Load(); a != nil {
		return a.Counts()
	}
	return archive.Counts{}
}

func (s *ArchiveService) BeginReload() bool {
	return s.reloading.CompareAndSwap(false, true)
}

func (s *ArchiveService) EndReload() {
	s.reloading.Store(false)
}

// Search runs query over the served tweets, newest first.
func (s *ArchiveService) Search(query string, opts search.Options) ([]*models.Tweet, error) {
	a, err := s.Current()
	if err != nil {
		return nil, err
	}
	found, err := s.engine.Search(a.Tweets.Sorted(true), query, opts)
	if err != nil {
		return nil, err
	}
	return slices.Collect(found), nil
}
