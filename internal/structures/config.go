package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type ArchiveConfig struct {
	Path          string        `yaml:"path" validate:"required"`
	Streaming     bool          `yaml:"streaming"`
	EntryCache    bool          `yaml:"entryCache"`
	WatchInterval time.Duration `yaml:"watchInterval"`
}

type IndexConfig struct {
	Cache bool `yaml:"cache"`
}

type SearchConfig struct {
	Flags string `yaml:"flags"`
}

type Persistence struct {
	FilePath    string `yaml:"filePath" validate:"required|unixPath"`
	Compression string `yaml:"compression" validate:"in:deflate,zstd"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Archive     ArchiveConfig `yaml:"archive"`
	Index       IndexConfig   `yaml:"index"`
	Search      SearchConfig  `yaml:"search"`
	WebServer   Server        `yaml:"webServer"`
	Persistence Persistence   `yaml:"persistence"`
	Logger      LoggerConfig  `yaml:"logger"`
	Cache       CacheConfig   `yaml:"cache"`
	Metrics     MetricsConfig `yaml:"metrics"`
}
