package providers

import (
	"archivist/internal/structures"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.SetDefault("persistence.compression", "deflate")
	viper.SetDefault("search.flags", "i")

	viper.BindEnv("archive.path", "ARCHIVIST_ARCHIVE_PATH")
	viper.BindEnv("logger.level", "ARCHIVIST_LOG_LEVEL")
	viper.BindEnv("cache.enabled", "ARCHIVIST_CACHE_ENABLED")
	viper.BindEnv("cache.size", "ARCHIVIST_CACHE_SIZE")
	viper.BindEnv("index.cache", "ARCHIVIST_INDEX_CACHE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "Archivist"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
