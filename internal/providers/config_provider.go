package providers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tosctl/internal/structures"
)

const defaultConfigPath = "~/.config/tosctl/config.yaml"

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	configPath := flags.ConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if strings.HasPrefix(configPath, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, configPath[1:])
		}
	}

	filename := filepath.Base(configPath)
	v := viper.New()
	v.AddConfigPath(filepath.Dir(configPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("storage.tosRoot", "~/.tosctl/tos")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 8)
	v.SetDefault("cache.timeout", time.Hour)
	v.SetDefault("remote.connectTimeout", 10*time.Second)
	v.SetDefault("remote.readTimeout", 30*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0o644)

	v.BindEnv("logger.level", "TOSCTL_LOG_LEVEL")
	v.BindEnv("storage.tosRoot", "TOSCTL_TOS_ROOT")
	v.BindEnv("cache.enabled", "TOSCTL_CACHE_ENABLED")
	v.BindEnv("cache.size", "TOSCTL_CACHE_SIZE")
	v.BindEnv("cache.timeout", "TOSCTL_CACHE_TIMEOUT")
	v.BindEnv("remote.offline", "TOSCTL_OFFLINE")
	v.BindEnv("workflow.autoAccept", "TOSCTL_AUTO_ACCEPT")

	if err := v.ReadInConfig(); err != nil {
		// a config file is optional; defaults and env bindings still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	if err := cnfValidator.Validate(); err != nil {
		return nil, err
	}

	conf.AppName = "tosctl"
	conf.Path = configPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
