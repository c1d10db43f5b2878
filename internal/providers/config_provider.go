package providers

import (
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"sparkd/internal/structures"
	"strings"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "SPARKD_LOG_LEVEL")
	viper.BindEnv("persistence.driver", "SPARKD_STORE_DRIVER")
	viper.BindEnv("persistence.saveInterval", "SPARKD_SAVE_INTERVAL")
	viper.BindEnv("funnel.maxFreeLikes", "SPARKD_MAX_FREE_LIKES")
	viper.BindEnv("funnel.matchPolicy", "SPARKD_MATCH_POLICY")
	viper.BindEnv("cache.enabled", "SPARKD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "SPARKD_CACHE_SIZE")

	viper.SetDefault("funnel.maxFreeLikes", 5)
	viper.SetDefault("funnel.minLikesForMatch", 5)
	viper.SetDefault("funnel.maxFreeMatches", 1)
	viper.SetDefault("funnel.messageCap", 4)
	viper.SetDefault("funnel.matchPolicy", "fifth-like")
	viper.SetDefault("funnel.likeReward", 25.0)
	viper.SetDefault("funnel.giftAmount", 50.0)
	viper.SetDefault("funnel.popupDelay", "500ms")
	viper.SetDefault("funnel.typingDelay", "2s")

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

	conf.AppName = "SparkFunnelDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
