package store

import (
	"fmt"

	"sparkd/internal/providers"
	"sparkd/internal/structures"
)

func NewStore(conf *structures.Config, compressor CompressorInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) (Store, error) {
	switch conf.Persistence.Driver {
	case "sqlite":
		logger.Infof(providers.TypeApp, "Using sqlite store at %s", conf.Persistence.FilePath)
		return NewSqliteStore(conf, cache, metrics)
	case "file":
		logger.Infof(providers.TypeApp, "Using file store at %s", conf.Persistence.FilePath)
		return NewFileStore(conf, compressor, logger), nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", conf.Persistence.Driver)
	}
}
