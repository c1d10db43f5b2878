package store

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"sparkd/internal/providers"
	"sparkd/internal/structures"
)

type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	store   Store
	cron    *gron.Cron
	opsMu   sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	interval := s.config.Persistence.SaveInterval

	s.cron.AddFunc(gron.Every(interval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		start := time.Now()
		err := s.store.Persist()
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
		s.metrics.ObservePersistenceDuration(time.Since(start))
		s.logger.Debugf(providers.TypeApp, "Persisted store to %s", s.config.Persistence.FilePath)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	return s.store.Restore()
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting store to disk...")
	start := time.Now()
	err := s.store.Persist()
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, store Store) SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		metrics: metrics,
		store:   store,
	}
}
