package funnel

import (
	"time"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/store"
	"sparkd/internal/structures"
)

type MatchQuota struct {
	MatchCount      int    `json:"matchCount"`
	HasReachedLimit bool   `json:"hasReachedLimit"`
	IsPremium       bool   `json:"isPremium"`
	FirstMatchAt    string `json:"firstMatchAt,omitempty"`
	FreeMatchUsed   bool   `json:"freeMatchUsed"`
}

// Match policies. The funnel runs exactly one of these; all of them
// draw from the same one-shot free-match budget.
const (
	PolicyFifthLike         = "fifth-like"
	PolicyEveryThird        = "every-third"
	PolicyProfileCompletion = "profile-completion"
)

type MatchLimiter struct {
	conf    *structures.Config
	store   store.Store
	lock    *DeviceLock
	sink    EventSink
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewMatchLimiter(conf *structures.Config, st store.Store, lock *DeviceLock, sink EventSink, logger providers.Logger, metrics providers.MetricsProviderInterface) *MatchLimiter {
	return &MatchLimiter{
		conf:    conf,
		store:   st,
		lock:    lock,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (ml *MatchLimiter) decode(raw []byte) MatchQuota {
	if len(raw) == 0 {
		return MatchQuota{}
	}
	var q MatchQuota
	if err := json.Unmarshal(raw, &q); err != nil {
		ml.logger.Warnf(providers.TypeApp, "Corrupt match quota record, falling back to defaults: %s", err)
		return MatchQuota{}
	}
	return q
}

func (ml *MatchLimiter) Snapshot() MatchQuota {
	raw, _, err := ml.store.Get(store.KeyMatchQuota)
	if err != nil {
		ml.logger.Errorf(providers.TypeApp, "Failed to read match quota: %s", err)
		return MatchQuota{}
	}
	return ml.decode(raw)
}

func (ml *MatchLimiter) CanInteract() bool {
	q := ml.Snapshot()
	if q.IsPremium {
		return true
	}
	return !q.HasReachedLimit && !q.FreeMatchUsed && !ml.lock.HasReceivedMatch()
}

// ShouldGrantMatch decides whether the like that just landed triggers a
// match, according to the configured policy. The device-scoped
// matchReceived latch wins over any policy.
func (ml *MatchLimiter) ShouldGrantMatch(likesUsed int) bool {
	q := ml.Snapshot()
	if !q.IsPremium && ml.lock.HasReceivedMatch() {
		return false
	}

	switch ml.conf.Funnel.MatchPolicy {
	case PolicyEveryThird:
		if q.IsPremium {
			return likesUsed > 0 && likesUsed%3 == 0
		}
		return likesUsed == 1
	case PolicyProfileCompletion:
		// Match is tied to profile completion, never to a like.
		return false
	default: // fifth-like
		if q.IsPremium {
			return likesUsed > 0 && likesUsed%ml.conf.Funnel.MinLikesForMatch == 0
		}
		return likesUsed == ml.conf.Funnel.MinLikesForMatch
	}
}

// RegisterMatch mirrors RegisterLike's admit/deny pattern with a budget
// of exactly one free match per device.
func (ml *MatchLimiter) RegisterMatch() bool {
	maxFree := ml.conf.Funnel.MaxFreeMatches

	allowed := false
	count := 0
	err := ml.store.Update(store.KeyMatchQuota, func(current []byte) ([]byte, error) {
		q := ml.decode(current)
		if !q.IsPremium {
			if q.MatchCount >= maxFree || q.FreeMatchUsed || ml.lock.HasReceivedMatch() {
				return json.Marshal(q)
			}
		}
		q.MatchCount++
		if !q.IsPremium {
			q.HasReachedLimit = q.MatchCount >= maxFree
			q.FreeMatchUsed = true
		}
		if q.FirstMatchAt == "" {
			q.FirstMatchAt = ml.now().UTC().Format(time.RFC3339)
		}
		allowed = true
		count = q.MatchCount
		return json.Marshal(q)
	})
	if err != nil {
		ml.logger.Errorf(providers.TypeApp, "Failed to register match: %s", err)
		return false
	}

	if !allowed {
		ml.metrics.IncQuotaDenied("match")
		return false
	}

	ml.lock.MarkMatchReceived()
	ml.metrics.IncMatchesGranted()
	ml.sink.Event("match", map[string]any{"matchCount": count})
	ml.logger.Debugf(providers.TypeApp, "Match registered: %d/%d", count, maxFree)
	return true
}

// MarkFreeMatchAsUsed force-consumes the free match as a side effect of
// an unrelated flow, e.g. finishing profile setup under the
// profile-completion policy.
func (ml *MatchLimiter) MarkFreeMatchAsUsed() {
	err := ml.store.Update(store.KeyMatchQuota, func(current []byte) ([]byte, error) {
		q := ml.decode(current)
		q.FreeMatchUsed = true
		q.HasReachedLimit = true
		if q.MatchCount < 1 {
			q.MatchCount = 1
		}
		if q.FirstMatchAt == "" {
			q.FirstMatchAt = ml.now().UTC().Format(time.RFC3339)
		}
		return json.Marshal(q)
	})
	if err != nil {
		ml.logger.Errorf(providers.TypeApp, "Failed to mark free match as used: %s", err)
		return
	}
	ml.lock.MarkMatchReceived()
	ml.sink.Event("match", map[string]any{"forced": true})
	ml.logger.Infof(providers.TypeApp, "Free match consumed")
}

func (ml *MatchLimiter) EnterPremiumMode() {
	err := ml.store.Update(store.KeyMatchQuota, func(current []byte) ([]byte, error) {
		q := ml.decode(current)
		q.IsPremium = true
		q.HasReachedLimit = false
		return json.Marshal(q)
	})
	if err != nil {
		ml.logger.Errorf(providers.TypeApp, "Failed to enter premium mode: %s", err)
		return
	}
	ml.logger.Infof(providers.TypeApp, "Premium mode activated for matches")
}

func (ml *MatchLimiter) Reset() {
	if err := ml.store.Delete(store.KeyMatchQuota); err != nil {
		ml.logger.Errorf(providers.TypeApp, "Failed to reset match quota: %s", err)
	}
}
