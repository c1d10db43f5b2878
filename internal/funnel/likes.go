package funnel

import (
	"time"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/store"
	"sparkd/internal/structures"
)

type LikesQuota struct {
	LikesUsed       int    `json:"likesUsed"`
	HasReachedLimit bool   `json:"hasReachedLimit"`
	IsPremium       bool   `json:"isPremium"`
	LastLikeAt      string `json:"lastLikeAt,omitempty"`
}

// LikesLimiter gates the free "like" quota. The DeviceLock is consulted
// before every decision and overrides a fresh quota record: a new
// account on a capped device stays capped.
type LikesLimiter struct {
	conf    *structures.Config
	store   store.Store
	lock    *DeviceLock
	ledger  *Ledger
	sink    EventSink
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewLikesLimiter(conf *structures.Config, st store.Store, lock *DeviceLock, ledger *Ledger, sink EventSink, logger providers.Logger, metrics providers.MetricsProviderInterface) *LikesLimiter {
	return &LikesLimiter{
		conf:    conf,
		store:   st,
		lock:    lock,
		ledger:  ledger,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (ll *LikesLimiter) decode(raw []byte) LikesQuota {
	if len(raw) == 0 {
		return LikesQuota{}
	}
	var q LikesQuota
	if err := json.Unmarshal(raw, &q); err != nil {
		ll.logger.Warnf(providers.TypeApp, "Corrupt likes quota record, falling back to defaults: %s", err)
		return LikesQuota{}
	}
	return q
}

func (ll *LikesLimiter) Snapshot() LikesQuota {
	raw, _, err := ll.store.Get(store.KeyLikesQuota)
	if err != nil {
		ll.logger.Errorf(providers.TypeApp, "Failed to read likes quota: %s", err)
		return LikesQuota{}
	}
	return ll.decode(raw)
}

func (ll *LikesLimiter) CanLike() bool {
	q := ll.Snapshot()
	if q.IsPremium {
		return true
	}
	return !ll.lock.IsLikesBlocked() && q.LikesUsed < ll.conf.Funnel.MaxFreeLikes
}

// RegisterLike admits or denies one like. Premium accounts count
// unboundedly; free accounts stop at maxFreeLikes, at which point the
// device is locked for good in the same flow.
func (ll *LikesLimiter) RegisterLike() bool {
	maxFree := ll.conf.Funnel.MaxFreeLikes

	allowed := false
	reachedLimit := false
	used := 0
	err := ll.store.Update(store.KeyLikesQuota, func(current []byte) ([]byte, error) {
		q := ll.decode(current)
		if !q.IsPremium {
			if ll.lock.IsLikesBlocked() || q.LikesUsed >= maxFree {
				return json.Marshal(q)
			}
		}
		q.LikesUsed++
		q.LastLikeAt = ll.now().UTC().Format(time.RFC3339)
		if !q.IsPremium {
			q.HasReachedLimit = q.LikesUsed >= maxFree
		}
		allowed = true
		reachedLimit = q.HasReachedLimit
		used = q.LikesUsed
		return json.Marshal(q)
	})
	if err != nil {
		ll.logger.Errorf(providers.TypeApp, "Failed to register like: %s", err)
		return false
	}

	if !allowed {
		ll.metrics.IncQuotaDenied("like")
		return false
	}

	ll.lock.UpdateTotalLikes(used)
	if reachedLimit {
		ll.lock.MarkLikesCompleted()
	}
	if reward := ll.conf.Funnel.LikeReward; reward > 0 {
		ll.ledger.Add(reward)
	}
	ll.metrics.IncLikesGranted()
	ll.sink.Event("like", map[string]any{"likesUsed": used})
	ll.logger.Debugf(providers.TypeApp, "Like registered: %d/%d", used, maxFree)
	return true
}

// EnterPremiumMode is a monotonic, idempotent unlock.
func (ll *LikesLimiter) EnterPremiumMode() {
	err := ll.store.Update(store.KeyLikesQuota, func(current []byte) ([]byte, error) {
		q := ll.decode(current)
		q.IsPremium = true
		q.HasReachedLimit = false
		return json.Marshal(q)
	})
	if err != nil {
		ll.logger.Errorf(providers.TypeApp, "Failed to enter premium mode: %s", err)
		return
	}
	ll.logger.Infof(providers.TypeApp, "Premium mode activated for likes")
}

// Reset clears the account-scoped quota only. The device lock survives,
// which is the whole point.
func (ll *LikesLimiter) Reset() {
	if err := ll.store.Delete(store.KeyLikesQuota); err != nil {
		ll.logger.Errorf(providers.TypeApp, "Failed to reset likes quota: %s", err)
	}
}

// LikesUsed reads the counter without a constructed limiter.
func LikesUsed(st store.Store) int {
	raw, ok, err := st.Get(store.KeyLikesQuota)
	if err != nil || !ok {
		return 0
	}
	var q LikesQuota
	if err := json.Unmarshal(raw, &q); err != nil {
		return 0
	}
	return q.LikesUsed
}

// HasReachedLikesLimit reads the capped state without a constructed
// limiter.
func HasReachedLikesLimit(st store.Store, maxFreeLikes int) bool {
	raw, ok, err := st.Get(store.KeyLikesQuota)
	if err != nil || !ok {
		return false
	}
	var q LikesQuota
	if err := json.Unmarshal(raw, &q); err != nil {
		return false
	}
	return !q.IsPremium && q.LikesUsed >= maxFreeLikes
}
