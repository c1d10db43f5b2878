package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkd/internal/testutil"
)

type likesHarness struct {
	store   *testutil.MockStore
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	sink    *testutil.MockSink
	lock    *DeviceLock
	ledger  *Ledger
	limiter *LikesLimiter
}

func newLikesHarness() *likesHarness {
	h := &likesHarness{
		store:   testutil.NewMockStore(),
		logger:  &testutil.MockLogger{},
		metrics: testutil.NewMockMetrics(),
		sink:    &testutil.MockSink{},
	}
	h.lock = NewDeviceLock(h.store, h.logger)
	h.ledger = NewLedger(h.store, h.lock, h.logger, h.metrics)
	h.limiter = NewLikesLimiter(testutil.TestConfig(), h.store, h.lock, h.ledger, h.sink, h.logger, h.metrics)
	return h
}

func TestLikesLimiter_FreshDeviceCanLike(t *testing.T) {
	h := newLikesHarness()
	assert.True(t, h.limiter.CanLike())
	assert.Equal(t, 0, h.limiter.Snapshot().LikesUsed)
}

func TestLikesLimiter_CountsUpToMaxFreeLikes(t *testing.T) {
	h := newLikesHarness()

	for i := 1; i <= 5; i++ {
		require.True(t, h.limiter.RegisterLike(), "like %d should be admitted", i)
		assert.Equal(t, i, h.limiter.Snapshot().LikesUsed)
	}
	assert.True(t, h.limiter.Snapshot().HasReachedLimit)
}

func TestLikesLimiter_SixthLikeDenied(t *testing.T) {
	h := newLikesHarness()

	for i := 0; i < 5; i++ {
		require.True(t, h.limiter.RegisterLike())
	}

	assert.False(t, h.limiter.RegisterLike())
	assert.Equal(t, 5, h.limiter.Snapshot().LikesUsed, "denied like must not advance the counter")
	assert.Equal(t, 1, h.metrics.QuotaDenied["like"])
}

func TestLikesLimiter_ReachingLimitLocksDevice(t *testing.T) {
	h := newLikesHarness()

	for i := 0; i < 4; i++ {
		require.True(t, h.limiter.RegisterLike())
	}
	assert.False(t, h.lock.IsLikesBlocked())

	require.True(t, h.limiter.RegisterLike())
	assert.True(t, h.lock.IsLikesBlocked())
	assert.True(t, h.lock.IsGloballyLocked())
}

func TestLikesLimiter_EachLikeCreditsReward(t *testing.T) {
	h := newLikesHarness()

	require.True(t, h.limiter.RegisterLike())
	assert.InDelta(t, 25.0, h.ledger.Balance(), 1e-9)

	require.True(t, h.limiter.RegisterLike())
	assert.InDelta(t, 50.0, h.ledger.Balance(), 1e-9)
}

func TestLikesLimiter_AccountResetDoesNotReopenQuota(t *testing.T) {
	h := newLikesHarness()

	for i := 0; i < 5; i++ {
		require.True(t, h.limiter.RegisterLike())
	}

	// A fresh signup wipes the account-scoped quota, but the device lock
	// record survives and keeps the answer at no.
	h.limiter.Reset()
	assert.Equal(t, 0, h.limiter.Snapshot().LikesUsed)
	assert.False(t, h.limiter.CanLike())
	assert.False(t, h.limiter.RegisterLike())
}

func TestLikesLimiter_PremiumBypassesQuota(t *testing.T) {
	h := newLikesHarness()

	for i := 0; i < 5; i++ {
		require.True(t, h.limiter.RegisterLike())
	}
	require.False(t, h.limiter.CanLike())

	h.limiter.EnterPremiumMode()

	assert.True(t, h.limiter.CanLike())
	for i := 0; i < 10; i++ {
		assert.True(t, h.limiter.RegisterLike())
	}
	assert.Equal(t, 15, h.limiter.Snapshot().LikesUsed)
	assert.False(t, h.limiter.Snapshot().HasReachedLimit)
}

func TestLikesLimiter_EnterPremiumModeIdempotent(t *testing.T) {
	h := newLikesHarness()

	h.limiter.EnterPremiumMode()
	h.limiter.EnterPremiumMode()
	assert.True(t, h.limiter.Snapshot().IsPremium)
}

func TestLikesLimiter_CorruptRecordFallsBackToDefaults(t *testing.T) {
	h := newLikesHarness()
	require.NoError(t, h.store.Set("likesLimitData", []byte("{not json")))

	assert.Equal(t, 0, h.limiter.Snapshot().LikesUsed)
	assert.True(t, h.limiter.CanLike())
	assert.True(t, h.logger.HasLevel("warn"))
}

func TestLikesLimiter_EmitsLikeEvents(t *testing.T) {
	h := newLikesHarness()

	require.True(t, h.limiter.RegisterLike())
	require.True(t, h.limiter.RegisterLike())
	assert.Equal(t, 2, h.sink.Count("like"))
	assert.Equal(t, 2, h.metrics.LikesGranted)
}

func TestLikesUsed_Standalone(t *testing.T) {
	h := newLikesHarness()
	assert.Equal(t, 0, LikesUsed(h.store))

	require.True(t, h.limiter.RegisterLike())
	assert.Equal(t, 1, LikesUsed(h.store))
}

func TestHasReachedLikesLimit_Standalone(t *testing.T) {
	h := newLikesHarness()
	assert.False(t, HasReachedLikesLimit(h.store, 5))

	for i := 0; i < 5; i++ {
		require.True(t, h.limiter.RegisterLike())
	}
	assert.True(t, HasReachedLikesLimit(h.store, 5))

	h.limiter.EnterPremiumMode()
	assert.False(t, HasReachedLikesLimit(h.store, 5))
}
