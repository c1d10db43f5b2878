package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkd/internal/structures"
	"sparkd/internal/testutil"
)

type matchHarness struct {
	conf    *structures.Config
	store   *testutil.MockStore
	metrics *testutil.MockMetrics
	sink    *testutil.MockSink
	lock    *DeviceLock
	limiter *MatchLimiter
}

func newMatchHarness(policy string) *matchHarness {
	h := &matchHarness{
		conf:    testutil.TestConfig(),
		store:   testutil.NewMockStore(),
		metrics: testutil.NewMockMetrics(),
		sink:    &testutil.MockSink{},
	}
	h.conf.Funnel.MatchPolicy = policy
	logger := &testutil.MockLogger{}
	h.lock = NewDeviceLock(h.store, logger)
	h.limiter = NewMatchLimiter(h.conf, h.store, h.lock, h.sink, logger, h.metrics)
	return h
}

func TestMatchLimiter_FifthLikeGrantsMatch(t *testing.T) {
	h := newMatchHarness(PolicyFifthLike)

	for likes := 1; likes <= 4; likes++ {
		assert.False(t, h.limiter.ShouldGrantMatch(likes), "no match at %d likes", likes)
	}
	assert.True(t, h.limiter.ShouldGrantMatch(5))
}

func TestMatchLimiter_EveryThirdPolicyFreeUser(t *testing.T) {
	h := newMatchHarness(PolicyEveryThird)

	assert.True(t, h.limiter.ShouldGrantMatch(1))
	assert.False(t, h.limiter.ShouldGrantMatch(2))
	assert.False(t, h.limiter.ShouldGrantMatch(3))
}

func TestMatchLimiter_EveryThirdPolicyPremium(t *testing.T) {
	h := newMatchHarness(PolicyEveryThird)
	h.limiter.EnterPremiumMode()

	assert.False(t, h.limiter.ShouldGrantMatch(1))
	assert.True(t, h.limiter.ShouldGrantMatch(3))
	assert.True(t, h.limiter.ShouldGrantMatch(6))
}

func TestMatchLimiter_ProfileCompletionPolicyNeverMatchesOnLike(t *testing.T) {
	h := newMatchHarness(PolicyProfileCompletion)

	for likes := 1; likes <= 15; likes++ {
		assert.False(t, h.limiter.ShouldGrantMatch(likes))
	}
}

func TestMatchLimiter_OneFreeMatchPerDevice(t *testing.T) {
	h := newMatchHarness(PolicyFifthLike)

	require.True(t, h.limiter.RegisterMatch())
	assert.False(t, h.limiter.RegisterMatch())
	assert.Equal(t, 1, h.limiter.Snapshot().MatchCount)
	assert.Equal(t, 1, h.metrics.QuotaDenied["match"])
	assert.Equal(t, 1, h.sink.Count("match"))
}

func TestMatchLimiter_MatchLatchesOnDevice(t *testing.T) {
	h := newMatchHarness(PolicyFifthLike)

	require.True(t, h.limiter.RegisterMatch())
	assert.True(t, h.lock.HasReceivedMatch())

	// The account-scoped quota resets on signup; the device latch does
	// not, so the new account still gets nothing.
	h.limiter.Reset()
	assert.False(t, h.limiter.CanInteract())
	assert.False(t, h.limiter.ShouldGrantMatch(5))
	assert.False(t, h.limiter.RegisterMatch())
}

func TestMatchLimiter_MarkFreeMatchAsUsed(t *testing.T) {
	h := newMatchHarness(PolicyProfileCompletion)

	h.limiter.MarkFreeMatchAsUsed()

	q := h.limiter.Snapshot()
	assert.True(t, q.FreeMatchUsed)
	assert.True(t, q.HasReachedLimit)
	assert.Equal(t, 1, q.MatchCount)
	assert.NotEmpty(t, q.FirstMatchAt)
	assert.True(t, h.lock.HasReceivedMatch())
	assert.Equal(t, 1, h.sink.Count("match"))
}

func TestMatchLimiter_PremiumUnlimitedMatches(t *testing.T) {
	h := newMatchHarness(PolicyFifthLike)

	require.True(t, h.limiter.RegisterMatch())
	h.limiter.EnterPremiumMode()

	assert.True(t, h.limiter.CanInteract())
	for i := 0; i < 3; i++ {
		assert.True(t, h.limiter.RegisterMatch())
	}
	assert.Equal(t, 4, h.limiter.Snapshot().MatchCount)
}

func TestMatchLimiter_FirstMatchTimestampSetOnce(t *testing.T) {
	h := newMatchHarness(PolicyFifthLike)

	require.True(t, h.limiter.RegisterMatch())
	first := h.limiter.Snapshot().FirstMatchAt
	require.NotEmpty(t, first)

	h.limiter.EnterPremiumMode()
	require.True(t, h.limiter.RegisterMatch())
	assert.Equal(t, first, h.limiter.Snapshot().FirstMatchAt)
}

func TestMatchLimiter_CorruptRecordFallsBackToDefaults(t *testing.T) {
	h := newMatchHarness(PolicyFifthLike)
	require.NoError(t, h.store.Set("matchLimitData", []byte("[]")))

	assert.True(t, h.limiter.CanInteract())
	assert.Equal(t, 0, h.limiter.Snapshot().MatchCount)
}
