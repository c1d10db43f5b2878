package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkd/internal/structures"
	"sparkd/internal/testutil"
)

type flowHarness struct {
	conf     *structures.Config
	store    *testutil.MockStore
	metrics  *testutil.MockMetrics
	sink     *testutil.MockSink
	lock     *DeviceLock
	ledger   *Ledger
	likes    *LikesLimiter
	matches  *MatchLimiter
	chat     *ChatEngine
	checkout *Checkout
}

func newFlowHarness() *flowHarness {
	h := &flowHarness{
		conf:    testutil.TestConfig(),
		store:   testutil.NewMockStore(),
		metrics: testutil.NewMockMetrics(),
		sink:    &testutil.MockSink{},
	}
	logger := &testutil.MockLogger{}
	h.lock = NewDeviceLock(h.store, logger)
	h.ledger = NewLedger(h.store, h.lock, logger, h.metrics)
	h.likes = NewLikesLimiter(h.conf, h.store, h.lock, h.ledger, h.sink, logger, h.metrics)
	h.matches = NewMatchLimiter(h.conf, h.store, h.lock, h.sink, logger, h.metrics)
	h.chat = NewChatEngine(h.conf, h.store, h.ledger, h.lock, h.likes, h.sink, logger, h.metrics)
	h.checkout = NewCheckout(h.conf, h.store, h.lock, h.sink, logger)
	return h
}

// Walks the whole funnel on a fresh device: five rewarded likes, the
// match on the fifth, the capped conversation with its one-shot gift,
// the checkout round trip, and finally the purchase unlock.
func TestFunnelFlow_FreshDeviceEndToEnd(t *testing.T) {
	h := newFlowHarness()

	// Discovery: five likes get in, each one paid, the fifth matches.
	for i := 1; i <= 5; i++ {
		require.True(t, h.likes.RegisterLike())
		granted := h.matches.ShouldGrantMatch(LikesUsed(h.store))
		if i < 5 {
			assert.False(t, granted, "no match before the fifth like")
		} else {
			require.True(t, granted)
			require.True(t, h.matches.RegisterMatch())
		}
	}
	assert.InDelta(t, 125.0, h.ledger.Balance(), 1e-9)
	assert.True(t, h.lock.IsLikesBlocked())
	assert.True(t, h.lock.HasReceivedMatch())
	assert.False(t, h.likes.RegisterLike())

	// Chat: four messages, the gift lands on the second, the prompt on
	// the fourth.
	h.chat.Opening("Amanda")
	var sawGift, sawPrompt bool
	for i := 0; i < 4; i++ {
		reply, ok := h.chat.SendVisitorMessage("hello there")
		require.True(t, ok)
		if reply.GiftAmount > 0 {
			sawGift = true
		}
		if reply.UpgradePrompt {
			sawPrompt = true
		}
	}
	assert.True(t, sawGift)
	assert.True(t, sawPrompt)
	assert.InDelta(t, 175.0, h.ledger.Balance(), 1e-9)

	_, ok := h.chat.SendVisitorMessage("one more?")
	assert.False(t, ok)

	// Checkout round trip without paying: the popup comes right back.
	url, err := h.checkout.CheckoutURL("plano1")
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	h.checkout.MarkGoingToCheckout(PopupVipPlans)

	show, popup := h.checkout.ShouldShowPopupImmediately()
	assert.True(t, show)
	assert.Equal(t, PopupVipPlans, popup)

	// Purchase: everything opens up, the device stays marked.
	h.likes.EnterPremiumMode()
	h.matches.EnterPremiumMode()
	h.checkout.ClearCheckoutState()

	assert.True(t, h.likes.RegisterLike())
	_, ok = h.chat.SendVisitorMessage("premium now")
	assert.True(t, ok)
	assert.True(t, h.lock.IsGloballyLocked(), "the lock record outlives the upgrade")
}

// A second account on the same device inherits every cap.
func TestFunnelFlow_SecondAccountStaysCapped(t *testing.T) {
	h := newFlowHarness()

	for i := 0; i < 5; i++ {
		require.True(t, h.likes.RegisterLike())
	}
	require.True(t, h.matches.RegisterMatch())
	balance := h.ledger.Balance()

	// Signup on the same device: account records reset, lock survives.
	h.likes.Reset()
	h.matches.Reset()
	h.chat.ResetConversation()
	h.lock.RegisterNewAccount()

	assert.False(t, h.likes.CanLike())
	assert.False(t, h.likes.RegisterLike())
	assert.False(t, h.matches.RegisterMatch())
	assert.True(t, h.lock.IsReturningDevice())
	assert.Equal(t, 2, h.lock.Data().AccountsCreated)

	// The device remembers what was earned even though the account
	// balance starts over.
	assert.InDelta(t, balance, h.lock.PersistedBalance(), 1e-9)
	assert.Equal(t, 5, h.lock.PersistedLikes())
}
