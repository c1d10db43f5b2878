package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkd/internal/testutil"
)

func newLockHarness() (*DeviceLock, *testutil.MockStore) {
	st := testutil.NewMockStore()
	return NewDeviceLock(st, &testutil.MockLogger{}), st
}

func TestDeviceLock_FreshDeviceIsUnlocked(t *testing.T) {
	lock, _ := newLockHarness()

	assert.False(t, lock.IsLikesBlocked())
	assert.False(t, lock.IsGloballyLocked())
	assert.False(t, lock.IsReturningDevice())
	assert.False(t, lock.HasReceivedMatch())
}

func TestDeviceLock_FirstRecordInitialized(t *testing.T) {
	lock, _ := newLockHarness()

	data := lock.Data()
	assert.Equal(t, 1, data.AccountsCreated)
	assert.NotEmpty(t, data.FirstAccountCreatedAt)
}

func TestDeviceLock_MarkLikesCompletedLocksGlobally(t *testing.T) {
	lock, _ := newLockHarness()

	lock.MarkLikesCompleted()

	assert.True(t, lock.IsLikesBlocked())
	assert.True(t, lock.IsGloballyLocked())
	assert.True(t, lock.IsReturningDevice())
}

func TestDeviceLock_LockIsMonotonic(t *testing.T) {
	lock, _ := newLockHarness()

	lock.MarkLikesCompleted()
	lock.MarkMatchReceived()
	lock.MarkConversationFinalized()

	// No pathway flips any of these back.
	assert.True(t, lock.IsLikesBlocked())
	assert.True(t, lock.HasReceivedMatch())
	assert.True(t, lock.Data().ConversationsFinalized)
}

func TestDeviceLock_NewAccountsAccumulate(t *testing.T) {
	lock, _ := newLockHarness()

	lock.RegisterNewAccount()
	lock.RegisterNewAccount()

	data := lock.Data()
	assert.Equal(t, 3, data.AccountsCreated)
	assert.True(t, lock.IsReturningDevice())
}

func TestDeviceLock_TotalLikesIsHighWaterMark(t *testing.T) {
	lock, _ := newLockHarness()

	lock.UpdateTotalLikes(3)
	lock.UpdateTotalLikes(5)
	lock.UpdateTotalLikes(2)

	assert.Equal(t, 5, lock.PersistedLikes())
}

func TestDeviceLock_TotalBalanceIsHighWaterMark(t *testing.T) {
	lock, _ := newLockHarness()

	lock.UpdateTotalBalance(125.0)
	lock.UpdateTotalBalance(75.0)

	assert.InDelta(t, 125.0, lock.PersistedBalance(), 1e-9)
}

func TestDeviceLock_ReturnPopupRoundTrip(t *testing.T) {
	lock, _ := newLockHarness()

	lock.SetReturnPopup("vipPlans")
	assert.Equal(t, "vipPlans", lock.ReturnPopup())

	lock.ClearReturnPopup()
	assert.Empty(t, lock.ReturnPopup())
}

func TestDeviceLock_CorruptRecordFallsBackToDefaults(t *testing.T) {
	st := testutil.NewMockStore()
	logger := &testutil.MockLogger{}
	lock := NewDeviceLock(st, logger)
	require.NoError(t, st.Set("deviceLockData", []byte("####")))

	assert.False(t, lock.IsLikesBlocked())
	assert.Equal(t, 1, lock.Data().AccountsCreated)
	assert.True(t, logger.HasLevel("warn"))
}

func TestDeviceLock_DebugResetWipesRecord(t *testing.T) {
	lock, st := newLockHarness()

	lock.MarkLikesCompleted()
	lock.DebugReset()

	assert.False(t, lock.IsLikesBlocked())
	_, ok, err := st.Get("deviceLockData")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckDeviceLocked_Standalone(t *testing.T) {
	lock, st := newLockHarness()

	assert.False(t, CheckDeviceLocked(st))
	lock.MarkLikesCompleted()
	assert.True(t, CheckDeviceLocked(st))
}
