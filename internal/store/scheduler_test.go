package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkd/internal/testutil"
)

func TestScheduler_RestoreDelegates(t *testing.T) {
	st := testutil.NewMockStore()
	s := NewScheduler(testutil.TestConfig(), &testutil.MockLogger{}, testutil.NewMockMetrics(), st)

	require.NoError(t, s.Restore())
	assert.Equal(t, 1, st.RestoreCalls)
}

func TestScheduler_PersistDelegatesAndObserves(t *testing.T) {
	st := testutil.NewMockStore()
	s := NewScheduler(testutil.TestConfig(), &testutil.MockLogger{}, testutil.NewMockMetrics(), st)

	require.NoError(t, s.Persist())
	require.NoError(t, s.Persist())
	assert.Equal(t, 2, st.PersistCalls)
}

func TestScheduler_PeriodicPersist(t *testing.T) {
	conf := testutil.TestConfig()
	conf.Persistence.SaveInterval = time.Second

	st := testutil.NewMockStore()
	s := NewScheduler(conf, &testutil.MockLogger{}, testutil.NewMockMetrics(), st)

	s.Init()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return st.PersistCount() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestZstdCompressor_RoundTrip(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	payload := []byte(`{"likesUsed":5,"hasReachedLimit":true}`)
	compressed, err := c.Compress(payload)
	require.NoError(t, err)

	restored, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, restored)
}

func TestZstdCompressor_RejectsGarbage(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decompress([]byte("plain text"))
	assert.Error(t, err)
}
