package store

// Well-known record keys, one per funnel concern. Every record is an
// independent JSON blob; callers never share keys across concerns.
const (
	KeyBalance    = "userBalance"
	KeyLikesQuota = "likesLimitData"
	KeyMatchQuota = "matchLimitData"
	KeyDeviceLock = "deviceLockData"
	KeyChatState  = "chatConversationState"
	KeyNavigation = "navigationState"
	KeyCheckout   = "checkoutReturnState"
	KeyLead       = "leadData"
	KeyCrownIndex = "lastCrownIndex"
)

// Store is a durable per-device key-value store. Implementations must
// serialize Update calls so each record's read-modify-write is atomic
// within one process.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Update(key string, fn func(current []byte) ([]byte, error)) error
	Delete(key string) error

	Restore() error
	Persist() error
	Close() error
}

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}
