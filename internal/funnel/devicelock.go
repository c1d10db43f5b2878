package funnel

import (
	"time"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/store"
)

// DeviceLockData is scoped to the device, not to any single account.
// A new account created on the same device inherits this record, which
// is what prevents re-earning the free quota by signing up again.
type DeviceLockData struct {
	LikesCompleted         bool    `json:"likesCompleted"`
	ConversationsFinalized bool    `json:"conversationsFinalized"`
	GlobalLocked           bool    `json:"globalLocked"`
	TotalLikesEver         int     `json:"totalLikesEver"`
	TotalBalanceEver       float64 `json:"totalBalanceEver"`
	MatchReceived          bool    `json:"matchReceived"`
	FirstAccountCreatedAt  string  `json:"firstAccountCreatedAt"`
	AccountsCreated        int     `json:"accountsCreated"`
	ReturnToPopup          string  `json:"returnToPopup,omitempty"`
}

type DeviceLock struct {
	store  store.Store
	logger providers.Logger
	now    func() time.Time
}

func NewDeviceLock(st store.Store, logger providers.Logger) *DeviceLock {
	return &DeviceLock{store: st, logger: logger, now: time.Now}
}

func initialLockData(now time.Time) DeviceLockData {
	return DeviceLockData{
		TotalLikesEver:        0,
		TotalBalanceEver:      0,
		FirstAccountCreatedAt: now.UTC().Format(time.RFC3339),
		AccountsCreated:       1,
	}
}

func (d *DeviceLock) decode(raw []byte) DeviceLockData {
	data := initialLockData(d.now())
	if len(raw) == 0 {
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		d.logger.Warnf(providers.TypeApp, "Corrupt device lock record, falling back to defaults: %s", err)
		return initialLockData(d.now())
	}
	return data
}

// Data returns the current device lock record, freshly initialized when
// none exists yet.
func (d *DeviceLock) Data() DeviceLockData {
	raw, _, err := d.store.Get(store.KeyDeviceLock)
	if err != nil {
		d.logger.Errorf(providers.TypeApp, "Failed to read device lock: %s", err)
		return initialLockData(d.now())
	}
	return d.decode(raw)
}

// mutate applies fn to the record as one serialized read-modify-write.
func (d *DeviceLock) mutate(fn func(data *DeviceLockData)) {
	err := d.store.Update(store.KeyDeviceLock, func(current []byte) ([]byte, error) {
		data := d.decode(current)
		fn(&data)
		return json.Marshal(data)
	})
	if err != nil {
		d.logger.Errorf(providers.TypeApp, "Failed to update device lock: %s", err)
	}
}

func (d *DeviceLock) IsLikesBlocked() bool {
	data := d.Data()
	return data.LikesCompleted || data.GlobalLocked
}

func (d *DeviceLock) IsGloballyLocked() bool {
	return d.Data().GlobalLocked
}

func (d *DeviceLock) IsReturningDevice() bool {
	data := d.Data()
	return data.AccountsCreated > 1 || data.LikesCompleted
}

func (d *DeviceLock) HasReceivedMatch() bool {
	return d.Data().MatchReceived
}

// MarkLikesCompleted locks the device for good. Irreversible outside of
// DebugReset.
func (d *DeviceLock) MarkLikesCompleted() {
	d.mutate(func(data *DeviceLockData) {
		data.LikesCompleted = true
		data.GlobalLocked = true
	})
	d.logger.Infof(providers.TypeApp, "Device locked: free likes completed")
}

func (d *DeviceLock) MarkMatchReceived() {
	d.mutate(func(data *DeviceLockData) {
		data.MatchReceived = true
	})
}

func (d *DeviceLock) MarkConversationFinalized() {
	d.mutate(func(data *DeviceLockData) {
		data.ConversationsFinalized = true
	})
}

func (d *DeviceLock) RegisterNewAccount() {
	d.mutate(func(data *DeviceLockData) {
		data.AccountsCreated++
	})
	d.logger.Infof(providers.TypeApp, "New account registered on this device")
}

// UpdateTotalLikes keeps a high-water mark; a lower value never wins.
func (d *DeviceLock) UpdateTotalLikes(n int) {
	d.mutate(func(data *DeviceLockData) {
		data.TotalLikesEver = max(data.TotalLikesEver, n)
	})
}

func (d *DeviceLock) UpdateTotalBalance(v float64) {
	d.mutate(func(data *DeviceLockData) {
		if v > data.TotalBalanceEver {
			data.TotalBalanceEver = v
		}
	})
}

func (d *DeviceLock) PersistedLikes() int {
	return d.Data().TotalLikesEver
}

func (d *DeviceLock) PersistedBalance() float64 {
	return d.Data().TotalBalanceEver
}

func (d *DeviceLock) SetReturnPopup(popup string) {
	d.mutate(func(data *DeviceLockData) {
		data.ReturnToPopup = popup
	})
}

func (d *DeviceLock) ReturnPopup() string {
	return d.Data().ReturnToPopup
}

func (d *DeviceLock) ClearReturnPopup() {
	d.mutate(func(data *DeviceLockData) {
		data.ReturnToPopup = ""
	})
}

// DebugReset wipes the device lock record. Never reachable from the
// normal funnel flow.
func (d *DeviceLock) DebugReset() {
	if err := d.store.Delete(store.KeyDeviceLock); err != nil {
		d.logger.Errorf(providers.TypeApp, "Failed to reset device lock: %s", err)
	}
}

// CheckDeviceLocked reports whether the device is capped without
// constructing a DeviceLock. Used at page mount before any interactive
// state exists.
func CheckDeviceLocked(st store.Store) bool {
	raw, ok, err := st.Get(store.KeyDeviceLock)
	if err != nil || !ok {
		return false
	}
	var data DeviceLockData
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}
	return data.GlobalLocked || data.LikesCompleted
}
