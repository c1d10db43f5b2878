package funnel

import (
	"math"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/store"
)

type balanceRecord struct {
	Amount float64 `json:"amount"`
}

// Ledger tracks the simulated reward balance. Amounts are rounded to
// two decimal places after every mutation.
type Ledger struct {
	store   store.Store
	lock    *DeviceLock
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewLedger(st store.Store, lock *DeviceLock, logger providers.Logger, metrics providers.MetricsProviderInterface) *Ledger {
	return &Ledger{store: st, lock: lock, logger: logger, metrics: metrics}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (l *Ledger) decode(raw []byte) balanceRecord {
	if len(raw) == 0 {
		return balanceRecord{}
	}
	var rec balanceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		l.logger.Warnf(providers.TypeApp, "Corrupt balance record, falling back to zero: %s", err)
		return balanceRecord{}
	}
	if rec.Amount < 0 {
		rec.Amount = 0
	}
	return rec
}

// Balance lazily creates the record with a zero amount on first read.
func (l *Ledger) Balance() float64 {
	raw, _, err := l.store.Get(store.KeyBalance)
	if err != nil {
		l.logger.Errorf(providers.TypeApp, "Failed to read balance: %s", err)
		return 0
	}
	return l.decode(raw).Amount
}

// Add credits the balance and refreshes the device-wide high-water
// mark. Non-positive amounts are ignored.
func (l *Ledger) Add(amount float64) float64 {
	if amount <= 0 {
		return l.Balance()
	}

	var result float64
	err := l.store.Update(store.KeyBalance, func(current []byte) ([]byte, error) {
		rec := l.decode(current)
		rec.Amount = round2(rec.Amount + amount)
		result = rec.Amount
		return json.Marshal(rec)
	})
	if err != nil {
		l.logger.Errorf(providers.TypeApp, "Failed to add balance: %s", err)
		return l.Balance()
	}

	l.lock.UpdateTotalBalance(result)
	l.metrics.SetBalance(result)
	return result
}

// Deduct returns false and leaves the balance unchanged when the
// amount exceeds the available balance.
func (l *Ledger) Deduct(amount float64) bool {
	if amount <= 0 {
		return false
	}

	ok := false
	err := l.store.Update(store.KeyBalance, func(current []byte) ([]byte, error) {
		rec := l.decode(current)
		if rec.Amount >= amount {
			rec.Amount = round2(rec.Amount - amount)
			ok = true
		}
		return json.Marshal(rec)
	})
	if err != nil {
		l.logger.Errorf(providers.TypeApp, "Failed to deduct balance: %s", err)
		return false
	}
	if ok {
		l.metrics.SetBalance(l.Balance())
	}
	return ok
}

func (l *Ledger) HasEnough(amount float64) bool {
	return l.Balance() >= amount
}

func (l *Ledger) Reset() {
	if err := l.store.Delete(store.KeyBalance); err != nil {
		l.logger.Errorf(providers.TypeApp, "Failed to reset balance: %s", err)
	}
	l.metrics.SetBalance(0)
}
