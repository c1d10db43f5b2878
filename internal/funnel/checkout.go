package funnel

import (
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/store"
	"sparkd/internal/structures"
)

// Popup identifiers the coordinator knows how to restore.
const (
	PopupVipPlans         = "vipPlans"
	PopupInsistentPremium = "insistentPremium"
)

type checkoutReturnRecord struct {
	ReturnFromCheckout bool   `json:"returnFromCheckout"`
	LastPopup          string `json:"lastPopup,omitempty"`
}

type Plan struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// Checkout remembers which popup was showing before the visitor left
// for the external payment page and restores it on return. The payment
// destination is opaque; there is no callback channel, so everything
// rides on persisted state.
type Checkout struct {
	conf   *structures.Config
	store  store.Store
	lock   *DeviceLock
	sink   EventSink
	logger providers.Logger
}

func NewCheckout(conf *structures.Config, st store.Store, lock *DeviceLock, sink EventSink, logger providers.Logger) *Checkout {
	return &Checkout{conf: conf, store: st, lock: lock, sink: sink, logger: logger}
}

func (c *Checkout) decode(raw []byte) checkoutReturnRecord {
	if len(raw) == 0 {
		return checkoutReturnRecord{}
	}
	var rec checkoutReturnRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.Warnf(providers.TypeApp, "Corrupt checkout record, falling back to defaults: %s", err)
		return checkoutReturnRecord{}
	}
	return rec
}

// MarkGoingToCheckout persists the round-trip state immediately before
// the external redirect.
func (c *Checkout) MarkGoingToCheckout(popupID string) {
	if popupID != PopupVipPlans && popupID != PopupInsistentPremium {
		popupID = PopupVipPlans
	}
	err := c.store.Update(store.KeyCheckout, func(current []byte) ([]byte, error) {
		return json.Marshal(checkoutReturnRecord{ReturnFromCheckout: true, LastPopup: popupID})
	})
	if err != nil {
		c.logger.Errorf(providers.TypeApp, "Failed to mark checkout departure: %s", err)
		return
	}
	c.lock.SetReturnPopup(popupID)
}

// ShouldShowPopupImmediately is evaluated on every mount of a page that
// can show the upgrade popup. A capped device always shows a popup on
// return, regardless of the stale flag; the returnFromCheckout flag is
// cleared once consumed.
func (c *Checkout) ShouldShowPopupImmediately() (bool, string) {
	raw, _, err := c.store.Get(store.KeyCheckout)
	if err != nil {
		c.logger.Errorf(providers.TypeApp, "Failed to read checkout record: %s", err)
	}
	rec := c.decode(raw)
	locked := c.lock.IsLikesBlocked()

	if !locked && !rec.ReturnFromCheckout {
		return false, ""
	}

	if rec.ReturnFromCheckout {
		clearErr := c.store.Update(store.KeyCheckout, func(current []byte) ([]byte, error) {
			cur := c.decode(current)
			cur.ReturnFromCheckout = false
			return json.Marshal(cur)
		})
		if clearErr != nil {
			c.logger.Errorf(providers.TypeApp, "Failed to clear checkout return flag: %s", clearErr)
		}
	}

	popup := rec.LastPopup
	if popup == "" {
		popup = c.lock.ReturnPopup()
	}
	if popup != PopupVipPlans && popup != PopupInsistentPremium {
		popup = PopupVipPlans
	}
	return true, popup
}

// PopupDelay is the fixed reveal delay the UI applies before re-opening
// the restored popup.
func (c *Checkout) PopupDelay() time.Duration {
	return c.conf.Funnel.PopupDelay
}

// ClearCheckoutState is called only on a genuine purchase confirmation.
func (c *Checkout) ClearCheckoutState() {
	if err := c.store.Delete(store.KeyCheckout); err != nil {
		c.logger.Errorf(providers.TypeApp, "Failed to clear checkout state: %s", err)
	}
	c.lock.ClearReturnPopup()
}

// CheckoutURL resolves the opaque external payment URL for a plan and
// fires the checkout-initiated event.
func (c *Checkout) CheckoutURL(planID string) (string, error) {
	plan, ok := c.conf.Checkout.Plans[planID]
	if !ok {
		return "", fmt.Errorf("unknown plan %q", planID)
	}
	c.sink.Event("checkout-initiated", map[string]any{"plan": planID, "price": plan.Price})
	return plan.URL, nil
}

// Plans returns the catalogue ordered by plan id for stable rendering.
func (c *Checkout) Plans() []Plan {
	plans := make([]Plan, 0, len(c.conf.Checkout.Plans))
	for id, p := range c.conf.Checkout.Plans {
		plans = append(plans, Plan{ID: id, Name: p.Name, Price: p.Price, URL: p.URL})
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans
}
