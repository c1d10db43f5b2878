package tracker

import (
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"sparkd/internal/funnel"
	"sparkd/internal/providers"
	"sparkd/internal/store"
	"sparkd/internal/structures"
)

// LeadData is the per-device engagement record consumed by the external
// analytics collaborator. Only the firing guarantees matter here, not
// the wire format.
type LeadData struct {
	UserName        string            `json:"userName"`
	UserEmail       string            `json:"userEmail"`
	UserPixKey      string            `json:"userPixKey"`
	LikeCount       int               `json:"likeCount"`
	MsgCount        int               `json:"msgCount"`
	UserBalance     float64           `json:"userBalance"`
	EntryTime       string            `json:"entryTime"`
	MatchTime       string            `json:"matchTime,omitempty"`
	PurchaseTime    string            `json:"purchaseTime,omitempty"`
	UpdatedAt       string            `json:"updatedAt"`
	PagesVisited    []string          `json:"pagesVisited"`
	UTMs            map[string]string `json:"utms,omitempty"`
	IsVip           bool              `json:"isVip"`
	MatchedProfiles []string          `json:"matchedProfiles,omitempty"`
	Milestones      map[string]bool   `json:"milestones,omitempty"`
}

// Milestones fire exactly once per device; everything else is a plain
// counter event.
var milestoneEvents = map[string]bool{
	"signup":   true,
	"match":    true,
	"gift":     true,
	"purchase": true,
}

var utmKeys = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// Tracker is constructed once at app start and injected everywhere a
// business event can fire. It implements funnel.EventSink.
type Tracker struct {
	conf    *structures.Config
	store   store.Store
	lock    *funnel.DeviceLock
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewTracker(conf *structures.Config, st store.Store, lock *funnel.DeviceLock, logger providers.Logger, metrics providers.MetricsProviderInterface) *Tracker {
	return &Tracker{
		conf:    conf,
		store:   st,
		lock:    lock,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (t *Tracker) initialLead() LeadData {
	return LeadData{
		EntryTime:    t.now().UTC().Format(time.RFC3339),
		PagesVisited: []string{},
		Milestones:   map[string]bool{},
	}
}

func (t *Tracker) decode(raw []byte) LeadData {
	if len(raw) == 0 {
		return t.initialLead()
	}
	var lead LeadData
	if err := json.Unmarshal(raw, &lead); err != nil {
		t.logger.Warnf(providers.TypeApp, "Corrupt lead record, falling back to defaults: %s", err)
		return t.initialLead()
	}
	if lead.Milestones == nil {
		lead.Milestones = map[string]bool{}
	}
	return lead
}

func (t *Tracker) Lead() LeadData {
	raw, _, err := t.store.Get(store.KeyLead)
	if err != nil {
		t.logger.Errorf(providers.TypeApp, "Failed to read lead record: %s", err)
		return t.initialLead()
	}
	return t.decode(raw)
}

func (t *Tracker) mutate(fn func(lead *LeadData)) {
	err := t.store.Update(store.KeyLead, func(current []byte) ([]byte, error) {
		lead := t.decode(current)
		fn(&lead)
		lead.UpdatedAt = t.now().UTC().Format(time.RFC3339)
		return json.Marshal(lead)
	})
	if err != nil {
		t.logger.Errorf(providers.TypeApp, "Failed to update lead record: %s", err)
	}
}

// claimMilestone marks a milestone as fired; the check-and-set is one
// indivisible store update.
func (t *Tracker) claimMilestone(name string) bool {
	claimed := false
	t.mutate(func(lead *LeadData) {
		if !lead.Milestones[name] {
			lead.Milestones[name] = true
			claimed = true
		}
	})
	return claimed
}

// Event fans a business event out to the log and the metrics counter.
// Milestone events are dropped after their first firing.
func (t *Tracker) Event(name string, params map[string]any) {
	if milestoneEvents[name] && !t.claimMilestone(name) {
		return
	}
	t.metrics.IncBusinessEvent(name)
	t.logger.Infof(providers.TypeApp, "Business event %s: %v", name, params)
}

// TrackPageVisit records the page once and fires a page-view event on
// first visit.
func (t *Tracker) TrackPageVisit(page string) {
	seen := false
	t.mutate(func(lead *LeadData) {
		for _, p := range lead.PagesVisited {
			if p == page {
				seen = true
				return
			}
		}
		lead.PagesVisited = append(lead.PagesVisited, page)
	})
	if !seen {
		t.metrics.IncBusinessEvent("page-view")
		t.logger.Debugf(providers.TypeApp, "Page visited: %s", page)
	}
}

// CaptureUTMs stores campaign parameters from the landing query; values
// already captured are never overwritten.
func (t *Tracker) CaptureUTMs(query url.Values) {
	utms := map[string]string{}
	for _, key := range utmKeys {
		if v := query.Get(key); v != "" {
			utms[key] = v
		}
	}
	if len(utms) == 0 {
		return
	}
	t.mutate(func(lead *LeadData) {
		if lead.UTMs == nil {
			lead.UTMs = map[string]string{}
		}
		for k, v := range utms {
			if _, ok := lead.UTMs[k]; !ok {
				lead.UTMs[k] = v
			}
		}
	})
}

// RegisterSignup stores the visitor's identity. A repeat signup on the
// same device counts a new account on the device lock instead of
// re-firing the milestone.
func (t *Tracker) RegisterSignup(name, email, pixKey string) {
	repeat := t.Lead().Milestones["signup"]
	t.mutate(func(lead *LeadData) {
		lead.UserName = name
		lead.UserEmail = email
		lead.UserPixKey = pixKey
	})
	if repeat {
		t.lock.RegisterNewAccount()
		t.logger.Infof(providers.TypeApp, "Repeat signup on locked device funnel")
		return
	}
	t.Event("signup", map[string]any{"name": name})
}

func (t *Tracker) IncrementLikes() {
	t.mutate(func(lead *LeadData) { lead.LikeCount++ })
}

func (t *Tracker) IncrementMessages() {
	t.mutate(func(lead *LeadData) { lead.MsgCount++ })
}

func (t *Tracker) UpdateBalance(balance float64) {
	t.mutate(func(lead *LeadData) { lead.UserBalance = balance })
}

// RegisterMatch stamps the first match time and records the matched
// profile. The match milestone itself is fired by the limiter that
// granted it.
func (t *Tracker) RegisterMatch(profileName string) {
	t.mutate(func(lead *LeadData) {
		if lead.MatchTime == "" {
			lead.MatchTime = t.now().UTC().Format(time.RFC3339)
		}
		for _, p := range lead.MatchedProfiles {
			if p == profileName {
				return
			}
		}
		lead.MatchedProfiles = append(lead.MatchedProfiles, profileName)
	})
}

// RegisterPurchase is the only genuine conversion in the funnel.
func (t *Tracker) RegisterPurchase(plan string, value float64) {
	t.mutate(func(lead *LeadData) {
		lead.PurchaseTime = t.now().UTC().Format(time.RFC3339)
		lead.IsVip = true
	})
	t.Event("purchase", map[string]any{"plan": plan, "value": value})
}

// HasIdentity reports whether the visitor finished signup, the marker
// the navigation restore path keys on.
func (t *Tracker) HasIdentity() bool {
	return t.Lead().UserName != ""
}
