package funnel

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/store"
)

type NavigationState struct {
	CurrentPage        string         `json:"currentPage"`
	ActivePopup        string         `json:"activePopup,omitempty"`
	Timestamp          string         `json:"timestamp"`
	ReturnFromCheckout bool           `json:"returnFromCheckout"`
	Context            map[string]any `json:"context,omitempty"`
}

// Pages the entry pages are allowed to restore into. Everything else
// re-runs onboarding.
var restorablePages = map[string]bool{
	"/descobrir": true,
	"/chat":      true,
	"/perfil":    true,
	"/bem-vindo": true,
}

var entryPages = map[string]bool{
	"/":         true,
	"/cadastro": true,
	"/login":    true,
}

// Navigation records the last valid page visited so a reload or a bad
// deep link lands somewhere sane instead of a dead end.
type Navigation struct {
	store  store.Store
	logger providers.Logger
	now    func() time.Time
}

func NewNavigation(st store.Store, logger providers.Logger) *Navigation {
	return &Navigation{store: st, logger: logger, now: time.Now}
}

func defaultNavigationState(now time.Time) NavigationState {
	return NavigationState{
		CurrentPage: "/",
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}

func (n *Navigation) decode(raw []byte) NavigationState {
	state := defaultNavigationState(n.now())
	if len(raw) == 0 {
		return state
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		n.logger.Warnf(providers.TypeApp, "Corrupt navigation record, falling back to defaults: %s", err)
		return defaultNavigationState(n.now())
	}
	return state
}

func (n *Navigation) State() NavigationState {
	raw, _, err := n.store.Get(store.KeyNavigation)
	if err != nil {
		n.logger.Errorf(providers.TypeApp, "Failed to read navigation state: %s", err)
		return defaultNavigationState(n.now())
	}
	return n.decode(raw)
}

// Save merges the partial update into the persisted record and stamps
// the update time.
func (n *Navigation) Save(fn func(state *NavigationState)) {
	err := n.store.Update(store.KeyNavigation, func(current []byte) ([]byte, error) {
		state := n.decode(current)
		fn(&state)
		state.Timestamp = n.now().UTC().Format(time.RFC3339)
		return json.Marshal(state)
	})
	if err != nil {
		n.logger.Errorf(providers.TypeApp, "Failed to save navigation state: %s", err)
	}
}

func (n *Navigation) SetCurrentPage(page string) {
	n.Save(func(state *NavigationState) { state.CurrentPage = page })
}

func (n *Navigation) SetActivePopup(popup string) {
	n.Save(func(state *NavigationState) { state.ActivePopup = popup })
}

func (n *Navigation) ClearActivePopup() {
	n.Save(func(state *NavigationState) { state.ActivePopup = "" })
}

func (n *Navigation) MarkReturnFromCheckout() {
	n.Save(func(state *NavigationState) { state.ReturnFromCheckout = true })
}

func (n *Navigation) ClearReturnFromCheckout() {
	n.Save(func(state *NavigationState) { state.ReturnFromCheckout = false })
}

func (n *Navigation) SaveContext(context map[string]any) {
	n.Save(func(state *NavigationState) { state.Context = context })
}

// ShouldRestorePage returns the page an entry page should redirect to,
// or "" when onboarding should run. Restoration requires an identity
// marker (a saved display name) and a recorded post-onboarding page.
func (n *Navigation) ShouldRestorePage(currentPath string, hasIdentity bool) string {
	if !entryPages[currentPath] {
		return ""
	}
	if !hasIdentity {
		return ""
	}
	state := n.State()
	if restorablePages[state.CurrentPage] {
		return state.CurrentPage
	}
	return ""
}

// CrownIndex is the persisted position in the discovery deck, so a
// reload resumes on the profile the visitor last saw.
func (n *Navigation) CrownIndex(total int) int {
	if total <= 0 {
		return 0
	}
	raw, ok, err := n.store.Get(store.KeyCrownIndex)
	if err != nil || !ok {
		return 0
	}
	idx, err := strconv.Atoi(string(raw))
	if err != nil || idx < 0 {
		return 0
	}
	return idx % total
}

func (n *Navigation) SetCrownIndex(idx int) {
	if idx < 0 {
		idx = 0
	}
	if err := n.store.Set(store.KeyCrownIndex, []byte(strconv.Itoa(idx))); err != nil {
		n.logger.Errorf(providers.TypeApp, "Failed to save crown index: %s", err)
	}
}

func (n *Navigation) NextCrown(total int) int {
	if total <= 0 {
		return 0
	}
	next := (n.CrownIndex(total) + 1) % total
	n.SetCrownIndex(next)
	return next
}
