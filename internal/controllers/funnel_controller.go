package controllers

import (
	json "github.com/goccy/go-json"
	"net/http"
	"strconv"

	"sparkd/internal/funnel"
	"sparkd/internal/providers"
	"sparkd/internal/structures"
	"sparkd/internal/tracker"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const placeholderProfile = "Your match"

type FunnelController struct {
	conf     *structures.Config
	logger   providers.Logger
	cache    providers.CacheProviderInterface
	likes    *funnel.LikesLimiter
	matches  *funnel.MatchLimiter
	chat     *funnel.ChatEngine
	ledger   *funnel.Ledger
	lock     *funnel.DeviceLock
	checkout *funnel.Checkout
	nav      *funnel.Navigation
	tracker  *tracker.Tracker
}

func NewFunnelController(conf *structures.Config, logger providers.Logger, cache providers.CacheProviderInterface, likes *funnel.LikesLimiter, matches *funnel.MatchLimiter, chat *funnel.ChatEngine, ledger *funnel.Ledger, lock *funnel.DeviceLock, checkout *funnel.Checkout, nav *funnel.Navigation, trk *tracker.Tracker) *FunnelController {
	return &FunnelController{
		conf:     conf,
		logger:   logger,
		cache:    cache,
		likes:    likes,
		matches:  matches,
		chat:     chat,
		ledger:   ledger,
		lock:     lock,
		checkout: checkout,
		nav:      nav,
		tracker:  trk,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func decodeBody(w http.ResponseWriter, r *http.Request, payload any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

type signupRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	PixKey string `json:"pixKey"`
}

func (fc *FunnelController) Signup(w http.ResponseWriter, r *http.Request) {
	var payload signupRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Name == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	fc.tracker.RegisterSignup(payload.Name, payload.Email, payload.PixKey)

	matched := false
	if fc.conf.Funnel.MatchPolicy == funnel.PolicyProfileCompletion && fc.matches.CanInteract() {
		fc.matches.MarkFreeMatchAsUsed()
		fc.tracker.RegisterMatch(placeholderProfile)
		matched = true
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"matched":      matched,
		"deviceLocked": fc.lock.IsLikesBlocked(),
	})
}

type likeRequest struct {
	ProfileName string `json:"profileName"`
}

type likeResponse struct {
	Allowed     bool    `json:"allowed"`
	LikesUsed   int     `json:"likesUsed"`
	Remaining   int     `json:"remaining"`
	Balance     float64 `json:"balance"`
	Matched     bool    `json:"matched"`
	MatchName   string  `json:"matchName,omitempty"`
	ShowUpgrade bool    `json:"showUpgrade"`
}

func (fc *FunnelController) Like(w http.ResponseWriter, r *http.Request) {
	var payload likeRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	profile := payload.ProfileName
	if profile == "" {
		profile = placeholderProfile
	}

	if !fc.likes.RegisterLike() {
		writeJSON(w, http.StatusOK, likeResponse{
			Allowed:     false,
			LikesUsed:   fc.likes.Snapshot().LikesUsed,
			Balance:     fc.ledger.Balance(),
			ShowUpgrade: true,
		})
		return
	}

	fc.tracker.IncrementLikes()
	fc.tracker.UpdateBalance(fc.ledger.Balance())

	q := fc.likes.Snapshot()
	resp := likeResponse{
		Allowed:   true,
		LikesUsed: q.LikesUsed,
		Remaining: max(fc.conf.Funnel.MaxFreeLikes-q.LikesUsed, 0),
		Balance:   fc.ledger.Balance(),
	}

	if fc.matches.ShouldGrantMatch(q.LikesUsed) && fc.matches.RegisterMatch() {
		fc.tracker.RegisterMatch(profile)
		resp.Matched = true
		resp.MatchName = profile
	}

	if q.HasReachedLimit {
		resp.ShowUpgrade = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (fc *FunnelController) Dislike(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"crownIndex": fc.nav.NextCrown(fc.crownTotal(r)),
	})
}

func (fc *FunnelController) crownTotal(r *http.Request) int {
	// The deck size belongs to the UI; it rides along as a query knob.
	total, err := strconv.Atoi(r.URL.Query().Get("total"))
	if err != nil || total <= 0 {
		return 1
	}
	return total
}

type messageRequest struct {
	Content string `json:"content"`
}

func (fc *FunnelController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var payload messageRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Content == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	reply, ok := fc.chat.SendVisitorMessage(payload.Content)
	if ok {
		fc.tracker.IncrementMessages()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed":       ok,
		"messages":      reply.Messages,
		"giftAmount":    reply.GiftAmount,
		"showUpgrade":   reply.UpgradePrompt,
		"typingDelayMs": reply.TypingDelay.Milliseconds(),
	})
}

func (fc *FunnelController) GetChat(w http.ResponseWriter, r *http.Request) {
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		profile = placeholderProfile
	}
	reply := fc.chat.Opening(profile)
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":      reply.Messages,
		"typingDelayMs": reply.TypingDelay.Milliseconds(),
	})
}

// GetState is the page-mount call: it records the visit, captures UTM
// parameters, and tells the UI whether to redirect or re-open a popup.
func (fc *FunnelController) GetState(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}

	fc.tracker.TrackPageVisit(path)
	fc.tracker.CaptureUTMs(r.URL.Query())
	fc.nav.SetCurrentPage(path)

	showPopup, popup := fc.checkout.ShouldShowPopupImmediately()
	q := fc.likes.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":       fc.ledger.Balance(),
		"likesUsed":     q.LikesUsed,
		"maxFreeLikes":  fc.conf.Funnel.MaxFreeLikes,
		"isPremium":     q.IsPremium,
		"deviceLocked":  fc.lock.IsLikesBlocked(),
		"canLike":       fc.likes.CanLike(),
		"canMatch":      fc.matches.CanInteract(),
		"messagesCount": len(fc.chat.Messages()),
		"showPopup":     showPopup,
		"popup":         popup,
		"popupDelayMs":  fc.checkout.PopupDelay().Milliseconds(),
		"restorePage":   fc.nav.ShouldRestorePage(path, fc.tracker.HasIdentity()),
	})
}

func (fc *FunnelController) GetPlans(w http.ResponseWriter, r *http.Request) {
	if data, ok := fc.cache.Get("plans"); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	gson, err := json.Marshal(fc.checkout.Plans())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	fc.cache.Set("plans", gson)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

type checkoutRequest struct {
	Plan  string `json:"plan"`
	Popup string `json:"popup"`
}

func (fc *FunnelController) Checkout(w http.ResponseWriter, r *http.Request) {
	var payload checkoutRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	url, err := fc.checkout.CheckoutURL(payload.Plan)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	fc.checkout.MarkGoingToCheckout(payload.Popup)
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

type purchaseRequest struct {
	Plan  string  `json:"plan"`
	Value float64 `json:"value"`
}

func (fc *FunnelController) Purchase(w http.ResponseWriter, r *http.Request) {
	var payload purchaseRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	fc.likes.EnterPremiumMode()
	fc.matches.EnterPremiumMode()
	fc.checkout.ClearCheckoutState()
	fc.tracker.RegisterPurchase(payload.Plan, payload.Value)
	writeJSON(w, http.StatusOK, map[string]any{"premium": true})
}

// Reset clears account-scoped records; the device lock survives unless
// explicitly requested, and only in debug mode.
func (fc *FunnelController) Reset(w http.ResponseWriter, r *http.Request) {
	if !fc.conf.Debug {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	fc.likes.Reset()
	fc.matches.Reset()
	fc.ledger.Reset()
	fc.chat.ResetConversation()
	if r.URL.Query().Get("device") == "1" {
		fc.lock.DebugReset()
	}
	w.WriteHeader(http.StatusNoContent)
}
