package funnel

import (
	"math/rand"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"sparkd/internal/providers"
	"sparkd/internal/store"
	"sparkd/internal/structures"
)

type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsUser    bool   `json:"isUser"`
	Timestamp string `json:"timestamp"`
	IsAudio   bool   `json:"isAudio,omitempty"`
	AudioSrc  string `json:"audioSrc,omitempty"`
}

type ChatState struct {
	UsedOpeningIndex int           `json:"usedOpeningIndex"`
	UsedResponses    map[int][]int `json:"usedResponses"`
	AudioIntroSent   bool          `json:"audioIntroSent"`
	AudioFinalSent   bool          `json:"audioFinalSent"`
	GiftSent         bool          `json:"giftSent"`
	MessagesCount    int           `json:"messagesCount"`
	SavedMessages    []Message     `json:"savedMessages"`
}

func initialChatState() ChatState {
	return ChatState{
		UsedOpeningIndex: -1,
		UsedResponses:    map[int][]int{},
	}
}

// Reply is what the engine hands back to the UI after a transcript
// mutation. Delays are presentation hints; the engine never sleeps.
type Reply struct {
	Messages      []Message
	GiftAmount    float64
	UpgradePrompt bool
	TypingDelay   time.Duration
}

// ChatEngine deals out the scripted conversation keyed to the ordinal
// position of the visitor's own messages. All one-shot side effects are
// latched both in memory and in the persisted record; the persisted
// check-and-set happens inside a single store update.
type ChatEngine struct {
	conf    *structures.Config
	store   store.Store
	ledger  *Ledger
	lock    *DeviceLock
	likes   *LikesLimiter
	sink    EventSink
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	rnd     *rand.Rand
	now     func() time.Time

	introGuard atomic.Bool
	finalGuard atomic.Bool
	giftGuard  atomic.Bool
}

func NewChatEngine(conf *structures.Config, st store.Store, ledger *Ledger, lock *DeviceLock, likes *LikesLimiter, sink EventSink, logger providers.Logger, metrics providers.MetricsProviderInterface) *ChatEngine {
	return &ChatEngine{
		conf:    conf,
		store:   st,
		ledger:  ledger,
		lock:    lock,
		likes:   likes,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

func (ce *ChatEngine) decode(raw []byte) ChatState {
	if len(raw) == 0 {
		return initialChatState()
	}
	var state ChatState
	if err := json.Unmarshal(raw, &state); err != nil {
		ce.logger.Warnf(providers.TypeApp, "Corrupt chat state record, falling back to defaults: %s", err)
		return initialChatState()
	}
	if state.UsedResponses == nil {
		state.UsedResponses = map[int][]int{}
	}
	return state
}

func (ce *ChatEngine) state() ChatState {
	raw, _, err := ce.store.Get(store.KeyChatState)
	if err != nil {
		ce.logger.Errorf(providers.TypeApp, "Failed to read chat state: %s", err)
		return initialChatState()
	}
	return ce.decode(raw)
}

func (ce *ChatEngine) Messages() []Message {
	return ce.state().SavedMessages
}

func (ce *ChatEngine) HasSavedConversation() bool {
	return len(ce.state().SavedMessages) > 0
}

func (ce *ChatEngine) newMessage(content string, isUser bool) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: ce.now().Format("15:04"),
	}
}

// pickUnused selects a variant index never used before from a pool of n.
// When all variants are exhausted the pool resets to full availability,
// so the selection never runs dry.
func (ce *ChatEngine) pickUnused(used []int, n int) int {
	available := make([]int, 0, n)
	taken := make(map[int]bool, len(used))
	for _, i := range used {
		taken[i] = true
	}
	for i := 0; i < n; i++ {
		if !taken[i] {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		for i := 0; i < n; i++ {
			available = append(available, i)
		}
	}
	return available[ce.rnd.Intn(len(available))]
}

// Opening binds one unused opening line (plus the one-shot intro voice
// message) into the transcript on first visit, and replays the saved
// transcript on every visit after that.
func (ce *ChatEngine) Opening(profileName string) Reply {
	var out []Message
	err := ce.store.Update(store.KeyChatState, func(current []byte) ([]byte, error) {
		state := ce.decode(current)
		if len(state.SavedMessages) > 0 {
			out = state.SavedMessages
			return json.Marshal(state)
		}

		idx := state.UsedOpeningIndex
		if idx < 0 || idx >= len(openingMessages) {
			idx = ce.pickUnused(nil, len(openingMessages))
			state.UsedOpeningIndex = idx
		}
		content := strings.ReplaceAll(openingMessages[idx], "{name}", profileName)
		state.SavedMessages = append(state.SavedMessages, ce.newMessage(content, false))

		if !state.AudioIntroSent && ce.introGuard.CompareAndSwap(false, true) {
			audio := ce.newMessage(audioIntroText, false)
			audio.IsAudio = true
			audio.AudioSrc = audioIntroSrc
			state.SavedMessages = append(state.SavedMessages, audio)
			state.AudioIntroSent = true
		}

		out = state.SavedMessages
		return json.Marshal(state)
	})
	if err != nil {
		ce.logger.Errorf(providers.TypeApp, "Failed to open conversation: %s", err)
	}
	return Reply{Messages: out, TypingDelay: ce.conf.Funnel.TypingDelay}
}

// SendVisitorMessage appends the visitor's message and the scripted
// reply for its ordinal position, then evaluates the one-shot side
// effects in transcript order. Returns false when the message cap denies
// the send.
func (ce *ChatEngine) SendVisitorMessage(content string) (Reply, bool) {
	msgCap := ce.conf.Funnel.MessageCap
	premium := ce.likes.Snapshot().IsPremium

	if !premium && ce.state().MessagesCount >= msgCap {
		ce.metrics.IncQuotaDenied("message")
		return Reply{UpgradePrompt: true}, false
	}

	var reply Reply
	giftClaimed := false
	err := ce.store.Update(store.KeyChatState, func(current []byte) ([]byte, error) {
		state := ce.decode(current)
		if !premium && state.MessagesCount >= msgCap {
			reply = Reply{UpgradePrompt: true}
			return json.Marshal(state)
		}

		k := state.MessagesCount + 1
		state.MessagesCount = k

		userMsg := ce.newMessage(content, true)
		state.SavedMessages = append(state.SavedMessages, userMsg)
		appended := []Message{userMsg}

		setID := k
		if setID > len(responseSets) {
			setID = len(responseSets)
		}
		variants := responseSets[setID]
		idx := ce.pickUnused(state.UsedResponses[setID], len(variants))
		state.UsedResponses[setID] = append(state.UsedResponses[setID], idx)

		replyMsg := ce.newMessage(variants[idx], false)
		state.SavedMessages = append(state.SavedMessages, replyMsg)
		appended = append(appended, replyMsg)

		// Side effects fire strictly after the reply they follow.
		if k == 2 && !state.GiftSent && ce.giftGuard.CompareAndSwap(false, true) {
			state.GiftSent = true
			giftClaimed = true
			reply.GiftAmount = ce.conf.Funnel.GiftAmount
		}

		if k == 3 && !state.AudioFinalSent && ce.finalGuard.CompareAndSwap(false, true) {
			audio := ce.newMessage(audioFinalText, false)
			audio.IsAudio = true
			audio.AudioSrc = audioFinalSrc
			state.SavedMessages = append(state.SavedMessages, audio)
			state.AudioFinalSent = true
			appended = append(appended, audio)
		}

		if k >= msgCap && !premium {
			reply.UpgradePrompt = true
		}

		reply.Messages = appended
		return json.Marshal(state)
	})
	if err != nil {
		ce.logger.Errorf(providers.TypeApp, "Failed to handle visitor message: %s", err)
		return Reply{}, false
	}
	if reply.Messages == nil && reply.UpgradePrompt {
		ce.metrics.IncQuotaDenied("message")
		return reply, false
	}

	if giftClaimed {
		ce.ledger.Add(reply.GiftAmount)
		ce.sink.Event("gift", map[string]any{"amount": reply.GiftAmount, "audioSrc": audioCashSrc})
		ce.logger.Infof(providers.TypeApp, "One-shot gift of %.2f sent", reply.GiftAmount)
	}
	if reply.UpgradePrompt {
		ce.lock.MarkConversationFinalized()
	}

	reply.TypingDelay = ce.conf.Funnel.TypingDelay
	return reply, true
}

// IsConversationFinalized reports whether the visitor has exhausted the
// message cap.
func (ce *ChatEngine) IsConversationFinalized() bool {
	return ce.state().MessagesCount >= ce.conf.Funnel.MessageCap
}

func (ce *ChatEngine) ResetConversation() {
	if err := ce.store.Delete(store.KeyChatState); err != nil {
		ce.logger.Errorf(providers.TypeApp, "Failed to reset conversation: %s", err)
	}
	ce.introGuard.Store(false)
	ce.finalGuard.Store(false)
	ce.giftGuard.Store(false)
}
