package funnel

// Scripted conversation content. Openings support a {name} placeholder
// for the matched profile's display name; replies are grouped into one
// set per ordinal visitor message.

var openingMessages = []string{
	"Hey you... I loved that you liked me 😘 already curious to know more about you...",
	"Hmm... there's something different about your charm 💕 What caught your eye in my profile?",
	"Hi! I saw we matched... loved your profile 😊 Tell me more about yourself?",
	"Hello there! I liked what I saw... you seem really interesting 💋",
	"Hi! So glad you showed up... I was hoping to meet someone like you 😏",
	"Hey {name}! I really liked your profile... feels like we could get along very well 💖",
	"Hi love, how are you? I adored your like... it made me want to know more about you...",
	"Hello! You seem to have a vibe I really like 😊 Shall we talk?",
}

var responseSets = map[int][]string{
	1: {
		"Hmm... you have a way about you that makes me curious 😏",
		"I love your style, you know? You really know how to talk 👀",
		"Tell me more... I'm loving what you just said",
		"You're different, I like that 😘",
		"I'm already imagining us together...",
		"Wow, I really like the way you talk... 💕",
		"You caught me by surprise... in a good way 😊",
		"Mmm interesting... go on, I'm paying attention...",
	},
	2: {
		"Talking like this is way more interesting than I expected... 💋",
		"I love it when a conversation flows this naturally... 💕",
		"You have a special way of expressing yourself... it draws me in",
		"I like talking to you more every minute 😏",
		"You're different from the others who message me here... and I like that",
		"Hmm... this chat is making me curious to know you better...",
		"You know how to keep a woman's attention, don't you? 😘",
		"I'm sitting here smiling because of your messages... 💖",
	},
	3: {
		"Wow, I'm really enjoying this conversation... you're special 💋",
		"You know how to make a grown woman genuinely interested...",
		"I wish I could get to know you better, you know? Up close... 😏",
		"You make me want to keep talking for hours...",
		"I'm here smiling at your messages... you won me over 😊",
		"Mmm... loving every word... keep telling me more 💕",
		"You have an effect on me I didn't expect... I like it",
		"We have real chemistry, don't you think? 🔥",
	},
	4: {
		"I loved our chat! I don't want it to end here... 💕",
		"It was so good talking to you! I want much more of this...",
		"You completely won me over with this conversation... 💋",
		"I don't want to stop talking to you... I need more...",
		"This conversation was special to me... I want to keep going...",
		"You're amazing, you know? I want to know you even better... 😘",
		"Hmm... I feel like telling you so much more... in person 😏",
		"I liked you so much I don't want this to end... 💖",
	},
}

const (
	audioIntroSrc = "/audios/audio1.mp3"
	audioFinalSrc = "/audios/audio2.mp3"
	audioCashSrc  = "/audios/audio-cash.mp3"

	audioIntroText = "Listen to this message I recorded just for you... 🎧💕"
	audioFinalText = "I recorded one more thing for you... listen before you answer 🎧😏"
)
