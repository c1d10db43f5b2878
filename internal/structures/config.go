package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	Driver       string        `yaml:"driver" validate:"required|in:file,sqlite"`
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type FunnelConfig struct {
	MaxFreeLikes     int           `yaml:"maxFreeLikes" validate:"required|min:1"`
	MinLikesForMatch int           `yaml:"minLikesForMatch" validate:"required|min:1"`
	MaxFreeMatches   int           `yaml:"maxFreeMatches" validate:"required|min:1"`
	MessageCap       int           `yaml:"messageCap" validate:"required|min:1"`
	MatchPolicy      string        `yaml:"matchPolicy" validate:"required|in:fifth-like,every-third,profile-completion"`
	LikeReward       float64       `yaml:"likeReward"`
	GiftAmount       float64       `yaml:"giftAmount"`
	PopupDelay       time.Duration `yaml:"popupDelay"`
	TypingDelay      time.Duration `yaml:"typingDelay"`
}

type PlanConfig struct {
	Name  string `yaml:"name" validate:"required"`
	Price string `yaml:"price" validate:"required"`
	URL   string `yaml:"url" validate:"required|url"`
}

type CheckoutConfig struct {
	Plans map[string]PlanConfig `yaml:"plans" validate:"required"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Funnel      FunnelConfig   `yaml:"funnel"`
	Checkout    CheckoutConfig `yaml:"checkout"`
	WebServer   Server         `yaml:"webServer"`
	Persistence Persistence    `yaml:"persistence"`
	Logger      LoggerConfig   `yaml:"logger"`
	Cache       CacheConfig    `yaml:"cache"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}
