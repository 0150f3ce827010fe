package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pion/webrtc/v4"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`
	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"`

	// StatsBackend - куда пишется статистика: postgres, redis или memory
	StatsBackend string `env:"STATS_BACKEND" envDefault:"postgres"`

	// STUNURLs - статический список STUN серверов, отдаётся клиентам вместе с TURN
	STUNURLs []string `env:"ICE_STUN_URLS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"`

	TurnUDPServer webrtc.ICEServer
	TurnTCPServer webrtc.ICEServer

	CoturnServer CoturnConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Matching     MatchingConfig
	Relay        RelayConfig
	Negotiation  NegotiationConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"chatroulette"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type CoturnConfig struct {
	// Host - пустой, если TURN не используется
	Host     string `env:"COTURN_HOST"`
	Username string `env:"COTURN_USERNAME"`
	Password string `env:"COTURN_PASSWORD"`

	// Secret - нужен для генерации временных кредов для фронта
	Secret string `env:"COTURN_SECRET"`
}

type MatchingConfig struct {
	// Lookahead - сколько первых записей очереди ранжируются по интересам
	Lookahead int `env:"MATCH_LOOKAHEAD" envDefault:"8"`

	// FairnessWindow - после этого ожидания кандидат берётся строго по FIFO
	FairnessWindow time.Duration `env:"MATCH_FAIRNESS_WINDOW" envDefault:"5s"`
}

type RelayConfig struct {
	MaxMessageRunes int `env:"RELAY_MAX_MESSAGE_RUNES" envDefault:"2000"`
	StatsQueueSize  int `env:"RELAY_STATS_QUEUE_SIZE" envDefault:"1024"`
}

// NegotiationConfig - параметры клиентской машины согласования
type NegotiationConfig struct {
	MaxRecreations int `env:"NEGOTIATION_MAX_RECREATIONS" envDefault:"3"`

	// LivenessWindow - сколько ждать входящее медиа после Connected
	LivenessWindow  time.Duration `env:"NEGOTIATION_LIVENESS_WINDOW" envDefault:"10s"`
	LivenessRetries int           `env:"NEGOTIATION_LIVENESS_RETRIES" envDefault:"1"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if c.CoturnServer.Host != "" {
		c.TurnUDPServer = webrtc.ICEServer{
			URLs:       []string{fmt.Sprintf("turn:%s?transport=udp", c.CoturnServer.Host)},
			Username:   c.CoturnServer.Username,
			Credential: c.CoturnServer.Password,
		}

		c.TurnTCPServer = webrtc.ICEServer{
			URLs:       []string{fmt.Sprintf("turn:%s?transport=tcp", c.CoturnServer.Host)},
			Username:   c.CoturnServer.Username,
			Credential: c.CoturnServer.Password,
		}
	}

	return &c, nil
}

// ClientConfig - конфиг бота: без секретов сервера
type ClientConfig struct {
	STUNURLs []string `env:"ICE_STUN_URLS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"`

	Negotiation NegotiationConfig
}

func NewClient() (*ClientConfig, error) {
	c, err := env.ParseAs[ClientConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &c, nil
}

func (c *ClientConfig) ICEServers() []webrtc.ICEServer {
	if len(c.STUNURLs) == 0 {
		return nil
	}

	return []webrtc.ICEServer{{URLs: c.STUNURLs}}
}

// ICEServers собирает STUN и TURN со статическими кредами
func (c *Config) ICEServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, 3)

	if len(c.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNURLs})
	}

	if c.CoturnServer.Host != "" {
		servers = append(servers, c.TurnUDPServer, c.TurnTCPServer)
	}

	return servers
}
