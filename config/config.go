package config

import (
	// Local Packages
	errors "masspay/errors"
)

var DefaultConfig = []byte(`
application: "masspay"

logger:
  level: "debug"

is_prod_mode: false

http:
  addr: ":8080"

mongo:
  uri: "mongodb://localhost:27017"
  database: "masspay"

redis:
  uri: "localhost:6379"
  password: ""

kafka:
  brokers:
    - "localhost:9092"
  consume: true
  recipients_topic: "mass-payment-recipients"
  settlements_topic: "mass-payment-settlements"
  records_per_poll: 1000
  consumer_name: "masspay-settlements"
`)

type Config struct {
	Application string `koanf:"application"`
	Logger      Logger `koanf:"logger"`
	IsProdMode  bool   `koanf:"is_prod_mode"`
	HTTP        HTTP   `koanf:"http"`
	Mongo       Mongo  `koanf:"mongo"`
	Redis       Redis  `koanf:"redis"`
	Kafka       Kafka  `koanf:"kafka"`
}

type Logger struct {
	Level string `koanf:"level"`
}

type HTTP struct {
	Addr string `koanf:"addr"`
}

type Mongo struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type Redis struct {
	URI      string `koanf:"uri"`
	Password string `koanf:"password"`
}

type Kafka struct {
	Brokers          []string `koanf:"brokers"`
	Consume          bool     `koanf:"consume"`
	RecipientsTopic  string   `koanf:"recipients_topic"`
	SettlementsTopic string   `koanf:"settlements_topic"`
	RecordsPerPoll   int      `koanf:"records_per_poll"`
	ConsumerName     string   `koanf:"consumer_name"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	ve := errors.ValidationErrs()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if c.HTTP.Addr == "" {
		ve.Add("http.addr", "cannot be empty")
	}
	if c.Mongo.URI == "" {
		ve.Add("mongo.uri", "cannot be empty")
	}
	if c.Mongo.Database == "" {
		ve.Add("mongo.database", "cannot be empty")
	}
	if c.Redis.URI == "" {
		ve.Add("redis.uri", "cannot be empty")
	}
	if len(c.Kafka.Brokers) == 0 {
		ve.Add("kafka.brokers", "cannot be empty")
	}
	if c.Kafka.RecipientsTopic == "" {
		ve.Add("kafka.recipients_topic", "cannot be empty")
	}
	if c.Kafka.Consume && c.Kafka.SettlementsTopic == "" {
		ve.Add("kafka.settlements_topic", "cannot be empty")
	}

	return ve.Err()
}
