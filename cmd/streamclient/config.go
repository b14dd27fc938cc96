package main

import "time"

// config holds the demo consumer's settings, loaded from the environment
// with flags as the override layer.
type config struct {
	URL            string        `env:"STREAMCLIENT_URL" envDefault:"ws://localhost:8080/"`
	LogLevel       string        `env:"STREAMCLIENT_LOG_LEVEL" envDefault:"info"`
	SubscribeAfter time.Duration `env:"STREAMCLIENT_SUBSCRIBE_AFTER" envDefault:"200ms"`
}
