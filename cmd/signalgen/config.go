package main

import "time"

// config holds the demo producer's settings, loaded from the environment
// with flags as the override layer, mirroring the calnex CLI's flag/config
// split.
type config struct {
	ListenAddr  string        `env:"SIGNALGEN_LISTEN_ADDR" envDefault:":8080"`
	ControlPath string        `env:"SIGNALGEN_CONTROL_PATH" envDefault:"/control"`
	SampleRate  time.Duration `env:"SIGNALGEN_SAMPLE_RATE" envDefault:"100ms"`
	EventRate   time.Duration `env:"SIGNALGEN_EVENT_RATE" envDefault:"1s"`
	LogLevel    string        `env:"SIGNALGEN_LOG_LEVEL" envDefault:"info"`
}
