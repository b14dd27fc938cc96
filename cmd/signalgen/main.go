// Command signalgen is a demo producer: it serves a WebSocket streaming
// endpoint and a JSON-RPC control channel, generating a synchronous sine
// wave on one table and sparse asynchronous events on another for every
// consumer that connects.
package main

import (
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opendaq/streaming-protocol-go/pkg/control"
	"github.com/opendaq/streaming-protocol-go/pkg/producer"
	"github.com/opendaq/streaming-protocol-go/pkg/producer/server"
	"github.com/opendaq/streaming-protocol-go/pkg/producer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
)

var cfg config

var rootCmd = &cobra.Command{
	Use:   "signalgen",
	Short: "serve a demo streaming-protocol producer over WebSocket",
	RunE:  run,
}

func init() {
	if err := env.Parse(&cfg); err != nil {
		logrus.WithError(err).Fatal("failed to parse environment config")
	}

	rootCmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address to listen on")
	rootCmd.Flags().StringVar(&cfg.ControlPath, "control-path", cfg.ControlPath, "HTTP path for the JSON-RPC control channel")
	rootCmd.Flags().DurationVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "interval between synchronous wave samples")
	rootCmd.Flags().DurationVar(&cfg.EventRate, "event-rate", cfg.EventRate, "interval between asynchronous events")
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	log := logrus.WithField("component", "signalgen")

	_, portStr, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		return err
	}
	controlPort, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	registry := control.NewRegistry()
	srv := server.New(registry, cfg.ControlPath, controlPort, log)
	srv.OnSession(func(sess *producer.Session) []signal.Signal {
		return startGenerating(sess, log)
	})

	mux := http.NewServeMux()
	mux.Handle("/", srv)
	mux.Handle(cfg.ControlPath, control.NewServer(registry, log))
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listener failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Stop()
	return httpSrv.Close()
}

// startGenerating builds the wave and event tables for one new session and
// starts the goroutines that feed them, returning the signals for the
// session to register and announce.
func startGenerating(sess *producer.Session, log *logrus.Entry) []signal.Signal {
	waveTime := signal.NewLinearTimeSignal("waveTime", "wave", sess.NextSignalNumber(), 1,
		descriptor.Resolution{Numerator: 1, Denominator: int64(time.Second / cfg.SampleRate)}, "", sess.Writer())
	waveValue := signal.NewSynchronousValueSignal[float64]("wave", "wave", sess.NextSignalNumber(),
		descriptor.SampleTypeEnum.Real64, sess.Writer())

	eventTime := signal.NewExplicitTimeSignal("eventTime", "event", sess.NextSignalNumber(),
		descriptor.Resolution{Numerator: 1, Denominator: int64(time.Second)}, "", sess.Writer())
	eventValue := signal.NewAsynchronousValueSignal[float64]("event", "event", sess.NextSignalNumber(),
		descriptor.SampleTypeEnum.Real64, sess.Writer())

	if err := waveTime.SetTimeStart(0, 0); err != nil {
		log.WithError(err).Warn("failed to anchor wave time signal")
	}

	go runWave(waveValue, cfg.SampleRate, log)
	go runEvents(eventTime, eventValue, cfg.EventRate, log)

	return []signal.Signal{waveTime, waveValue, eventTime, eventValue}
}

func runWave(wave *signal.SynchronousValueSignal[float64], rate time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	start := time.Now()
	for t := range ticker.C {
		phase := t.Sub(start).Seconds()
		if err := wave.AddData(math.Sin(2 * math.Pi * phase)); err != nil {
			log.WithError(err).Debug("wave generator stopping")
			return
		}
	}
}

func runEvents(eventTime *signal.ExplicitTimeSignal, eventValue *signal.AsynchronousValueSignal[float64], rate time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	start := time.Now()
	var counter float64
	for t := range ticker.C {
		tick := uint64(t.Sub(start).Nanoseconds())
		if err := eventTime.AddTick(tick); err != nil {
			log.WithError(err).Debug("event generator stopping")
			return
		}
		counter++
		if err := eventValue.AddData(counter); err != nil {
			log.WithError(err).Debug("event generator stopping")
			return
		}
	}
}
