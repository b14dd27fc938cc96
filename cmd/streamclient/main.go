// Command streamclient is a demo consumer: it dials a producer's
// WebSocket endpoint, subscribes to every signal it announces as
// available, and prints decoded samples as they arrive.
package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opendaq/streaming-protocol-go/pkg/consumer"
	"github.com/opendaq/streaming-protocol-go/pkg/consumer/container"
	"github.com/opendaq/streaming-protocol-go/pkg/consumer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/control"
	"github.com/opendaq/streaming-protocol-go/pkg/wstransport"
)

var cfg config

var rootCmd = &cobra.Command{
	Use:   "streamclient",
	Short: "dial a streaming-protocol producer and print decoded samples",
	RunE:  run,
}

func init() {
	if err := env.Parse(&cfg); err != nil {
		logrus.WithError(err).Fatal("failed to parse environment config")
	}

	rootCmd.Flags().StringVar(&cfg.URL, "url", cfg.URL, "WebSocket URL of the producer")
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus log level")
	rootCmd.Flags().DurationVar(&cfg.SubscribeAfter, "subscribe-after", cfg.SubscribeAfter,
		"how long to wait after an available announcement before subscribing to its signals")
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
	log := logrus.WithField("component", "streamclient")

	conn, err := wstransport.Dial(cfg.URL, wstransport.DialOptions{})
	if err != nil {
		return err
	}
	defer conn.Close()

	c := container.New()
	c.DataCb = func(sig *signal.Signal, raw []byte, values []float64, timestamps []uint64) {
		times := timestamps
		if timeSig, ok := c.TimeSignalFor(sig); ok {
			wall := make([]string, len(timestamps))
			for i, ts := range timestamps {
				t, err := timeSig.WallClockTime(ts)
				if err != nil {
					wall[i] = fmt.Sprintf("tick:%d", ts)
					continue
				}
				wall[i] = t.Format(time.RFC3339Nano)
			}
			fmt.Printf("%s: values=%v times=%v\n", sig.ID(), values, wall)
			return
		}
		fmt.Printf("%s: values=%v timestamps=%v\n", sig.ID(), values, times)
	}
	c.SignalMetaCb = func(sig *signal.Signal, method string, params any) {
		log.WithFields(logrus.Fields{"signalId": sig.ID(), "method": method}).Debug("signal meta")
	}

	h := consumer.New(conn, c, log)

	h.StreamMetaCb = func(method string, params any) {
		switch method {
		case "init":
			log.WithField("streamId", h.StreamID()).Info("session initialized")

		case "available":
			ids := extractSignalIDs(params)
			log.WithField("signalIds", ids).Info("signals available")
			go subscribeAfterDelay(cfg.URL, h, ids, cfg.SubscribeAfter, log)

		case "unavailable":
			log.WithField("signalIds", extractSignalIDs(params)).Info("signals unavailable")
		}
	}

	return h.Run(func(err error) {
		if err != nil {
			log.WithError(err).Error("session ended with error")
		} else {
			log.Info("session ended")
		}
	})
}

func extractSignalIDs(params any) []string {
	m, ok := params.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["signalIds"].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids
}

func subscribeAfterDelay(wsURL string, h *consumer.Handler, ids []string, delay time.Duration, log *logrus.Entry) {
	if len(ids) == 0 {
		return
	}

	time.Sleep(delay)

	path, port := h.HTTPControlEndpoint()
	if port == 0 {
		log.Warn("producer advertised no control channel, skipping subscribe")
		return
	}

	u, err := url.Parse(wsURL)
	if err != nil {
		log.WithError(err).Error("failed to parse producer URL for control endpoint")
		return
	}

	controlURL := fmt.Sprintf("http://%s:%d%s", u.Hostname(), port, path)
	client := control.NewClient(controlURL, nil)

	count, err := client.Subscribe(h.StreamID(), ids)
	if err != nil {
		log.WithError(err).Error("subscribe request failed")
		return
	}

	log.WithField("count", count).Info("subscribed")
}
