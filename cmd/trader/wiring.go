package main

import (
	"fmt"

	"PresenceTrader/internal/broker"
	"PresenceTrader/internal/catalog"
	"PresenceTrader/internal/config"
	"PresenceTrader/internal/detector"
	"PresenceTrader/internal/recorder"
)

func buildBroker(cfg *config.Config) (broker.Broker, error) {
	b := cfg.Broker
	var rest *broker.RESTClient
	if b.BaseURL != "" {
		rest = broker.NewRESTClient(broker.RESTConfig{
			BaseURL:                b.BaseURL,
			APIKey:                 b.APIKey,
			Timeout:                b.Timeout,
			RatePerSecond:          b.RatePerSecond,
			Burst:                  b.Burst,
			MaxConsecutiveFailures: b.MaxConsecutiveFailures,
			BreakerTimeout:         b.BreakerTimeout,
		})
	}

	switch b.Kind {
	case config.BrokerREST:
		log.Infof("broker: rest %s", b.BaseURL)
		return rest, nil
	case config.BrokerPaper:
		opts := []broker.PaperOption{broker.WithDefaultPrice(b.PaperPrice)}
		switch b.PaperQuotes {
		case config.QuoteSourceREST:
			opts = append(opts, broker.WithQuoter(rest))
			log.Infof("broker: paper with live quotes from %s, cash %s", b.BaseURL, b.PaperCash)
		case config.QuoteSourceYahoo:
			opts = append(opts, broker.WithQuoter(broker.NewYahooQuoter("", cfg.Proxy)))
			log.Infof("broker: paper with yahoo quotes, cash %s", b.PaperCash)
		default:
			log.Infof("broker: paper at fixed price %s, cash %s", b.PaperPrice, b.PaperCash)
		}
		return broker.NewPaper(b.PaperCash, opts...), nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q", b.Kind)
	}
}

// buildDetector returns the presence source and, for the http kind, the push
// latch the server feeds. The returned close func is never nil.
func buildDetector(cfg *config.Config) (detector.Source, *detector.Push, func() error, error) {
	noop := func() error { return nil }
	d := cfg.Detector
	switch d.Kind {
	case config.DetectorCamera:
		c, err := detector.NewCascade(detector.CascadeConfig{
			Device:       d.Device,
			CascadePath:  d.CascadePath,
			Resolution:   d.Resolution,
			MinNeighbors: d.MinNeighbors,
			FPS:          d.FPS,
			Brightness:   d.Brightness,
			RecordPath:   d.RecordPath,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		return c, nil, c.Close, nil
	case config.DetectorHTTP:
		p := detector.NewPush()
		return p, p, noop, nil
	default:
		log.Warn("no presence detector configured, no trades will trigger")
		return detector.Static(false), nil, noop, nil
	}
}

func buildRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warnf("init sqlite journal failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.Trading.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Trading.CatalogPath, err)
	}
	return cat, nil
}
