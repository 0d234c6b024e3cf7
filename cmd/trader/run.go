package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"PresenceTrader/internal/config"
	"PresenceTrader/internal/controller"
	"PresenceTrader/internal/debounce"
	"PresenceTrader/internal/display"
	"PresenceTrader/internal/executor"
	"PresenceTrader/internal/metrics"
	"PresenceTrader/internal/notifier"
	"PresenceTrader/internal/portfolio"
	"PresenceTrader/internal/rotation"
	"PresenceTrader/internal/scheduler"
	"PresenceTrader/internal/server"
	"PresenceTrader/internal/timer"
)

type runFlags struct {
	paper bool
	tui   bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if flags.paper {
				cfg.Broker.Kind = config.BrokerPaper
			}
			if cmd.Flags().Changed("tui") {
				cfg.Display.TUI = flags.tui
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&flags.paper, "paper", false, "force the paper broker regardless of config")
	cmd.Flags().BoolVar(&flags.tui, "tui", false, "show the terminal display")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("PresenceTrader starting...")

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	log.Infof("catalog: %d instruments", cat.Size())

	br, err := buildBroker(cfg)
	if err != nil {
		return err
	}
	source, push, closeSource, err := buildDetector(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	rec := buildRecorder(cfg)
	defer rec.Close()

	reg := metrics.New()

	tm, err := timer.NewCyclic(cfg.Trading.PeriodSeconds, nil)
	if err != nil {
		return err
	}
	counter, err := debounce.NewCounter(cfg.Trading.PresenceThreshold)
	if err != nil {
		return err
	}
	sel, err := rotation.NewSelector(cat, cfg.Trading.StartIndex)
	if err != nil {
		return err
	}
	pol, err := portfolio.NewPolicy(cfg.Trading.Capacity)
	if err != nil {
		return err
	}
	ex, err := executor.New(br, cfg.Trading.QuantityPrecision)
	if err != nil {
		return err
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Warnf("telegram disabled: %v", err)
			tn = nil
		}
	}

	opts := controller.Options{
		Journal:       rec,
		Metrics:       reg,
		TickInterval:  cfg.Trading.TickInterval,
		BrokerTimeout: cfg.Broker.Timeout,
	}
	if tn != nil {
		opts.Notifier = tn
	}
	ctl, err := controller.New(controller.Deps{
		Timer:    tm,
		Counter:  counter,
		Selector: sel,
		Policy:   pol,
		Executor: ex,
		Broker:   br,
		Source:   source,
	}, opts)
	if err != nil {
		return err
	}

	var summary scheduler.SummaryNotifier
	if tn != nil {
		summary = tn
	}
	sched := scheduler.NewScheduler(ctx, br, summary, rec, ctl)
	sched.Metrics = reg
	sched.Timeout = cfg.Broker.Timeout
	if err := sched.RegisterAll(cfg.Schedule.SummaryCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	var wg sync.WaitGroup
	if tn != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tn.ListenForCommands(ctx, sched.HandleCommand)
		}()
		log.Info("telegram polling started")
	}

	if cfg.Server.Enabled {
		srv := server.New(ctl, push, reg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Errorf("http server: %v", err)
				cancel()
			}
		}()
	}

	if cfg.Display.TUI {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := display.Run(ctx, ctl); err != nil {
				log.Errorf("%v", err)
			}
			// quitting the display stops the trader
			cancel()
		}()
	}

	log.Infof("PresenceTrader is running, offering %s. Press Ctrl+C to stop.", ctl.CurrentInstrument().Symbol)
	err = ctl.Run(ctx)
	cancel()
	wg.Wait()
	log.Info("PresenceTrader stopped")
	return err
}
