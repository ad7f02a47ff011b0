package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"FactionVault/internal/config"
	"FactionVault/internal/epoch"
	"FactionVault/internal/fund"
	"FactionVault/internal/journal"
	"FactionVault/internal/ledger"
	"FactionVault/internal/notifier"
	"FactionVault/internal/oracle"
	"FactionVault/internal/recorder"
	"FactionVault/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] FactionVault keeper starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init ledger and game
	led := ledger.NewMemoryLedger()
	fm, err := fund.NewManager(fund.Config{
		Admin:           cfg.Game.Admin,
		Vault:           ledger.Account(cfg.Game.VaultAccount),
		VaultAuthority:  cfg.Game.VaultAuthority,
		Shop:            ledger.Account(cfg.Game.ShopAccount),
		StateFile:       cfg.Game.StateFile,
		EnforceEpochEnd: cfg.Game.EnforceEpochEnd,
	}, led, epoch.SystemClock{})
	if err != nil {
		log.Fatalf("[FATAL] init fund manager: %v", err)
	}
	if err := initVault(led, cfg); err != nil {
		log.Fatalf("[FATAL] init vault: %v", err)
	}

	// Init oracle: HTTP feed first, file feed as fallback
	var fetchers []oracle.Fetcher
	if cfg.Oracle.BaseURL != "" {
		fetchers = append(fetchers, oracle.NewHTTPFetcher(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Proxy))
	}
	if cfg.Oracle.File != "" {
		fetchers = append(fetchers, &oracle.FileFetcher{Path: cfg.Oracle.File})
	}
	col := oracle.NewCollector(fetchers...)
	for _, f := range fetchers {
		log.Printf("[INFO] allocation source: %s", f.Name())
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	fm.Subscribe(recorder.Listener(rec))

	// Init journal
	jw := journal.NewWriter(cfg.Journal.Dir)
	defer jw.Close()
	fm.Subscribe(jw.Listener())

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, cfg.Game.Admin, col, fm, tn, rec)
	sched.Provider = cfg.Game.Provider
	if err := sched.RegisterAll(cfg.Schedule.CloseCron, cfg.Schedule.OpenCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	if err := fm.CheckInvariants(); err != nil {
		log.Printf("[ERROR] invariant check on start: %v", err)
	}
	log.Printf("[INFO] FactionVault is running (digest %s). Press Ctrl+C to stop.", fm.Digest())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FactionVault stopped")
}

// initVault opens the holding accounts a fresh ledger lacks and mints the
// faucet balances into newly opened wallets. Accounts restored from the
// snapshot are left as they are.
func initVault(led *ledger.MemoryLedger, cfg *config.Config) error {
	ensure := func(acct ledger.Account, owner string, mint uint64) error {
		if _, err := led.Balance(acct); err == nil {
			return nil
		} else if !errors.Is(err, ledger.ErrUnknownAccount) {
			return err
		}
		if err := led.Open(acct, owner); err != nil {
			return err
		}
		if mint > 0 {
			return led.Mint(acct, mint)
		}
		return nil
	}

	if err := ensure(ledger.Account(cfg.Game.VaultAccount), cfg.Game.VaultAuthority, 0); err != nil {
		return err
	}
	if err := ensure(ledger.Account(cfg.Game.ShopAccount), cfg.Game.ShopAccount, 0); err != nil {
		return err
	}
	if err := ensure(fund.WalletOf(cfg.Game.Provider), cfg.Game.Provider, cfg.Game.Faucet[cfg.Game.Provider]); err != nil {
		return err
	}
	owners := make([]string, 0, len(cfg.Game.Faucet))
	for o := range cfg.Game.Faucet {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	for _, o := range owners {
		if err := ensure(fund.WalletOf(o), o, cfg.Game.Faucet[o]); err != nil {
			return err
		}
	}
	log.Printf("[INFO] vault ready: %d accounts", len(led.Accounts()))
	return nil
}
