package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"FactionVault/internal/epoch"
	"FactionVault/internal/fund"
	"FactionVault/internal/ledger"
	"FactionVault/internal/model"
	"FactionVault/internal/oracle"
	"FactionVault/internal/recorder"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSender) all() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.msgs, "\n---\n")
}

func newTestScheduler(t *testing.T, yields map[string]uint64) (*Scheduler, *fakeSender, *fund.Manager) {
	t.Helper()
	l := ledger.NewMemoryLedger()
	_ = l.Open("vault", "program")
	_ = l.Open("shop", "shop")
	for _, u := range []string{"alice", "bob", "carol", "provider"} {
		_ = l.Open(fund.WalletOf(u), u)
		_ = l.Mint(fund.WalletOf(u), 100_000_000)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fm, err := fund.NewManager(fund.Config{
		Admin:          "admin",
		Vault:          "vault",
		VaultAuthority: "program",
		Shop:           "shop",
	}, l, epoch.ClockFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	fm.Subscribe(recorder.Listener(rec))

	if err := fm.Register("alice", model.FactionVanguard); err != nil {
		t.Fatal(err)
	}
	if err := fm.Register("bob", model.FactionMage); err != nil {
		t.Fatal(err)
	}
	if err := fm.Deposit("alice", 1_000_000); err != nil {
		t.Fatal(err)
	}
	if err := fm.Deposit("bob", 3_000_000); err != nil {
		t.Fatal(err)
	}
	if err := fm.InjectYield("provider", 50_000_000); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	col := oracle.NewCollector(&oracle.MockFetcher{Yields: yields})
	s := NewScheduler(context.Background(), "admin", col, fm, sender, rec)
	s.Provider = "provider"
	return s, sender, fm
}

func TestCloseTask_SettlesAllocations(t *testing.T) {
	s, sender, fm := newTestScheduler(t, map[string]uint64{"alice": 5_000_000, "bob": 5_000_000, "ghost": 1})

	s.RunCloseNow()

	if fm.State().Status != model.StatusSettlement {
		t.Fatalf("expected settlement status, got %s", fm.State().Status)
	}
	for _, owner := range []string{"alice", "bob"} {
		pos, err := fm.Position(owner)
		if err != nil {
			t.Fatal(err)
		}
		if pos.LastSettledEpoch != 1 {
			t.Errorf("%s not settled", owner)
		}
	}
	// Bob's Mage targets Vanguard and wins; the default automation compounds.
	if bob, _ := fm.Position("bob"); bob.DepositedAmount != 8_000_000 {
		t.Errorf("expected bob to compound to 8000000, got %d", bob.DepositedAmount)
	}
	if err := fm.CheckInvariants(); err != nil {
		t.Error(err)
	}

	out := sender.all()
	for _, want := range []string{"第 1 纪元结算", "结算人数: 2", "ghost"} {
		if !strings.Contains(out, want) {
			t.Errorf("announcements missing %q:\n%s", want, out)
		}
	}

	// A second close is rejected and reported without touching settlements.
	s.RunCloseNow()
	if !strings.Contains(sender.all(), "纪元结算失败") {
		t.Error("expected failure announcement on repeated close")
	}

	hist := s.HandleCommand("/history")
	if !strings.Contains(hist, "alice") || !strings.Contains(hist, "bob") {
		t.Errorf("history missing receipts:\n%s", hist)
	}
}

func TestCloseTask_SettlesUnlistedPositions(t *testing.T) {
	s, sender, fm := newTestScheduler(t, map[string]uint64{"alice": 5_000_000})
	mock := s.Oracle.Fetchers[0].(*oracle.MockFetcher)

	// Epoch 1: Assassin outweighs Mage, so alice's Vanguard wins and buys a shield.
	if err := fm.Register("carol", model.FactionAssassin); err != nil {
		t.Fatal(err)
	}
	if err := fm.Deposit("carol", 5_000_000); err != nil {
		t.Fatal(err)
	}
	shield := model.AutomationRule{ItemID: model.ItemShield}
	if err := fm.UpdateAutomation("alice", shield, model.AutomationRule{}, model.FallbackAutoCompound); err != nil {
		t.Fatal(err)
	}
	s.RunCloseNow()
	for _, owner := range []string{"alice", "bob", "carol"} {
		if pos, _ := fm.Position(owner); pos.LastSettledEpoch != 1 {
			t.Errorf("%s not settled in epoch 1", owner)
		}
	}
	alice, _ := fm.Position("alice")
	if alice.Inventory.ShieldCount != 1 || alice.DepositedAmount != 4_000_000 {
		t.Fatalf("expected one shield and 4000000 deposited, got %d and %d", alice.Inventory.ShieldCount, alice.DepositedAmount)
	}

	// Epoch 2: Assassin empties, Vanguard loses, and the oracle lists only bob.
	s.openTask()
	if err := fm.UpdateAutomation("alice", model.AutomationRule{}, model.AutomationRule{}, model.FallbackAutoCompound); err != nil {
		t.Fatal(err)
	}
	if err := fm.Withdraw("carol", 5_000_000); err != nil {
		t.Fatal(err)
	}
	mock.Yields = map[string]uint64{"bob": 1_000_000}
	s.RunCloseNow()

	alice, _ = fm.Position("alice")
	if alice.LastSettledEpoch != 2 {
		t.Fatalf("unlisted alice not settled in epoch 2")
	}
	if alice.Inventory.ShieldCount != 0 || alice.DepositedAmount != 4_000_000+model.ShieldPayout {
		t.Errorf("expected shield burned and payout compounded, got shields %d deposited %d", alice.Inventory.ShieldCount, alice.DepositedAmount)
	}
	if err := fm.CheckInvariants(); err != nil {
		t.Error(err)
	}
	if out := sender.all(); !strings.Contains(out, "第 2 纪元结算") || !strings.Contains(out, "盾 1") {
		t.Errorf("epoch 2 summary missing shield payout:\n%s", out)
	}
}

func TestOpenTask(t *testing.T) {
	s, sender, fm := newTestScheduler(t, nil)
	s.openTask()
	if st := fm.State(); st.EpochNumber != 1 || sender.all() != "" {
		t.Errorf("open while active must be skipped, epoch %d", st.EpochNumber)
	}

	s.RunCloseNow()
	s.openTask()
	st := fm.State()
	if st.EpochNumber != 2 || st.Status != model.StatusActive {
		t.Errorf("unexpected state after open: epoch %d %s", st.EpochNumber, st.Status)
	}
	if !strings.Contains(sender.all(), "第 2 纪元开始") {
		t.Error("missing open announcement")
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, fm := newTestScheduler(t, nil)

	status := s.HandleCommand("/status")
	if !strings.Contains(status, "总锁仓: 4.00") || !strings.Contains(status, "收益池: 50.00") {
		t.Errorf("unexpected status:\n%s", status)
	}
	factions := s.HandleCommand("查看阵营")
	if !strings.Contains(factions, "Vanguard") || !strings.Contains(factions, "Assassin") {
		t.Errorf("unexpected factions:\n%s", factions)
	}
	if got := s.HandleCommand("/digest"); got != fm.Digest() {
		t.Errorf("digest mismatch: %s", got)
	}
	if got := s.HandleCommand("/history"); got != "暂无结算记录" {
		t.Errorf("unexpected empty history %q", got)
	}
	if got := s.HandleCommand("/inject 2000000"); !strings.Contains(got, "收益池 52.00") {
		t.Errorf("unexpected inject reply %q", got)
	}
	if got := s.HandleCommand("/inject lots"); !strings.Contains(got, "无效数量") {
		t.Errorf("unexpected inject reply %q", got)
	}
	if got := s.HandleCommand("/inject 999999999999"); !strings.Contains(got, "注入失败") {
		t.Errorf("expected inject failure, got %q", got)
	}
	if got := s.HandleCommand("hello"); got != helpText {
		t.Errorf("expected help, got %q", got)
	}
}

func TestRegisterAll_InvalidCron(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	if err := s.RegisterAll("bad", "0 0 0 * * *"); err == nil {
		t.Error("expected error for invalid close cron")
	}
	if err := s.RegisterAll("0 0 0 * * *", "0 0"); err == nil {
		t.Error("expected error for invalid open cron")
	}
}
