package fund

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"FactionVault/internal/calculator"
	"FactionVault/internal/epoch"
	"FactionVault/internal/ledger"
	"FactionVault/internal/model"
	"FactionVault/internal/position"
	"FactionVault/internal/settlement"
	"FactionVault/internal/treasury"
)

// ErrYieldPoolExhausted means a settlement would leave the vault holding less
// than the tracked deposits.
var ErrYieldPoolExhausted = errors.New("yield pool exhausted")

// Config names the game's admin and holding accounts.
type Config struct {
	Admin           string
	Vault           ledger.Account
	VaultAuthority  string
	Shop            ledger.Account
	StateFile       string // empty disables persistence
	EnforceEpochEnd bool
}

// WalletOf returns the external holding account of a participant.
func WalletOf(owner string) ledger.Account {
	return ledger.Account("wallet:" + owner)
}

type exporter interface {
	Export() []ledger.AccountState
	Restore([]ledger.AccountState)
}

// Manager serializes game transactions. Each operation runs against a clone
// of the state and a staged ledger transaction; both are committed together
// or discarded together.
type Manager struct {
	mu        sync.Mutex
	cfg       Config
	state     *model.GameState
	positions position.Store
	ledger    ledger.Port
	clock     epoch.Clock
	seq       uint64
	listeners []Listener
}

// NewManager creates a Manager, loading or initializing state from disk.
func NewManager(cfg Config, port ledger.Port, clock epoch.Clock) (*Manager, error) {
	if clock == nil {
		clock = epoch.SystemClock{}
	}
	snap := &Snapshot{}
	if cfg.StateFile != "" {
		var err error
		if snap, err = LoadState(cfg.StateFile); err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
	}

	// Initialize if fresh state
	if snap.State == nil {
		snap.State = epoch.Genesis(cfg.Admin, clock.Now())
	} else if len(snap.Accounts) > 0 {
		if ex, ok := port.(exporter); ok {
			ex.Restore(snap.Accounts)
		}
	}

	m := &Manager{
		cfg:       cfg,
		state:     snap.State,
		positions: position.NewMemoryStore(snap.Positions),
		ledger:    port,
		clock:     clock,
		seq:       snap.Seq,
	}
	if err := m.save(); err != nil {
		return nil, err
	}
	log.Printf("[INFO] fund manager ready: epoch %d, status %s, tvl %d", m.state.EpochNumber, m.state.Status, m.state.TotalTVL)
	return m, nil
}

// Subscribe registers a listener for committed transactions.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State returns a copy of the game state.
func (m *Manager) State() model.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Position returns a copy of one participant's position.
func (m *Manager) Position(owner string) (model.UserPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.positions.Get(owner)
	if err != nil {
		return model.UserPosition{}, err
	}
	return *p, nil
}

// Positions returns copies of every position sorted by owner.
func (m *Manager) Positions() []*model.UserPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions.All()
}

// Digest returns the current state digest.
func (m *Manager) Digest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Digest(m.state, m.positions.All())
}

// Register creates the caller's position in a faction.
func (m *Manager) Register(owner string, faction model.FactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.positions.Get(owner); err == nil {
		return fmt.Errorf("register %s: %w", owner, model.ErrAlreadyRegistered)
	}
	pos, err := position.New(owner, faction, m.state.EpochNumber)
	if err != nil {
		return fmt.Errorf("register %s: %w", owner, err)
	}
	if err := m.positions.Create(pos); err != nil {
		return err
	}
	log.Printf("[INFO] user %s registered in faction %d (%s)", owner, faction, faction)
	m.emit(Event{Kind: EventRegister, Caller: owner})
	return nil
}

// Deposit moves amount from the caller's wallet into the vault and credits
// the user, faction and global TVL.
func (m *Manager) Deposit(owner string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.positions.Get(owner)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	gs := m.state.Clone()
	if err := treasury.Credit(gs, pos, amount); err != nil {
		return fmt.Errorf("deposit %d: %w", amount, err)
	}
	pos.LastDepositEpoch = gs.EpochNumber

	tx := m.ledger.Begin()
	if err := tx.Transfer(ledger.Transfer{From: WalletOf(owner), To: m.cfg.Vault, Amount: amount, Authority: owner}); err != nil {
		tx.Rollback()
		return fmt.Errorf("deposit %d: %w", amount, err)
	}
	if err := m.commit(tx, gs, pos); err != nil {
		return fmt.Errorf("deposit %d: %w", amount, err)
	}
	log.Printf("[INFO] deposited %d to faction %d by %s", amount, pos.FactionID, owner)
	m.emit(Event{Kind: EventDeposit, Caller: owner, Amount: amount, TxID: tx.ID()})
	return nil
}

// Withdraw returns amount from the vault to the caller's wallet. Allowed in
// any epoch status.
func (m *Manager) Withdraw(owner string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.positions.Get(owner)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	gs := m.state.Clone()
	if err := treasury.Debit(gs, pos, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}

	tx := m.ledger.Begin()
	if err := tx.Transfer(ledger.Transfer{From: m.cfg.Vault, To: WalletOf(owner), Amount: amount, Authority: m.cfg.VaultAuthority}); err != nil {
		tx.Rollback()
		return fmt.Errorf("withdraw %d: %w", amount, err)
	}
	if err := m.commit(tx, gs, pos); err != nil {
		return fmt.Errorf("withdraw %d: %w", amount, err)
	}
	log.Printf("[INFO] withdrew %d for %s", amount, owner)
	m.emit(Event{Kind: EventWithdraw, Caller: owner, Amount: amount, TxID: tx.ID()})
	return nil
}

// UpdateAutomation overwrites the caller's automation settings.
func (m *Manager) UpdateAutomation(owner string, slot1, slot2 model.AutomationRule, fallback model.FallbackAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.positions.Get(owner)
	if err != nil {
		return fmt.Errorf("update automation: %w", err)
	}
	position.UpdateAutomation(pos, slot1, slot2, fallback)
	if err := m.positions.Put(pos); err != nil {
		return err
	}
	log.Printf("[INFO] automation rules updated for %s", owner)
	m.emit(Event{Kind: EventAutomation, Caller: owner})
	return nil
}

// InjectYield moves amount from the provider's wallet into the vault without
// crediting any TVL. The difference is the yield pool settlement draws from.
func (m *Manager) InjectYield(provider string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.ledger.Begin()
	if err := tx.Transfer(ledger.Transfer{From: WalletOf(provider), To: m.cfg.Vault, Amount: amount, Authority: provider}); err != nil {
		tx.Rollback()
		return fmt.Errorf("inject yield %d: %w", amount, err)
	}
	if err := m.commit(tx, m.state.Clone(), nil); err != nil {
		return fmt.Errorf("inject yield %d: %w", amount, err)
	}
	log.Printf("[INFO] simulated yield injection: +%d from %s", amount, provider)
	m.emit(Event{Kind: EventInjectYield, Caller: provider, Amount: amount, TxID: tx.ID()})
	return nil
}

// CloseEpoch scores the factions and enters Settlement.
func (m *Manager) CloseEpoch(caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs := m.state.Clone()
	if err := epoch.Close(gs, caller, m.clock.Now(), m.cfg.EnforceEpochEnd); err != nil {
		return err
	}
	m.state = gs
	m.emit(Event{Kind: EventCloseEpoch, Caller: caller})
	return nil
}

// OpenEpoch starts the next epoch.
func (m *Manager) OpenEpoch(caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs := m.state.Clone()
	if err := epoch.Open(gs, caller, m.clock.Now()); err != nil {
		return err
	}
	m.state = gs
	m.emit(Event{Kind: EventOpenEpoch, Caller: caller})
	return nil
}

// Settle runs the settlement pipeline for one participant. It requires the
// Settlement status and accepts at most one settlement per user per epoch.
func (m *Manager) Settle(owner string, yieldAmount uint64) (*settlement.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != model.StatusSettlement {
		return nil, fmt.Errorf("settle %s in %s: %w", owner, m.state.Status, model.ErrInvalidStatus)
	}
	pos, err := m.positions.Get(owner)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}
	if pos.LastSettledEpoch == m.state.EpochNumber {
		return nil, fmt.Errorf("settle %s epoch %d: %w", owner, m.state.EpochNumber, model.ErrAlreadySettled)
	}

	gs := m.state.Clone()
	tx := m.ledger.Begin()
	rc, err := settlement.Execute(gs, pos, yieldAmount, tx, m.accounts(owner))
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := m.checkPool(gs, tx); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("settle %s: %w", owner, err)
	}
	pos.LastSettledEpoch = gs.EpochNumber
	if err := m.commit(tx, gs, pos); err != nil {
		return nil, fmt.Errorf("settle %s: %w", owner, err)
	}
	m.emit(Event{Kind: EventSettle, Caller: owner, Amount: yieldAmount, TxID: tx.ID(), Receipt: rc})
	return rc, nil
}

// VaultGap returns the vault balance in excess of tracked deposits.
func (m *Manager) VaultGap() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vaultGapLocked()
}

func (m *Manager) vaultGapLocked() (uint64, error) {
	bal, err := m.ledger.Balance(m.cfg.Vault)
	if err != nil {
		return 0, err
	}
	gap, err := calculator.SubU64(bal, m.state.TotalTVL)
	if err != nil {
		return 0, fmt.Errorf("vault %d below total tvl %d: %w", bal, m.state.TotalTVL, err)
	}
	return gap, nil
}

// CheckInvariants verifies conservation across user, faction and global TVL
// and that the vault covers every deposit, all against one snapshot.
func (m *Manager) CheckInvariants() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := treasury.CheckConservation(m.state, m.positions.All()); err != nil {
		return err
	}
	_, err := m.vaultGapLocked()
	return err
}

func (m *Manager) accounts(owner string) settlement.Accounts {
	return settlement.Accounts{
		Vault:          m.cfg.Vault,
		VaultAuthority: m.cfg.VaultAuthority,
		Shop:           m.cfg.Shop,
		Wallet:         WalletOf(owner),
	}
}

// checkPool rejects a staged settlement that would pay out of deposits.
func (m *Manager) checkPool(gs *model.GameState, tx ledger.Tx) error {
	bal, err := m.ledger.Balance(m.cfg.Vault)
	if err != nil {
		return err
	}
	for _, t := range tx.Transfers() {
		if t.From != m.cfg.Vault {
			continue
		}
		if bal, err = calculator.SubU64(bal, t.Amount); err != nil {
			return fmt.Errorf("%w: %w", model.ErrTransferFailed, ErrYieldPoolExhausted)
		}
	}
	if bal < gs.TotalTVL {
		return fmt.Errorf("%w: vault %d < tvl %d: %w", model.ErrTransferFailed, bal, gs.TotalTVL, ErrYieldPoolExhausted)
	}
	return nil
}

// commit lands the ledger transaction, then swaps in the new state and
// position. Must be called with m.mu held.
func (m *Manager) commit(tx ledger.Tx, gs *model.GameState, pos *model.UserPosition) error {
	if err := tx.Commit(); err != nil {
		return err
	}
	if pos != nil {
		if err := m.positions.Put(pos); err != nil {
			// The store only rejects unknown owners, which were checked under the same lock.
			log.Printf("[ERROR] store position %s after commit: %v", pos.Owner, err)
		}
	}
	m.state = gs
	return nil
}

func (m *Manager) persist() {
	if err := m.save(); err != nil {
		log.Printf("[ERROR] failed to save game state: %v", err)
	}
}

func (m *Manager) save() error {
	if m.cfg.StateFile == "" {
		return nil
	}
	snap := &Snapshot{
		Seq:       m.seq,
		State:     m.state,
		Positions: m.positions.All(),
	}
	if ex, ok := m.ledger.(exporter); ok {
		snap.Accounts = ex.Export()
	}
	return SaveState(m.cfg.StateFile, snap)
}

// emit stamps the event, persists the state and notifies listeners. Every
// mutation ends here. Must be called with m.mu held.
func (m *Manager) emit(e Event) {
	m.seq++
	m.persist()
	e.Seq = m.seq
	e.Epoch = m.state.EpochNumber
	e.TotalTVL = m.state.TotalTVL
	for i, f := range m.state.Factions {
		e.Scores[i] = f.Score
	}
	e.Digest = Digest(m.state, m.positions.All())
	e.At = m.clock.Now()
	for _, l := range m.listeners {
		l(e)
	}
}

// Now exposes the manager's clock to callers that schedule around epochs.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}
