package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"FactionVault/internal/fund"
	"FactionVault/internal/model"
	"FactionVault/internal/notifier"
	"FactionVault/internal/oracle"
	"FactionVault/internal/recorder"
	"FactionVault/internal/settlement"

	"github.com/robfig/cron/v3"
)

// Sender delivers announcements.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler cranks the epoch lifecycle on cron and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Oracle   *oracle.Collector
	Fund     *fund.Manager
	Notifier Sender
	Recorder recorder.Recorder
	Admin    string
	Provider string
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler acting as admin.
func NewScheduler(ctx context.Context, admin string, col *oracle.Collector, fm *fund.Manager, tn Sender, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Oracle:   col,
		Fund:     fm,
		Notifier: tn,
		Recorder: rec,
		Admin:    admin,
		Ctx:      ctx,
	}
}

// RegisterAll registers the close-and-settle and open tasks.
func (s *Scheduler) RegisterAll(closeCron, openCron string) error {
	if _, err := s.Cron.AddFunc(closeCron, s.closeTask); err != nil {
		return fmt.Errorf("register close task: %w", err)
	}
	if _, err := s.Cron.AddFunc(openCron, s.openTask); err != nil {
		return fmt.Errorf("register open task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunCloseNow executes the close-and-settle task immediately.
func (s *Scheduler) RunCloseNow() {
	s.closeTask()
}

func (s *Scheduler) closeTask() {
	log.Println("[INFO] running epoch close task")
	if err := s.Fund.CloseEpoch(s.Admin); err != nil {
		if errors.Is(err, model.ErrEpochNotEnded) {
			log.Printf("[INFO] close skipped: %v", err)
			return
		}
		log.Printf("[ERROR] close epoch: %v", err)
		s.trySend(fmt.Sprintf("❌ 纪元结算失败: %v", err))
		return
	}
	state := s.Fund.State()
	s.trySend(notifier.FormatEpochClosed(&state))
	s.trySend(s.settleAll(state.EpochNumber))
}

// settleAll settles every registered position for the epoch, paying its
// allocation or zero when the oracle lists none, and returns the summary.
// Allocations for unknown owners are reported as failures.
func (s *Scheduler) settleAll(epoch uint64) string {
	allocs, err := s.Oracle.Collect(s.Ctx, epoch)
	if err != nil {
		log.Printf("[ERROR] collect allocations: %v", err)
		return fmt.Sprintf("❌ 收益数据获取失败: %v", err)
	}
	yields := make(map[string]uint64, len(allocs))
	for _, a := range allocs {
		yields[a.Owner] = a.Yield
	}

	var receipts []*settlement.Receipt
	failures := make(map[string]error)
	settle := func(owner string, yield uint64) {
		rc, err := s.Fund.Settle(owner, yield)
		if err != nil {
			log.Printf("[ERROR] settle %s: %v", owner, err)
			failures[owner] = err
			return
		}
		receipts = append(receipts, rc)
	}

	for _, pos := range s.Fund.Positions() {
		y, listed := yields[pos.Owner]
		delete(yields, pos.Owner)
		if pos.LastSettledEpoch == epoch {
			continue
		}
		if !listed {
			log.Printf("[INFO] no allocation for %s in epoch %d, settling 0", pos.Owner, epoch)
		}
		settle(pos.Owner, y)
	}
	// Whatever is left names no registered position.
	for _, a := range allocs {
		if _, unknown := yields[a.Owner]; unknown {
			settle(a.Owner, a.Yield)
		}
	}
	log.Printf("[INFO] epoch %d settled: %d ok, %d failed", epoch, len(receipts), len(failures))
	return notifier.FormatSettlementSummary(epoch, receipts, failures)
}

// openTask only advances from Settlement, so a skipped close never skips
// an epoch's payouts.
func (s *Scheduler) openTask() {
	log.Println("[INFO] running epoch open task")
	if st := s.Fund.State(); st.Status != model.StatusSettlement {
		log.Printf("[INFO] open skipped: epoch %d is %s", st.EpochNumber, st.Status)
		return
	}
	if err := s.Fund.OpenEpoch(s.Admin); err != nil {
		log.Printf("[ERROR] open epoch: %v", err)
		s.trySend(fmt.Sprintf("❌ 新纪元开启失败: %v", err))
		return
	}
	state := s.Fund.State()
	s.trySend(notifier.FormatEpochOpened(&state))
}

const helpText = "可用命令:\n• /status 查看金库状态\n• /factions 查看阵营\n• /close 结算本纪元\n• /open 开启新纪元\n• /history 最近结算\n• /digest 状态摘要\n• /inject <数量> 注入收益"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "查看状态", "/status":
		state := s.Fund.State()
		gap, err := s.Fund.VaultGap()
		if err != nil {
			return fmt.Sprintf("⚠️ 金库异常: %v", err)
		}
		return notifier.FormatStatus(&state, gap, s.Fund.Digest())
	case "查看阵营", "/factions":
		state := s.Fund.State()
		return fmt.Sprintf("⚔️ <b>第 %d 纪元阵营</b>\n\n%s", state.EpochNumber, notifier.FormatFactions(&state))
	case "/close":
		s.closeTask()
		return ""
	case "/open":
		s.openTask()
		return ""
	case "/history":
		rows, err := s.Recorder.RecentSettlements(10)
		if err != nil {
			return fmt.Sprintf("❌ 查询失败: %v", err)
		}
		return notifier.FormatHistory(rows)
	case "/inject":
		if len(fields) != 2 {
			return "用法: /inject <数量>"
		}
		amount, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return fmt.Sprintf("❌ 无效数量: %s", fields[1])
		}
		if err := s.Fund.InjectYield(s.Provider, amount); err != nil {
			return fmt.Sprintf("❌ 注入失败: %v", err)
		}
		gap, _ := s.Fund.VaultGap()
		return fmt.Sprintf("✅ 已注入 %s, 收益池 %s", notifier.FormatAmount(amount), notifier.FormatAmount(gap))
	case "/digest":
		if err := s.Fund.CheckInvariants(); err != nil {
			return fmt.Sprintf("⚠️ 守恒检查失败: %v\n%s", err, s.Fund.Digest())
		}
		return s.Fund.Digest()
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
