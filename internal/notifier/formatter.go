package notifier

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"FactionVault/internal/model"
	"FactionVault/internal/recorder"
	"FactionVault/internal/settlement"
	"FactionVault/internal/treasury"

	"github.com/shopspring/decimal"
)

// minorUnitExp is the decimal exponent of the settlement token (6 decimals).
const minorUnitExp = -6

// FormatAmount renders minor units as a token amount.
func FormatAmount(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), minorUnitExp).StringFixed(2)
}

// FormatScore renders a scaled score as a signed percentage of total TVL.
func FormatScore(score int64) string {
	d := decimal.New(score, 0).Div(decimal.New(model.ScoreScale, 0)).Shift(2)
	s := d.StringFixed(2) + "%"
	if score > 0 {
		s = "+" + s
	}
	return s
}

// FormatFactions formats the faction table.
func FormatFactions(gs *model.GameState) string {
	var b strings.Builder
	for _, f := range gs.Factions {
		mark := "❌"
		if treasury.Won(f.Score) {
			mark = "🏆"
		}
		b.WriteString(fmt.Sprintf("  %s %s: TVL %s | 评分 %s\n", mark, f.Name, FormatAmount(f.TVL), FormatScore(f.Score)))
	}
	return b.String()
}

// FormatEpochClosed announces the scores of a resolved epoch.
func FormatEpochClosed(gs *model.GameState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚔️ <b>第 %d 纪元结算</b> | %s\n\n", gs.EpochNumber, time.Unix(gs.EpochEndTS, 0).UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("总锁仓: %s\n\n", FormatAmount(gs.TotalTVL)))
	b.WriteString(FormatFactions(gs))
	return b.String()
}

// FormatEpochOpened announces a new epoch window.
func FormatEpochOpened(gs *model.GameState) string {
	return fmt.Sprintf("🌅 <b>第 %d 纪元开始</b>\n\n结束时间: %s\n总锁仓: %s\n",
		gs.EpochNumber,
		time.Unix(gs.EpochEndTS, 0).UTC().Format("2006-01-02 15:04"),
		FormatAmount(gs.TotalTVL))
}

// FormatSettlementSummary summarizes a settlement batch.
func FormatSettlementSummary(epoch uint64, receipts []*settlement.Receipt, failures map[string]error) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💰 <b>第 %d 纪元收益分配</b>\n\n", epoch))

	var paid, bought, compounded uint64
	buffs := make(map[settlement.Buff]int)
	for _, rc := range receipts {
		paid += rc.FinalYield
		for _, p := range rc.Purchases {
			bought += p.Price
		}
		if rc.Fallback == model.FallbackAutoCompound {
			compounded += rc.Remainder
		}
		buffs[rc.Buff]++
	}
	b.WriteString(fmt.Sprintf("结算人数: %d\n", len(receipts)))
	b.WriteString(fmt.Sprintf("最终收益: %s\n", FormatAmount(paid)))
	b.WriteString(fmt.Sprintf("道具消费: %s\n", FormatAmount(bought)))
	b.WriteString(fmt.Sprintf("自动复投: %s\n", FormatAmount(compounded)))
	b.WriteString(fmt.Sprintf("⚔️ 剑 %d | 🛡 盾 %d | 💀 全损 %d\n",
		buffs[settlement.BuffSword], buffs[settlement.BuffShield], buffs[settlement.BuffTotalLoss]))

	if len(failures) > 0 {
		owners := make([]string, 0, len(failures))
		for o := range failures {
			owners = append(owners, o)
		}
		sort.Strings(owners)
		b.WriteString(fmt.Sprintf("\n⚠️ 失败 %d:\n", len(failures)))
		for _, o := range owners {
			b.WriteString(fmt.Sprintf("  %s: %v\n", o, failures[o]))
		}
	}
	return b.String()
}

// FormatStatus formats the current game state for display.
func FormatStatus(gs *model.GameState, gap uint64, digest string) string {
	var b strings.Builder
	b.WriteString("📦 <b>金库状态</b>\n\n")
	b.WriteString(fmt.Sprintf("纪元: %d (%s)\n", gs.EpochNumber, gs.Status))
	b.WriteString(fmt.Sprintf("结束时间: %s\n", time.Unix(gs.EpochEndTS, 0).UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("总锁仓: %s\n", FormatAmount(gs.TotalTVL)))
	b.WriteString(fmt.Sprintf("收益池: %s\n", FormatAmount(gap)))
	if len(digest) > 16 {
		digest = digest[:16]
	}
	b.WriteString(fmt.Sprintf("摘要: <code>%s</code>\n", digest))
	return b.String()
}

// FormatHistory lists recent settlement records.
func FormatHistory(rows []recorder.SettlementRecord) string {
	if len(rows) == 0 {
		return "暂无结算记录"
	}
	var b strings.Builder
	b.WriteString("📜 <b>最近结算</b>\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  #%d %s [%s] %s → %s (%s)\n",
			r.Epoch, r.Owner, model.FactionID(r.FactionID), FormatAmount(r.InputYield), FormatAmount(r.FinalYield), r.Buff))
	}
	return b.String()
}
