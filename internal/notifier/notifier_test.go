package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"FactionVault/internal/model"
	"FactionVault/internal/recorder"
	"FactionVault/internal/settlement"
)

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	tn.Limiter = nil
	tn.PollTimeout = 1
	return tn
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).SendWithRetry(context.Background(), "x", 0)
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("expected 502 error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := newTestNotifier(srv).SendWithRetry(ctx, "x", 3); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestStartPolling(t *testing.T) {
	replies := make(chan string, 4)
	var served int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if atomic.AddInt32(&served, 1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":10,"message":{"text":"/status","chat":{"id":7}}},
					{"update_id":11,"message":{"text":" /status ","chat":{"id":42}}}
				]}`))
				return
			}
			if off := r.URL.Query().Get("offset"); off != "12" {
				t.Errorf("expected offset 12, got %s", off)
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var p map[string]string
			json.NewDecoder(r.Body).Decode(&p)
			replies <- p["text"]
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var handled int32
	go func() {
		newTestNotifier(srv).StartPolling(ctx, func(cmd string) string {
			atomic.AddInt32(&handled, 1)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case r := <-replies:
		if r != "reply to /status" {
			t.Errorf("unexpected reply %q", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
	if n := atomic.LoadInt32(&handled); n != 1 {
		t.Errorf("commands from other chats must be ignored, handled %d", n)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0.00"},
		{2_000_000, "2.00"},
		{12_345_678, "12.35"},
		{18446744073709551615, "18446744073709.55"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0.00%"},
		{3333, "+33.33%"},
		{-10000, "-100.00%"},
	}
	for _, tt := range tests {
		if got := FormatScore(tt.in); got != tt.want {
			t.Errorf("FormatScore(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatSettlementSummary(t *testing.T) {
	receipts := []*settlement.Receipt{
		{Owner: "a", FinalYield: 6_000_000, Buff: settlement.BuffSword, Fallback: model.FallbackAutoCompound, Remainder: 1_000_000,
			Purchases: []settlement.Purchase{{Slot: 1, ItemID: model.ItemSpyglass, Price: model.PriceSpyglass}}},
		{Owner: "b", Buff: settlement.BuffTotalLoss},
	}
	out := FormatSettlementSummary(3, receipts, map[string]error{"zed": model.ErrAlreadySettled})
	for _, want := range []string{"第 3 纪元", "结算人数: 2", "最终收益: 6.00", "道具消费: 5.00", "自动复投: 1.00", "剑 1", "全损 1", "zed"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	if FormatHistory(nil) != "暂无结算记录" {
		t.Error("expected empty history message")
	}
	out := FormatHistory([]recorder.SettlementRecord{{Owner: "alice", Epoch: 2, FactionID: 1, InputYield: 1_000_000, FinalYield: 0, Buff: "TOTAL_LOSS"}})
	if !strings.Contains(out, "alice [Mage] 1.00 → 0.00 (TOTAL_LOSS)") {
		t.Errorf("unexpected history:\n%s", out)
	}
}
