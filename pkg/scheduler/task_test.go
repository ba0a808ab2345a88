package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/repository"
)

type stubExpirer struct {
	mu    sync.Mutex
	calls int
	n     int64
	err   error
	panic bool
}

func (s *stubExpirer) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panic {
		panic("store exploded")
	}
	return s.n, s.err
}

func (s *stubExpirer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSweepExpiresAndIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Second)
	future := now.Add(time.Hour)
	for _, vu := range []*time.Time{&past, &future} {
		tr := model.TradeSetup{Symbol: "BTCUSD", ValidUntil: vu}
		if err := store.SaveTrade(ctx, "u1", &tr); err != nil {
			t.Fatalf("SaveTrade 失败: %v", err)
		}
	}

	s := NewSweeper(store, WithClock(func() time.Time { return now }))
	n, err := s.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("期望过期 1 条，实际 %d, %v", n, err)
	}
	n, err = s.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("第二次扫描应为 0，实际 %d, %v", n, err)
	}
}

func TestRunSwallowsErrors(t *testing.T) {
	buf := &syncBuffer{}
	stub := &stubExpirer{err: errors.New("store unavailable")}
	s := NewSweeper(stub, WithLogger(logger.NewWithWriter(buf, zerolog.DebugLevel)))

	s.run()
	if stub.Calls() != 1 {
		t.Fatalf("期望调用 1 次，实际 %d", stub.Calls())
	}
	if !strings.Contains(buf.String(), "store unavailable") {
		t.Fatalf("错误应被记录，日志: %s", buf.String())
	}
}

func TestRunLogsCount(t *testing.T) {
	buf := &syncBuffer{}
	s := NewSweeper(&stubExpirer{n: 3}, WithLogger(logger.NewWithWriter(buf, zerolog.InfoLevel)))
	s.run()
	if !strings.Contains(buf.String(), `"count":3`) {
		t.Fatalf("应记录过期条数，日志: %s", buf.String())
	}

	buf2 := &syncBuffer{}
	s = NewSweeper(&stubExpirer{n: 0}, WithLogger(logger.NewWithWriter(buf2, zerolog.InfoLevel)))
	s.run()
	if buf2.String() != "" {
		t.Fatalf("没有过期时不应输出日志，日志: %s", buf2.String())
	}
}

func TestScheduledRunSurvivesPanic(t *testing.T) {
	stub := &stubExpirer{panic: true}
	s := NewSweeper(stub, WithSpec("@every 1s"))
	if err := s.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for stub.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if stub.Calls() < 2 {
		t.Fatalf("panic 后应继续调度，实际调用 %d 次", stub.Calls())
	}
}

func TestInvalidSpec(t *testing.T) {
	s := NewSweeper(&stubExpirer{}, WithSpec("not a spec"))
	if err := s.Start(); err == nil {
		t.Fatal("无效的调度表达式应返回错误")
	}
}
