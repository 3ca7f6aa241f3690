package mahjong

import (
	"testing"
	"time"
)

func collectFires() (*RoomTimers, chan *TimerFireEvent) {
	fires := make(chan *TimerFireEvent, 16)
	rt := NewRoomTimers(func(ev *TimerFireEvent) {
		fires <- ev
	})
	return rt, fires
}

func TestFamilyTimerFires(t *testing.T) {
	rt, fires := collectFires()
	rt.StartFamily(TimerTurn, 30*time.Millisecond)

	select {
	case ev := <-fires:
		if ev.Kind != TimerTurn {
			t.Fatalf("应按 turn 触发, got %v", ev.Kind)
		}
		if !rt.ConsumeFamily(ev.Seq) {
			t.Fatalf("触发应有效")
		}
	case <-time.After(time.Second):
		t.Fatalf("倒计时没触发")
	}
}

// 组内互斥：新倒计时顶掉旧的，旧触发作废
func TestFamilyTimerMutualExclusion(t *testing.T) {
	rt, fires := collectFires()
	rt.StartFamily(TimerTurn, 30*time.Millisecond)
	rt.StartFamily(TimerClaim, 60*time.Millisecond)

	ev := <-fires
	if ev.Kind != TimerClaim {
		t.Fatalf("只应收到 claim 触发, got %v", ev.Kind)
	}
	select {
	case extra := <-fires:
		t.Fatalf("不应有第二个触发: %v", extra.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

// 幂等撤销：清掉之后已投的触发因 seq 失效
func TestFamilyTimerClearInvalidates(t *testing.T) {
	rt, fires := collectFires()
	seq := rt.StartFamily(TimerTurn, 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond) // 触发已经投出
	rt.ClearFamily()
	rt.ClearFamily() // 幂等

	ev := <-fires
	if ev.Seq != seq {
		t.Fatalf("seq 不匹配")
	}
	if rt.ConsumeFamily(ev.Seq) {
		t.Fatalf("撤销后的触发应作废")
	}
}

// 回合墙钟截断局内倒计时，截断点按 roundCap 上报
func TestRoundCapClampsTurnTimer(t *testing.T) {
	rt, fires := collectFires()
	rt.StartFamily(TimerRoundCap, 50*time.Millisecond)
	rt.StartFamily(TimerTurn, 10*time.Second) // 被墙钟截断

	select {
	case ev := <-fires:
		if ev.Kind != TimerRoundCap {
			t.Fatalf("截断点应按 roundCap 触发, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("墙钟没触发")
	}

	// 墙钟解除后不再截断
	rt.ClearRoundDeadline()
	rt.StartFamily(TimerTurn, 30*time.Millisecond)
	ev := <-fires
	if ev.Kind != TimerTurn {
		t.Fatalf("解除墙钟后应按 turn 触发, got %v", ev.Kind)
	}
}

// aiThink / emptyRoom 独立于互斥组
func TestIndependentSlots(t *testing.T) {
	rt, fires := collectFires()
	rt.StartFamily(TimerNextRound, 40*time.Millisecond)
	rt.StartAIThink(15 * time.Millisecond)
	rt.StartEmptyRoom(25 * time.Millisecond)

	got := map[TimerKind]bool{}
	for i := 0; i < 3; i++ {
		select {
		case ev := <-fires:
			got[ev.Kind] = true
		case <-time.After(time.Second):
			t.Fatalf("触发不齐: %v", got)
		}
	}
	if !got[TimerAIThink] || !got[TimerEmptyRoom] || !got[TimerNextRound] {
		t.Fatalf("三类触发都该到: %v", got)
	}
}

func TestAIThinkStaleConsume(t *testing.T) {
	rt, fires := collectFires()
	rt.StartAIThink(15 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	rt.ClearAIThink()

	ev := <-fires
	if rt.ConsumeAIThink(ev.Seq) {
		t.Fatalf("清掉后的 aiThink 触发应作废")
	}
}

func TestFamilyState(t *testing.T) {
	rt, _ := collectFires()
	if _, _, active := rt.FamilyState(); active {
		t.Fatalf("初始不应有活动倒计时")
	}
	rt.StartFamily(TimerRematch, 10*time.Second)
	kind, remain, active := rt.FamilyState()
	if !active || kind != TimerRematch || remain < 8 {
		t.Fatalf("状态读取错误: %v %d %v", kind, remain, active)
	}
	rt.StopAll()
	if _, _, active := rt.FamilyState(); active {
		t.Fatalf("StopAll 后不应有活动倒计时")
	}
}
