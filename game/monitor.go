package game

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"xiangqi-mahjong/common/log"
)

// Monitor 负载监控：定期采样房间数/玩家数/CPU/内存
// 最近一次快照供 HTTP 状态接口读取
type Monitor struct {
	roomManager    *RoomManager
	updateInterval time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once

	mu   sync.RWMutex
	last LoadInfo
}

func NewMonitor(roomManager *RoomManager, updateInterval time.Duration) *Monitor {
	return &Monitor{
		roomManager:    roomManager,
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
	}
}

// Report 在独立协程里周期采样
func (m *Monitor) Report(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	m.collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Last 最近一次负载快照
func (m *Monitor) Last() LoadInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Monitor) collect() {
	gameCount, playerCount := m.roomManager.GetStats()
	info := LoadInfo{
		GameCount:   gameCount,
		PlayerCount: playerCount,
		CPUUsage:    m.getCPUUsage(),
		MemUsage:    m.getMemoryUsage(),
	}

	m.mu.Lock()
	m.last = info
	m.mu.Unlock()

	log.Debug("Monitor 负载: Load=%.2f, Games=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
		info.CalculateLoad(), info.GameCount, info.PlayerCount, info.CPUUsage, info.MemUsage)
}

// getCPUUsage 系统整体 CPU 使用率（所有核心平均，200ms 采样）
func (m *Monitor) getCPUUsage() float64 {
	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		return 0.0
	}
	usage := percentages[0]
	if usage > 100.0 {
		usage = 100.0
	}
	if usage < 0.0 {
		usage = 0.0
	}
	return usage
}

// getMemoryUsage 系统内存使用率
func (m *Monitor) getMemoryUsage() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0.0
	}
	return vm.UsedPercent
}
