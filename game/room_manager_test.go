package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/dto"
	"xiangqi-mahjong/game/engines"
	"xiangqi-mahjong/game/share"
)

// stubEngine 目录层测试用的空引擎
type stubEngine struct {
	initialized bool
	closed      bool
	events      []share.GameEvent
}

func (s *stubEngine) InitializeEngine(roomID string, cfg share.RoomConfig) error {
	s.initialized = true
	return nil
}

func (s *stubEngine) NotifyEvent(event share.GameEvent) {
	s.events = append(s.events, event)
}

func (s *stubEngine) Snapshot() engines.Summary {
	return engines.Summary{Phase: "WAITING_FOR_PLAYERS", SeatsTaken: 1, Humans: 1, OnlineHumans: 1}
}

func (s *stubEngine) Clone() engines.Engine { return &stubEngine{} }
func (s *stubEngine) Terminate()            {}
func (s *stubEngine) Close()                { s.closed = true }

func newTestManager(t *testing.T) *RoomManager {
	t.Helper()
	rm := NewRoomManager(config.TestDefaults().RoomLimits)
	require.NoError(t, rm.SetEnginePrototype(engines.XIANGQI_MAHJONG_4P_ENGINE, &stubEngine{}))
	return rm
}

func TestCreateJoinListDelete(t *testing.T) {
	rm := newTestManager(t)

	cfg := share.RoomConfig{Name: "测试房", HumanTarget: 2, Rounds: 4}
	room, err := rm.CreateRoom(cfg, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.NoError(t, err)
	require.True(t, room.Engine.(*stubEngine).initialized)

	// 建房者已有路由，不能再建
	_, err = rm.CreateRoom(cfg, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.ErrorIs(t, err, dto.ErrAlreadyInRoom)

	got, ok := rm.GetPlayerRoom("alice")
	require.True(t, ok)
	require.Equal(t, room.ID, got.ID)

	joined, err := rm.JoinRoom(room.ID, "bob", "")
	require.NoError(t, err)
	require.Equal(t, room.ID, joined.ID)

	list := rm.ListRooms()
	require.Len(t, list, 1)
	require.Equal(t, "测试房", list[0].Name)
	require.False(t, list[0].HasPassword)

	require.NoError(t, rm.DeleteRoom(room.ID))
	require.True(t, room.Engine.(*stubEngine).closed)
	if _, ok := rm.GetPlayerRoom("alice"); ok {
		t.Fatalf("删房后路由应清空")
	}
	require.Error(t, rm.DeleteRoom(room.ID))
}

func TestJoinRoomPassword(t *testing.T) {
	rm := newTestManager(t)
	cfg := share.RoomConfig{Name: "有锁房", Password: "888", HumanTarget: 2}
	room, err := rm.CreateRoom(cfg, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.NoError(t, err)

	_, err = rm.JoinRoom(room.ID, "bob", "999")
	require.ErrorIs(t, err, dto.ErrRoomPassword)

	_, err = rm.JoinRoom(room.ID, "bob", "888")
	require.NoError(t, err)

	// 已在本房间的重复 join 视为重连，放行
	_, err = rm.JoinRoom(room.ID, "bob", "888")
	require.NoError(t, err)

	_, err = rm.JoinRoom("room_nonexistent", "carol", "")
	require.ErrorIs(t, err, dto.ErrRoomNotFound)
}

func TestCreateRoomLimits(t *testing.T) {
	rm := newTestManager(t)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err := rm.CreateRoom(share.RoomConfig{Name: string(long)}, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.ErrorIs(t, err, dto.ErrRoomNameLength)

	_, err = rm.CreateRoom(share.RoomConfig{Name: "ok", Password: string(long)}, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.ErrorIs(t, err, dto.ErrPasswordLength)
}

func TestDetachPlayer(t *testing.T) {
	rm := newTestManager(t)
	room, err := rm.CreateRoom(share.RoomConfig{Name: "房"}, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.NoError(t, err)

	rm.DetachPlayer(room.ID, "alice")
	if _, ok := rm.GetPlayerRoom("alice"); ok {
		t.Fatalf("解除路由后不应再查到")
	}

	// 不影响别的房间映射
	rm.DetachPlayer("room_other", "alice")
}

func TestGetStats(t *testing.T) {
	rm := newTestManager(t)
	_, err := rm.CreateRoom(share.RoomConfig{Name: "一号房"}, "alice", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.NoError(t, err)
	_, err = rm.CreateRoom(share.RoomConfig{Name: "二号房"}, "bob", engines.XIANGQI_MAHJONG_4P_ENGINE)
	require.NoError(t, err)

	games, players := rm.GetStats()
	require.Equal(t, 2, games)
	require.Equal(t, 2, players)
}
