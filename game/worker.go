package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"xiangqi-mahjong/common/cache"
	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/core/domain/repository"
	"xiangqi-mahjong/core/infrastructure/message/node"
	"xiangqi-mahjong/dto"
	"xiangqi-mahjong/game/engines"
	"xiangqi-mahjong/game/share"
)

/*
	Worker 是房间层的总装：
	1. 房间目录（建房、入房、列表、销毁）
	2. 把连接层解出来的客户端消息翻译成类型化事件，路由到正确的房间收件箱
	3. 大厅订阅与房间列表广播（房间集合变化时推送）
	4. 可选的 NATS 镜像与负载监控
*/

// Pusher 连接层回推接口，引擎经 Worker 间接使用
type Pusher interface {
	Push(connID string, payload []byte) error
}

// ServerMessage 下行消息信封
type ServerMessage struct {
	Route string `json:"route"`
	Data  any    `json:"data"`
}

type Worker struct {
	RoomManager          *RoomManager
	MiddleWorker         *node.NatsWorker
	Monitor              *Monitor
	GameRecordRepository repository.MatchRecordRepository
	NodeID               string
	MaxLogEntries        int

	pusher     Pusher
	routeCache *cache.GeneralCache // 断线重连提示：userID -> roomID

	lobbyMu   sync.RWMutex
	lobbySubs map[string]struct{} // 订阅房间列表的连接

	destroyRoomCh chan string
	destroyMu     sync.Mutex
	destroyClosed bool
}

// NewWorker 创建 Worker
func NewWorker(nodeID string, conf config.ServerConfiguration) *Worker {
	routeCache, err := cache.NewGeneralCache(16<<20, time.Duration(conf.Timeouts.EmptyRoomActiveSeconds)*time.Second)
	if err != nil {
		log.Fatal("创建重连路由缓存失败: %v", err)
	}

	worker := &Worker{
		RoomManager:   NewRoomManager(conf.RoomLimits),
		MiddleWorker:  node.NewNatsWorker(),
		NodeID:        nodeID,
		MaxLogEntries: conf.RoomLimits.MaxMessageLogEntries,
		routeCache:    routeCache,
		lobbySubs:     make(map[string]struct{}),
		destroyRoomCh: make(chan string, 128),
	}
	worker.Monitor = NewMonitor(worker.RoomManager, 5*time.Second)

	go worker.destroyRoomLoop()
	return worker
}

// SetPusher 注入连接层（启动时装配）
func (w *Worker) SetPusher(p Pusher) {
	w.pusher = p
}

// SetGameRecordRepository 注入对局存档仓储（可为 nil）
func (w *Worker) SetGameRecordRepository(repo repository.MatchRecordRepository) {
	w.GameRecordRepository = repo
}

// Start 启动 NATS 镜像与负载监控
func (w *Worker) Start(ctx context.Context, natsURL string) error {
	if err := w.MiddleWorker.Run(natsURL); err != nil {
		return err
	}
	go w.Monitor.Report(ctx)
	log.Info("Game Worker[%s] 启动成功", w.NodeID)
	return nil
}

func (w *Worker) destroyRoomLoop() {
	for roomID := range w.destroyRoomCh {
		if roomID == "" {
			continue
		}
		if err := w.RoomManager.DeleteRoom(roomID); err != nil {
			log.Warn("Worker destroyRoomLoop 删除房间失败: %v", err)
			continue
		}
		w.NotifyRoomChanged()
	}
}

// RequestDestroyRoom 引擎请求销毁房间（异步，避免在收件箱里自毁）
func (w *Worker) RequestDestroyRoom(roomID string) {
	if roomID == "" {
		return
	}
	w.destroyMu.Lock()
	if w.destroyClosed {
		w.destroyMu.Unlock()
		return
	}
	ch := w.destroyRoomCh
	w.destroyMu.Unlock()

	select {
	case ch <- roomID:
	default:
		log.Warn("Worker RequestDestroyRoom 队列已满, roomID=%s", roomID)
	}
}

// DetachPlayer 引擎侧请人出房/拒收时解除路由
func (w *Worker) DetachPlayer(roomID, userID string) {
	w.RoomManager.DetachPlayer(roomID, userID)
	w.routeCache.Delete(userID)
}

// ---------------------------------------------------------------- 客户端消息分发

type createRoomReq struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	HumanTarget int    `json:"humanTarget"`
	FillWithAI  bool   `json:"fillWithAI"`
	Rounds      int    `json:"rounds"`
	PlayerName  string `json:"playerName"`
}

type joinRoomReq struct {
	RoomID   string `json:"roomID"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type chatReq struct {
	Text string `json:"text"`
}

type discardReq struct {
	TileID int `json:"tileID"`
}

type kindReq struct {
	Kind int `json:"kind"`
}

type claimReq struct {
	Decision     string `json:"decision"`
	Kind         int    `json:"kind"`
	ComboTileIDs []int  `json:"comboTileIDs"`
}

// HandleClientMessage 连接层解包后的唯一入口
// 这里只做解码和路由，规则校验全在引擎收件箱里
func (w *Worker) HandleClientMessage(connID, userID, route string, data json.RawMessage) {
	switch route {
	case "room.create":
		w.handleCreateRoom(connID, userID, data)
	case "room.join":
		w.handleJoinRoom(connID, userID, data)
	case "room.rejoin":
		w.handleRejoinRoom(connID, userID)
	case "room.leave":
		w.postEvent(connID, userID, &share.LeaveEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}})
	case "room.list.subscribe":
		w.subscribeLobby(connID)
	case "room.list.unsubscribe":
		w.unsubscribeLobby(connID)
	case "room.chat":
		var req chatReq
		if json.Unmarshal(data, &req) != nil {
			w.pushError(connID, dto.ErrMessageUnmarshal)
			return
		}
		w.postEvent(connID, userID, &share.ChatEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}, Text: req.Text})
	case "game.start":
		w.postEvent(connID, userID, &share.StartGameEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}})
	case "game.draw":
		w.postEvent(connID, userID, &share.DrawTileEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}})
	case "game.discard":
		var req discardReq
		if json.Unmarshal(data, &req) != nil {
			w.pushError(connID, dto.ErrMessageUnmarshal)
			return
		}
		w.postEvent(connID, userID, &share.DiscardTileEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}, TileID: req.TileID})
	case "game.selfHu":
		w.postEvent(connID, userID, &share.SelfHuEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}})
	case "game.anGang":
		var req kindReq
		if json.Unmarshal(data, &req) != nil {
			w.pushError(connID, dto.ErrMessageUnmarshal)
			return
		}
		w.postEvent(connID, userID, &share.AnGangEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}, Kind: req.Kind})
	case "game.addGang":
		var req kindReq
		if json.Unmarshal(data, &req) != nil {
			w.pushError(connID, dto.ErrMessageUnmarshal)
			return
		}
		w.postEvent(connID, userID, &share.AddGangEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}, Kind: req.Kind})
	case "game.claim":
		var req claimReq
		if json.Unmarshal(data, &req) != nil {
			w.pushError(connID, dto.ErrMessageUnmarshal)
			return
		}
		w.postEvent(connID, userID, &share.ClaimEvent{
			GameMessageEvent: share.GameMessageEvent{UserID: userID},
			Decision:         req.Decision,
			Kind:             req.Kind,
			ComboTileIDs:     req.ComboTileIDs,
		})
	case "game.confirmNextRound":
		w.postEvent(connID, userID, &share.ConfirmNextRoundEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}})
	case "game.voteRematch":
		w.postEvent(connID, userID, &share.VoteRematchEvent{GameMessageEvent: share.GameMessageEvent{UserID: userID}})
	default:
		w.pushError(connID, dto.ErrInvalidRoute)
	}
}

func (w *Worker) handleCreateRoom(connID, userID string, data json.RawMessage) {
	var req createRoomReq
	if json.Unmarshal(data, &req) != nil {
		w.pushError(connID, dto.ErrMessageUnmarshal)
		return
	}
	cfg := share.RoomConfig{
		Name:        req.Name,
		Password:    req.Password,
		HumanTarget: req.HumanTarget,
		FillWithAI:  req.FillWithAI,
		Rounds:      req.Rounds,
	}
	room, err := w.RoomManager.CreateRoom(cfg, userID, engines.XIANGQI_MAHJONG_4P_ENGINE)
	if err != nil {
		w.pushError(connID, err)
		return
	}
	room.Engine.NotifyEvent(&share.JoinEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: userID},
		Name:             req.PlayerName,
		ConnID:           connID,
	})
	w.NotifyRoomChanged()
}

func (w *Worker) handleJoinRoom(connID, userID string, data json.RawMessage) {
	var req joinRoomReq
	if json.Unmarshal(data, &req) != nil {
		w.pushError(connID, dto.ErrMessageUnmarshal)
		return
	}
	room, err := w.RoomManager.JoinRoom(req.RoomID, userID, req.Password)
	if err != nil {
		w.pushError(connID, err)
		return
	}
	room.Engine.NotifyEvent(&share.JoinEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: userID},
		Name:             req.Name,
		ConnID:           connID,
	})
}

// handleRejoinRoom 断线后的快速回房（缓存提示 + 既有路由双保险）
func (w *Worker) handleRejoinRoom(connID, userID string) {
	room, ok := w.RoomManager.GetPlayerRoom(userID)
	if !ok {
		if roomID, hit := w.routeCache.GetString(userID); hit {
			room, ok = w.RoomManager.GetRoom(roomID)
		}
	}
	if !ok || room == nil {
		w.pushError(connID, dto.ErrNotInRoom)
		return
	}
	room.Engine.NotifyEvent(&share.JoinEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: userID},
		ConnID:           connID,
	})
}

func (w *Worker) postEvent(connID, userID string, event share.GameEvent) {
	room, ok := w.RoomManager.GetPlayerRoom(userID)
	if !ok {
		w.pushError(connID, dto.ErrNotInRoom)
		return
	}
	room.Engine.NotifyEvent(event)
}

// HandleDisconnect 连接断开：退订大厅、通知房间、留重连提示
func (w *Worker) HandleDisconnect(connID, userID string) {
	w.unsubscribeLobby(connID)
	room, ok := w.RoomManager.GetPlayerRoom(userID)
	if !ok {
		return
	}
	w.routeCache.Set(userID, room.ID)
	room.Engine.NotifyEvent(&share.DisconnectEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: userID},
		ConnID:           connID,
	})
}

// ---------------------------------------------------------------- 大厅与推送

func (w *Worker) subscribeLobby(connID string) {
	w.lobbyMu.Lock()
	w.lobbySubs[connID] = struct{}{}
	w.lobbyMu.Unlock()
	w.PushToConn(connID, "room.list", w.RoomManager.ListRooms())
}

func (w *Worker) unsubscribeLobby(connID string) {
	w.lobbyMu.Lock()
	delete(w.lobbySubs, connID)
	w.lobbyMu.Unlock()
}

// NotifyRoomChanged 房间集合或占用变化：广播给大厅订阅者并镜像到 NATS
func (w *Worker) NotifyRoomChanged() {
	list := w.RoomManager.ListRooms()

	w.lobbyMu.RLock()
	subs := make([]string, 0, len(w.lobbySubs))
	for connID := range w.lobbySubs {
		subs = append(subs, connID)
	}
	w.lobbyMu.RUnlock()

	for _, connID := range subs {
		w.PushToConn(connID, "room.list", list)
	}

	if data, err := json.Marshal(list); err == nil {
		w.MiddleWorker.Publish(node.SubjectRoomList, data)
	}
}

// PushToConn 下行推送（引擎和大厅共用）
func (w *Worker) PushToConn(connID string, route string, payload any) {
	if w.pusher == nil || connID == "" {
		return
	}
	data, err := json.Marshal(ServerMessage{Route: route, Data: payload})
	if err != nil {
		log.Error("PushToConn 序列化失败 route=%s: %v", route, err)
		return
	}
	if err := w.pusher.Push(connID, data); err != nil {
		log.Debug("PushToConn 发送失败 connID=%s: %v", connID, err)
	}
}

func (w *Worker) pushError(connID string, err error) {
	w.PushToConn(connID, "game.error", map[string]string{"message": err.Error()})
}

// Close 关闭 Worker
func (w *Worker) Close() {
	w.destroyMu.Lock()
	if !w.destroyClosed {
		close(w.destroyRoomCh)
		w.destroyClosed = true
	}
	w.destroyMu.Unlock()

	if w.Monitor != nil {
		w.Monitor.Stop()
	}
	if w.MiddleWorker != nil {
		w.MiddleWorker.Close()
	}
	if w.routeCache != nil {
		w.routeCache.Close()
	}
	log.Info("Game Worker[%s] 已关闭", w.NodeID)
}
