package conn

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/jwts"
	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/common/utils"
	"xiangqi-mahjong/dto"
	"xiangqi-mahjong/game"
)

/*
	长连接网关职责：
	1. 连接生命周期：鉴权、升级、读写事件、关闭清理
	2. 上行消息解信封，交给 game.Worker 分发
	3. 下行推送：实现 game.Pusher，按 connID 定位连接
	4. 断线通知：转给 game.Worker 做座位保留与 AI 托管
*/

type CheckOriginHandler func(r *http.Request) bool

// ClientMessage 上行消息信封
type ClientMessage struct {
	Route string          `json:"route"`
	Data  json.RawMessage `json:"data"`
}

type ClientBucket struct {
	sync.RWMutex
	clients map[string]*LongConnection
}

func NewClientBucket() *ClientBucket {
	return &ClientBucket{clients: make(map[string]*LongConnection)}
}

type Worker struct {
	nodeID             string
	websocketUpgrade   *websocket.Upgrader
	upgradeOnce        sync.Once
	CheckOriginHandler CheckOriginHandler

	clientBuckets []*ClientBucket
	bucketMask    uint32

	ConnectionRateLimiter *utils.RateLimiter
	GameWorker            *game.Worker

	maxConnectionCount int
	connSemaphore      chan struct{}
	stats              struct {
		messageProcessed   int64
		messageErrors      int64
		currentConnections int32
	}

	connMap   sync.Map // userID -> *LongConnection
	isRunning bool
}

// NewWorker 创建长连接网关
func NewWorker(gameWorker *game.Worker) *Worker {
	bucketCount := 32
	w := &Worker{
		nodeID:                config.Conf.ID,
		bucketMask:            uint32(bucketCount - 1),
		GameWorker:            gameWorker,
		ConnectionRateLimiter: utils.NewRateLimiter(100, 200),
		maxConnectionCount:    100000,
		connSemaphore:         make(chan struct{}, 100000),
	}
	w.clientBuckets = make([]*ClientBucket, bucketCount)
	for i := range bucketCount {
		w.clientBuckets[i] = NewClientBucket()
	}
	w.CheckOriginHandler = func(r *http.Request) bool {
		return true
	}
	return w
}

// Run 启动 WebSocket 服务，阻塞调用
func (w *Worker) Run(addr string) error {
	if w.isRunning {
		return nil
	}
	w.isRunning = true

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", w.upgradeFunc) // 注意匹配子路径
	log.Info("websocket worker 启动, 监听 %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (w *Worker) upgradeFunc(writer http.ResponseWriter, r *http.Request) {
	userID, authMethod, err := w.identifyUser(r)
	if err != nil {
		http.Error(writer, "unauthorized", http.StatusUnauthorized)
		log.Warn("连接鉴权失败 remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	if !w.ConnectionRateLimiter.Allow() {
		http.Error(writer, "Too many connections", http.StatusTooManyRequests)
		log.Warn("连接速率超限 from %s", r.RemoteAddr)
		return
	}
	if atomic.LoadInt32(&w.stats.currentConnections) >= int32(w.maxConnectionCount) {
		http.Error(writer, "Server is at capacity", http.StatusServiceUnavailable)
		return
	}

	w.upgradeOnce.Do(w.InitUpgrade)

	header := writer.Header()
	header.Add("Server", "xiangqi-mahjong")

	ws, err := w.websocketUpgrade.Upgrade(writer, r, nil)
	if err != nil {
		log.Warn("websocket 升级失败, err:%v", err)
		return
	}

	client := takeLongConnection(ws, w, userID)
	w.BindUser(userID, client)
	w.addClient(client)
	client.Run()
	log.Info("WebSocket 建立连接: userID=%s, method=%s, connID=%s, remote=%s", userID, authMethod, client.ConnID, r.RemoteAddr)
}

// identifyUser 鉴权：测试白名单路径或 barrier token
func (w *Worker) identifyUser(r *http.Request) (string, string, error) {
	if config.Conf.JwtConf.AllowTestPath {
		if userID, ok := extractUserIDFromTestPath(r.URL.Path); ok {
			return userID, "test-path", nil
		}
	}

	token := r.URL.Query().Get("barrier")
	if token == "" {
		return "", "", errors.New("缺少 barrier token")
	}
	secret := config.Conf.JwtConf.Secret
	if secret == "" {
		return "", "", errors.New("未配置 jwt secret")
	}
	userID, err := jwts.ParseToken(token, secret)
	if err != nil {
		return "", "", err
	}
	return userID, "token", nil
}

// extractUserIDFromTestPath /ws/test/<userID> 的测试直连
func extractUserIDFromTestPath(path string) (string, bool) {
	const prefix = "/ws/test/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	userID := strings.TrimPrefix(path, prefix)
	if userID == "" || strings.Contains(userID, "/") {
		return "", false
	}
	return userID, true
}

func (w *Worker) addClient(client *LongConnection) {
	bucket := w.getBucket(client.ConnID)

	select {
	case w.connSemaphore <- struct{}{}:
		bucket.Lock()
		bucket.clients[client.ConnID] = client
		bucket.Unlock()
		atomic.AddInt32(&w.stats.currentConnections, 1)
	default:
		log.Warn("addClient: 连接数达到上限")
		client.Close()
	}
}

func (w *Worker) removeClient(client *LongConnection) {
	bucket := w.getBucket(client.ConnID)
	removed := false

	bucket.Lock()
	if _, ok := bucket.clients[client.ConnID]; ok {
		delete(bucket.clients, client.ConnID)
		removed = true
	}
	bucket.Unlock()

	if !removed {
		return
	}

	w.UnbindUser(client.UserID, client)
	client.Close()

	select {
	case <-w.connSemaphore:
	default:
	}
	atomic.AddInt32(&w.stats.currentConnections, -1)

	if w.GameWorker != nil {
		w.GameWorker.HandleDisconnect(client.ConnID, client.UserID)
	}
}

// dispatch 解开上行信封交给房间层
func (w *Worker) dispatch(client *LongConnection, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Route == "" {
		atomic.AddInt64(&w.stats.messageErrors, 1)
		w.pushError(client, dto.ErrInvalidMessage)
		return
	}
	atomic.AddInt64(&w.stats.messageProcessed, 1)
	if w.GameWorker != nil {
		w.GameWorker.HandleClientMessage(client.ConnID, client.UserID, msg.Route, msg.Data)
	}
}

func (w *Worker) pushError(client *LongConnection, err error) {
	data, merr := json.Marshal(game.ServerMessage{
		Route: "game.error",
		Data:  map[string]string{"message": err.Error()},
	})
	if merr != nil {
		return
	}
	_ = client.SendMessage(data)
}

// Push 实现 game.Pusher：按 connID 推送
func (w *Worker) Push(connID string, payload []byte) error {
	bucket := w.getBucket(connID)
	bucket.RLock()
	client, ok := bucket.clients[connID]
	bucket.RUnlock()
	if !ok {
		return dto.ErrNotConnected
	}
	return client.SendMessage(payload)
}

// BindUser 同一 userID 只保留最新连接，踢掉旧的
func (w *Worker) BindUser(userID string, client *LongConnection) {
	if userID == "" || client == nil {
		return
	}
	if oldAny, ok := w.connMap.Load(userID); ok {
		if old, ok := oldAny.(*LongConnection); ok && old != client {
			log.Info("用户 %s 已有连接，踢出旧连接", userID)
			old.Close()
		}
	}
	w.connMap.Store(userID, client)
}

func (w *Worker) UnbindUser(userID string, client *LongConnection) {
	if userID == "" {
		return
	}
	if stored, ok := w.connMap.Load(userID); ok {
		if client == nil || stored == client {
			w.connMap.Delete(userID)
		}
	}
}

func (w *Worker) getBucket(connID string) *ClientBucket {
	hash := fnv32(connID)
	index := hash & w.bucketMask
	return w.clientBuckets[index]
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

func (w *Worker) InitUpgrade() {
	w.websocketUpgrade = &websocket.Upgrader{
		CheckOrigin:       w.CheckOriginHandler,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
		HandshakeTimeout:  10 * time.Second,
	}
}

func (w *Worker) Close() {
	w.isRunning = false
}
