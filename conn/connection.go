package conn

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/dto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 16 * 1024
	sendChanSize   = 64
)

// LongConnection 一条客户端长连接，读写各一协程
type LongConnection struct {
	ConnID string
	UserID string

	ws     *websocket.Conn
	worker *Worker
	sendCh chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func takeLongConnection(ws *websocket.Conn, worker *Worker, userID string) *LongConnection {
	return &LongConnection{
		ConnID: uuid.NewString(),
		UserID: userID,
		ws:     ws,
		worker: worker,
		sendCh: make(chan []byte, sendChanSize),
		done:   make(chan struct{}),
	}
}

// Run 启动读写泵
func (c *LongConnection) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *LongConnection) readPump() {
	defer func() {
		c.worker.removeClient(c)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("连接 %s 异常关闭: %v", c.ConnID, err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.worker.dispatch(c, data)
	}
}

func (c *LongConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送下行数据，发送队列满视为慢消费者直接丢弃
func (c *LongConnection) SendMessage(data []byte) error {
	select {
	case <-c.done:
		return dto.ErrConnectionClosed
	case c.sendCh <- data:
		return nil
	default:
		return dto.ErrSendChanFull
	}
}

func (c *LongConnection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}
