package node

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"xiangqi-mahjong/common/log"
)

// 镜像主题：外部大厅/运营服务可以订阅这些事件
const (
	SubjectRoomList    = "hall.roomlist"
	SubjectMatchResult = "hall.matchresult"
)

// NatsWorker 可选的事件镜像
// 未配置 NATS 地址时所有操作都是空转，单进程部署不受影响
type NatsWorker struct {
	conn *nats.Conn
}

func NewNatsWorker() *NatsWorker {
	return &NatsWorker{}
}

// Run 连接 NATS；url 为空表示关闭镜像
func (nw *NatsWorker) Run(url string) error {
	if url == "" {
		return nil
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS 连接断开: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS 重连成功")
		}),
	)
	if err != nil {
		return fmt.Errorf("连接 NATS 失败: %w", err)
	}
	nw.conn = conn
	log.Info("NATS 镜像已连接: %s", url)
	return nil
}

// Publish 发布事件，未连接时直接忽略
func (nw *NatsWorker) Publish(subject string, data []byte) {
	if nw.conn == nil {
		return
	}
	if err := nw.conn.Publish(subject, data); err != nil {
		log.Warn("NATS 发布失败 subject=%s: %v", subject, err)
	}
}

func (nw *NatsWorker) Close() {
	if nw.conn != nil {
		nw.conn.Close()
		nw.conn = nil
	}
}
