package gate

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/jwts"
	"xiangqi-mahjong/game"
)

// Server HTTP 接入面：发连接令牌、房间列表、节点状态
type Server struct {
	worker *game.Worker
	engine *gin.Engine
}

func NewServer(worker *game.Worker) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		worker: worker,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/auth/token", s.issueToken)
	s.engine.GET("/rooms", s.listRooms)
	s.engine.GET("/status", s.status)
}

// issueToken 给客户端签发 websocket 连接令牌
func (s *Server) issueToken(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "请求参数错误"})
		return
	}

	userID := "u_" + uuid.NewString()
	expire := time.Duration(config.Conf.JwtConf.Expire) * time.Second
	token, err := jwts.GenToken(userID, config.Conf.JwtConf.Secret, expire)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "签发令牌失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userID": userID,
		"name":   req.Name,
		"token":  token,
	})
}

func (s *Server) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.worker.RoomManager.ListRooms()})
}

func (s *Server) status(c *gin.Context) {
	load := s.worker.Monitor.Last()
	c.JSON(http.StatusOK, gin.H{
		"nodeID":  s.worker.NodeID,
		"games":   load.GameCount,
		"players": load.PlayerCount,
		"cpu":     load.CPUUsage,
		"mem":     load.MemUsage,
		"load":    load.CalculateLoad(),
	})
}

// Run 启动 HTTP 服务，阻塞调用
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}
