package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/database"
	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/common/metrics"
	"xiangqi-mahjong/conn"
	"xiangqi-mahjong/core/infrastructure/persistence"
	"xiangqi-mahjong/game"
	"xiangqi-mahjong/game/engines"
	"xiangqi-mahjong/game/engines/mahjong"
	"xiangqi-mahjong/gate"
)

// 加载配置 -> 初始化日志/监控 -> 装配房间层与连接层 -> 启动服务

var configFile string

var rootCmd = &cobra.Command{
	Use:   "xiangqi-mahjong",
	Short: "象棋麻将对战服务",
	Long:  `象棋麻将对战服务：房间目录 + 对局引擎 + WebSocket 接入`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Load(configFile); err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		log.InitLog(config.Conf.ID, config.Conf.LogConf.Level)

		go func() {
			log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", config.Conf.MetricPort)
			if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", config.Conf.MetricPort)); err != nil {
				log.Error("statsviz 监控启动失败: %v", err)
			}
		}()

		if err := run(context.Background()); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func run(ctx context.Context) error {
	worker := game.NewWorker(config.Conf.ID, config.Conf)
	defer worker.Close()

	// 对局存档（未配置 mongo 时关闭）
	if mongoMgr := database.NewMongo(config.Conf.MongoConf); mongoMgr != nil {
		defer mongoMgr.Close()
		worker.SetGameRecordRepository(persistence.NewMatchRecordPersist(mongoMgr.Db))
		log.Info("对局存档已启用")
	}

	prototype := mahjong.NewXiangqiMahjong4p(worker, config.Conf.Timeouts, config.Conf.Rules)
	if err := worker.RoomManager.SetEnginePrototype(engines.XIANGQI_MAHJONG_4P_ENGINE, prototype); err != nil {
		return err
	}

	connWorker := conn.NewWorker(worker)
	worker.SetPusher(connWorker)

	if err := worker.Start(ctx, config.Conf.NatsConf.URL); err != nil {
		return err
	}

	go func() {
		gateAddr := fmt.Sprintf("0.0.0.0:%d", config.Conf.GatePort)
		log.Info("HTTP 接入启动: %s", gateAddr)
		if err := gate.NewServer(worker).Run(gateAddr); err != nil {
			log.Error("HTTP 接入异常退出: %v", err)
		}
	}()

	return connWorker.Run(config.Conf.WsAddr)
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "resource file")
	rootCmd.MarkFlagRequired("configFile")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %v", err)
		os.Exit(1)
	}
}
