package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"xiangqi-mahjong/common/log"
)

// Conf 进程内唯一配置，Load 之后只读
var Conf ServerConfiguration

type ServerConfiguration struct {
	ID         string       `mapstructure:"id"`
	WsAddr     string       `mapstructure:"wsAddr"`     // websocket 监听地址
	GatePort   int          `mapstructure:"gatePort"`   // http api 端口
	MetricPort int          `mapstructure:"metricPort"` // statsviz 端口
	LogConf    LogConf      `mapstructure:"log"`
	JwtConf    JwtConf      `mapstructure:"jwt"`
	NatsConf   NatsConf     `mapstructure:"nats"`
	MongoConf  MongoConf    `mapstructure:"mongo"`
	Rules      RulesConf    `mapstructure:"rules"`
	RoomLimits RoomLimits   `mapstructure:"roomLimits"`
	Timeouts   TimeoutsConf `mapstructure:"timeouts"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type JwtConf struct {
	Secret        string `mapstructure:"secret"`
	Expire        int    `mapstructure:"expire"` // 秒
	AllowTestPath bool   `mapstructure:"allowTestPath"`
}

type NatsConf struct {
	URL string `mapstructure:"url"` // 为空则不启用镜像推送
}

type MongoConf struct {
	Url         string `mapstructure:"url"` // 为空则不落库
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

// RulesConf 对局规则常量
type RulesConf struct {
	NumPlayers    int `mapstructure:"numPlayers"`
	CopiesPerKind int `mapstructure:"copiesPerKind"`
	DefaultRounds int `mapstructure:"defaultRounds"`
}

// RoomLimits 房间参数限制
type RoomLimits struct {
	RoomNameMaxLen       int `mapstructure:"roomNameMaxLen"`
	PasswordMaxLen       int `mapstructure:"passwordMaxLen"`
	MaxMessageLogEntries int `mapstructure:"maxMessageLogEntries"`
}

// TimeoutsConf 所有命名倒计时的时长（秒/毫秒）
type TimeoutsConf struct {
	PlayerTurnActionSeconds  int `mapstructure:"playerTurnActionSeconds"`
	ClaimDecisionSeconds     int `mapstructure:"claimDecisionSeconds"`
	NextRoundCountdownSecs   int `mapstructure:"nextRoundCountdownSeconds"`
	RematchVoteSeconds       int `mapstructure:"rematchVoteSeconds"`
	MaxRoundDurationSeconds  int `mapstructure:"maxRoundDurationSeconds"`
	AiThinkMinMs             int `mapstructure:"aiThinkMinMs"`
	AiThinkMaxMs             int `mapstructure:"aiThinkMaxMs"`
	EmptyRoomActiveSeconds   int `mapstructure:"emptyRoomActiveSeconds"`
	EmptyRoomFinishedSeconds int `mapstructure:"emptyRoomFinishedSeconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wsAddr", "0.0.0.0:8912")
	v.SetDefault("gatePort", 8913)
	v.SetDefault("metricPort", 8914)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.expire", 7200)
	v.SetDefault("rules.numPlayers", 4)
	v.SetDefault("rules.copiesPerKind", 4)
	v.SetDefault("rules.defaultRounds", 4)
	v.SetDefault("roomLimits.roomNameMaxLen", 32)
	v.SetDefault("roomLimits.passwordMaxLen", 32)
	v.SetDefault("roomLimits.maxMessageLogEntries", 64)
	v.SetDefault("timeouts.playerTurnActionSeconds", 30)
	v.SetDefault("timeouts.claimDecisionSeconds", 15)
	v.SetDefault("timeouts.nextRoundCountdownSeconds", 10)
	v.SetDefault("timeouts.rematchVoteSeconds", 30)
	v.SetDefault("timeouts.maxRoundDurationSeconds", 600)
	v.SetDefault("timeouts.aiThinkMinMs", 600)
	v.SetDefault("timeouts.aiThinkMaxMs", 1800)
	v.SetDefault("timeouts.emptyRoomActiveSeconds", 120)
	v.SetDefault("timeouts.emptyRoomFinishedSeconds", 30)
}

func Load(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	var cfg ServerConfiguration
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		cfg.ID = nodeID
	}
	if cfg.ID == "" {
		return fmt.Errorf("配置缺少节点 id（或设置 NODE_ID 环境变量）")
	}
	if err := validate(&cfg); err != nil {
		return err
	}
	Conf = cfg

	v.WatchConfig()
	v.OnConfigChange(func(in fsnotify.Event) {
		// 运行中只允许日志级别热更
		var next ServerConfiguration
		if err := v.Unmarshal(&next); err != nil {
			log.Warn("配置热更失败: %v", err)
			return
		}
		Conf.LogConf.Level = next.LogConf.Level
		log.Info("配置热更: log.level=%s", next.LogConf.Level)
	})

	return nil
}

func validate(cfg *ServerConfiguration) error {
	if cfg.Rules.NumPlayers != 4 {
		return fmt.Errorf("rules.numPlayers 仅支持 4，当前 %d", cfg.Rules.NumPlayers)
	}
	if cfg.Rules.CopiesPerKind <= 0 {
		return fmt.Errorf("rules.copiesPerKind 非法: %d", cfg.Rules.CopiesPerKind)
	}
	if cfg.Timeouts.AiThinkMinMs > cfg.Timeouts.AiThinkMaxMs {
		return fmt.Errorf("aiThinkMinMs %d 大于 aiThinkMaxMs %d", cfg.Timeouts.AiThinkMinMs, cfg.Timeouts.AiThinkMaxMs)
	}
	return nil
}

// TestDefaults 单元测试用，无需配置文件
func TestDefaults() ServerConfiguration {
	v := viper.New()
	setDefaults(v)
	var cfg ServerConfiguration
	_ = v.Unmarshal(&cfg)
	cfg.ID = "test"
	return cfg
}
