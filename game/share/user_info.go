package share

// UserInfo 和游戏逻辑隔离的用户信息
type UserInfo struct {
	UserID    string // 用户 ID
	Name      string // 展示名
	ConnID    string // 连接 ID（断线为空）
	IsOnline  bool
	SeatIndex int
}

// NewUserInfo 创建玩家信息
func NewUserInfo(userID, name, connID string) *UserInfo {
	return &UserInfo{
		UserID:    userID,
		Name:      name,
		ConnID:    connID,
		IsOnline:  true,
		SeatIndex: -1,
	}
}

func (ui *UserInfo) SetOffline() {
	ui.IsOnline = false
	ui.ConnID = ""
}

func (ui *UserInfo) SetOnline(connID string) {
	ui.IsOnline = true
	ui.ConnID = connID
}

// RoomConfig 建房参数
type RoomConfig struct {
	Name        string `json:"name"`
	Password    string `json:"password,omitempty"`
	HumanTarget int    `json:"humanTarget"` // 1..4，开局所需真人数量
	FillWithAI  bool   `json:"fillWithAI"`
	Rounds      int    `json:"rounds"` // 一场的局数
}
