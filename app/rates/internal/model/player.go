package model

import "strconv"

// SecurityLevel 账号权限等级
type SecurityLevel uint8

const (
	SecurityPlayer        SecurityLevel = 0
	SecurityModerator     SecurityLevel = 1
	SecurityGameMaster    SecurityLevel = 2
	SecurityAdministrator SecurityLevel = 3
	SecurityConsole       SecurityLevel = 4
)

// String 权限名称
func (s SecurityLevel) String() string {
	switch s {
	case SecurityPlayer:
		return "player"
	case SecurityModerator:
		return "moderator"
	case SecurityGameMaster:
		return "gamemaster"
	case SecurityAdministrator:
		return "administrator"
	case SecurityConsole:
		return "console"
	default:
		return "security(" + strconv.Itoa(int(s)) + ")"
	}
}

// Valid 是否为已知的权限等级
func (s SecurityLevel) Valid() bool {
	return s <= SecurityConsole
}

// HostDefaultXPRate 宿主服务器默认经验倍率，功能关闭时玩家保持该值
const HostDefaultXPRate uint32 = 1

// Player 在线玩家运行时状态
type Player struct {
	ID          int64
	Name        string
	Level       int32
	Security    SecurityLevel
	XPRate      uint32 // 当前生效的经验倍率，存储中的值才是权威数据
	SelectionID int64  // 当前选中的目标，0 表示未选中
}

// ScaleXP 按当前倍率计算实际获得的经验
func (p *Player) ScaleXP(base uint32) uint64 {
	return uint64(base) * uint64(p.XPRate)
}

// HasSelection 是否选中了目标
func (p *Player) HasSelection() bool {
	return p.SelectionID != 0
}
