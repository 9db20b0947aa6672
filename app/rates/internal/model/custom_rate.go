package model

// CustomXPRate 持久化的自定义经验倍率，表 character_custom_xp_rates
type CustomXPRate struct {
	PlayerID int64  `db:"player_id" json:"player_id"`
	XPRate   uint32 `db:"xp_rate" json:"xp_rate"`
}
