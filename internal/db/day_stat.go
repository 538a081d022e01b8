package db

import "time"

// DayStat 记录用户某个自然日的进度快照聚合。
// UserID + StatDate 采用唯一索引，保证每个用户每天至多一条记录
type DayStat struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    uint           `gorm:"index;uniqueIndex:idx_day_stat_owner_date"`
	StatDate  time.Time      `gorm:"uniqueIndex:idx_day_stat_owner_date"`
	Areas     []AreaSnapshot `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (DayStat) TableName() string {
	return "day_stats"
}

// AreaSnapshot 记录单个领域在某日的任务完成快照。
// Area 在同一条 DayStat 内应当唯一；写路径按领域覆盖合并，
// 读路径仍会对历史重复数据做防御性收敛（见 service.ProjectDayStats）。
// Achieved 为派生值，读取时始终由 Completed/Total 重新计算
type AreaSnapshot struct {
	ID        uint   `gorm:"primaryKey"`
	DayStatID uint   `gorm:"index:idx_area_snapshot_stat"`
	Area      string `gorm:"size:120;not null;index:idx_area_snapshot_stat"`
	Total     int    `gorm:"default:0"`
	Completed int    `gorm:"default:0"`
	Achieved  int    `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (AreaSnapshot) TableName() string {
	return "area_snapshots"
}
