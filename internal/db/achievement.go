package db

import "time"

// AchievementLog 记录用户某个自然日的成就日志。
// UserID + LogDate 采用唯一索引；当天的日志在首次读写时惰性创建
type AchievementLog struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;uniqueIndex:idx_achievement_owner_date"`
	LogDate   time.Time `gorm:"uniqueIndex:idx_achievement_owner_date"`
	Note      string    `gorm:"type:text"`
	Entries   []AchievementEntry `gorm:"foreignKey:LogID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (AchievementLog) TableName() string {
	return "achievement_logs"
}

// AchievementEntry 为日志内的单条成就，按追加顺序保存。
// 主键为 UUID 字符串，删除按 ID 进行，条目本身不做原地修改
type AchievementEntry struct {
	ID        string `gorm:"primaryKey;size:36"`
	LogID     uint   `gorm:"index"`
	Text      string `gorm:"not null"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (AchievementEntry) TableName() string {
	return "achievement_entries"
}
