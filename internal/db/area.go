package db

import "gorm.io/gorm"

// Area 定义了用户追踪的领域（如健身、工作），名称在同一用户下唯一。
// Note 为领域备注，Tasks 为该领域下的任务清单
type Area struct {
	gorm.Model
	UserID uint       `gorm:"index;uniqueIndex:idx_area_owner_name"`
	Name   string     `gorm:"size:120;not null;uniqueIndex:idx_area_owner_name"`
	Note   string     `gorm:"type:text"`
	Tasks  []AreaTask `gorm:"constraint:OnDelete:CASCADE"`
}

// AreaTask 记录领域下的单个任务。
// Achieved 为任务完成度百分比（0-100），Completed 标记任务是否已完成
type AreaTask struct {
	gorm.Model
	AreaID    uint   `gorm:"index"`
	Text      string `gorm:"not null"`
	Achieved  int    `gorm:"default:0"`
	Completed bool   `gorm:"default:false"`
}

// TableName 指定自定义表名。
func (AreaTask) TableName() string {
	return "area_tasks"
}
