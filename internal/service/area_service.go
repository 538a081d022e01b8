package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sundo/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrAreaNotFound 在指定领域不存在时返回
	ErrAreaNotFound = errors.New("area not found")
	// ErrAreaExists 在同名领域已存在时返回
	ErrAreaExists = errors.New("area already exists")
	// ErrTaskNotFound 在任务不存在或不属于该用户时返回
	ErrTaskNotFound = errors.New("task not found")
)

// AreaService 负责领域与任务的增删改查
// 任务完成状态变化时会把领域当前计数上报给 StatsService，驱动每日快照合并
type AreaService struct {
	db    *gorm.DB
	stats *StatsService
}

// AreaInput 定义创建领域时的字段
type AreaInput struct {
	UserID uint
	Name   string
	Note   string
	Tasks  []string
}

// NewAreaService 构造 AreaService
func NewAreaService(gdb *gorm.DB, stats *StatsService) *AreaService {
	return &AreaService{db: gdb, stats: stats}
}

// Create 新建领域，可附带初始任务
func (s *AreaService) Create(input AreaInput) (*db.Area, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("area name is required")
	}

	var count int64
	if err := s.db.Model(&db.Area{}).
		Where("user_id = ? AND name = ?", input.UserID, name).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check area name: %w", err)
	}
	if count > 0 {
		return nil, ErrAreaExists
	}

	area := db.Area{
		UserID: input.UserID,
		Name:   name,
		Note:   strings.TrimSpace(input.Note),
	}
	for _, text := range input.Tasks {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		area.Tasks = append(area.Tasks, db.AreaTask{Text: trimmed})
	}

	if err := s.db.Create(&area).Error; err != nil {
		return nil, fmt.Errorf("create area: %w", err)
	}
	return &area, nil
}

// List 返回用户的全部领域及任务
func (s *AreaService) List(userID uint) ([]db.Area, error) {
	var areas []db.Area
	if err := s.db.Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&areas).Error; err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return areas, nil
}

// Get 按 ID 获取领域及任务
func (s *AreaService) Get(userID, areaID uint) (*db.Area, error) {
	var area db.Area
	if err := s.db.Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).Where("user_id = ?", userID).
		First(&area, areaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("get area: %w", err)
	}
	return &area, nil
}

// Rename 重命名领域，同名冲突时返回 ErrAreaExists
func (s *AreaService) Rename(userID, areaID uint, name string) (*db.Area, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("area name is required")
	}

	area, err := s.Get(userID, areaID)
	if err != nil {
		return nil, err
	}
	if area.Name == trimmed {
		return area, nil
	}

	var count int64
	if err := s.db.Model(&db.Area{}).
		Where("user_id = ? AND name = ? AND id <> ?", userID, trimmed, areaID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check area name: %w", err)
	}
	if count > 0 {
		return nil, ErrAreaExists
	}

	area.Name = trimmed
	if err := s.db.Save(area).Error; err != nil {
		return nil, fmt.Errorf("rename area: %w", err)
	}
	return area, nil
}

// UpdateNote 整体替换领域备注
func (s *AreaService) UpdateNote(userID, areaID uint, note string) (*db.Area, error) {
	area, err := s.Get(userID, areaID)
	if err != nil {
		return nil, err
	}

	area.Note = note
	if err := s.db.Model(&db.Area{}).Where("id = ?", area.ID).
		Update("note", note).Error; err != nil {
		return nil, fmt.Errorf("update area note: %w", err)
	}
	return area, nil
}

// Delete 删除领域及其任务
func (s *AreaService) Delete(userID, areaID uint) error {
	area, err := s.Get(userID, areaID)
	if err != nil {
		return err
	}

	if err := s.db.Select("Tasks").Delete(area).Error; err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	return nil
}

// AddTask 向领域追加任务
func (s *AreaService) AddTask(userID, areaID uint, text string) (*db.AreaTask, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("task text is required")
	}

	area, err := s.Get(userID, areaID)
	if err != nil {
		return nil, err
	}

	task := db.AreaTask{AreaID: area.ID, Text: trimmed}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	return &task, nil
}

// UpdateTask 修改任务文本
func (s *AreaService) UpdateTask(userID, taskID uint, text string) (*db.AreaTask, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("task text is required")
	}

	task, err := s.getTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	task.Text = trimmed
	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// DeleteTask 删除任务
func (s *AreaService) DeleteTask(userID, taskID uint) error {
	task, err := s.getTask(userID, taskID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(task).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// SetTaskStatus 更新任务完成状态，并把领域当前计数合并进当日快照。
// achieved 为该任务的完成度百分比，仅在标记完成时有意义
func (s *AreaService) SetTaskStatus(userID, taskID uint, completed bool, achieved int) (*db.AreaTask, error) {
	task, err := s.getTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	task.Completed = completed
	if completed {
		if achieved < 0 {
			achieved = 0
		}
		if achieved > 100 {
			achieved = 100
		}
		task.Achieved = achieved
	} else {
		task.Achieved = 0
	}

	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	if err := s.snapshotArea(userID, task.AreaID, time.Now()); err != nil {
		return nil, err
	}

	return task, nil
}

// SnapshotAll 为用户的每个领域上报一次当前计数，由每日定时任务调用
func (s *AreaService) SnapshotAll(at time.Time) error {
	var areas []db.Area
	if err := s.db.Preload("Tasks").Find(&areas).Error; err != nil {
		return fmt.Errorf("load areas: %w", err)
	}

	for _, area := range areas {
		if len(area.Tasks) == 0 {
			continue
		}
		if _, err := s.stats.RecordAreaProgress(AreaProgressInput{
			UserID:    area.UserID,
			Area:      area.Name,
			Total:     len(area.Tasks),
			Completed: countCompleted(area.Tasks),
			At:        at,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *AreaService) snapshotArea(userID, areaID uint, at time.Time) error {
	area, err := s.Get(userID, areaID)
	if err != nil {
		return err
	}

	_, err = s.stats.RecordAreaProgress(AreaProgressInput{
		UserID:    userID,
		Area:      area.Name,
		Total:     len(area.Tasks),
		Completed: countCompleted(area.Tasks),
		At:        at,
	})
	return err
}

func (s *AreaService) getTask(userID, taskID uint) (*db.AreaTask, error) {
	var task db.AreaTask
	if err := s.db.Joins("JOIN areas ON areas.id = area_tasks.area_id").
		Where("areas.user_id = ?", userID).
		First(&task, "area_tasks.id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func countCompleted(tasks []db.AreaTask) int {
	completed := 0
	for _, task := range tasks {
		if task.Completed {
			completed++
		}
	}
	return completed
}
