package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundo/internal/db"
	"github.com/sundo/internal/service"
)

type areaPayload struct {
	Name  string   `json:"name"`
	Note  string   `json:"note"`
	Tasks []string `json:"tasks"`
}

type taskPayload struct {
	Text string `json:"text"`
}

type taskStatusPayload struct {
	Completed bool `json:"completed"`
	Achieved  int  `json:"achieved"`
}

// ListAreas 返回当前用户的全部领域
func (a *API) ListAreas(c *gin.Context) {
	userID, _ := currentUserID(c)

	areas, err := a.areas.List(userID)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(areas))
	for _, area := range areas {
		payload = append(payload, areaToPayload(area))
	}
	c.JSON(http.StatusOK, gin.H{"areas": payload})
}

// CreateArea 新建领域
func (a *API) CreateArea(c *gin.Context) {
	userID, _ := currentUserID(c)

	var payload areaPayload
	if !bindJSON(c, &payload, "invalid area payload") {
		return
	}

	area, err := a.areas.Create(service.AreaInput{
		UserID: userID,
		Name:   payload.Name,
		Note:   payload.Note,
		Tasks:  payload.Tasks,
	})
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusCreated, areaToPayload(*area))
}

// GetArea 返回单个领域详情
func (a *API) GetArea(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	area, err := a.areas.Get(userID, id)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, areaToPayload(*area))
}

// RenameArea 重命名领域
func (a *API) RenameArea(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload areaPayload
	if !bindJSON(c, &payload, "invalid area payload") {
		return
	}

	area, err := a.areas.Rename(userID, id, payload.Name)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, areaToPayload(*area))
}

// UpdateAreaNote 整体替换领域备注
func (a *API) UpdateAreaNote(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload areaPayload
	if !bindJSON(c, &payload, "invalid note payload") {
		return
	}

	area, err := a.areas.UpdateNote(userID, id, payload.Note)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, areaToPayload(*area))
}

// DeleteArea 删除领域
func (a *API) DeleteArea(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.areas.Delete(userID, id); err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// AddTask 向领域追加任务
func (a *API) AddTask(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload taskPayload
	if !bindJSON(c, &payload, "invalid task payload") {
		return
	}

	task, err := a.areas.AddTask(userID, id, payload.Text)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusCreated, taskToPayload(*task))
}

// UpdateTask 修改任务文本
func (a *API) UpdateTask(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload taskPayload
	if !bindJSON(c, &payload, "invalid task payload") {
		return
	}

	task, err := a.areas.UpdateTask(userID, id, payload.Text)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToPayload(*task))
}

// DeleteTask 删除任务
func (a *API) DeleteTask(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.areas.DeleteTask(userID, id); err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// SetTaskStatus 更新任务完成状态，并触发当日快照合并
func (a *API) SetTaskStatus(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload taskStatusPayload
	if !bindJSON(c, &payload, "invalid status payload") {
		return
	}

	task, err := a.areas.SetTaskStatus(userID, id, payload.Completed, payload.Achieved)
	if err != nil {
		handleAreaError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToPayload(*task))
}

func areaToPayload(area db.Area) gin.H {
	tasks := make([]gin.H, 0, len(area.Tasks))
	for _, task := range area.Tasks {
		tasks = append(tasks, taskToPayload(task))
	}

	return gin.H{
		"id":         area.ID,
		"name":       area.Name,
		"note":       area.Note,
		"tasks":      tasks,
		"updated_at": area.UpdatedAt.Format(time.RFC3339),
	}
}

func taskToPayload(task db.AreaTask) gin.H {
	return gin.H{
		"id":        task.ID,
		"text":      task.Text,
		"achieved":  task.Achieved,
		"completed": task.Completed,
	}
}

func handleAreaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAreaNotFound), errors.Is(err, service.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAreaExists):
		respondError(c, http.StatusConflict, err.Error())
	case err != nil:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
