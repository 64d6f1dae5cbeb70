package storage

import (
	"errors"

	"gorm.io/gorm"

	"magic-mirror/internal/types"
)

func SaveTask(task *types.TransformTask) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	// Upsert keyed by TaskId: the primary key is internal, callers only
	// ever hold the task id.
	var existing types.TransformTask
	result := DB.Where("task_id = ?", task.TaskId).First(&existing)

	if result.Error == nil {
		task.Id = existing.Id
		return DB.Save(task).Error
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return DB.Create(task).Error
	}
	return result.Error
}

func GetTask(taskId string) (*types.TransformTask, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	var task types.TransformTask
	if err := DB.Where("task_id = ?", taskId).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func GetTaskHistory(limit int) ([]types.TransformTask, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	var tasks []types.TransformTask
	if err := DB.Order("create_time desc").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func DeleteTask(taskId string) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	return DB.Where("task_id = ?", taskId).Delete(&types.TransformTask{}).Error
}

// MarkStaleTasks fails every task still marked as processing. Called on
// startup so jobs orphaned by a crash do not stay "processing" forever.
func MarkStaleTasks() (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialized")
	}
	result := DB.Model(&types.TransformTask{}).
		Where("status = ?", types.TransformTaskStatusProcessing).
		Updates(map[string]interface{}{
			"status":      types.TransformTaskStatusFailed,
			"fail_reason": "task interrupted by server restart",
			"status_msg":  "interrupted",
		})
	return result.RowsAffected, result.Error
}
