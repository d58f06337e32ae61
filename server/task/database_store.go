// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-json-experiment/json"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/go-a2a/a2a-engine"
)

// TaskModel is the row layout of a task. The full task is kept as JSON in Data; the
// other columns exist for lookup and pruning.
type TaskModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	ContextID string    `gorm:"index;size:64;not null"`
	State     string    `gorm:"index;size:32;not null"`
	Data      []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`
}

// DatabaseTaskStore is a [TaskStore] persisted with GORM.
//
// Updates of one task are serialized in-process and, on dialects that support it, with
// a row lock so several processes may share the database.
type DatabaseTaskStore struct {
	db        *gorm.DB
	tableName string
	rowLocks  bool
	locks     keyedMutex
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// DatabaseTaskStoreConfig holds configuration for DatabaseTaskStore.
type DatabaseTaskStoreConfig struct {
	DB          *gorm.DB
	TableName   string // Optional, defaults to "a2a_tasks"
	CreateTable bool   // Whether to migrate the table on construction
}

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
func NewDatabaseTaskStore(ctx context.Context, config DatabaseTaskStoreConfig) (*DatabaseTaskStore, error) {
	if config.DB == nil {
		return nil, errors.New("database connection cannot be nil")
	}

	tableName := config.TableName
	if tableName == "" {
		tableName = "a2a_tasks"
	}

	s := &DatabaseTaskStore{
		db:        config.DB,
		tableName: tableName,
		rowLocks:  config.DB.Dialector.Name() != "sqlite",
	}
	if config.CreateTable {
		if err := s.table(ctx).AutoMigrate(&TaskModel{}); err != nil {
			return nil, NewTaskStoreError("migrate", "", err)
		}
	}
	return s, nil
}

// OpenDatabase opens a GORM connection for the "sqlite" or "postgres" driver.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func (s *DatabaseTaskStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

func newTaskModel(task *a2a.Task) (*TaskModel, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		State:     string(task.Status.State),
		Data:      data,
	}, nil
}

func (m *TaskModel) task() (*a2a.Task, error) {
	var t a2a.Task
	if err := json.Unmarshal(m.Data, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", m.ID, err)
	}
	return &t, nil
}

// storeError keeps domain errors as they are and wraps everything else.
func storeError(op, taskID string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, a2a.ErrTaskNotFound),
		errors.Is(err, a2a.ErrDuplicateTask),
		errors.Is(err, a2a.ErrInvalidStateTransition),
		errors.Is(err, a2a.ErrInvalidParams),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return NewTaskStoreError(op, taskID, err)
	}
}

// Create implements [TaskStore].
func (s *DatabaseTaskStore) Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	if err := validateNew(task); err != nil {
		return nil, err
	}
	model, err := newTaskModel(task)
	if err != nil {
		return nil, NewTaskStoreError("create", task.ID, err)
	}

	// the primary key decides between concurrent creates of one id
	res := s.table(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if res.Error != nil {
		return nil, storeError("create", task.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, a2a.NewDuplicateTaskError(task.ID)
	}
	return task.Clone(), nil
}

// Get implements [TaskStore].
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	var model TaskModel
	err := s.table(ctx).Where("id = ?", taskID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}
	if err != nil {
		return nil, storeError("get", taskID, err)
	}

	task, err := model.task()
	if err != nil {
		return nil, NewTaskStoreError("get", taskID, err)
	}
	return task, nil
}

// Update implements [TaskStore].
func (s *DatabaseTaskStore) Update(ctx context.Context, taskID string, fn MutateFunc) (*a2a.Task, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	var updated *a2a.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Table(s.tableName)
		if s.rowLocks {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var model TaskModel
		err := q.Where("id = ?", taskID).Take(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a2a.NewTaskNotFoundError(taskID)
		}
		if err != nil {
			return err
		}

		current, err := model.task()
		if err != nil {
			return err
		}
		next, err := mutate(current, fn)
		if err != nil {
			return err
		}
		row, err := newTaskModel(next)
		if err != nil {
			return err
		}

		err = tx.Table(s.tableName).Where("id = ?", taskID).Updates(map[string]any{
			"state":      row.State,
			"data":       row.Data,
			"updated_at": time.Now().UTC(),
		}).Error
		if err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, storeError("update", taskID, err)
	}
	return updated, nil
}

// ListByContext implements [TaskStore].
func (s *DatabaseTaskStore) ListByContext(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	var models []TaskModel
	err := s.table(ctx).
		Where("context_id = ?", contextID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, storeError("list", "", err)
	}

	tasks := make([]*a2a.Task, 0, len(models))
	for i := range models {
		task, err := models[i].task()
		if err != nil {
			return nil, NewTaskStoreError("list", models[i].ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

var terminalStates = []string{
	string(a2a.TaskStateCompleted),
	string(a2a.TaskStateFailed),
	string(a2a.TaskStateCanceled),
}

// Prune implements [TaskStore].
func (s *DatabaseTaskStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res := s.table(ctx).
		Where("state IN ? AND updated_at < ?", terminalStates, before.UTC()).
		Delete(&TaskModel{})
	if res.Error != nil {
		return 0, storeError("prune", "", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Close closes the underlying database connection.
func (s *DatabaseTaskStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
