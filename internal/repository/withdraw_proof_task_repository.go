package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/models"
)

// WithdrawProofTaskRepository defines data access for the proof run ledger
type WithdrawProofTaskRepository interface {
	Create(ctx context.Context, task *models.WithdrawProofTask) error
	GetByID(ctx context.Context, id string) (*models.WithdrawProofTask, error)
	FindByNullifier(ctx context.Context, nullifier string) ([]*models.WithdrawProofTask, error)
	List(ctx context.Context, page, pageSize int) ([]*models.WithdrawProofTask, int64, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, task *models.WithdrawProofTask) error
	MarkFailed(ctx context.Context, id, errorKind, lastError string) error
}

type withdrawProofTaskRepository struct {
	db *gorm.DB
}

// NewWithdrawProofTaskRepository creates a gorm backed ledger
func NewWithdrawProofTaskRepository(db *gorm.DB) WithdrawProofTaskRepository {
	return &withdrawProofTaskRepository{db: db}
}

func (r *withdrawProofTaskRepository) Create(ctx context.Context, task *models.WithdrawProofTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *withdrawProofTaskRepository) GetByID(ctx context.Context, id string) (*models.WithdrawProofTask, error) {
	var task models.WithdrawProofTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByNullifier returns every completed run that produced the nullifier,
// newest first
func (r *withdrawProofTaskRepository) FindByNullifier(ctx context.Context, nullifier string) ([]*models.WithdrawProofTask, error) {
	var tasks []*models.WithdrawProofTask
	err := r.db.WithContext(ctx).
		Where("nullifier = ?", nullifier).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

func (r *withdrawProofTaskRepository) List(ctx context.Context, page, pageSize int) ([]*models.WithdrawProofTask, int64, error) {
	var tasks []*models.WithdrawProofTask
	var total int64

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.WithdrawProofTask{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, total, err
}

func (r *withdrawProofTaskRepository) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.WithdrawProofTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.WithdrawProofTaskStatusProcessing,
			"started_at": &now,
		}).Error
}

// MarkCompleted stores the result columns of task
func (r *withdrawProofTaskRepository) MarkCompleted(ctx context.Context, task *models.WithdrawProofTask) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.WithdrawProofTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":            models.WithdrawProofTaskStatusCompleted,
			"dead_address_hash": task.DeadAddressHash,
			"block_number":      task.BlockNumber,
			"block_hash":        task.BlockHash,
			"nullifier":         task.Nullifier,
			"vkey":              task.VKey,
			"public_values":     task.PublicValues,
			"proof":             task.Proof,
			"fixture_path":      task.FixturePath,
			"cycles":            task.Cycles,
			"sketch_bytes":      task.SketchBytes,
			"completed_at":      &now,
		}).Error
}

func (r *withdrawProofTaskRepository) MarkFailed(ctx context.Context, id, errorKind, lastError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.WithdrawProofTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.WithdrawProofTaskStatusFailed,
			"error_kind":   errorKind,
			"last_error":   lastError,
			"completed_at": &now,
		}).Error
}
