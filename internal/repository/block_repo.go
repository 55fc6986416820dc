package repository

import (
	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockRepository handles database operations for Block
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create inserts a new block
func (r *BlockRepository) Create(block *model.Block) error {
	return r.db.Create(block).Error
}

// Delete removes a block (unblock)
func (r *BlockRepository) Delete(blockerID, blockedID uuid.UUID) error {
	return r.db.
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{}).Error
}

// Blocked checks whether either user has blocked the other
func (r *BlockRepository) Blocked(userA, userB uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}
