package repository

import (
	"fmt"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository handles database operations for Report and the
// moderation side effects against reported targets
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report. A unique index on
// (reporter, target_kind, target_id) surfaces duplicates as
// gorm.ErrDuplicatedKey.
func (r *ReportRepository) Create(report *model.Report) error {
	return r.db.Create(report).Error
}

// CountForTarget returns the live report count against a target; the
// persisted rows are the source of truth for threshold checks.
func (r *ReportRepository) CountForTarget(kind model.ReportTargetKind, targetID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Report{}).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Count(&count).Error
	return count, err
}

// TargetAuthor resolves the author of a reportable target, used for the
// self-report check. System messages have no author and return uuid.Nil.
func (r *ReportRepository) TargetAuthor(kind model.ReportTargetKind, targetID uuid.UUID) (uuid.UUID, error) {
	switch kind {
	case model.ReportTargetUser:
		var user model.User
		if err := r.db.Select("id").Where("id = ?", targetID).First(&user).Error; err != nil {
			return uuid.Nil, err
		}
		return user.ID, nil

	case model.ReportTargetPost:
		var post model.Post
		if err := r.db.Select("user_id").Where("id = ?", targetID).First(&post).Error; err != nil {
			return uuid.Nil, err
		}
		return post.UserID, nil

	case model.ReportTargetMessage:
		var msg model.Message
		if err := r.db.Select("sender_id").Where("id = ?", targetID).First(&msg).Error; err != nil {
			return uuid.Nil, err
		}
		if msg.SenderID == nil {
			return uuid.Nil, nil
		}
		return *msg.SenderID, nil

	default:
		return uuid.Nil, fmt.Errorf("unknown report target kind: %s", kind)
	}
}

// HideTarget flips a hideable target to its hidden status. The guarded
// UPDATE makes the mutation idempotent when concurrent reports race
// across the threshold; returns whether this call changed anything.
func (r *ReportRepository) HideTarget(kind model.ReportTargetKind, targetID uuid.UUID) (bool, error) {
	var res *gorm.DB
	switch kind {
	case model.ReportTargetPost:
		res = r.db.Model(&model.Post{}).
			Where("id = ? AND status <> ?", targetID, model.PostStatusHidden).
			Update("status", model.PostStatusHidden)
	case model.ReportTargetMessage:
		res = r.db.Model(&model.Message{}).
			Where("id = ? AND status <> ?", targetID, model.MessageStatusHidden).
			Update("status", model.MessageStatusHidden)
	default:
		return false, nil
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
