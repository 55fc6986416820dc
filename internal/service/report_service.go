package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrDuplicateReport = errors.New("you have already reported this")
	ErrSelfReport      = errors.New("you cannot report your own content")
	ErrTargetNotFound  = errors.New("report target not found")
)

// WarningMarker tags the safety notice a warned user's conversation
// partners see. Deduplication is content based: a conversation that
// already holds a system message containing the marker is not warned
// again, regardless of which report triggered it.
const WarningMarker = "💡"

const warningBody = WarningMarker + " Lưu ý an toàn: người dùng này đã bị nhiều thành viên báo cáo. " +
	"Hãy cẩn trọng khi giao dịch. / Safety notice: this user has been reported by multiple members. " +
	"Please trade carefully."

// ReportStore is the slice of the report repository the aggregator needs
type ReportStore interface {
	Create(report *model.Report) error
	CountForTarget(kind model.ReportTargetKind, targetID uuid.UUID) (int64, error)
	TargetAuthor(kind model.ReportTargetKind, targetID uuid.UUID) (uuid.UUID, error)
	HideTarget(kind model.ReportTargetKind, targetID uuid.UUID) (bool, error)
}

// ConversationLister resolves a user's live conversations for warnings
type ConversationLister interface {
	ActiveConversationIDsFor(userID uuid.UUID) ([]uuid.UUID, error)
}

// SystemMessenger posts and inspects system-authored messages
type SystemMessenger interface {
	CreateSystemMessage(conversationID uuid.UUID, body string) error
	HasSystemMessageContaining(conversationID uuid.UUID, marker string) (bool, error)
}

// ReportService aggregates abuse reports and applies the automatic
// moderation consequences once thresholds are crossed.
type ReportService struct {
	reports       ReportStore
	conversations ConversationLister
	messages      SystemMessenger

	hideThreshold    int
	warningThreshold int
}

func NewReportService(
	reports ReportStore,
	conversations ConversationLister,
	messages SystemMessenger,
	hideThreshold, warningThreshold int,
) *ReportService {
	return &ReportService{
		reports:          reports,
		conversations:    conversations,
		messages:         messages,
		hideThreshold:    hideThreshold,
		warningThreshold: warningThreshold,
	}
}

// CreateReport records a report and runs the threshold consequences.
// Consequence failures are logged, not returned; the report itself is
// already persisted and the next report re-evaluates the thresholds.
func (s *ReportService) CreateReport(reporterID uuid.UUID, req model.CreateReportRequest) (*model.Report, error) {
	if !model.ValidReportTarget(req.TargetKind) {
		return nil, fmt.Errorf("%w: unsupported target kind %q", ErrValidation, req.TargetKind)
	}
	if !model.ValidReportReason(req.ReasonCode) {
		return nil, fmt.Errorf("%w: unsupported reason code %q", ErrValidation, req.ReasonCode)
	}

	author, err := s.reports.TargetAuthor(req.TargetKind, req.TargetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	if author == reporterID {
		return nil, ErrSelfReport
	}

	report := &model.Report{
		ReporterID:  reporterID,
		TargetKind:  req.TargetKind,
		TargetID:    req.TargetID,
		ReasonCode:  req.ReasonCode,
		Description: req.Description,
	}
	if err := s.reports.Create(report); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateReport
		}
		return nil, err
	}

	s.applyConsequences(report)
	return report, nil
}

func (s *ReportService) applyConsequences(report *model.Report) {
	count, err := s.reports.CountForTarget(report.TargetKind, report.TargetID)
	if err != nil {
		log.Printf("⚠️  Failed to count reports for %s %s: %v", report.TargetKind, report.TargetID, err)
		return
	}

	if report.TargetKind.Hideable() && count >= int64(s.hideThreshold) {
		hidden, err := s.reports.HideTarget(report.TargetKind, report.TargetID)
		if err != nil {
			log.Printf("⚠️  Failed to hide %s %s: %v", report.TargetKind, report.TargetID, err)
		} else if hidden {
			log.Printf("🚨 Auto-hid %s %s after %d reports", report.TargetKind, report.TargetID, count)
		}
	}

	if report.TargetKind == model.ReportTargetUser && count >= int64(s.warningThreshold) {
		s.warnConversations(report.TargetID)
	}
}

// warnConversations posts the safety notice into every live conversation
// of a heavily reported user, once per conversation.
func (s *ReportService) warnConversations(userID uuid.UUID) {
	convIDs, err := s.conversations.ActiveConversationIDsFor(userID)
	if err != nil {
		log.Printf("⚠️  Failed to list conversations for warned user %s: %v", userID, err)
		return
	}

	warned := 0
	for _, convID := range convIDs {
		exists, err := s.messages.HasSystemMessageContaining(convID, WarningMarker)
		if err != nil {
			log.Printf("⚠️  Failed to check warning state in conversation %s: %v", convID, err)
			continue
		}
		if exists {
			continue
		}
		if err := s.messages.CreateSystemMessage(convID, warningBody); err != nil {
			log.Printf("⚠️  Failed to post warning in conversation %s: %v", convID, err)
			continue
		}
		warned++
	}
	if warned > 0 {
		log.Printf("💡 Posted safety warnings in %d conversations of user %s", warned, userID)
	}
}
