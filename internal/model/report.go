package model

import (
	"time"

	"github.com/google/uuid"
)

// ReportTargetKind is the closed set of reportable entity kinds
type ReportTargetKind string

const (
	ReportTargetUser    ReportTargetKind = "user"
	ReportTargetPost    ReportTargetKind = "post"
	ReportTargetMessage ReportTargetKind = "message"
)

// targetCapabilities maps each kind to what the aggregator may do with
// it, instead of probing entity types at runtime.
var targetCapabilities = map[ReportTargetKind]struct {
	hideable bool
}{
	ReportTargetUser:    {hideable: false},
	ReportTargetPost:    {hideable: true},
	ReportTargetMessage: {hideable: true},
}

// ValidReportTarget checks a kind value coming from the API
func ValidReportTarget(k ReportTargetKind) bool {
	_, ok := targetCapabilities[k]
	return ok
}

// Hideable reports whether the target kind has a hidden status to flip
func (k ReportTargetKind) Hideable() bool {
	return targetCapabilities[k].hideable
}

// ReportReason is the reason code chosen by the reporter
type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonAbusive       ReportReason = "abusive"
	ReportReasonScam          ReportReason = "scam"
	ReportReasonInappropriate ReportReason = "inappropriate"
)

// ValidReportReason checks a reason code coming from the API
func ValidReportReason(r ReportReason) bool {
	switch r {
	case ReportReasonSpam, ReportReasonAbusive, ReportReasonScam, ReportReasonInappropriate:
		return true
	}
	return false
}

// Report records one user reporting one target entity.
// A reporter can report a given target only once.
type Report struct {
	ID          uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReporterID  uuid.UUID        `json:"reporter_id" gorm:"type:uuid;uniqueIndex:idx_reporter_target;not null"`
	TargetKind  ReportTargetKind `json:"target_kind" gorm:"type:varchar(20);uniqueIndex:idx_reporter_target;not null"`
	TargetID    uuid.UUID        `json:"target_id" gorm:"type:uuid;uniqueIndex:idx_reporter_target;index;not null"`
	ReasonCode  ReportReason     `json:"reason_code" gorm:"type:varchar(20);not null"`
	Description string           `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time        `json:"created_at"`

	// Relations
	Reporter User `json:"-" gorm:"foreignKey:ReporterID"`
}
