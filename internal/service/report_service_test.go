package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- in-memory stores -------------------------------------------------

type reportKey struct {
	reporter uuid.UUID
	kind     model.ReportTargetKind
	target   uuid.UUID
}

type memReportStore struct {
	reports map[reportKey]*model.Report
	authors map[uuid.UUID]uuid.UUID // target id -> author id
	hidden  map[uuid.UUID]bool
}

func newMemReportStore() *memReportStore {
	return &memReportStore{
		reports: map[reportKey]*model.Report{},
		authors: map[uuid.UUID]uuid.UUID{},
		hidden:  map[uuid.UUID]bool{},
	}
}

func (s *memReportStore) Create(report *model.Report) error {
	key := reportKey{report.ReporterID, report.TargetKind, report.TargetID}
	if _, exists := s.reports[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	report.ID = uuid.New()
	s.reports[key] = report
	return nil
}

func (s *memReportStore) CountForTarget(kind model.ReportTargetKind, targetID uuid.UUID) (int64, error) {
	var count int64
	for key := range s.reports {
		if key.kind == kind && key.target == targetID {
			count++
		}
	}
	return count, nil
}

func (s *memReportStore) TargetAuthor(_ model.ReportTargetKind, targetID uuid.UUID) (uuid.UUID, error) {
	author, ok := s.authors[targetID]
	if !ok {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return author, nil
}

func (s *memReportStore) HideTarget(_ model.ReportTargetKind, targetID uuid.UUID) (bool, error) {
	if s.hidden[targetID] {
		return false, nil
	}
	s.hidden[targetID] = true
	return true, nil
}

type memConversationLister struct {
	conversations map[uuid.UUID][]uuid.UUID
}

func (s *memConversationLister) ActiveConversationIDsFor(userID uuid.UUID) ([]uuid.UUID, error) {
	return s.conversations[userID], nil
}

type memSystemMessenger struct {
	messages map[uuid.UUID][]string
	failOn   map[uuid.UUID]error
}

func newMemSystemMessenger() *memSystemMessenger {
	return &memSystemMessenger{messages: map[uuid.UUID][]string{}, failOn: map[uuid.UUID]error{}}
}

func (s *memSystemMessenger) CreateSystemMessage(conversationID uuid.UUID, body string) error {
	if err := s.failOn[conversationID]; err != nil {
		return err
	}
	s.messages[conversationID] = append(s.messages[conversationID], body)
	return nil
}

func (s *memSystemMessenger) HasSystemMessageContaining(conversationID uuid.UUID, marker string) (bool, error) {
	for _, body := range s.messages[conversationID] {
		if strings.Contains(body, marker) {
			return true, nil
		}
	}
	return false, nil
}

// ---- fixtures ---------------------------------------------------------

type reportFixture struct {
	svc           *ReportService
	reports       *memReportStore
	conversations *memConversationLister
	messages      *memSystemMessenger
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		reports:       newMemReportStore(),
		conversations: &memConversationLister{conversations: map[uuid.UUID][]uuid.UUID{}},
		messages:      newMemSystemMessenger(),
	}
	f.svc = NewReportService(f.reports, f.conversations, f.messages, 3, 3)
	return f
}

func (f *reportFixture) addTarget(author uuid.UUID) uuid.UUID {
	target := uuid.New()
	f.reports.authors[target] = author
	return target
}

func (f *reportFixture) addUser() uuid.UUID {
	// a user is its own author for the self-report check
	userID := uuid.New()
	f.reports.authors[userID] = userID
	return userID
}

func reportReq(kind model.ReportTargetKind, target uuid.UUID) model.CreateReportRequest {
	return model.CreateReportRequest{
		TargetKind: kind,
		TargetID:   target,
		ReasonCode: model.ReportReasonSpam,
	}
}

// ---- tests ------------------------------------------------------------

func TestCreateReportRejectsInvalidInput(t *testing.T) {
	f := newReportFixture()
	reporter := uuid.New()

	_, err := f.svc.CreateReport(reporter, model.CreateReportRequest{
		TargetKind: "comment", TargetID: uuid.New(), ReasonCode: model.ReportReasonSpam,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateReport(reporter, model.CreateReportRequest{
		TargetKind: model.ReportTargetPost, TargetID: uuid.New(), ReasonCode: "angry",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateReportUnknownTarget(t *testing.T) {
	f := newReportFixture()
	_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetPost, uuid.New()))
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestCreateReportRejectsSelfReport(t *testing.T) {
	f := newReportFixture()
	author := uuid.New()
	post := f.addTarget(author)

	_, err := f.svc.CreateReport(author, reportReq(model.ReportTargetPost, post))
	assert.ErrorIs(t, err, ErrSelfReport)
}

func TestCreateReportRejectsDuplicate(t *testing.T) {
	f := newReportFixture()
	post := f.addTarget(uuid.New())
	reporter := uuid.New()

	_, err := f.svc.CreateReport(reporter, reportReq(model.ReportTargetPost, post))
	require.NoError(t, err)

	_, err = f.svc.CreateReport(reporter, reportReq(model.ReportTargetPost, post))
	assert.ErrorIs(t, err, ErrDuplicateReport)
}

func TestAutoHideAtThreshold(t *testing.T) {
	f := newReportFixture()
	post := f.addTarget(uuid.New())

	for i := 0; i < 2; i++ {
		_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetPost, post))
		require.NoError(t, err)
		assert.False(t, f.reports.hidden[post], "below threshold nothing is hidden")
	}

	_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetPost, post))
	require.NoError(t, err)
	assert.True(t, f.reports.hidden[post], "third report hides the target")
}

func TestAutoHideNeverAppliesToUsers(t *testing.T) {
	f := newReportFixture()
	user := f.addUser()

	for i := 0; i < 4; i++ {
		_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetUser, user))
		require.NoError(t, err)
	}
	assert.False(t, f.reports.hidden[user], "user accounts are warned, not hidden")
}

func TestUserWarningFanOutWithDedup(t *testing.T) {
	f := newReportFixture()
	user := f.addUser()
	convA, convB := uuid.New(), uuid.New()
	f.conversations.conversations[user] = []uuid.UUID{convA, convB}

	// convA already carries a warning from an earlier threshold crossing
	require.NoError(t, f.messages.CreateSystemMessage(convA, WarningMarker+" earlier warning"))

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetUser, user))
		require.NoError(t, err)
	}

	assert.Len(t, f.messages.messages[convA], 1, "already warned conversation is not warned again")
	require.Len(t, f.messages.messages[convB], 1)
	assert.Contains(t, f.messages.messages[convB][0], WarningMarker)
	assert.Contains(t, f.messages.messages[convB][0], "Lưu ý an toàn")

	// a fourth report re-crosses the threshold without duplicating warnings
	_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetUser, user))
	require.NoError(t, err)
	assert.Len(t, f.messages.messages[convB], 1)
}

func TestWarningFailureDoesNotFailReport(t *testing.T) {
	f := newReportFixture()
	user := f.addUser()
	conv := uuid.New()
	f.conversations.conversations[user] = []uuid.UUID{conv}
	f.messages.failOn[conv] = errors.New("db down")

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateReport(uuid.New(), reportReq(model.ReportTargetUser, user))
		require.NoError(t, err, "consequence failures must not fail the report itself")
	}
}
