package plan

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newApprovalFixture(t *testing.T, status ApprovalStatus) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	store.plans["unit1"] = planWithWeeks(WeekPlan{
		WeekNumber: 3,
		Exams: []Exam{{
			ID:             "e1",
			Title:          "CAT 1",
			Kind:           KindCAT,
			ApprovalStatus: status,
		}},
	})
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	svc := NewService(cache, &memOverlay{}, nil, &testLogger{})
	return svc, store
}

func TestApprovalStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ApprovalStatus
		want     bool
	}{
		{ApprovalDraft, ApprovalPending, true},
		{ApprovalDraft, ApprovalApproved, false},
		{ApprovalDraft, ApprovalRejected, false},
		{ApprovalPending, ApprovalApproved, true},
		{ApprovalPending, ApprovalRejected, true},
		{ApprovalPending, ApprovalDraft, false},
		{ApprovalRejected, ApprovalPending, true},
		{ApprovalRejected, ApprovalApproved, false},
		{ApprovalApproved, ApprovalPending, false},
		{ApprovalApproved, ApprovalRejected, false},
		{ApprovalApproved, ApprovalDraft, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v; want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestService_SubmitExamForApproval(t *testing.T) {
	svc, store := newApprovalFixture(t, ApprovalDraft)
	ctx := context.Background()

	exam, err := svc.SubmitExamForApproval(ctx, "unit1", "e1")
	if err != nil {
		t.Fatalf("SubmitExamForApproval() failed: %v", err)
	}
	assert.Equal(t, ApprovalPending, exam.ApprovalStatus)

	// transition persisted with the owning plan
	stored := store.plans["unit1"].FindExam("e1")
	assert.Equal(t, ApprovalPending, stored.ApprovalStatus)
}

func TestService_ApproveExam(t *testing.T) {
	svc, store := newApprovalFixture(t, ApprovalPending)

	exam, err := svc.ApproveExam(context.Background(), "unit1", "e1", "hod1", "looks good")
	if err != nil {
		t.Fatalf("ApproveExam() failed: %v", err)
	}
	assert.Equal(t, ApprovalApproved, exam.ApprovalStatus)
	assert.Equal(t, "hod1", exam.ApprovedBy)
	assert.NotNil(t, exam.ApprovedAt)
	assert.Equal(t, "looks good", exam.ReviewerComments)

	stored := store.plans["unit1"].FindExam("e1")
	assert.Equal(t, ApprovalApproved, stored.ApprovalStatus)
}

func TestService_RejectExam(t *testing.T) {
	svc, _ := newApprovalFixture(t, ApprovalPending)

	exam, err := svc.RejectExam(context.Background(), "unit1", "e1", "question 3 is out of syllabus", "")
	if err != nil {
		t.Fatalf("RejectExam() failed: %v", err)
	}
	assert.Equal(t, ApprovalRejected, exam.ApprovalStatus)
	assert.Equal(t, "question 3 is out of syllabus", exam.RejectionReason)
}

func TestService_RejectExam_requiresReason(t *testing.T) {
	svc, store := newApprovalFixture(t, ApprovalPending)

	_, err := svc.RejectExam(context.Background(), "unit1", "e1", "  ", "")
	if err == nil {
		t.Fatal("RejectExam() must require a reason")
	}

	stored := store.plans["unit1"].FindExam("e1")
	assert.Equal(t, ApprovalPending, stored.ApprovalStatus, "no mutation on validation failure")
}

func TestService_invalidTransitionsLeaveExamUntouched(t *testing.T) {
	tests := []struct {
		name string
		from ApprovalStatus
		op   func(*Service) error
	}{
		{
			name: "approve a draft",
			from: ApprovalDraft,
			op: func(svc *Service) error {
				_, err := svc.ApproveExam(context.Background(), "unit1", "e1", "hod1", "")
				return err
			},
		},
		{
			name: "reject a draft",
			from: ApprovalDraft,
			op: func(svc *Service) error {
				_, err := svc.RejectExam(context.Background(), "unit1", "e1", "nope", "")
				return err
			},
		},
		{
			name: "resubmit an approved exam",
			from: ApprovalApproved,
			op: func(svc *Service) error {
				_, err := svc.SubmitExamForApproval(context.Background(), "unit1", "e1")
				return err
			},
		},
		{
			name: "reject an approved exam",
			from: ApprovalApproved,
			op: func(svc *Service) error {
				_, err := svc.RejectExam(context.Background(), "unit1", "e1", "too late", "")
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newApprovalFixture(t, tt.from)

			err := tt.op(svc)
			if errors.Cause(err) != ErrInvalidTransition {
				t.Fatalf("err = %v; want ErrInvalidTransition", err)
			}
			stored := store.plans["unit1"].FindExam("e1")
			assert.Equal(t, tt.from, stored.ApprovalStatus)
		})
	}
}

func TestService_rejectedExamCanBeResubmitted(t *testing.T) {
	svc, _ := newApprovalFixture(t, ApprovalPending)
	ctx := context.Background()

	if _, err := svc.RejectExam(ctx, "unit1", "e1", "fix the rubric", ""); err != nil {
		t.Fatalf("RejectExam() failed: %v", err)
	}

	exam, err := svc.SubmitExamForApproval(ctx, "unit1", "e1")
	if err != nil {
		t.Fatalf("SubmitExamForApproval() after rejection failed: %v", err)
	}
	assert.Equal(t, ApprovalPending, exam.ApprovalStatus)
	assert.Empty(t, exam.RejectionReason, "resubmission clears the rejection reason")

	// full cycle ends in the terminal state
	exam, err = svc.ApproveExam(ctx, "unit1", "e1", "hod1", "")
	if err != nil {
		t.Fatalf("ApproveExam() failed: %v", err)
	}
	assert.Equal(t, ApprovalApproved, exam.ApprovalStatus)
}

func TestService_transitionUnknownExam(t *testing.T) {
	svc, _ := newApprovalFixture(t, ApprovalDraft)

	_, err := svc.SubmitExamForApproval(context.Background(), "unit1", "nope")
	if errors.Cause(err) != ErrExamNotFound {
		t.Fatalf("err = %v; want ErrExamNotFound", err)
	}
}
