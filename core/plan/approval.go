package plan

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core"
)

// ApprovalStatus is the lifecycle status of a timed assessment.
type ApprovalStatus string

const (
	ApprovalDraft    ApprovalStatus = "draft"
	ApprovalPending  ApprovalStatus = "pending_approval"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrInvalidTransition = errors.New("invalid approval transition")

	// approved is terminal; a rejected exam may be resubmitted.
	approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
		ApprovalDraft:    {ApprovalPending},
		ApprovalPending:  {ApprovalApproved, ApprovalRejected},
		ApprovalRejected: {ApprovalPending},
		ApprovalApproved: {},
	}
)

func (s ApprovalStatus) Valid() bool {
	_, ok := approvalTransitions[s]
	return ok
}

func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	for _, t := range approvalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// transitionExam applies fn to the exam after checking the transition is
// allowed, then re-persists the whole plan: the exam record lives inside a
// WeekPlan, there is no independent exam store. No mutation is applied on
// an invalid transition.
func (svc *Service) transitionExam(ctx context.Context, unitID, examID string, target ApprovalStatus, fn func(*Exam)) (Exam, error) {
	p, err := svc.cache.Get(ctx, unitID)
	if err != nil {
		return Exam{}, err
	}

	exam := p.FindExam(examID)
	if exam == nil {
		return Exam{}, ErrExamNotFound
	}
	if !exam.ApprovalStatus.CanTransitionTo(target) {
		return Exam{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", exam.ApprovalStatus, target)
	}

	exam.ApprovalStatus = target
	fn(exam)

	if err := svc.cache.Set(ctx, unitID, p); err != nil {
		return Exam{}, err
	}
	return exam.clone(), nil
}

// SubmitExamForApproval moves a draft (or rejected, on resubmission) exam to
// pending_approval; it stays invisible to students until approved.
func (svc *Service) SubmitExamForApproval(ctx context.Context, unitID, examID string) (Exam, error) {
	return svc.transitionExam(ctx, unitID, examID, ApprovalPending, func(e *Exam) {
		e.RejectionReason = ""
	})
}

// ApproveExam marks a pending exam approved, stamping the reviewer and time.
func (svc *Service) ApproveExam(ctx context.Context, unitID, examID, reviewerID, comments string) (Exam, error) {
	return svc.transitionExam(ctx, unitID, examID, ApprovalApproved, func(e *Exam) {
		now := time.Now().UTC()
		e.ApprovedBy = reviewerID
		e.ApprovedAt = &now
		e.ReviewerComments = comments
	})
}

// RejectExam marks a pending exam rejected with the given reason.
func (svc *Service) RejectExam(ctx context.Context, unitID, examID, reason, comments string) (Exam, error) {
	if core.CleanString(reason) == "" {
		return Exam{}, core.NewValidationError(nil, core.FieldError{Field: "reason", Error: "this field is required"})
	}
	return svc.transitionExam(ctx, unitID, examID, ApprovalRejected, func(e *Exam) {
		e.RejectionReason = reason
		e.ReviewerComments = comments
	})
}
