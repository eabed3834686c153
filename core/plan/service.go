package plan

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core"
)

var (
	ErrUnknownKind = errors.New("unknown content kind")

	// nowFunc is swapped out in tests.
	nowFunc = time.Now
)

type (
	// DocumentOverlay supplies persisted file attachments for a material or
	// assignment, looked up by the owning entity's id. It is read-only from
	// this service's point of view.
	DocumentOverlay interface {
		VisibleDocuments(ctx context.Context, entityID string, kind ItemKind) ([]Document, error)
	}

	// Service ties the plan cache, the document overlay and the fan-out
	// synchronizer together behind the operations the forms and dashboards
	// consume.
	Service struct {
		cache   *Cache
		overlay DocumentOverlay
		syncer  *Synchronizer
		logger  core.Logger
	}
)

func NewService(cache *Cache, overlay DocumentOverlay, syncer *Synchronizer, logger core.Logger) *Service {
	return &Service{
		cache:   cache,
		overlay: overlay,
		syncer:  syncer,
		logger:  logger,
	}
}

// GetPlan returns the full plan for a unit (lecturer view). A unit without a
// plan resolves to the default empty plan, never an error.
func (svc *Service) GetPlan(ctx context.Context, unitID string) (SemesterPlan, error) {
	return svc.cache.Get(ctx, unitID)
}

// HasPlan reports whether real plan data is cached for this unit.
func (svc *Service) HasPlan(unitID string) bool {
	return svc.cache.Has(unitID)
}

// SetPlan saves a whole plan (lecturer planner save). Persist failures
// propagate so the caller can report them.
func (svc *Service) SetPlan(ctx context.Context, unitID string, p SemesterPlan) error {
	return svc.cache.Set(ctx, unitID, p)
}

// ClearPlan deletes a unit's plan from the store and the cache.
func (svc *Service) ClearPlan(ctx context.Context, unitID string) error {
	return svc.cache.Clear(ctx, unitID)
}

// GetStudentPlan returns the plan as seen by a student: visibility-filtered
// and with persisted attachments overlaid. Overlay failures degrade to the
// embedded attachments only.
func (svc *Service) GetStudentPlan(ctx context.Context, unitID, studentID string) (SemesterPlan, error) {
	p, err := svc.cache.Get(ctx, unitID)
	if err != nil {
		return SemesterPlan{}, err
	}

	overlay := func(entityID string, kind ItemKind) []Document {
		docs, err := svc.overlay.VisibleDocuments(ctx, entityID, kind)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("overlaying documents for %s %s: %v", kind, entityID, err), err)
			return nil
		}
		return docs
	}
	return StudentView(p, nowFunc().UTC(), overlay), nil
}

// Progress returns how far the semester has advanced for this unit, as a
// percentage. The current week is the one whose date range contains now;
// when no range matches it is derived from the semester start date; without
// either there is no progress to report.
func (svc *Service) Progress(ctx context.Context, unitID string) (int, error) {
	p, err := svc.cache.Get(ctx, unitID)
	if err != nil {
		return 0, err
	}
	return progressAt(p, nowFunc().UTC()), nil
}

func progressAt(p SemesterPlan, now time.Time) int {
	total := p.SemesterWeeks
	if total <= 0 {
		total = len(p.Weeks)
	}
	if total <= 0 {
		return 0
	}

	var current int
	for _, w := range p.Weeks {
		if w.StartDate.IsZero() || w.EndDate.IsZero() {
			continue
		}
		if !now.Before(w.StartDate) && !now.After(w.EndDate) {
			current = w.WeekNumber
			break
		}
	}
	if current == 0 && p.SemesterStart != nil {
		current = int(now.Sub(*p.SemesterStart).Hours()/(24*7)) + 1
		if current < 1 {
			current = 1
		}
		if current > total {
			current = total
		}
	}
	if current == 0 {
		return 0
	}

	pct := int(math.Round(float64(current) / float64(total) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// CreateItem appends a new content item to the given week of a unit's plan,
// persists the plan, then fans the item out to the lecturer's and enrolled
// students' dashboard feeds. Fan-out failures are logged but never surfaced:
// publishing is decoupled from the save's success/failure contract.
//
// payload must match kind: *NewMaterial for notes/material, *NewAssignment,
// *NewExam for exam/cat, *NewAttendanceSession, *NewOnlineClass.
func (svc *Service) CreateItem(ctx context.Context, unitID string, weekNumber int, kind ItemKind, payload interface{}) (interface{}, error) {
	if weekNumber < 1 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "weekNumber", Error: "must be at least 1"})
	}

	switch kind {
	case KindNotes, KindMaterial:
		if nm, ok := payload.(*NewMaterial); ok {
			return svc.AddMaterial(ctx, unitID, weekNumber, *nm)
		}
	case KindAssignment:
		if na, ok := payload.(*NewAssignment); ok {
			return svc.AddAssignment(ctx, unitID, weekNumber, *na)
		}
	case KindExam, KindCAT:
		if ne, ok := payload.(*NewExam); ok {
			return svc.AddExam(ctx, unitID, weekNumber, *ne)
		}
	case KindAttendance:
		if ns, ok := payload.(*NewAttendanceSession); ok {
			return svc.AddAttendanceSession(ctx, unitID, weekNumber, *ns)
		}
	case KindOnlineClass:
		if nc, ok := payload.(*NewOnlineClass); ok {
			return svc.AddOnlineClass(ctx, unitID, weekNumber, *nc)
		}
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	return nil, errors.Errorf("payload type %T does not match kind %q", payload, kind)
}

func (svc *Service) AddMaterial(ctx context.Context, unitID string, weekNumber int, nm NewMaterial) (Material, error) {
	if err := nm.Validate(); err != nil {
		return Material{}, err
	}
	m := Material{
		ID:          uuid.New().String(),
		Title:       nm.Title,
		Description: nm.Description,
		Kind:        nm.Kind,
		ReleaseDay:  nm.ReleaseDay,
		ReleaseTime: nm.ReleaseTime,
		Visible:     nm.Visible,
		Attachments: nm.Attachments,
	}
	err := svc.appendItem(ctx, unitID, weekNumber, func(w *WeekPlan) {
		w.Materials = append(w.Materials, m)
	})
	if err != nil {
		return Material{}, err
	}
	svc.publish(ctx, unitID, weekNumber, m)
	return m, nil
}

func (svc *Service) AddAssignment(ctx context.Context, unitID string, weekNumber int, na NewAssignment) (Assignment, error) {
	if err := na.Validate(); err != nil {
		return Assignment{}, err
	}
	a := Assignment{
		ID:           uuid.New().String(),
		Title:        na.Title,
		Description:  na.Description,
		Kind:         na.Kind,
		AssignDate:   na.AssignDate.UTC(),
		DueDate:      na.DueDate.UTC(),
		MaxMarks:     na.MaxMarks,
		Instructions: na.Instructions,
		Attachments:  na.Attachments,
	}
	err := svc.appendItem(ctx, unitID, weekNumber, func(w *WeekPlan) {
		w.Assignments = append(w.Assignments, a)
	})
	if err != nil {
		return Assignment{}, err
	}
	svc.publish(ctx, unitID, weekNumber, a)
	return a, nil
}

// AddExam creates a timed assessment in draft state; it goes through the
// approval workflow before any student can see it.
func (svc *Service) AddExam(ctx context.Context, unitID string, weekNumber int, ne NewExam) (Exam, error) {
	if err := ne.Validate(); err != nil {
		return Exam{}, err
	}
	e := Exam{
		ID:             uuid.New().String(),
		Title:          ne.Title,
		Description:    ne.Description,
		Kind:           ne.Kind,
		ScheduledAt:    ne.ScheduledAt.UTC(),
		ExamTime:       ne.ExamTime,
		Duration:       ne.Duration,
		Venue:          ne.Venue,
		MaxMarks:       ne.MaxMarks,
		Instructions:   ne.Instructions,
		Questions:      ne.Questions,
		ApprovalStatus: ApprovalDraft,
	}
	err := svc.appendItem(ctx, unitID, weekNumber, func(w *WeekPlan) {
		w.Exams = append(w.Exams, e)
	})
	if err != nil {
		return Exam{}, err
	}
	svc.publish(ctx, unitID, weekNumber, e)
	return e, nil
}

func (svc *Service) AddAttendanceSession(ctx context.Context, unitID string, weekNumber int, ns NewAttendanceSession) (AttendanceSession, error) {
	if err := ns.Validate(); err != nil {
		return AttendanceSession{}, err
	}
	s := AttendanceSession{
		ID:          uuid.New().String(),
		Title:       ns.Title,
		Description: ns.Description,
		Date:        ns.Date.UTC(),
		StartTime:   ns.StartTime,
		EndTime:     ns.EndTime,
		Venue:       ns.Venue,
		Active:      true,
	}
	err := svc.appendItem(ctx, unitID, weekNumber, func(w *WeekPlan) {
		w.AttendanceSessions = append(w.AttendanceSessions, s)
	})
	if err != nil {
		return AttendanceSession{}, err
	}
	svc.publish(ctx, unitID, weekNumber, s)
	return s, nil
}

func (svc *Service) AddOnlineClass(ctx context.Context, unitID string, weekNumber int, nc NewOnlineClass) (OnlineClass, error) {
	if err := nc.Validate(); err != nil {
		return OnlineClass{}, err
	}
	c := OnlineClass{
		ID:          uuid.New().String(),
		Title:       nc.Title,
		Description: nc.Description,
		Date:        nc.Date.UTC(),
		StartTime:   nc.StartTime,
		EndTime:     nc.EndTime,
		Platform:    nc.Platform,
		MeetingLink: nc.MeetingLink,
		MeetingID:   nc.MeetingID,
		Passcode:    nc.Passcode,
		Active:      true,
	}
	err := svc.appendItem(ctx, unitID, weekNumber, func(w *WeekPlan) {
		w.OnlineClasses = append(w.OnlineClasses, c)
	})
	if err != nil {
		return OnlineClass{}, err
	}
	svc.publish(ctx, unitID, weekNumber, c)
	return c, nil
}

// appendItem loads the unit's plan (the default empty plan when none exists
// yet - creating content creates the plan), applies fn to the target week and
// writes the plan through the cache.
func (svc *Service) appendItem(ctx context.Context, unitID string, weekNumber int, fn func(*WeekPlan)) error {
	p, err := svc.cache.Get(ctx, unitID)
	if err != nil {
		return err
	}
	fn(p.EnsureWeek(weekNumber))
	return svc.cache.Set(ctx, unitID, p)
}

func (svc *Service) publish(ctx context.Context, unitID string, weekNumber int, item interface{}) {
	if svc.syncer == nil {
		return
	}
	if failures := svc.syncer.Publish(ctx, unitID, weekNumber, item); len(failures) > 0 {
		svc.logger.Warn(fmt.Sprintf("publishing to unit %s: %d of the recipients were unreachable", unitID, len(failures)))
	}
}
