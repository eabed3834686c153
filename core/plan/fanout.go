package plan

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core"
)

// Roster resolves a unit's owning lecturer and its enrolled students.
// Both lookups are external collaborators and may fail independently.
type Roster interface {
	GetUnit(ctx context.Context, unitID string) (Unit, error)
	EnrolledStudents(ctx context.Context, unitID string) ([]Student, error)
}

// SendFailure records one unreachable recipient during a fan-out.
type SendFailure struct {
	RecipientID string
	Err         error
}

// Synchronizer pushes newly published content to the owning lecturer's
// dashboard feed and to every enrolled student's feed. It owns no state;
// it is a stateless relay.
//
// Fan-out is best-effort per recipient: a failed send is logged and recorded
// but never prevents delivery to the remaining recipients, and failures are
// never surfaced to the content-creation caller. Broadcast is not guaranteed
// exactly-once; feed delivery is an idempotent upsert by item id.
type Synchronizer struct {
	roster  Roster
	feed    core.FeedService
	mailSvc core.EmailService // optional; nil disables email notices
	logger  core.Logger

	maxWorkers  int
	sendTimeout time.Duration
}

func NewSynchronizer(roster Roster, feed core.FeedService, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Synchronizer {
	workers := conf.Fanout.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	timeout := conf.Fanout.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Synchronizer{
		roster:      roster,
		feed:        feed,
		mailSvc:     mailSvc,
		logger:      logger,
		maxWorkers:  workers,
		sendTimeout: timeout,
	}
}

// Publish builds the normalized dashboard record for item and delivers it to
// the lecturer's feed, then to every enrolled student's feed (annotated as
// coming from the semester plan). Student sends run concurrently, bounded by
// the worker cap, each with its own timeout; one slow or failing send never
// cancels its siblings. The returned failures are for observability only.
func (s *Synchronizer) Publish(ctx context.Context, unitID string, weekNumber int, item interface{}) []SendFailure {
	unit, err := s.roster.GetUnit(ctx, unitID)
	if err != nil {
		// degrade: deliver with what we know rather than dropping the fan-out
		s.logger.Warn(fmt.Sprintf("fanout: resolving unit %s: %v", unitID, err), err)
		unit = Unit{ID: unitID}
	}

	rec, err := BuildRecord(unit, weekNumber, item)
	if err != nil {
		s.logger.Error(fmt.Sprintf("fanout: building record for unit %s: %v", unitID, err), err)
		return nil
	}

	var failures []SendFailure

	if unit.LecturerID != "" {
		if err := s.send(ctx, unit.LecturerID, rec); err != nil {
			s.logger.Warn(fmt.Sprintf("fanout: sending to lecturer %s: %v", unit.LecturerID, err), err)
			failures = append(failures, SendFailure{RecipientID: unit.LecturerID, Err: err})
		}
	}

	students, err := s.roster.EnrolledStudents(ctx, unitID)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("fanout: resolving students of unit %s: %v", unitID, err), err)
		return failures
	}
	if len(students) == 0 {
		return failures
	}

	studentRec := rec
	studentRec.IsFromSemesterPlan = true

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.maxWorkers)
	)
	for _, st := range students {
		st := st
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			if err := s.send(ctx, st.ID, studentRec); err != nil {
				s.logger.Warn(fmt.Sprintf("fanout: sending to student %s: %v", st.ID, err), err)
				mu.Lock()
				failures = append(failures, SendFailure{RecipientID: st.ID, Err: err})
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.notify(unit, rec, students)
	return failures
}

func (s *Synchronizer) send(ctx context.Context, recipientID string, rec core.DashboardRecord) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return s.feed.Upsert(sendCtx, recipientID, rec)
}

// notify mails enrolled students a short notice about the new content.
func (s *Synchronizer) notify(unit Unit, rec core.DashboardRecord, students []Student) {
	if s.mailSvc == nil {
		return
	}
	bcc := make([]mail.Address, 0, len(students))
	for _, st := range students {
		if st.Email == "" {
			continue
		}
		bcc = append(bcc, mail.Address{Name: st.Name, Address: st.Email})
	}
	if len(bcc) == 0 {
		return
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{core.Conf.DefaultFromEmail()},
		Bcc:     bcc,
		Subject: fmt.Sprintf("New %s in %s", rec.Type, unit.Code),
		BodyStr: fmt.Sprintf("%q was just published in %s - %s. Check your dashboard for details.", rec.Title, unit.Code, unit.Name),
	}
	s.mailSvc.SendMessages(msg)
}

// BuildRecord maps a content item to its normalized dashboard record.
// The mapping is total over the supported item types; each kind carries its
// own subset of the record's optional fields.
func BuildRecord(unit Unit, weekNumber int, item interface{}) (core.DashboardRecord, error) {
	rec := core.DashboardRecord{
		UnitID:     unit.ID,
		UnitCode:   unit.Code,
		UnitName:   unit.Name,
		LecturerID: unit.LecturerID,
		WeekNumber: weekNumber,
	}

	switch v := item.(type) {
	case Material:
		rec.ID = v.ID
		rec.Type = string(KindNotes)
		rec.Title = v.Title
		rec.Description = v.Description
		rec.CreatedAt = time.Now().UTC()
		rec.Status = "hidden"
		if v.Visible {
			rec.Status = "visible"
		}
		rec.ReleaseDay = v.ReleaseDay
		rec.ReleaseTime = v.ReleaseTime
		if doc, ok := firstVisibleDocument(v.Attachments); ok {
			rec.FileURL = doc.FileURL
			rec.FileName = doc.FileName
		}

	case Assignment:
		rec.ID = v.ID
		rec.Type = string(KindAssignment)
		rec.Title = v.Title
		rec.Description = v.Description
		rec.CreatedAt = v.AssignDate
		rec.Status = "active"
		assignDate, dueDate := v.AssignDate, v.DueDate
		rec.AssignDate = &assignDate
		rec.DueDate = &dueDate
		rec.MaxMarks = v.MaxMarks
		rec.Instructions = v.Instructions
		rec.SubmissionType = v.Kind
		if doc, ok := firstVisibleDocument(v.Attachments); ok {
			rec.FileURL = doc.FileURL
			rec.FileName = doc.FileName
		}

	case Exam:
		rec.ID = v.ID
		rec.Type = string(v.Kind)
		rec.Title = v.Title
		rec.Description = v.Description
		rec.CreatedAt = v.ScheduledAt
		rec.Status = string(v.ApprovalStatus)
		examDate := v.ScheduledAt
		rec.ExamDate = &examDate
		rec.ExamTime = v.ExamTime
		rec.Duration = v.Duration
		rec.Venue = v.Venue
		rec.MaxMarks = v.MaxMarks
		rec.Instructions = v.Instructions
		if len(v.Questions) > 0 {
			rec.Questions = make([]interface{}, len(v.Questions))
			for i, q := range v.Questions {
				rec.Questions[i] = q
			}
		}

	case AttendanceSession:
		rec.ID = v.ID
		rec.Type = string(KindAttendance)
		rec.Title = v.Title
		rec.Description = v.Description
		rec.CreatedAt = v.Date
		rec.Status = activeStatus(v.Active)
		date := v.Date
		rec.Date = &date
		rec.StartTime = v.StartTime
		rec.EndTime = v.EndTime
		rec.Venue = v.Venue

	case OnlineClass:
		rec.ID = v.ID
		rec.Type = string(KindOnlineClass)
		rec.Title = v.Title
		rec.Description = v.Description
		rec.CreatedAt = v.Date
		rec.Status = activeStatus(v.Active)
		date := v.Date
		rec.Date = &date
		rec.StartTime = v.StartTime
		rec.EndTime = v.EndTime
		rec.Platform = v.Platform
		rec.MeetingLink = v.MeetingLink
		rec.MeetingID = v.MeetingID
		rec.Passcode = v.Passcode

	default:
		return core.DashboardRecord{}, errors.Errorf("unsupported item type %T", item)
	}
	return rec, nil
}

func firstVisibleDocument(docs []Document) (Document, bool) {
	for _, d := range docs {
		if d.Visible {
			return d, true
		}
	}
	return Document{}, false
}

func activeStatus(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
