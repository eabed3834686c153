package plan

import (
	"sort"
	"time"

	"github.com/kahero/ratiba/core"
)

// ItemKind identifies the kind of a semester-plan content item.
type ItemKind string

const (
	KindNotes       ItemKind = "notes"
	KindMaterial    ItemKind = "material"
	KindAssignment  ItemKind = "assignment"
	KindExam        ItemKind = "exam"
	KindCAT         ItemKind = "cat"
	KindAttendance  ItemKind = "attendance"
	KindOnlineClass ItemKind = "online-class"
)

// DefaultSemesterWeeks is the length of a plan that has not been created yet.
const DefaultSemesterWeeks = 15

type (
	// Document is a file attachment on a material or an assignment.
	Document struct {
		ID         string    `json:"id"`
		Title      string    `json:"title"`
		FileName   string    `json:"fileName"`
		FileURL    string    `json:"fileUrl"`
		FileSize   int64     `json:"fileSize"`
		UploadedAt time.Time `json:"uploadedAt"` // UTC
		UploadedBy string    `json:"uploadedBy"`
		Visible    bool      `json:"visible"`
	}

	Material struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Kind        ItemKind   `json:"kind"` // notes|material
		ReleaseDay  string     `json:"releaseDay"`
		ReleaseTime string     `json:"releaseTime"`
		Visible     bool       `json:"visible"`
		Attachments []Document `json:"attachments,omitempty"`
	}

	Assignment struct {
		ID           string     `json:"id"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		Kind         string     `json:"kind"` // document|essay
		AssignDate   time.Time  `json:"assignDate"`
		DueDate      time.Time  `json:"dueDate"`
		MaxMarks     int        `json:"maxMarks"`
		Instructions string     `json:"instructions"`
		Attachments  []Document `json:"attachments,omitempty"`
	}

	Question struct {
		ID      string   `json:"id"`
		Text    string   `json:"text"`
		Options []string `json:"options,omitempty"`
		Answer  string   `json:"answer,omitempty"`
		Marks   int      `json:"marks"`
	}

	// Exam is a timed assessment (end-of-semester exam or CAT). It only
	// becomes visible to students once approved.
	Exam struct {
		ID               string         `json:"id"`
		Title            string         `json:"title"`
		Description      string         `json:"description"`
		Kind             ItemKind       `json:"kind"` // exam|cat
		ScheduledAt      time.Time      `json:"scheduledAt"`
		ExamTime         string         `json:"examTime"`
		Duration         int            `json:"duration"` // minutes
		Venue            string         `json:"venue"`
		MaxMarks         int            `json:"maxMarks"`
		Instructions     string         `json:"instructions"`
		Questions        []Question     `json:"questions,omitempty"`
		ApprovalStatus   ApprovalStatus `json:"approvalStatus"`
		ApprovedBy       string         `json:"approvedBy,omitempty"`
		ApprovedAt       *time.Time     `json:"approvedAt,omitempty"` // UTC
		RejectionReason  string         `json:"rejectionReason,omitempty"`
		ReviewerComments string         `json:"reviewerComments,omitempty"`
	}

	AttendanceSession struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Date        time.Time `json:"date"`
		StartTime   string    `json:"startTime"`
		EndTime     string    `json:"endTime"`
		Venue       string    `json:"venue"`
		Active      bool      `json:"active"`
	}

	OnlineClass struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Date        time.Time `json:"date"`
		StartTime   string    `json:"startTime"`
		EndTime     string    `json:"endTime"`
		Platform    string    `json:"platform"`
		MeetingLink string    `json:"meetingLink,omitempty"`
		MeetingID   string    `json:"meetingId,omitempty"`
		Passcode    string    `json:"passcode,omitempty"`
		Active      bool      `json:"active"`
	}

	// WeekPlan holds the content scheduled for one numbered week.
	WeekPlan struct {
		WeekNumber         int                 `json:"weekNumber"`
		StartDate          time.Time           `json:"startDate"`
		EndDate            time.Time           `json:"endDate"`
		Topic              string              `json:"topic,omitempty"`
		Materials          []Material          `json:"materials,omitempty"`
		Assignments        []Assignment        `json:"assignments,omitempty"`
		Exams              []Exam              `json:"exams,omitempty"`
		AttendanceSessions []AttendanceSession `json:"attendanceSessions,omitempty"`
		OnlineClasses      []OnlineClass       `json:"onlineClasses,omitempty"`
	}

	// SemesterPlan is one unit's week-by-week teaching plan.
	// Weeks is kept sorted by WeekNumber with unique week numbers.
	SemesterPlan struct {
		SemesterStart *time.Time `json:"semesterStart,omitempty"` // UTC
		SemesterWeeks int        `json:"semesterWeeks"`
		Weeks         []WeekPlan `json:"weeks"`
	}

	// Unit is a course offering, resolved through the Roster collaborator.
	Unit struct {
		ID         string `json:"id"`
		Code       string `json:"code"`
		Name       string `json:"name"`
		LecturerID string `json:"lecturerId"`
	}

	Student struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
)

// DefaultPlan is what callers get for a unit whose plan has not been created
// yet (or could not be loaded). It is never cached.
func DefaultPlan() SemesterPlan {
	return SemesterPlan{SemesterWeeks: DefaultSemesterWeeks, Weeks: []WeekPlan{}}
}

func (p SemesterPlan) IsEmpty() bool { return len(p.Weeks) == 0 }

// Week returns a pointer to the week with the given number, or nil.
func (p *SemesterPlan) Week(n int) *WeekPlan {
	for i := range p.Weeks {
		if p.Weeks[i].WeekNumber == n {
			return &p.Weeks[i]
		}
	}
	return nil
}

// EnsureWeek returns the week with the given number, inserting a new one in
// sorted position if it does not exist. When the plan has a semester start
// date, the new week gets its derived date range.
func (p *SemesterPlan) EnsureWeek(n int) *WeekPlan {
	if w := p.Week(n); w != nil {
		return w
	}
	w := WeekPlan{WeekNumber: n}
	if p.SemesterStart != nil {
		w.StartDate = p.SemesterStart.AddDate(0, 0, (n-1)*7)
		w.EndDate = w.StartDate.AddDate(0, 0, 6)
	}
	p.Weeks = append(p.Weeks, w)
	p.Normalize()
	return p.Week(n)
}

// Normalize sorts weeks by week number and drops duplicate week numbers
// (first occurrence wins).
func (p *SemesterPlan) Normalize() {
	sort.SliceStable(p.Weeks, func(i, j int) bool { return p.Weeks[i].WeekNumber < p.Weeks[j].WeekNumber })
	weeks := p.Weeks[:0]
	var last int = -1
	for _, w := range p.Weeks {
		if w.WeekNumber == last {
			continue
		}
		weeks = append(weeks, w)
		last = w.WeekNumber
	}
	p.Weeks = weeks
}

// FindExam returns a pointer to the exam with this id, or nil.
func (p *SemesterPlan) FindExam(examID string) *Exam {
	for i := range p.Weeks {
		for j := range p.Weeks[i].Exams {
			if p.Weeks[i].Exams[j].ID == examID {
				return &p.Weeks[i].Exams[j]
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the plan. Cached plans are cloned both on
// insert and on return so callers can never mutate a cache entry by reference.
func (p SemesterPlan) Clone() SemesterPlan {
	out := p
	if p.SemesterStart != nil {
		start := *p.SemesterStart
		out.SemesterStart = &start
	}
	if p.Weeks == nil {
		return out
	}
	out.Weeks = make([]WeekPlan, len(p.Weeks))
	for i, w := range p.Weeks {
		out.Weeks[i] = w.clone()
	}
	return out
}

func (w WeekPlan) clone() WeekPlan {
	out := w
	if w.Materials != nil {
		out.Materials = make([]Material, len(w.Materials))
		for i, m := range w.Materials {
			out.Materials[i] = m
			out.Materials[i].Attachments = cloneDocuments(m.Attachments)
		}
	}
	if w.Assignments != nil {
		out.Assignments = make([]Assignment, len(w.Assignments))
		for i, a := range w.Assignments {
			out.Assignments[i] = a
			out.Assignments[i].Attachments = cloneDocuments(a.Attachments)
		}
	}
	if w.Exams != nil {
		out.Exams = make([]Exam, len(w.Exams))
		for i, e := range w.Exams {
			out.Exams[i] = e.clone()
		}
	}
	if w.AttendanceSessions != nil {
		out.AttendanceSessions = append([]AttendanceSession(nil), w.AttendanceSessions...)
	}
	if w.OnlineClasses != nil {
		out.OnlineClasses = append([]OnlineClass(nil), w.OnlineClasses...)
	}
	return out
}

func (e Exam) clone() Exam {
	out := e
	if e.ApprovedAt != nil {
		at := *e.ApprovedAt
		out.ApprovedAt = &at
	}
	if e.Questions != nil {
		out.Questions = make([]Question, len(e.Questions))
		for i, q := range e.Questions {
			out.Questions[i] = q
			out.Questions[i].Options = append([]string(nil), q.Options...)
		}
	}
	return out
}

func cloneDocuments(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	return append([]Document(nil), docs...)
}

// Creation payloads, validated the same way user payloads are.

type NewMaterial struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Kind        ItemKind   `json:"kind" validate:"required,oneof=notes material"`
	ReleaseDay  string     `json:"releaseDay"`
	ReleaseTime string     `json:"releaseTime"`
	Visible     bool       `json:"visible"`
	Attachments []Document `json:"attachments"`
}

func (nm *NewMaterial) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	return core.Validate.Struct(nm)
}

type NewAssignment struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description"`
	Kind         string     `json:"kind" validate:"required,oneof=document essay"`
	AssignDate   time.Time  `json:"assignDate" validate:"required"`
	DueDate      time.Time  `json:"dueDate" validate:"required,gtefield=AssignDate"`
	MaxMarks     int        `json:"maxMarks" validate:"gte=0"`
	Instructions string     `json:"instructions"`
	Attachments  []Document `json:"attachments"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	return core.Validate.Struct(na)
}

type NewExam struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description"`
	Kind         ItemKind   `json:"kind" validate:"required,oneof=exam cat"`
	ScheduledAt  time.Time  `json:"scheduledAt" validate:"required"`
	ExamTime     string     `json:"examTime"`
	Duration     int        `json:"duration" validate:"gt=0"`
	Venue        string     `json:"venue"`
	MaxMarks     int        `json:"maxMarks" validate:"gte=0"`
	Instructions string     `json:"instructions"`
	Questions    []Question `json:"questions"`
}

func (ne *NewExam) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	return core.Validate.Struct(ne)
}

type NewAttendanceSession struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	StartTime   string    `json:"startTime" validate:"required"`
	EndTime     string    `json:"endTime" validate:"required"`
	Venue       string    `json:"venue"`
}

func (ns *NewAttendanceSession) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	return core.Validate.Struct(ns)
}

type NewOnlineClass struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	StartTime   string    `json:"startTime" validate:"required"`
	EndTime     string    `json:"endTime" validate:"required"`
	Platform    string    `json:"platform" validate:"required"`
	MeetingLink string    `json:"meetingLink" validate:"omitempty,url"`
	MeetingID   string    `json:"meetingId"`
	Passcode    string    `json:"passcode"`
}

func (nc *NewOnlineClass) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	return core.Validate.Struct(nc)
}
