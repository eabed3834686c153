package plan

import "time"

// OverlayFunc supplies the persisted file attachments for a content entity,
// looked up by the owning entity's id. It must only return documents that are
// visible to students.
type OverlayFunc func(entityID string, kind ItemKind) []Document

// StudentView derives the student-visible subset of a plan as of a given
// time:
//
//   - materials: only Visible ones, with attachments merged from the overlay
//     (overlay entries win on id collision);
//   - assignments: only those whose assign date has passed; already-due
//     assignments remain visible;
//   - exams: only approved ones;
//   - attendance sessions and online classes: passed through unfiltered.
//
// The function is pure: it never mutates its input and calling it on its own
// output with the same asOf and overlay yields a structurally identical plan.
func StudentView(p SemesterPlan, asOf time.Time, overlay OverlayFunc) SemesterPlan {
	if overlay == nil {
		overlay = func(string, ItemKind) []Document { return nil }
	}

	out := SemesterPlan{SemesterWeeks: p.SemesterWeeks}
	if p.SemesterStart != nil {
		start := *p.SemesterStart
		out.SemesterStart = &start
	}
	out.Weeks = make([]WeekPlan, 0, len(p.Weeks))

	for _, w := range p.Weeks {
		sw := WeekPlan{
			WeekNumber: w.WeekNumber,
			StartDate:  w.StartDate,
			EndDate:    w.EndDate,
			Topic:      w.Topic,
		}

		for _, m := range w.Materials {
			if !m.Visible {
				continue
			}
			m.Attachments = mergeAttachments(overlay(m.ID, m.Kind), m.Attachments)
			sw.Materials = append(sw.Materials, m)
		}

		for _, a := range w.Assignments {
			if asOf.Before(a.AssignDate) {
				continue
			}
			a.Attachments = mergeAttachments(overlay(a.ID, KindAssignment), a.Attachments)
			sw.Assignments = append(sw.Assignments, a)
		}

		for _, e := range w.Exams {
			if e.ApprovalStatus != ApprovalApproved {
				continue
			}
			sw.Exams = append(sw.Exams, e.clone())
		}

		if w.AttendanceSessions != nil {
			sw.AttendanceSessions = append([]AttendanceSession(nil), w.AttendanceSessions...)
		}
		if w.OnlineClasses != nil {
			sw.OnlineClasses = append([]OnlineClass(nil), w.OnlineClasses...)
		}

		out.Weeks = append(out.Weeks, sw)
	}
	return out
}

// mergeAttachments unions overlay documents with the visible embedded ones.
// The overlay copy wins when both carry the same document id; embedded
// documents keep their relative order after the overlay's.
func mergeAttachments(overlayDocs, embedded []Document) []Document {
	if len(overlayDocs) == 0 && len(embedded) == 0 {
		return nil
	}

	out := make([]Document, 0, len(overlayDocs)+len(embedded))
	seen := make(map[string]bool, len(overlayDocs))
	for _, d := range overlayDocs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	for _, d := range embedded {
		if !d.Visible || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
