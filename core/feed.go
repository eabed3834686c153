package core

import (
	"context"
	"time"
)

type (
	// DashboardRecord is the normalized form of a published content item,
	// as delivered to a recipient's dashboard feed. Each content kind maps
	// its own subset of the optional fields.
	DashboardRecord struct {
		ID                 string    `json:"id"`
		Type               string    `json:"type"` // assignment|notes|exam|cat|attendance|online-class
		Title              string    `json:"title"`
		Description        string    `json:"description"`
		UnitID             string    `json:"unitId"`
		UnitCode           string    `json:"unitCode"`
		UnitName           string    `json:"unitName"`
		LecturerID         string    `json:"lecturerId"`
		CreatedAt          time.Time `json:"createdAt"`
		Status             string    `json:"status"`
		WeekNumber         int       `json:"weekNumber,omitempty"`
		IsFromSemesterPlan bool      `json:"isFromSemesterPlan,omitempty"`

		// assignment fields
		AssignDate     *time.Time `json:"assignDate,omitempty"`
		DueDate        *time.Time `json:"dueDate,omitempty"`
		MaxMarks       int        `json:"maxMarks,omitempty"`
		Instructions   string     `json:"instructions,omitempty"`
		SubmissionType string     `json:"submissionType,omitempty"`

		// exam/cat fields
		ExamDate  *time.Time    `json:"examDate,omitempty"`
		ExamTime  string        `json:"examTime,omitempty"`
		Duration  int           `json:"duration,omitempty"` // minutes
		Venue     string        `json:"venue,omitempty"`
		Questions []interface{} `json:"questions,omitempty"`

		// notes/material fields
		FileURL     string `json:"fileUrl,omitempty"`
		FileName    string `json:"fileName,omitempty"`
		ReleaseDay  string `json:"releaseDay,omitempty"`
		ReleaseTime string `json:"releaseTime,omitempty"`

		// attendance & online-class fields
		Date        *time.Time `json:"date,omitempty"`
		StartTime   string     `json:"startTime,omitempty"`
		EndTime     string     `json:"endTime,omitempty"`
		Platform    string     `json:"platform,omitempty"`
		MeetingLink string     `json:"meetingLink,omitempty"`
		MeetingID   string     `json:"meetingId,omitempty"`
		Passcode    string     `json:"passcode,omitempty"`
	}

	// FeedService delivers dashboard records to a recipient's feed.
	// Upsert must be idempotent on (recipientID, record.ID): delivering the
	// same record twice leaves a single entry.
	FeedService interface {
		Upsert(ctx context.Context, recipientID string, rec DashboardRecord) error
	}
)
