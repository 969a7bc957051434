package models

import (
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of a booking request.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled
}

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:  {StatusApproved, StatusCancelled},
	StatusApproved: {StatusPending, StatusCancelled},
}

// CanTransition reports whether from -> to is an edge of the lifecycle. Writing the
// current status again is not a transition.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses lists statuses in display order.
var AllStatuses = []AppointmentStatus{StatusPending, StatusApproved, StatusCancelled}

// Slot is the start of a one hour booking window.
type Slot string

// Slots is the fixed set of bookable windows.
var Slots = []Slot{"09:00", "10:00", "11:00", "14:00", "15:00"}

// Valid reports whether s is one of the bookable slots.
func (s Slot) Valid() bool {
	for _, slot := range Slots {
		if slot == s {
			return true
		}
	}
	return false
}

// Range renders the slot as "HH:MM-HH:MM".
func (s Slot) Range() string {
	start, err := time.Parse("15:04", string(s))
	if err != nil {
		return string(s)
	}
	return start.Format("15:04") + "-" + start.Add(time.Hour).Format("15:04")
}

// Appointment is a booking request from a student to a teacher.
// StudentUsername is captured at booking time and never re-synced with the directory.
type Appointment struct {
	ID              string            `db:"id" json:"id"`
	TeacherEmail    string            `db:"teacher_email" json:"teacherEmail"`
	StudentEmail    string            `db:"student_email" json:"studentEmail"`
	StudentUsername string            `db:"student_username" json:"studentUsername"`
	TeacherUsername *string           `db:"teacher_username" json:"teacherUsername,omitempty"`
	Subject         string            `db:"subject" json:"subject"`
	Message         string            `db:"message" json:"message"`
	Date            Date              `db:"date" json:"date"`
	Slot            Slot              `db:"slot" json:"slot"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Version         int               `db:"version" json:"version"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`
}

// InvolvesTeacher reports whether email owns the appointment as teacher.
func (a Appointment) InvolvesTeacher(email string) bool {
	return strings.EqualFold(a.TeacherEmail, email)
}

// InvolvesStudent reports whether email booked the appointment.
func (a Appointment) InvolvesStudent(email string) bool {
	return strings.EqualFold(a.StudentEmail, email)
}

// AppointmentFilter narrows a store enumeration. Zero values match everything.
type AppointmentFilter struct {
	TeacherEmails []string
	StudentEmail  string
	Status        *AppointmentStatus
	Date          *Date
	Search        string
}

// StatusCounts summarises a result set per status.
type StatusCounts struct {
	All       int `json:"all"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Cancelled int `json:"cancelled"`
}

// CountStatuses tallies the statuses of items.
func CountStatuses(items []Appointment) StatusCounts {
	counts := StatusCounts{All: len(items)}
	for _, a := range items {
		switch a.Status {
		case StatusPending:
			counts.Pending++
		case StatusApproved:
			counts.Approved++
		case StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}
