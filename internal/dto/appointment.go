package dto

// BookAppointmentRequest is the payload of POST /appointment-book. StudentEmail defaults
// to the caller when omitted.
type BookAppointmentRequest struct {
	StudentEmail string `json:"studentEmail" validate:"omitempty,email"`
	TeacherEmail string `json:"teacherEmail" validate:"required,email"`
	Subject      string `json:"subject" validate:"required,max=200"`
	Message      string `json:"message"`
	Date         string `json:"date" validate:"required"`
	Slot         string `json:"slot" validate:"required"`
}

// UpdateStatusRequest is the payload of PATCH /appointment/:id.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved cancelled"`
}

// TeacherAppointmentsQuery filters the teacher view.
type TeacherAppointmentsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=all pending approved cancelled"`
}

// AdminAppointmentsQuery filters the admin view. Empty fields and "all" match everything.
type AdminAppointmentsQuery struct {
	Status     string `form:"status" validate:"omitempty,oneof=all pending approved cancelled"`
	Date       string `form:"date"`
	Search     string `form:"search" validate:"max=100"`
	Department string `form:"department"`
}

// ExportQuery extends the admin filter with an output format.
type ExportQuery struct {
	AdminAppointmentsQuery
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
