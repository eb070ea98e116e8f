package queue

import (
	"github.com/google/uuid"
)

const (
	TypeExportReservations = "export:reservations"
	TypeParkingReminders   = "notify:parking_reminders"
	TypeMonthlyReport      = "report:monthly_activity"

	DefaultQueue = "default"
)

type ExportPayload struct {
	RequestedBy  uuid.UUID         `json:"requested_by"`
	TraceContext map[string]string `json:"trace_context"`
}
