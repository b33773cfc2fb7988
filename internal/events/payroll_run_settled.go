package events

import (
	"time"
)

const (
	PayrollRunSettledTopic     = "hr.payroll.run.settled.v1"
	PayrollRunSettledEventType = "payroll_run_settled"
)

// PayrollRunSettledEvent is emitted once, when a run first becomes PAID.
type PayrollRunSettledEvent struct {
	EventType    string    `json:"event_type"`
	RequestID    string    `json:"request_id,omitempty"`
	PayrollRunID string    `json:"payroll_run_id"`
	RunCode      string    `json:"run_code"`
	CompanyID    string    `json:"company_id"`
	Period       string    `json:"period"`
	SettledBy    string    `json:"settled_by"`
	Trigger      string    `json:"trigger"`
	OccurredAt   time.Time `json:"occurred_at"`
}
