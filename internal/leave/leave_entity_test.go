package leave_test

import (
	"testing"
	"time"

	"go-payroll/internal/leave"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestLeave_Covers(t *testing.T) {
	l := leave.Leave{StartDate: day(10), EndDate: day(12)}

	assert.False(t, l.Covers(day(9)))
	assert.True(t, l.Covers(day(10)))
	assert.True(t, l.Covers(day(12).Add(15*time.Hour)))
	assert.False(t, l.Covers(day(13)))
}

func TestLeave_Paid(t *testing.T) {
	assert.False(t, leave.Leave{}.Paid())
	assert.False(t, leave.Leave{Type: &leave.LeaveType{IsPaid: false}}.Paid())
	assert.True(t, leave.Leave{Type: &leave.LeaveType{IsPaid: true}}.Paid())
}
