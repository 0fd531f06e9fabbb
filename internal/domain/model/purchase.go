package model

import (
	"time"
)

type PurchaseStatus string

const (
	PurchaseStatusApproved        PurchaseStatus = "approved"
	PurchaseStatusPendingDelivery PurchaseStatus = "pending_code_delivery"
	PurchaseStatusRejected        PurchaseStatus = "rejected"
)

// ReminderStage is one of the three fixed checkpoints at which a single
// expiry notification may fire.
type ReminderStage string

const (
	ReminderStage3Days ReminderStage = "reminder3Days"
	ReminderStage1Day  ReminderStage = "reminder1Day"
	ReminderStageToday ReminderStage = "reminderToday"
)

// AllReminderStages lists every stage in delivery order.
var AllReminderStages = []ReminderStage{ReminderStage3Days, ReminderStage1Day, ReminderStageToday}

// StageForDaysUntilExpiry maps a calendar-day offset to a reminder stage.
// Only exactly 3, 1 and 0 days map to a stage; everything else is a skip.
func StageForDaysUntilExpiry(days int) (ReminderStage, bool) {
	switch days {
	case 3:
		return ReminderStage3Days, true
	case 1:
		return ReminderStage1Day, true
	case 0:
		return ReminderStageToday, true
	default:
		return "", false
	}
}

// ReminderRecord tracks a single stage for a purchase. Sent transitions
// false -> true at most once and never reverts.
type ReminderRecord struct {
	Sent      bool
	SentAt    *time.Time
	MessageID string
}

// CustomerInfo is a snapshot taken at purchase time, independent of the
// live customer record.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// Purchase is one paid sale attempt. Approved purchases reference a sold
// code; pending ones sit in the delivery fallback queue (the queue is the
// filtered view over this status, not a separate store).
type Purchase struct {
	ID                        string
	CustomerID                string
	PlanID                    string
	ResellerID                string
	RechargeCode              string  // canonical string, empty until delivered
	AssignedCodeID            *string // nil until delivered
	Amount                    int64
	PaymentMethod             string
	PaymentID                 string
	Status                    PurchaseStatus
	CodeDeliveryFailureReason string // set only while pending_code_delivery
	CreatedAt                 time.Time
	ApprovedAt                *time.Time
	ExpiresAt                 time.Time
	Customer                  CustomerInfo
	ExpiryReminders           map[ReminderStage]ReminderRecord
}

// NewReminderSet returns all stages unsent. Manual assignment resets to this
// as well: the purchase is new from the scheduler's point of view.
func NewReminderSet() map[ReminderStage]ReminderRecord {
	m := make(map[ReminderStage]ReminderRecord, len(AllReminderStages))
	for _, s := range AllReminderStages {
		m[s] = ReminderRecord{}
	}
	return m
}

// ReminderSent reports whether the given stage has already fired.
func (p *Purchase) ReminderSent(stage ReminderStage) bool {
	if p.ExpiryReminders == nil {
		return false
	}
	return p.ExpiryReminders[stage].Sent
}

// DaysUntilExpiry computes the calendar-day offset between now and the
// purchase expiry using midnight boundaries, not elapsed hours: a purchase
// expiring at 23:59 today counts as 0 days the whole day.
func (p *Purchase) DaysUntilExpiry(now time.Time) int {
	return CalendarDaysBetween(now, p.ExpiresAt)
}

// CalendarDaysBetween returns midnight(to) - midnight(from) in whole days,
// evaluated in from's location.
func CalendarDaysBetween(from, to time.Time) int {
	loc := from.Location()
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	fromMid := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
	toMid := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
	return int(toMid.Sub(fromMid).Hours() / 24)
}
