package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/models"
)

func SumAmounts(payments []models.Payment) float64 {
	total := 0.0
	for _, payment := range payments {
		total += payment.Amount
	}
	return total
}

// DerivePaymentStatus compares what has been paid against the expected total.
// Without an expected total any positive payment settles the session.
func DerivePaymentStatus(payments []models.Payment, expectedTotal *float64) models.PaymentStatus {
	paid := SumAmounts(payments)
	if paid <= 0 {
		return models.PaymentPending
	}
	if expectedTotal == nil || *expectedTotal <= 0 {
		return models.PaymentPaid
	}
	if paid < *expectedTotal {
		return models.PaymentPartiallyPaid
	}
	return models.PaymentPaid
}

// ResolveExpectedTotal prefers the session's own price and falls back to the
// deployment default when one is configured.
func ResolveExpectedTotal(session models.Session, defaultPrice float64) *float64 {
	if session.ExpectedAmount != nil && *session.ExpectedAmount > 0 {
		expected := *session.ExpectedAmount
		return &expected
	}
	if defaultPrice > 0 {
		return &defaultPrice
	}
	return nil
}

// SumTeacherFees totals teacher fees of payments whose session belongs to
// teacherID and whose date falls inside period. teacherOf maps session IDs to
// teacher IDs.
func SumTeacherFees(
	payments []models.Payment,
	teacherOf map[uuid.UUID]uuid.UUID,
	teacherID uuid.UUID,
	period Period,
) float64 {
	total := 0.0
	for _, payment := range payments {
		if teacherOf[payment.SessionID] != teacherID || !period.Contains(payment.Date) {
			continue
		}
		total += payment.TeacherFee
	}
	return total
}

func SummarizeEarnings(
	payments []models.Payment,
	teacherOf map[uuid.UUID]uuid.UUID,
	teacherID uuid.UUID,
	now time.Time,
	custom *Period,
) models.EarningsSummary {
	today := Today(now)
	week := ThisWeek(now)

	summary := models.EarningsSummary{
		TeacherID: teacherID,
		Total:     SumTeacherFees(payments, teacherOf, teacherID, AllTime()),
		Today:     SumTeacherFees(payments, teacherOf, teacherID, today),
		ThisWeek:  SumTeacherFees(payments, teacherOf, teacherID, week),
	}
	if custom != nil {
		rangeTotal := SumTeacherFees(payments, teacherOf, teacherID, *custom)
		summary.RangeTotal = &rangeTotal
	}

	for _, payment := range payments {
		if teacherOf[payment.SessionID] != teacherID {
			continue
		}
		summary.PaymentCount++
		if today.Contains(payment.Date) {
			summary.TodayPaymentCount++
		}
		if week.Contains(payment.Date) {
			summary.WeekPaymentCount++
		}
	}

	for _, day := range week.Days() {
		summary.Week = append(summary.Week, models.DailyEarnings{
			Date:     FormatDate(day),
			Weekday:  day.Format("Mon"),
			Earnings: SumTeacherFees(payments, teacherOf, teacherID, Period{From: day, To: day}),
		})
	}
	return summary
}

func SummarizeDashboard(
	sessions []models.Session,
	payments []models.Payment,
	now time.Time,
) models.DashboardStats {
	var stats models.DashboardStats
	today := Today(now)
	week := ThisWeek(now)

	teacherOf := make(map[uuid.UUID]uuid.UUID, len(sessions))
	byTeacher := make(map[uuid.UUID]*models.TeacherEarnings)
	for _, session := range sessions {
		teacherOf[session.ID] = session.TeacherID
		entry, ok := byTeacher[session.TeacherID]
		if !ok {
			entry = &models.TeacherEarnings{TeacherID: session.TeacherID, TeacherName: session.TeacherName}
			byTeacher[session.TeacherID] = entry
		}

		stats.TotalSessions++
		entry.TotalSessions++
		switch {
		case session.Status == models.SessionCompleted:
			stats.CompletedSessions++
			entry.CompletedSessions++
		case session.Status.IsCancelled():
			stats.CancelledSessions++
			entry.CancelledSessions++
		case session.Status == models.SessionScheduled && isOnOrAfter(session.Date, today.From):
			stats.UpcomingSessions++
		}
	}

	for _, payment := range payments {
		stats.GrossAmount += payment.Amount
		stats.AdminFees += payment.AdminFee
		stats.TeacherFees += payment.TeacherFee
		if today.Contains(payment.Date) {
			stats.DailyEarnings += payment.Amount
		}
		if week.Contains(payment.Date) {
			stats.WeeklyEarnings += payment.Amount
		}
		if entry, ok := byTeacher[teacherOf[payment.SessionID]]; ok {
			entry.Earnings += payment.TeacherFee
		}
	}

	stats.ByTeacher = make([]models.TeacherEarnings, 0, len(byTeacher))
	for _, entry := range byTeacher {
		stats.ByTeacher = append(stats.ByTeacher, *entry)
	}
	sort.Slice(stats.ByTeacher, func(i, j int) bool {
		if stats.ByTeacher[i].Earnings != stats.ByTeacher[j].Earnings {
			return stats.ByTeacher[i].Earnings > stats.ByTeacher[j].Earnings
		}
		return stats.ByTeacher[i].TeacherName < stats.ByTeacher[j].TeacherName
	})
	return stats
}

func isOnOrAfter(date string, day time.Time) bool {
	parsed, err := ParseDate(date)
	if err != nil {
		return false
	}
	return !parsed.Before(day)
}
