package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/models"
)

func paymentOf(sessionID uuid.UUID, date string, amount float64) models.Payment {
	split, _ := SplitFee(amount, DefaultAdminFlatFee)
	return models.Payment{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Date:       date,
		Amount:     amount,
		AdminFee:   split.AdminFee,
		TeacherFee: split.TeacherFee,
	}
}

func TestDerivePaymentStatusWithExpectedTotal(t *testing.T) {
	sessionID := uuid.New()
	expected := 1000.0

	if got := DerivePaymentStatus(nil, &expected); got != models.PaymentPending {
		t.Fatalf("expected pending with no payments, got %q", got)
	}

	payments := []models.Payment{
		paymentOf(sessionID, "2026-03-02", 400),
		paymentOf(sessionID, "2026-03-03", 400),
	}
	if got := DerivePaymentStatus(payments, &expected); got != models.PaymentPartiallyPaid {
		t.Fatalf("expected partially-paid, got %q", got)
	}

	payments = append(payments, paymentOf(sessionID, "2026-03-04", 200))
	if got := DerivePaymentStatus(payments, &expected); got != models.PaymentPaid {
		t.Fatalf("expected paid, got %q", got)
	}
}

func TestDerivePaymentStatusWithoutExpectedTotal(t *testing.T) {
	sessionID := uuid.New()
	if got := DerivePaymentStatus(nil, nil); got != models.PaymentPending {
		t.Fatalf("expected pending, got %q", got)
	}
	payments := []models.Payment{paymentOf(sessionID, "2026-03-02", 250)}
	if got := DerivePaymentStatus(payments, nil); got != models.PaymentPaid {
		t.Fatalf("expected paid, got %q", got)
	}
}

func TestResolveExpectedTotalPrefersSessionPrice(t *testing.T) {
	price := 800.0
	got := ResolveExpectedTotal(models.Session{ExpectedAmount: &price}, 500)
	if got == nil || *got != 800 {
		t.Fatalf("expected 800, got %v", got)
	}

	got = ResolveExpectedTotal(models.Session{}, 500)
	if got == nil || *got != 500 {
		t.Fatalf("expected default 500, got %v", got)
	}

	if got := ResolveExpectedTotal(models.Session{}, 0); got != nil {
		t.Fatalf("expected nil without a default, got %v", *got)
	}
}

func TestSumTeacherFeesIsIdempotentAndIncremental(t *testing.T) {
	teacherID := uuid.New()
	otherTeacher := uuid.New()
	sessionA := uuid.New()
	sessionB := uuid.New()
	teacherOf := map[uuid.UUID]uuid.UUID{sessionA: teacherID, sessionB: otherTeacher}

	payments := []models.Payment{
		paymentOf(sessionA, "2026-03-02", 1000),
		paymentOf(sessionA, "2026-03-05", 600),
		paymentOf(sessionB, "2026-03-05", 900),
	}

	first := SumTeacherFees(payments, teacherOf, teacherID, AllTime())
	second := SumTeacherFees(payments, teacherOf, teacherID, AllTime())
	if first != second {
		t.Fatalf("expected identical totals, got %v and %v", first, second)
	}
	if first != 1200 {
		t.Fatalf("expected 1200, got %v", first)
	}

	reversed := []models.Payment{payments[2], payments[1], payments[0]}
	if got := SumTeacherFees(reversed, teacherOf, teacherID, AllTime()); got != first {
		t.Fatalf("expected order independence, got %v", got)
	}

	extra := paymentOf(sessionA, "2026-03-06", 450)
	withExtra := append(append([]models.Payment{}, payments...), extra)
	if got := SumTeacherFees(withExtra, teacherOf, teacherID, AllTime()); got != first+extra.TeacherFee {
		t.Fatalf("expected total to grow by %v, got %v", extra.TeacherFee, got-first)
	}

	withoutFirst := payments[1:]
	if got := SumTeacherFees(withoutFirst, teacherOf, teacherID, AllTime()); got != first-payments[0].TeacherFee {
		t.Fatalf("expected total to shrink by %v, got %v", payments[0].TeacherFee, first-got)
	}
}

func TestThisWeekStartsOnMonday(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC)
	week := ThisWeek(sunday)
	if FormatDate(week.From) != "2026-03-02" || FormatDate(week.To) != "2026-03-08" {
		t.Fatalf("unexpected week %s..%s", FormatDate(week.From), FormatDate(week.To))
	}

	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	week = ThisWeek(monday)
	if FormatDate(week.From) != "2026-03-09" {
		t.Fatalf("expected week to start 2026-03-09, got %s", FormatDate(week.From))
	}
	if got := len(week.Days()); got != 7 {
		t.Fatalf("expected 7 days, got %d", got)
	}
}

func TestSummarizeEarningsSplitsTodayAndWeek(t *testing.T) {
	teacherID := uuid.New()
	sessionID := uuid.New()
	teacherOf := map[uuid.UUID]uuid.UUID{sessionID: teacherID}
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	payments := []models.Payment{
		paymentOf(sessionID, "2026-03-05", 700),
		paymentOf(sessionID, "2026-03-03", 500),
		paymentOf(sessionID, "2026-02-20", 1200),
	}

	summary := SummarizeEarnings(payments, teacherOf, teacherID, now, nil)
	if summary.Total != 1800 {
		t.Fatalf("expected total 1800, got %v", summary.Total)
	}
	if summary.Today != 500 || summary.TodayPaymentCount != 1 {
		t.Fatalf("expected today 500 from 1 payment, got %v from %d", summary.Today, summary.TodayPaymentCount)
	}
	if summary.ThisWeek != 800 || summary.WeekPaymentCount != 2 {
		t.Fatalf("expected week 800 from 2 payments, got %v from %d", summary.ThisWeek, summary.WeekPaymentCount)
	}
	if len(summary.Week) != 7 || summary.Week[0].Weekday != "Mon" {
		t.Fatalf("unexpected weekly breakdown %+v", summary.Week)
	}
	if summary.Week[1].Earnings != 300 || summary.Week[3].Earnings != 500 {
		t.Fatalf("unexpected daily earnings %+v", summary.Week)
	}

	custom, err := NewPeriod("2026-02-01", "2026-02-28")
	if err != nil {
		t.Fatalf("NewPeriod: %v", err)
	}
	summary = SummarizeEarnings(payments, teacherOf, teacherID, now, &custom)
	if summary.RangeTotal == nil || *summary.RangeTotal != 1000 {
		t.Fatalf("expected range total 1000, got %v", summary.RangeTotal)
	}
}

func TestNewPeriodRejectsInvertedRange(t *testing.T) {
	if _, err := NewPeriod("2026-03-10", "2026-03-01"); err == nil {
		t.Fatal("expected an error for an inverted range")
	}
	if _, err := NewPeriod("10/03/2026", ""); err == nil {
		t.Fatal("expected an error for a malformed date")
	}
}

func TestSummarizeDashboardGroupsByTeacher(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	teacherParty := models.CancelByTeacher

	sessions := []models.Session{
		{ID: uuid.New(), TeacherID: alice, TeacherName: "Alice", Date: "2026-03-02", Status: models.SessionCompleted},
		{ID: uuid.New(), TeacherID: alice, TeacherName: "Alice", Date: "2026-03-09", Status: models.SessionScheduled},
		{ID: uuid.New(), TeacherID: bob, TeacherName: "Bob", Date: "2026-03-04", Status: models.SessionCancelledByTeacher, CancelledBy: &teacherParty},
		{ID: uuid.New(), TeacherID: bob, TeacherName: "Bob", Date: "2026-03-01", Status: models.SessionScheduled},
	}
	payments := []models.Payment{
		paymentOf(sessions[0].ID, "2026-03-05", 1000),
	}

	stats := SummarizeDashboard(sessions, payments, now)
	if stats.TotalSessions != 4 || stats.CompletedSessions != 1 || stats.CancelledSessions != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.UpcomingSessions != 1 {
		t.Fatalf("expected 1 upcoming session, got %d", stats.UpcomingSessions)
	}
	if stats.GrossAmount != 1000 || stats.AdminFees != 200 || stats.TeacherFees != 800 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.DailyEarnings != 1000 || stats.WeeklyEarnings != 1000 {
		t.Fatalf("unexpected daily/weekly totals %+v", stats)
	}
	if len(stats.ByTeacher) != 2 || stats.ByTeacher[0].TeacherID != alice || stats.ByTeacher[0].Earnings != 800 {
		t.Fatalf("unexpected per-teacher breakdown %+v", stats.ByTeacher)
	}
}
