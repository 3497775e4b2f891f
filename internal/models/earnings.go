package models

import "github.com/google/uuid"

type DailyEarnings struct {
	Date     string  `json:"date"`
	Weekday  string  `json:"weekday"`
	Earnings float64 `json:"earnings"`
}

type EarningsSummary struct {
	TeacherID         uuid.UUID       `json:"teacher_id"`
	Total             float64         `json:"total"`
	Today             float64         `json:"today"`
	ThisWeek          float64         `json:"this_week"`
	RangeTotal        *float64        `json:"range_total,omitempty"`
	PaymentCount      int             `json:"payment_count"`
	TodayPaymentCount int             `json:"today_payment_count"`
	WeekPaymentCount  int             `json:"week_payment_count"`
	Week              []DailyEarnings `json:"week"`
}

type TeacherEarnings struct {
	TeacherID         uuid.UUID `json:"teacher_id"`
	TeacherName       string    `json:"teacher_name"`
	TotalSessions     int       `json:"total_sessions"`
	CompletedSessions int       `json:"completed_sessions"`
	CancelledSessions int       `json:"cancelled_sessions"`
	Earnings          float64   `json:"earnings"`
}

type DashboardStats struct {
	TotalSessions     int               `json:"total_sessions"`
	CompletedSessions int               `json:"completed_sessions"`
	CancelledSessions int               `json:"cancelled_sessions"`
	UpcomingSessions  int               `json:"upcoming_sessions"`
	GrossAmount       float64           `json:"gross_amount"`
	AdminFees         float64           `json:"admin_fees"`
	TeacherFees       float64           `json:"teacher_fees"`
	DailyEarnings     float64           `json:"daily_earnings"`
	WeeklyEarnings    float64           `json:"weekly_earnings"`
	ByTeacher         []TeacherEarnings `json:"by_teacher"`
}
