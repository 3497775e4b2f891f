package domain

import "math"

// DefaultAdminFlatFee is the platform cut taken first from every payment.
const DefaultAdminFlatFee = 200.0

// MaxAmount is the largest value a NUMERIC(12,2) money column holds.
const MaxAmount = 9999999999.99

type FeeSplit struct {
	AdminFee   float64 `json:"admin_fee"`
	TeacherFee float64 `json:"teacher_fee"`
}

// SplitFee takes the flat admin fee first; amounts at or below the fee leave
// the teacher with nothing. Both parts are whole cents and sum to amount.
func SplitFee(amount, flatFee float64) (FeeSplit, error) {
	if amount < 0 {
		return FeeSplit{}, NewValidationError("amount", "must not be negative")
	}
	if flatFee < 0 {
		flatFee = 0
	}

	totalCents := toCents(amount)
	adminCents := totalCents
	if flat := toCents(flatFee); flat < adminCents {
		adminCents = flat
	}
	return FeeSplit{
		AdminFee:   fromCents(adminCents),
		TeacherFee: fromCents(totalCents - adminCents),
	}, nil
}

// ValidateMoney rejects amounts with fractions of a cent and amounts the
// money columns cannot store. Sign checks are left to the caller.
func ValidateMoney(field string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return NewValidationError(field, "must be a number")
	}
	if math.Abs(amount) > MaxAmount {
		return NewValidationError(field, "must not exceed 9999999999.99")
	}
	scaled := amount * 100
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		return NewValidationError(field, "must be in whole cents")
	}
	return nil
}

// RoundCents snaps amount to the nearest cent.
func RoundCents(amount float64) float64 {
	return fromCents(toCents(amount))
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
