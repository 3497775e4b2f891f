package domain

import (
	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/models"
)

// Actor is the authenticated caller as the core sees it.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

type Capability string

const (
	CapViewAllSessions          Capability = "view all sessions"
	CapViewOwnSessions          Capability = "view own sessions"
	CapManageSessions           Capability = "manage sessions"
	CapMarkStudentAttendance    Capability = "mark student attendance"
	CapConfirmTeacherAttendance Capability = "confirm teacher attendance"
	CapCancelAnyParty           Capability = "cancel sessions on behalf of any party"
	CapCancelOwnSession         Capability = "cancel own sessions"
	CapReschedule               Capability = "reschedule sessions"
	CapMarkNoShow               Capability = "mark sessions as no-show"
	CapMarkPendingMakeup        Capability = "mark sessions as pending makeup"
	CapConfirmPaymentReceipt    Capability = "confirm payment receipt"
	CapViewPayments             Capability = "view payments"
	CapManagePayments           Capability = "manage payments"
	CapViewStudents             Capability = "view students"
	CapManageStudents           Capability = "manage students"
	CapViewTeachers             Capability = "view teachers"
	CapManageTeachers           Capability = "manage teachers"
	CapViewUsers                Capability = "view users"
	CapManageUsers              Capability = "manage staff accounts"
	CapViewOwnEarnings          Capability = "view own earnings"
	CapViewFinancials           Capability = "view cross-teacher financials"
)

var teacherCapabilities = []Capability{
	CapViewOwnSessions,
	CapMarkStudentAttendance,
	CapCancelOwnSession,
	CapReschedule,
	CapConfirmPaymentReceipt,
	CapViewPayments,
	CapViewStudents,
	CapViewTeachers,
	CapViewOwnEarnings,
}

var adminCapabilities = []Capability{
	CapViewAllSessions,
	CapViewOwnSessions,
	CapManageSessions,
	CapMarkStudentAttendance,
	CapConfirmTeacherAttendance,
	CapCancelAnyParty,
	CapCancelOwnSession,
	CapReschedule,
	CapMarkNoShow,
	CapMarkPendingMakeup,
	CapViewPayments,
	CapManagePayments,
	CapViewStudents,
	CapManageStudents,
	CapViewTeachers,
	CapManageTeachers,
	CapViewUsers,
}

var capabilityTable = buildCapabilityTable()

func buildCapabilityTable() map[models.Role]map[Capability]struct{} {
	table := map[models.Role]map[Capability]struct{}{
		models.RoleTeacher: {},
		models.RoleAdmin:   {},
		models.RoleOwner:   {},
	}
	for _, capability := range teacherCapabilities {
		table[models.RoleTeacher][capability] = struct{}{}
	}
	for _, capability := range adminCapabilities {
		table[models.RoleAdmin][capability] = struct{}{}
		table[models.RoleOwner][capability] = struct{}{}
	}
	table[models.RoleOwner][CapViewFinancials] = struct{}{}
	table[models.RoleOwner][CapManageUsers] = struct{}{}
	return table
}

func Can(actor Actor, capability Capability) bool {
	capabilities, ok := capabilityTable[actor.Role]
	if !ok {
		return false
	}
	_, ok = capabilities[capability]
	return ok
}

func Authorize(actor Actor, capability Capability) error {
	if !Can(actor, capability) {
		return &PermissionError{Role: actor.Role, Action: string(capability)}
	}
	return nil
}

// IsStaff reports whether the actor sees every session rather than only
// their own.
func IsStaff(actor Actor) bool {
	return Can(actor, CapViewAllSessions)
}

func CanViewSession(actor Actor, session *models.Session) bool {
	if session == nil {
		return false
	}
	if Can(actor, CapViewAllSessions) {
		return true
	}
	return Can(actor, CapViewOwnSessions) && session.TeacherID == actor.ID
}

// AuthorizeSession checks the capability and, for non-staff actors, that the
// session belongs to them.
func AuthorizeSession(actor Actor, session *models.Session, capability Capability) error {
	if err := Authorize(actor, capability); err != nil {
		return err
	}
	if IsStaff(actor) {
		return nil
	}
	if session == nil || session.TeacherID != actor.ID {
		return &PermissionError{Role: actor.Role, Action: string(capability) + " for another teacher's session"}
	}
	return nil
}
