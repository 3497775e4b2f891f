package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/models"
)

func TestOwnerHoldsEveryAdminCapability(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: models.RoleOwner}
	for _, capability := range adminCapabilities {
		if !Can(owner, capability) {
			t.Fatalf("owner is missing %q", capability)
		}
	}
	if !Can(owner, CapViewFinancials) {
		t.Fatal("owner must view financials")
	}
	if Can(Actor{Role: models.RoleAdmin}, CapViewFinancials) {
		t.Fatal("admin must not view cross-teacher financials")
	}
	if !Can(owner, CapManageUsers) || Can(Actor{Role: models.RoleAdmin}, CapManageUsers) {
		t.Fatal("only the owner manages staff accounts")
	}
}

func TestTeacherCapabilities(t *testing.T) {
	teacher := Actor{ID: uuid.New(), Role: models.RoleTeacher}
	denied := []Capability{
		CapViewAllSessions,
		CapManageSessions,
		CapConfirmTeacherAttendance,
		CapManagePayments,
		CapManageStudents,
		CapManageTeachers,
		CapViewFinancials,
	}
	for _, capability := range denied {
		err := Authorize(teacher, capability)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected %q to be denied, got %v", capability, err)
		}
	}
	if err := Authorize(teacher, CapMarkStudentAttendance); err != nil {
		t.Fatalf("expected teacher to mark attendance, got %v", err)
	}
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	if Can(Actor{Role: "student"}, CapViewOwnSessions) {
		t.Fatal("unknown role must not be granted anything")
	}
}

func TestCanViewSessionScopesTeachers(t *testing.T) {
	teacher := Actor{ID: uuid.New(), Role: models.RoleTeacher}
	own := &models.Session{TeacherID: teacher.ID}
	other := &models.Session{TeacherID: uuid.New()}

	if !CanViewSession(teacher, own) {
		t.Fatal("teacher must see own session")
	}
	if CanViewSession(teacher, other) {
		t.Fatal("teacher must not see another teacher's session")
	}
	if !CanViewSession(Actor{ID: uuid.New(), Role: models.RoleAdmin}, other) {
		t.Fatal("admin must see every session")
	}
	if CanViewSession(teacher, nil) {
		t.Fatal("nil session is never visible")
	}
}

func TestPermissionErrorNamesRoleAndAction(t *testing.T) {
	err := Authorize(Actor{Role: models.RoleTeacher}, CapManageStudents)
	if err == nil || err.Error() != `role "teacher" may not manage students` {
		t.Fatalf("unexpected message %v", err)
	}
}
