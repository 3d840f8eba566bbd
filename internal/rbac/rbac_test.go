package rbac

import (
	"testing"

	"github.com/pavelanni/academy/internal/model"
)

func TestCheck(t *testing.T) {
	const owner, other = int64(1), int64(2)
	tests := []struct {
		name      string
		role      model.UserRole
		ownerID   int64
		requester int64
		perm      Permission
		want      Verdict
	}{
		{"methodist manages own course", model.UserRoleMethodist, owner, owner, CourseManageOwn, Allow},
		{"methodist cannot manage foreign course", model.UserRoleMethodist, owner, other, CourseManageOwn, DenyOwner},
		{"methodist creates course", model.UserRoleMethodist, 0, owner, CourseCreate, Allow},
		{"methodist reads every result", model.UserRoleMethodist, other, owner, ResultViewAll, Allow},
		{"methodist cannot submit", model.UserRoleMethodist, 0, owner, TestSubmit, DenyRole},
		{"student cannot create course", model.UserRoleStudent, 0, owner, CourseCreate, DenyRole},
		{"student cannot see full test", model.UserRoleStudent, 0, owner, TestViewFull, DenyRole},
		{"student submits", model.UserRoleStudent, 0, owner, TestSubmit, Allow},
		{"student reads own result", model.UserRoleStudent, owner, owner, ResultViewOwn, Allow},
		{"student cannot read foreign result", model.UserRoleStudent, other, owner, ResultViewOwn, DenyOwner},
		{"student cannot export", model.UserRoleStudent, 0, owner, ResultExport, DenyRole},
		{"unknown role", model.UserRole("admin"), owner, owner, CourseViewPublished, DenyRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.role, tt.ownerID, tt.requester, tt.perm); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOwnerScoped(t *testing.T) {
	for perm, want := range map[Permission]bool{
		CourseManageOwn: true,
		ResultViewOwn:   true,
		CourseCreate:    false,
		ResultViewAll:   false,
	} {
		if got := perm.OwnerScoped(); got != want {
			t.Errorf("%s.OwnerScoped() = %v, want %v", perm, got, want)
		}
	}
}
