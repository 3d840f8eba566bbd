// Package rbac decides whether a requester may perform an action.
package rbac

import (
	"strings"

	"github.com/pavelanni/academy/internal/model"
)

// Permission names an action. Permissions ending in ":own" apply only to
// resources the requester owns.
type Permission string

const (
	CourseCreate        Permission = "course:create"
	CourseViewDrafts    Permission = "course:view_drafts"
	CourseViewPublished Permission = "course:view_published"
	CourseManageOwn     Permission = "course:manage:own"

	SummaryView      Permission = "summary:view"
	SummaryManageOwn Permission = "summary:manage:own"

	GenerateOwn Permission = "ai:generate:own"

	TestViewFull     Permission = "test:view_full"
	TestViewRedacted Permission = "test:view_redacted"
	TestManageOwn    Permission = "test:manage:own"
	TestSubmit       Permission = "test:submit"

	ResultViewAll Permission = "result:view_all"
	ResultViewOwn Permission = "result:view:own"
	ResultExport  Permission = "result:export"

	UserList Permission = "user:list"
)

// RolePermissions is the capability map.
var RolePermissions = map[model.UserRole][]Permission{
	model.UserRoleMethodist: {
		CourseCreate,
		CourseViewDrafts,
		CourseViewPublished,
		CourseManageOwn,
		SummaryView,
		SummaryManageOwn,
		GenerateOwn,
		TestViewFull,
		TestManageOwn,
		ResultViewAll,
		ResultExport,
		UserList,
	},
	model.UserRoleStudent: {
		CourseViewPublished,
		SummaryView,
		TestViewRedacted,
		TestSubmit,
		ResultViewOwn,
	},
}

// Verdict is the outcome of a capability check.
type Verdict int

const (
	Allow Verdict = iota
	// DenyRole means the role lacks the permission.
	DenyRole
	// DenyOwner means the role holds the permission but the resource
	// belongs to someone else.
	DenyOwner
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case DenyRole:
		return "deny_role"
	case DenyOwner:
		return "deny_owner"
	}
	return "unknown"
}

// Allowed reports whether v permits the action.
func (v Verdict) Allowed() bool {
	return v == Allow
}

// OwnerScoped reports whether p requires ownership.
func (p Permission) OwnerScoped() bool {
	return strings.HasSuffix(string(p), ":own")
}

// Has reports whether role holds perm, ignoring ownership.
func Has(role model.UserRole, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Check is the single authorization decision. ownerID is ignored for
// permissions that are not owner scoped.
func Check(role model.UserRole, ownerID, requesterID int64, perm Permission) Verdict {
	if !Has(role, perm) {
		return DenyRole
	}
	if perm.OwnerScoped() && ownerID != requesterID {
		return DenyOwner
	}
	return Allow
}
