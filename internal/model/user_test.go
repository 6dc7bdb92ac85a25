package model

import (
	"testing"
)

func TestUserWithRolesHasRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		check string
		want  bool
	}{
		{
			name:  "single matching role",
			roles: []Role{{Name: RoleEditor}},
			check: RoleEditor,
			want:  true,
		},
		{
			name:  "match among several",
			roles: []Role{{Name: RoleViewer}, {Name: RoleAdmin}},
			check: RoleAdmin,
			want:  true,
		},
		{
			name:  "no match",
			roles: []Role{{Name: RoleViewer}},
			check: RoleAdmin,
			want:  false,
		},
		{
			name:  "no roles",
			roles: nil,
			check: RoleViewer,
			want:  false,
		},
		{
			name:  "case sensitive",
			roles: []Role{{Name: "Admin"}},
			check: RoleAdmin,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &UserWithRoles{Roles: tt.roles}
			if got := u.HasRole(tt.check); got != tt.want {
				t.Errorf("HasRole(%q) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestUserWithRolesIsSuperAdmin(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  bool
	}{
		{
			name:  "super admin only",
			roles: []Role{{Name: RoleSuperAdmin}},
			want:  true,
		},
		{
			name:  "super admin among others",
			roles: []Role{{Name: RoleEditor}, {Name: RoleSuperAdmin}},
			want:  true,
		},
		{
			name:  "admin is not super admin",
			roles: []Role{{Name: RoleAdmin}},
			want:  false,
		},
		{
			name:  "no roles",
			roles: nil,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &UserWithRoles{Roles: tt.roles}
			if got := u.IsSuperAdmin(); got != tt.want {
				t.Errorf("IsSuperAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}
