package model

import "testing"

func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required Role
		want     bool
	}{
		{"student vs student", RoleStudent, RoleStudent, true},
		{"student vs admin", RoleStudent, RoleAdmin, false},
		{"instructor vs student", RoleInstructor, RoleStudent, true},
		{"admin vs super_admin", RoleAdmin, RoleSuperAdmin, false},
		{"super_admin vs admin", RoleSuperAdmin, RoleAdmin, true},
		{"super_admin vs super_admin", RoleSuperAdmin, RoleSuperAdmin, true},
		{"unknown role", Role("root"), RoleStudent, false},
		{"unknown requirement", RoleSuperAdmin, Role("owner"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.AtLeast(tt.required); got != tt.want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.required, got, tt.want)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleInstructor, RoleAdmin, RoleSuperAdmin} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "root", "Admin", "SUPER_ADMIN"} {
		if r.Valid() {
			t.Errorf("%q should not be valid", r)
		}
	}
}

func TestAccountStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from AccountStatus
		to   AccountStatus
		want bool
	}{
		{StatusActive, StatusSuspended, true},
		{StatusSuspended, StatusActive, true},
		{StatusPending, StatusActive, true},
		{StatusPending, StatusSuspended, true},
		{StatusActive, StatusPending, false},
		{StatusSuspended, StatusPending, false},
		{StatusActive, StatusActive, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestUser_Validate(t *testing.T) {
	valid := User{UserID: "u-1", Email: "a@b.com", Role: RoleStudent, AccountStatus: StatusActive}

	tests := []struct {
		name    string
		mutate  func(*User)
		wantErr error
	}{
		{"valid", func(u *User) {}, nil},
		{"empty id", func(u *User) { u.UserID = "" }, ErrEmptyUserID},
		{"empty email", func(u *User) { u.Email = "" }, ErrEmptyEmail},
		{"bad role", func(u *User) { u.Role = "root" }, ErrInvalidRole},
		{"bad status", func(u *User) { u.AccountStatus = "banned" }, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid
			tt.mutate(&u)
			if err := u.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
