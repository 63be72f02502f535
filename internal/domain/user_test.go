package domain

import (
	"testing"
	"time"
)

func TestApplyRoleFlags(t *testing.T) {
	tests := []struct {
		name          string
		role          Role
		creating      bool
		startVerified bool
		wantStaff     bool
		wantSuper     bool
		wantVerified  bool
	}{
		{name: "superuser", role: RoleSuperuser, creating: true, wantStaff: true, wantSuper: true, wantVerified: true},
		{name: "new agent", role: RoleAgent, creating: true, startVerified: true, wantStaff: true, wantVerified: false},
		{name: "existing agent keeps verification", role: RoleAgent, startVerified: true, wantStaff: true, wantVerified: true},
		{name: "customer", role: RoleCustomer, creating: true, wantVerified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role, IsVerified: tt.startVerified}
			u.ApplyRoleFlags(tt.creating)
			if u.IsStaff != tt.wantStaff {
				t.Errorf("IsStaff = %v, want %v", u.IsStaff, tt.wantStaff)
			}
			if u.IsSuperuser != tt.wantSuper {
				t.Errorf("IsSuperuser = %v, want %v", u.IsSuperuser, tt.wantSuper)
			}
			if u.IsVerified != tt.wantVerified {
				t.Errorf("IsVerified = %v, want %v", u.IsVerified, tt.wantVerified)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane.Doe@Example.COM "); got != "Jane.Doe@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestFormatTicketID(t *testing.T) {
	if got := FormatTicketID(1); got != "TKT1001" {
		t.Fatalf("FormatTicketID(1) = %q", got)
	}
	if got := FormatTicketID(42); got != "TKT1042" {
		t.Fatalf("FormatTicketID(42) = %q", got)
	}
}

func TestParseChannel(t *testing.T) {
	if c, ok := ParseChannel("chat"); !ok || c != ChannelChat {
		t.Fatalf("ParseChannel(chat) = %q, %v", c, ok)
	}
	if _, ok := ParseChannel("email"); ok {
		t.Fatal("ParseChannel(email) accepted")
	}
}

func TestSignupSessionTransitions(t *testing.T) {
	s := NewSignupSession("tok", "a@x.com", RoleAgent, time.Time{})
	if !s.AllowsForm(RoleAgent) {
		t.Fatal("agent form should be allowed after email capture")
	}
	if s.AllowsForm(RoleCustomer) {
		t.Fatal("customer form allowed for agent signup")
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.State != SignupRoleFormSubmitted {
		t.Fatalf("state = %q", s.State)
	}
	if err := s.Submit(); err != ErrSignupStep {
		t.Fatalf("second Submit = %v, want ErrSignupStep", err)
	}
	if s.AllowsForm(RoleAgent) {
		t.Fatal("form allowed after submission")
	}
}
