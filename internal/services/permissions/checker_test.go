package permissions

import (
	"errors"
	"testing"

	"github.com/asakaida/pagetypes/internal/infrastructure/config"
)

func TestNewChecker(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		wantErr bool
	}{
		{name: "default policy", policy: config.DefaultAuthPolicy},
		{name: "superuser only", policy: "principal.is_superuser"},
		{name: "syntax error", policy: "principal.is_superuser ||", wantErr: true},
		{name: "non-boolean policy", policy: "permission", wantErr: true},
		{name: "unknown variable", policy: "user.admin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChecker(tt.policy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewChecker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Policy() != tt.policy {
				t.Errorf("Policy() = %q, want %q", c.Policy(), tt.policy)
			}
		})
	}
}

func TestChecker_HasPermission(t *testing.T) {
	c, err := NewChecker(config.DefaultAuthPolicy)
	if err != nil {
		t.Fatalf("NewChecker() error = %v", err)
	}

	tests := []struct {
		name      string
		principal *Principal
		want      bool
	}{
		{
			name:      "superuser",
			principal: &Principal{ID: "root", IsSuperuser: true},
			want:      true,
		},
		{
			name:      "staff with permission",
			principal: &Principal{ID: "staff", Permissions: []string{"MANAGE_PAGES", ManagePageTypesAndAttributes}},
			want:      true,
		},
		{
			name:      "staff without permission",
			principal: &Principal{ID: "staff", Permissions: []string{"MANAGE_PAGES"}},
			want:      false,
		},
		{
			name:      "anonymous",
			principal: Anonymous,
			want:      false,
		},
		{
			name:      "nil principal",
			principal: nil,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.HasPermission(tt.principal, ManagePageTypesAndAttributes)
			if err != nil {
				t.Fatalf("HasPermission() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChecker_Require(t *testing.T) {
	c, err := NewChecker(config.DefaultAuthPolicy)
	if err != nil {
		t.Fatalf("NewChecker() error = %v", err)
	}

	staff := &Principal{ID: "staff", Permissions: []string{ManagePageTypesAndAttributes}}
	if err := c.Require(staff, ManagePageTypesAndAttributes); err != nil {
		t.Errorf("Require() error = %v, want nil", err)
	}

	err = c.Require(staff, ManagePageTypesAndAttributes, "MANAGE_PRODUCTS")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Require() error = %v, want ErrPermissionDenied", err)
	}

	if err := c.Require(nil, ManagePageTypesAndAttributes); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Require(nil) error = %v, want ErrPermissionDenied", err)
	}
}
