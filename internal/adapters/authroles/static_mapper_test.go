package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
)

func TestStaticRoleMapper_Map(t *testing.T) {
	m := StaticRoleMapper{AdminGroup: "InsecMed-Admins", UserGroup: "doctors"}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{name: "no groups", groups: nil, want: domainauth.RoleGuest},
		{name: "unrelated group", groups: []string{"nurses"}, want: domainauth.RoleGuest},
		{name: "doctor", groups: []string{"nurses", "Doctors "}, want: domainauth.RoleUser},
		{name: "admin wins regardless of order", groups: []string{"doctors", "insecmed-admins"}, want: domainauth.RoleAdmin},
		{name: "blank group is ignored", groups: []string{"  "}, want: domainauth.RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.groups))
		})
	}
}

func TestStaticRoleMapper_EmptyConfigNeverMatchesBlank(t *testing.T) {
	m := StaticRoleMapper{}
	assert.Equal(t, domainauth.RoleGuest, m.Map([]string{"", "doctors"}))
}
