package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

func newTestResolver(t *testing.T) *IdentityResolver {
	t.Helper()
	resolver, err := NewIdentityResolver(ResolverConfig{Domain: "uvg.edu.gt"})
	require.NoError(t, err)
	return resolver
}

func TestNewIdentityResolverValidation(t *testing.T) {
	_, err := NewIdentityResolver(ResolverConfig{})
	require.Error(t, err)

	_, err = NewIdentityResolver(ResolverConfig{Domain: "uvg.edu.gt", StaffRole: models.RoleStudent})
	require.Error(t, err)

	resolver, err := NewIdentityResolver(ResolverConfig{Domain: "@UVG.edu.gt "})
	require.NoError(t, err)
	require.Equal(t, "uvg.edu.gt", resolver.Domain())
}

func TestResolveStudent(t *testing.T) {
	resolver := newTestResolver(t)

	principal, err := resolver.Resolve(Claims{Email: "Jua21001@uvg.edu.gt", DisplayName: "Juan"}, NewAdminAllowlist(nil))
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, principal.Role)
	require.Equal(t, "21001", principal.StudentNumber)
	require.Equal(t, "jua21001@uvg.edu.gt", principal.Identifier)
	require.Equal(t, SourceFederated, principal.Source)
	require.Equal(t, "Juan", principal.DisplayName)
}

func TestResolveAllowlistedAdmin(t *testing.T) {
	resolver := newTestResolver(t)
	admins := NewAdminAllowlist([]string{"5837"})

	principal, err := resolver.Resolve(Claims{Email: "abc25837@uvg.edu.gt"}, admins)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, principal.Role)
	require.Equal(t, "abc25837@uvg.edu.gt", principal.DisplayName)
}

func TestResolveStaff(t *testing.T) {
	resolver, err := NewIdentityResolver(ResolverConfig{Domain: "uvg.edu.gt", StaffRole: models.RoleCompany})
	require.NoError(t, err)

	principal, err := resolver.Resolve(Claims{Email: "perez@uvg.edu.gt"}, NewAdminAllowlist(nil))
	require.NoError(t, err)
	require.Equal(t, models.RoleCompany, principal.Role)
	require.Empty(t, principal.StudentNumber)
}

func TestResolveRejectsForeignDomain(t *testing.T) {
	resolver := newTestResolver(t)

	for _, email := range []string{"x@gmail.com", "x@evil-uvg.edu.gt", "x@uvg.edu.gt.evil.com", "no-at-sign", "@uvg.edu.gt"} {
		_, err := resolver.Resolve(Claims{Email: email}, NewAdminAllowlist([]string{"25837"}))
		require.ErrorIs(t, err, ErrDomainRejected, email)

		var failure *AuthFailure
		require.True(t, errors.As(err, &failure))
		require.True(t, failure.Retryable())
	}
}

func TestResolveUnrecognizedLocalPart(t *testing.T) {
	resolver := newTestResolver(t)

	for _, email := range []string{"j.perez@uvg.edu.gt", "123@uvg.edu.gt", "abc15837@uvg.edu.gt"} {
		_, err := resolver.Resolve(Claims{Email: email}, NewAdminAllowlist(nil))
		require.ErrorIs(t, err, ErrUnrecognizedIdentity, email)
	}
}

func TestNormalizeStudentNumber(t *testing.T) {
	cases := map[string]string{
		"25837":               "25837",
		"5837":                "25837",
		" jua25837 ":          "25837",
		"jua25837@uvg.edu.gt": "25837",
	}
	for input, want := range cases {
		got, ok := NormalizeStudentNumber(input)
		require.True(t, ok, input)
		require.Equal(t, want, got, input)
	}

	for _, input := range []string{"", "admin", "a.b"} {
		_, ok := NormalizeStudentNumber(input)
		require.False(t, ok, input)
	}
}

func TestAdminAllowlistDropsInvalidEntries(t *testing.T) {
	admins := NewAdminAllowlist([]string{"25837", "admin", "5837", ""})
	require.Equal(t, 1, admins.Len())
	require.True(t, admins.Contains("25837"))
	require.False(t, admins.Contains("5837"))
}
