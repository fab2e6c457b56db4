package auth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

var (
	studentLocalPart = regexp.MustCompile(`^[a-z]+(2\d+)$`)
	staffLocalPart   = regexp.MustCompile(`^[a-z]+$`)
	digitsOnly       = regexp.MustCompile(`^\d+$`)
)

// Claims is the identity claim set returned by the provider.
type Claims struct {
	Email       string
	DisplayName string
}

// AdminAllowlist is an immutable set of student numbers elevated to Admin.
type AdminAllowlist struct {
	ids map[string]struct{}
}

// NewAdminAllowlist normalises entries and drops those that are not student numbers.
func NewAdminAllowlist(entries []string) AdminAllowlist {
	ids := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if id, ok := NormalizeStudentNumber(entry); ok {
			ids[id] = struct{}{}
		}
	}
	return AdminAllowlist{ids: ids}
}

// Contains reports whether id is on the list.
func (a AdminAllowlist) Contains(id string) bool {
	_, ok := a.ids[id]
	return ok
}

// Len returns the number of allow-listed ids.
func (a AdminAllowlist) Len() int {
	return len(a.ids)
}

// NormalizeStudentNumber accepts "25837", "5837", "jua25837" or "jua25837@uvg.edu.gt"
// and returns the canonical "2"-prefixed number.
func NormalizeStudentNumber(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", false
	}
	if local, _, found := strings.Cut(v, "@"); found {
		v = local
	}
	if m := studentLocalPart.FindStringSubmatch(v); m != nil {
		return m[1], true
	}
	if digitsOnly.MatchString(v) {
		if !strings.HasPrefix(v, "2") {
			v = "2" + v
		}
		return v, true
	}
	return "", false
}

// ResolverConfig configures an IdentityResolver.
type ResolverConfig struct {
	Domain    string
	StaffRole models.Role
}

// IdentityResolver turns verified provider claims into a principal. Resolution is
// pure: the same claims and allow-list always produce the same outcome.
type IdentityResolver struct {
	domain    string
	staffRole models.Role
}

// NewIdentityResolver validates the configuration and builds a resolver.
func NewIdentityResolver(cfg ResolverConfig) (*IdentityResolver, error) {
	domain := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Domain), "@"))
	if domain == "" {
		return nil, fmt.Errorf("allowed domain must not be empty")
	}
	staff := cfg.StaffRole
	if staff == "" {
		staff = models.RoleDepartment
	}
	if staff == models.RoleStudent {
		return nil, fmt.Errorf("staff role must not be %s", models.RoleStudent)
	}
	return &IdentityResolver{domain: domain, staffRole: staff}, nil
}

// Domain returns the institutional email domain.
func (r *IdentityResolver) Domain() string {
	return r.domain
}

// Resolve enforces the domain, derives the role from the email local part and
// elevates allow-listed students to Admin.
func (r *IdentityResolver) Resolve(claims Claims, admins AdminAllowlist) (Principal, error) {
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || domain != r.domain {
		return Principal{}, NewFailure(ErrDomainRejected, fmt.Errorf("email %q", email))
	}

	role, number, err := r.DeriveRole(local, admins)
	if err != nil {
		return Principal{}, err
	}

	display := strings.TrimSpace(claims.DisplayName)
	if display == "" {
		display = email
	}

	return Principal{
		Identifier:    email,
		Role:          role,
		Source:        SourceFederated,
		DisplayName:   display,
		Email:         email,
		StudentNumber: number,
	}, nil
}

// DeriveRole maps an email local part to a role. Unmatched patterns are rejected.
func (r *IdentityResolver) DeriveRole(local string, admins AdminAllowlist) (models.Role, string, error) {
	local = strings.ToLower(local)
	if m := studentLocalPart.FindStringSubmatch(local); m != nil {
		number := m[1]
		if admins.Contains(number) {
			return models.RoleAdmin, number, nil
		}
		return models.RoleStudent, number, nil
	}
	if staffLocalPart.MatchString(local) {
		return r.staffRole, "", nil
	}
	return "", "", NewFailure(ErrUnrecognizedIdentity, fmt.Errorf("local part %q", local))
}
