// Package access gates the admin surface behind an injected capability.
package access

import "github.com/kailas-cloud/smartsearch/internal/domain"

// Session carries the capabilities of the current user.
type Session struct {
	AdminAccess bool
}

// HasAdminAccess reports whether s may use the admin operations.
func HasAdminAccess(s Session) bool {
	return s.AdminAccess
}

// RequireAdmin returns domain.ErrAdminAccessDenied unless s has admin access.
func RequireAdmin(s Session) error {
	if !HasAdminAccess(s) {
		return domain.ErrAdminAccessDenied
	}
	return nil
}
