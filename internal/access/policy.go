// Package access decides whether the caller may run an operation.
//
// Every handler declares a Policy. The guard resolves the identity subject
// from the request context, loads the matching application user when one
// exists, and compares roles. Hard policies surface UNAUTHORIZED/FORBIDDEN;
// soft policies report ErrSoftDenied so the caller can answer with an empty
// result, making "no identity" and "no data" indistinguishable.
package access

import "errors"

// Requirement is the minimum caller standing a policy demands.
type Requirement string

const (
	RequirePublic   Requirement = "public"
	RequireIdentity Requirement = "identity"
	RequireAdmin    Requirement = "admin"
)

// Mode selects how a denial is reported.
type Mode string

const (
	Hard Mode = "hard"
	Soft Mode = "soft"
)

// Policy pairs a requirement with its failure mode.
type Policy struct {
	Requirement Requirement
	Mode        Mode
}

var (
	Public       = Policy{Requirement: RequirePublic, Mode: Hard}
	IdentityHard = Policy{Requirement: RequireIdentity, Mode: Hard}
	IdentitySoft = Policy{Requirement: RequireIdentity, Mode: Soft}
	AdminHard    = Policy{Requirement: RequireAdmin, Mode: Hard}
	AdminSoft    = Policy{Requirement: RequireAdmin, Mode: Soft}
)

func (p Policy) String() string {
	return string(p.Requirement) + "/" + string(p.Mode)
}

// ErrSoftDenied is returned by soft policies instead of an authorization error.
var ErrSoftDenied = errors.New("access: soft denied")

// IsSoftDenied reports whether err is a soft denial.
func IsSoftDenied(err error) bool {
	return errors.Is(err, ErrSoftDenied)
}
