package analyses

import (
	"fmt"
	"strings"
)

// Role is the audience a summary is written for. It never changes entity or
// risk extraction.
type Role string

const (
	RoleLayperson  Role = "layperson"
	RoleLawStudent Role = "lawStudent"
	RoleLawyer     Role = "lawyer"
)

// DefaultRole is used when neither the request nor the user profile names one.
const DefaultRole = RoleLayperson

// ParseRole normalizes a role name. Empty input yields DefaultRole.
func ParseRole(raw string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "":
		return DefaultRole, nil
	case "layperson", "layman", "general":
		return RoleLayperson, nil
	case "lawstudent", "student":
		return RoleLawStudent, nil
	case "lawyer", "advocate", "attorney":
		return RoleLawyer, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
}

// Audience describes the tone the summary prompt should take.
func (r Role) Audience() string {
	switch r {
	case RoleLawStudent:
		return "a law student; use correct legal terminology, name the doctrines involved and explain how the clauses work together"
	case RoleLawyer:
		return "a practising lawyer; be concise and technical, focus on obligations, liabilities, remedies and anything non-standard"
	default:
		return "a layperson with no legal training; use short sentences and everyday words and explain what the reader must do"
	}
}

func (r Role) String() string { return string(r) }
