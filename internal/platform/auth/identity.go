package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sga/sga/internal/platform/apperr"
)

// Role is the user type attached to an account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePhysician Role = "physician"
	RoleNurse     Role = "nurse"
	RoleCaregiver Role = "caregiver"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capability gates access to one area of the system.
type Capability string

const (
	CapPatient    Capability = "patient"
	CapMedication Capability = "medication"
	CapVisit      Capability = "visit"
	CapAgenda     Capability = "agenda"
	CapUser       Capability = "user"
)

// CapabilitySet is a closed set of capabilities.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

var roleCapabilities = map[Role]CapabilitySet{
	RoleAdmin:     NewCapabilitySet(CapPatient, CapMedication, CapVisit, CapAgenda, CapUser),
	RolePhysician: NewCapabilitySet(CapPatient, CapMedication, CapVisit, CapAgenda),
	RoleNurse:     NewCapabilitySet(CapVisit, CapAgenda),
	RoleCaregiver: NewCapabilitySet(CapAgenda),
}

// Capabilities returns the capability set granted to a role. Unknown roles
// get an empty set.
func (r Role) Capabilities() CapabilitySet {
	if s, ok := roleCapabilities[r]; ok {
		return s
	}
	return CapabilitySet{}
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
}

// Authenticated reports whether the identity carries a user id.
func (i Identity) Authenticated() bool { return i.ID != "" }

// UserID parses the subject as the account id. Session tokens always carry
// a uuid subject.
func (i Identity) UserID() (uuid.UUID, error) {
	if !i.Authenticated() {
		return uuid.Nil, apperr.Unauthenticated("authentication required")
	}
	id, err := uuid.Parse(i.ID)
	if err != nil {
		return uuid.Nil, apperr.Unauthenticated("invalid token subject")
	}
	return id, nil
}

func (i Identity) Can(c Capability) bool { return i.Role.Capabilities().Has(c) }

// HasRole reports whether the identity holds any of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func (i Identity) String() string {
	return fmt.Sprintf("%s(%s)", i.ID, i.Role)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Caller returns the identity attached to the request, or the zero Identity.
func Caller(c echo.Context) Identity {
	id, _ := IdentityFromContext(c.Request().Context())
	return id
}
