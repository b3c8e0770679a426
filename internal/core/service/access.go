package service

import (
	"context"
	"sort"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

// Capabilities is the effective permission set of one identity. It is
// resolved once per request and is the only place superuser status is
// consulted.
type Capabilities struct {
	User        domain.User
	permissions map[string]struct{}
}

func ResolveCapabilities(user domain.User) Capabilities {
	perms := make(map[string]struct{})
	switch {
	case user.IsSuperuser:
		for tag := range domain.PermissionDescriptions {
			perms[tag] = struct{}{}
		}
	case user.Team != nil:
		for _, tag := range user.Team.Permissions {
			perms[tag] = struct{}{}
		}
	}
	return Capabilities{User: user, permissions: perms}
}

func (c Capabilities) Superuser() bool { return c.User.IsSuperuser }

func (c Capabilities) HasTeam() bool { return c.User.Team != nil }

func (c Capabilities) Has(tag string) bool {
	_, ok := c.permissions[tag]
	return ok
}

// Require returns a permission error unless the identity holds tag.
func (c Capabilities) Require(tag string) error {
	if c.Has(tag) {
		return nil
	}
	return domain.Permissionf("you are not allowed to perform this action")
}

func (c Capabilities) CanAssemble() bool {
	if c.Superuser() {
		return true
	}
	return c.HasTeam() && c.User.Team.IsAssemblyTeam
}

func (c Capabilities) CanProducePart(partTypeID int64) bool {
	if c.Superuser() {
		return true
	}
	team := c.User.Team
	if team == nil || team.IsAssemblyTeam || team.PartTypeID == nil {
		return false
	}
	return *team.PartTypeID == partTypeID
}

// PartScope limits part and inventory listings: superusers and the assembly
// team see everything, producing teams only their own part type.
func (c Capabilities) PartScope() (domain.Scope, error) {
	if c.Superuser() {
		return domain.Scope{}, nil
	}
	team := c.User.Team
	if team == nil {
		return domain.Scope{}, domain.Permissionf("user has no team")
	}
	if team.IsAssemblyTeam {
		return domain.Scope{}, nil
	}
	scope := domain.Scope{Restricted: true}
	if team.PartTypeID != nil {
		scope.PartTypeID = *team.PartTypeID
	}
	return scope, nil
}

// Permissions returns the effective tags in sorted order.
func (c Capabilities) Permissions() []string {
	out := make([]string, 0, len(c.permissions))
	for tag := range c.permissions {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

type capabilitiesKey struct{}

func WithCapabilities(ctx context.Context, caps Capabilities) context.Context {
	return context.WithValue(ctx, capabilitiesKey{}, caps)
}

func CapabilitiesFrom(ctx context.Context) (Capabilities, bool) {
	caps, ok := ctx.Value(capabilitiesKey{}).(Capabilities)
	return caps, ok
}
