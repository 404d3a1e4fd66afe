package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/ridewave/ridewave/business/types/actions"
	"github.com/ridewave/ridewave/business/types/resource"
	"github.com/ridewave/ridewave/business/types/role"
)

// The RBAC model is small enough to live in memory. Policies are loaded at
// construction, never from storage.
const modelConf = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// enforcer wraps the casbin enforcer with the platform's role policy set.
type enforcer struct {
	enf *casbin.Enforcer
}

func newEnforcer() (*enforcer, error) {
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("parsing model: %w", err)
	}

	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("constructing enforcer: %w", err)
	}

	type policy struct {
		role role.Role
		res  resource.Resource
		acts []actions.Action
	}

	all := []actions.Action{actions.Create, actions.Get, actions.Update, actions.Delete}

	policies := []policy{
		{role.Admin, resource.Tenant, all},
		{role.Admin, resource.Subscription, all},
		{role.Admin, resource.User, all},
		{role.Admin, resource.Booking, all},

		{role.Operator, resource.Subscription, []actions.Action{actions.Get}},
		{role.Operator, resource.User, []actions.Action{actions.Get}},
		{role.Operator, resource.Booking, all},

		{role.User, resource.Booking, []actions.Action{actions.Create, actions.Get}},
	}

	for _, p := range policies {
		for _, act := range p.acts {
			if _, err := enf.AddPolicy(p.role.String(), p.res.String(), act.String()); err != nil {
				return nil, fmt.Errorf("adding policy: %w", err)
			}
		}
	}

	// Role inheritance: operators can do whatever users can, admins
	// whatever operators can.
	if _, err := enf.AddGroupingPolicy(role.Operator.String(), role.User.String()); err != nil {
		return nil, fmt.Errorf("adding grouping policy: %w", err)
	}
	if _, err := enf.AddGroupingPolicy(role.Admin.String(), role.Operator.String()); err != nil {
		return nil, fmt.Errorf("adding grouping policy: %w", err)
	}

	return &enforcer{enf: enf}, nil
}

func (e *enforcer) check(roleName string, res resource.Resource, act actions.Action) (bool, error) {
	return e.enf.Enforce(roleName, res.String(), act.String())
}
