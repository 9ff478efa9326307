// Package policy decides whether an actor may perform an action on a
// resource. Each resource type maps to one of a closed set of policies.
package policy

// Actor is the identity a request acts as.
type Actor interface {
	IsAnonymous() bool
	IsStaff() bool
	Identity() int64
}

type Action int

const (
	ActionList Action = iota
	ActionRead
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionReturn
)

// Safe reports whether the action leaves state unchanged.
func (a Action) Safe() bool {
	return a == ActionList || a == ActionRead
}

func (a Action) String() string {
	switch a {
	case ActionList:
		return "list"
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionReturn:
		return "return"
	default:
		return "unknown"
	}
}

type Resource int

const (
	ResourceAuthor Resource = iota
	ResourceBook
	ResourceBorrow
)

func (r Resource) String() string {
	switch r {
	case ResourceAuthor:
		return "author"
	case ResourceBook:
		return "book"
	case ResourceBorrow:
		return "borrow"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a permission check.
type Decision int

const (
	Allow Decision = iota
	// DenyUnauthenticated means the action needs an authenticated actor.
	DenyUnauthenticated
	// DenyForbidden means the actor is known but lacks the capability.
	DenyForbidden
	// DenyHidden means the object exists but must not be visible to the
	// actor. Callers treat it as "not found".
	DenyHidden
)

func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	case DenyHidden:
		return "deny_hidden"
	default:
		return "unknown"
	}
}

// Policy is a permission rule set. HasPermission is checked for every
// request; HasObjectPermission additionally once the target object and
// its owner are known.
type Policy interface {
	HasPermission(actor Actor, action Action) Decision
	HasObjectPermission(actor Actor, action Action, ownerID int64) Decision
}

// ReadOpenWriteStaff lets anyone read and only staff write.
type ReadOpenWriteStaff struct{}

func (ReadOpenWriteStaff) HasPermission(actor Actor, action Action) Decision {
	if action.Safe() {
		return Allow
	}
	return requireStaff(actor)
}

func (p ReadOpenWriteStaff) HasObjectPermission(actor Actor, action Action, _ int64) Decision {
	return p.HasPermission(actor, action)
}

// ReadOwnerOrStaffWriteStaff lets authenticated actors read the objects
// they own, lets staff read everything, and only lets staff write. The
// ownership check applies to writes as well as reads.
type ReadOwnerOrStaffWriteStaff struct{}

func (ReadOwnerOrStaffWriteStaff) HasPermission(actor Actor, action Action) Decision {
	if actor == nil || actor.IsAnonymous() {
		return DenyUnauthenticated
	}
	if action.Safe() {
		return Allow
	}
	return requireStaff(actor)
}

func (p ReadOwnerOrStaffWriteStaff) HasObjectPermission(actor Actor, action Action, ownerID int64) Decision {
	if d := p.HasPermission(actor, action); d != Allow {
		return d
	}
	if actor.IsStaff() || actor.Identity() == ownerID {
		return Allow
	}
	return DenyHidden
}

func requireStaff(actor Actor) Decision {
	switch {
	case actor == nil || actor.IsAnonymous():
		return DenyUnauthenticated
	case !actor.IsStaff():
		return DenyForbidden
	default:
		return Allow
	}
}

var policies = map[Resource]Policy{
	ResourceAuthor: ReadOpenWriteStaff{},
	ResourceBook:   ReadOpenWriteStaff{},
	ResourceBorrow: ReadOwnerOrStaffWriteStaff{},
}

// For returns the policy guarding resource. It panics on an unknown
// resource.
func For(resource Resource) Policy {
	p, ok := policies[resource]
	if !ok {
		panic("policy: no policy registered for resource " + resource.String())
	}
	return p
}

// CanPerform checks whether actor may perform action on resource. When
// ownerID is non-nil the object-level check is applied as well.
func CanPerform(actor Actor, action Action, resource Resource, ownerID *int64) Decision {
	p := For(resource)
	if ownerID == nil {
		return p.HasPermission(actor, action)
	}
	return p.HasObjectPermission(actor, action, *ownerID)
}

// VisibleOwner returns the owner a listing of resource must be restricted
// to for actor. restricted is false when actor may see every record.
func VisibleOwner(actor Actor, resource Resource) (ownerID int64, restricted bool) {
	if _, ok := For(resource).(ReadOwnerOrStaffWriteStaff); !ok {
		return 0, false
	}
	if actor.IsStaff() {
		return 0, false
	}
	return actor.Identity(), true
}
