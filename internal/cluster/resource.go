// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cluster

// Variant is the sum-type discriminator for Resource. Primitive-only and
// clone-only fields live in the variant-specific payloads below so a
// primitive can never carry clone fields and vice versa.
type Variant int

const (
	VariantPrimitive Variant = iota
	VariantGroup
	VariantClone
	VariantBundle
)

func (v Variant) String() string {
	switch v {
	case VariantGroup:
		return "group"
	case VariantClone:
		return "clone"
	case VariantBundle:
		return "bundle"
	default:
		return "primitive"
	}
}

// Role is the observed or intended role of a resource instance.
type Role int

const (
	RoleStopped Role = iota
	RoleStarted
	RoleUnpromoted
	RolePromoted
	RoleUnknown
)

func (r Role) String() string {
	switch r {
	case RoleStarted:
		return "Started"
	case RoleUnpromoted:
		return "Unpromoted"
	case RolePromoted:
		return "Promoted"
	case RoleUnknown:
		return "Unknown"
	default:
		return "Stopped"
	}
}

// PrimitiveData holds the fields that only make sense for a primitive
// resource: its resource-agent identity, allowed-node scores, and observed
// placement.
type PrimitiveData struct {
	Class    string // lsb | ocf | systemd | service
	Provider string
	Type     string

	// Allowed is this resource's own contribution to the allowed-node
	// map; Node.Scores holds the node-side half so both directions can be
	// folded together without a second lookup structure.
	Allowed map[string]Score

	RunningOn []string // node IDs the resource is observed running on
	Role      Role
	NextRole  Role
}

// CloneData holds clone/bundle-only sizing knobs.
type CloneData struct {
	MaxTotal    int // clone-max
	MaxPerNode  int // clone-node-max
	Promotable  bool
	PromotedMax int // promoted-max
	Interleave  bool
}

// ResourceMeta carries cross-variant bookkeeping flags.
type ResourceMeta struct {
	Managed     bool
	Orphan      bool
	Notify      bool
	Stickiness  Score
	OnFail      string // ignore|block|stop|restart|fence|standby
	TicketDep   string
	TicketLoss  string // fence|freeze
}

// Resource is an immutable-per-run snapshot of one configured resource plus
// the mutable scratch fields the allocator flips exactly once per run.
type Resource struct {
	ID       string
	Variant  Variant
	Parent   string // empty for top-level resources
	Children []string

	Meta ResourceMeta

	// Primitive is nil for group/clone/bundle resources; Clone is nil for
	// primitive/group resources. Enforced by the NewPrimitive/NewClone/
	// NewGroup constructors so
	// callers can't observe the "unused field" states the design notes
	// warn about.
	Primitive *PrimitiveData
	Clone     *CloneData

	// Provisional is true until the allocator assigns this resource
	// exactly once per run (spec.md §3 invariant).
	Provisional bool
	// Allocating guards against recursive assignment cycles; set on
	// entry to assign(), cleared on every exit.
	Allocating bool
	Failed     bool
	Blocked    bool

	NextNode string // node ID, empty if not yet assigned / stopped
}

// NewPrimitive constructs a primitive resource with its variant payload
// initialized and Provisional set, ready for a scheduler run.
func NewPrimitive(id string) *Resource {
	return &Resource{
		ID:          id,
		Variant:     VariantPrimitive,
		Provisional: true,
		Meta:        ResourceMeta{Managed: true},
		Primitive: &PrimitiveData{
			Allowed: make(map[string]Score),
			Role:    RoleStopped,
		},
	}
}

// NewClone constructs a clone (or, with Bundle variant, a bundle) resource.
func NewClone(id string, bundle bool, clone CloneData) *Resource {
	v := VariantClone
	if bundle {
		v = VariantBundle
	}
	c := clone
	return &Resource{
		ID:          id,
		Variant:     v,
		Provisional: true,
		Meta:        ResourceMeta{Managed: true},
		Clone:       &c,
	}
}

// NewGroup constructs a group resource; its children run the ordering the
// group lists them in.
func NewGroup(id string, children []string) *Resource {
	return &Resource{
		ID:          id,
		Variant:     VariantGroup,
		Children:    append([]string(nil), children...),
		Provisional: true,
		Meta:        ResourceMeta{Managed: true},
	}
}

// IsCollective reports whether the resource is a clone, bundle, or group —
// i.e. has children instead of being independently placed.
func (r *Resource) IsCollective() bool {
	return r.Variant == VariantGroup || r.Variant == VariantClone || r.Variant == VariantBundle
}

// Running reports whether the resource is observed running anywhere.
func (r *Resource) Running() bool {
	return r.Primitive != nil && len(r.Primitive.RunningOn) > 0
}

// CurrentNode returns the first observed running node, or "" if stopped.
// Primitives only ever run on one node outside of a migration in flight.
func (r *Resource) CurrentNode() string {
	if r.Primitive == nil || len(r.Primitive.RunningOn) == 0 {
		return ""
	}
	return r.Primitive.RunningOn[0]
}
