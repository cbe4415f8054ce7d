// Package handle defines the opaque handle value exposed to callers and the
// internal (dispatcher, rights) pair it resolves to inside the kernel.
package handle

import (
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
)

// Value is the opaque, process-local identifier callers pass to every Core
// operation. Invalid is never a valid handle value.
type Value uint32

// Invalid is the zero Value; no handle ever holds it.
const Invalid Value = 0

// Handle is a capability: a reference to a dispatcher paired with the rights
// this particular handle carries. The same dispatcher may be reachable
// through multiple handles, each with independently reduced rights.
type Handle struct {
	Dispatcher dispatcher.Dispatcher
	Rights     ipcrights.Rights
}

// New constructs a Handle with the given rights over d.
func New(d dispatcher.Dispatcher, rights ipcrights.Rights) Handle {
	return Handle{Dispatcher: d, Rights: rights}
}

// HasRights reports whether this handle carries every bit of required.
func (h Handle) HasRights(required ipcrights.Rights) bool {
	return h.Rights.HasAll(required)
}

// WithReducedRights returns a copy of h whose rights are h.Rights with every
// bit in remove cleared. It shares the same Dispatcher; callers are
// responsible for installing the copy under a fresh handle value.
func (h Handle) WithReducedRights(remove ipcrights.Rights) Handle {
	return Handle{Dispatcher: h.Dispatcher, Rights: h.Rights.Remove(remove)}
}
