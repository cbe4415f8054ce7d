// Package ipcopts validates the extensible "Options" structs accepted by
// Core's Create* calls. Every Options type in this kernel embeds Header,
// whose SpecifiedBytes plays the role of the original's struct_size: it lets
// a caller built against an older Options definition omit trailing fields it
// doesn't know about, while a newer caller can tell whether a field it cares
// about was actually populated versus left at its zero value.
package ipcopts

import "github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"

// Header is embedded as the first field of every Options struct.
type Header struct {
	// SpecifiedBytes is how much of the Options struct the caller populated,
	// analogous to struct_size. A caller using an older, smaller version of
	// an Options type sets this to that version's size; fields beyond it are
	// treated as absent rather than zero.
	SpecifiedBytes uint32
}

// HasMember reports whether a field at the given byte offset/size was
// within the range the caller specified, i.e. whether it should be treated
// as present rather than defaulted.
func (h Header) HasMember(offset, size uint32) bool {
	return h.SpecifiedBytes >= offset+size
}

// minHeaderSize is the smallest legal SpecifiedBytes: large enough to cover
// Header itself.
const minHeaderSize = 4

// Validate checks that SpecifiedBytes is at least large enough to have
// specified Header, returning INVALID_ARGUMENT otherwise.
func (h Header) Validate() ipcresult.Result {
	if h.SpecifiedBytes < minHeaderSize {
		return ipcresult.INVALID_ARGUMENT
	}
	return ipcresult.OK
}

// ValidateFlags returns UNIMPLEMENTED if got carries any bit outside known,
// matching the rule that an Options struct's flags must all be recognized by
// this implementation.
func ValidateFlags(got, known uint32) ipcresult.Result {
	if got&^known != 0 {
		return ipcresult.UNIMPLEMENTED
	}
	return ipcresult.OK
}
