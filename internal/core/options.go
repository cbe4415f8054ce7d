package core

import (
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcopts"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
)

// CreateMessagePipeOptions configures CreateMessagePipe. It has no flags
// defined yet; any non-zero Flags bit is UNIMPLEMENTED.
type CreateMessagePipeOptions struct {
	ipcopts.Header
	Flags uint32
}

func (o CreateMessagePipeOptions) validate() ipcresult.Result {
	if res := o.Header.Validate(); res != ipcresult.OK {
		return res
	}
	if !o.HasMember(4, 4) {
		return ipcresult.OK
	}
	return ipcopts.ValidateFlags(o.Flags, 0)
}

// CreateWaitSetOptions configures CreateWaitSet. Like message-pipe options,
// no flags are defined.
type CreateWaitSetOptions struct {
	ipcopts.Header
	Flags uint32
}

func (o CreateWaitSetOptions) validate() ipcresult.Result {
	if res := o.Header.Validate(); res != ipcresult.OK {
		return res
	}
	if !o.HasMember(4, 4) {
		return ipcresult.OK
	}
	return ipcopts.ValidateFlags(o.Flags, 0)
}

// CreateDataPipeOptions configures CreateDataPipe. A zero ElementNumBytes
// defaults to 1; a zero CapacityNumBytes defaults to a built-in capacity.
// Threshold fields of 0 mean "use the default" (no threshold signal).
type CreateDataPipeOptions struct {
	ipcopts.Header
	Flags                  uint32
	ElementNumBytes        uint32
	CapacityNumBytes       uint32
	ReadThresholdNumBytes  uint32
	WriteThresholdNumBytes uint32
}

const defaultDataPipeCapacityBytes = 64 * 1024

func (o CreateDataPipeOptions) resolve() (CreateDataPipeOptions, ipcresult.Result) {
	if res := o.Header.Validate(); res != ipcresult.OK {
		return o, res
	}
	if o.HasMember(4, 4) {
		if res := ipcopts.ValidateFlags(o.Flags, 0); res != ipcresult.OK {
			return o, res
		}
	}
	if o.ElementNumBytes == 0 {
		o.ElementNumBytes = 1
	}
	if o.CapacityNumBytes == 0 {
		o.CapacityNumBytes = defaultDataPipeCapacityBytes
		o.CapacityNumBytes -= o.CapacityNumBytes % o.ElementNumBytes
	}
	if o.CapacityNumBytes%o.ElementNumBytes != 0 {
		return o, ipcresult.INVALID_ARGUMENT
	}
	if o.ReadThresholdNumBytes != 0 {
		if o.ReadThresholdNumBytes%o.ElementNumBytes != 0 || o.ReadThresholdNumBytes > o.CapacityNumBytes {
			return o, ipcresult.INVALID_ARGUMENT
		}
	}
	if o.WriteThresholdNumBytes != 0 {
		if o.WriteThresholdNumBytes%o.ElementNumBytes != 0 || o.WriteThresholdNumBytes > o.CapacityNumBytes {
			return o, ipcresult.INVALID_ARGUMENT
		}
	}
	return o, ipcresult.OK
}

// CreateSharedBufferOptions configures CreateSharedBuffer. No flags defined.
type CreateSharedBufferOptions struct {
	ipcopts.Header
	Flags uint32
}

func (o CreateSharedBufferOptions) validate() ipcresult.Result {
	if res := o.Header.Validate(); res != ipcresult.OK {
		return res
	}
	if !o.HasMember(4, 4) {
		return ipcresult.OK
	}
	return ipcopts.ValidateFlags(o.Flags, 0)
}

// DuplicateBufferHandleOptions restricts the rights of a buffer duplicate.
// RightsToRemove, if the caller specifies it, is cleared from the
// duplicate's rights in addition to whatever the generic duplicate path
// already removes.
type DuplicateBufferHandleOptions struct {
	ipcopts.Header
	Flags          uint32
	RightsToRemove uint32
}

func (o DuplicateBufferHandleOptions) validate() ipcresult.Result {
	if res := o.Header.Validate(); res != ipcresult.OK {
		return res
	}
	if !o.HasMember(4, 4) {
		return ipcresult.OK
	}
	return ipcopts.ValidateFlags(o.Flags, 0)
}
