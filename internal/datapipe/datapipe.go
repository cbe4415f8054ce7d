// Package datapipe implements the byte-stream data pipe: a producer and a
// consumer dispatcher sharing a fixed-capacity ring buffer, each supporting
// both single-shot and two-phase (Begin/End) I/O.
package datapipe

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// Flag bits accepted by WriteData/ReadData/Begin*Data, mirroring the
// original's MojoWriteDataFlags/MojoReadDataFlags.
const (
	FlagNone        uint32 = 0
	FlagAllOrNone   uint32 = 1 << 0
	FlagDiscard     uint32 = 1 << 1
	FlagQuery       uint32 = 1 << 2
	FlagPeek        uint32 = 1 << 3
)

// pipeState is the shared ring buffer and bookkeeping both endpoints
// reference, avoiding a direct producer<->consumer reference cycle the same
// way messagepipe's pipeState does.
type pipeState struct {
	mu sync.Mutex

	elementBytes   uint32
	capacityBytes  uint32
	readThreshold  uint32
	writeThreshold uint32

	buf        []byte // ring buffer, logical contents are buf[start:start+filled wrapped]
	start      int
	filled     int

	producerClosed bool
	consumerClosed bool

	producerTwoPhase bool
	consumerTwoPhase bool
	twoPhaseBuf      []byte // staging area returned by Begin*, committed by End*

	awakableProducer dispatcher.AwakableList
	awakableConsumer dispatcher.AwakableList
}

func (p *pipeState) producerSignalsLocked() ipcsignals.State {
	var sig ipcsignals.Signals
	satisfiable := ipcsignals.Writable | ipcsignals.PeerClosed
	if p.consumerClosed {
		sig |= ipcsignals.PeerClosed
	} else if p.filled < len(p.buf) && !p.producerTwoPhase {
		sig |= ipcsignals.Writable
	}
	if p.writeThreshold > 0 {
		satisfiable |= ipcsignals.WriteThreshold
		if uint32(len(p.buf)-p.filled) >= p.writeThreshold && !p.consumerClosed {
			sig |= ipcsignals.WriteThreshold
		}
	}
	return ipcsignals.State{Satisfied: sig, Satisfiable: satisfiable}
}

func (p *pipeState) consumerSignalsLocked() ipcsignals.State {
	var sig ipcsignals.Signals
	satisfiable := ipcsignals.PeerClosed
	if p.filled > 0 && !p.consumerTwoPhase {
		sig |= ipcsignals.Readable
	}
	if !p.producerClosed || p.filled > 0 {
		satisfiable |= ipcsignals.Readable
	}
	if p.producerClosed && p.filled == 0 {
		sig |= ipcsignals.PeerClosed
	}
	if p.readThreshold > 0 {
		satisfiable |= ipcsignals.ReadThreshold
		if uint32(p.filled) >= p.readThreshold {
			sig |= ipcsignals.ReadThreshold
		}
	}
	return ipcsignals.State{Satisfied: sig, Satisfiable: satisfiable}
}

func (p *pipeState) notifyLocked() {
	prod := p.producerSignalsLocked()
	cons := p.consumerSignalsLocked()
	p.awakableProducer.OnStateChange(prod)
	p.awakableConsumer.OnStateChange(cons)
}

// CreatePipe allocates a ring buffer of the given element and capacity sizes
// and returns its producer and consumer dispatchers.
func CreatePipe(elementBytes, capacityBytes, readThreshold, writeThreshold uint32) (*Producer, *Consumer) {
	p := &pipeState{
		elementBytes:   elementBytes,
		capacityBytes:  capacityBytes,
		readThreshold:  readThreshold,
		writeThreshold: writeThreshold,
		buf:            make([]byte, capacityBytes),
	}
	return &Producer{state: p}, &Consumer{state: p}
}

// Producer is the write end of a data pipe.
type Producer struct {
	dispatcher.Base
	state *pipeState
	inTransit bool
}

var _ dispatcher.Dispatcher = (*Producer)(nil)

func (p *Producer) Kind() dispatcher.Kind { return dispatcher.KindDataPipeProducer }

func (p *Producer) SupportsEntrypointClass(c dispatcher.EntrypointClass) bool {
	return c == dispatcher.EntrypointNone || c == dispatcher.EntrypointDataPipeProducer
}

func (p *Producer) Close() ipcresult.Result {
	p.state.mu.Lock()
	p.state.producerClosed = true
	p.state.producerTwoPhase = false
	awakables := &p.state.awakableProducer
	p.state.notifyLocked()
	p.state.mu.Unlock()
	awakables.CancelAndRemoveAll(ipcsignals.State{})
	return ipcresult.OK
}

func (p *Producer) CancelAllState() {
	p.state.mu.Lock()
	awakables := &p.state.awakableProducer
	p.state.mu.Unlock()
	awakables.CancelAndRemoveAll(ipcsignals.State{})
}

func (p *Producer) SetProducerOptions(elementBytes uint32) ipcresult.Result {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	if p.state.filled > 0 {
		return ipcresult.FAILED_PRECONDITION
	}
	p.state.elementBytes = elementBytes
	return ipcresult.OK
}

func (p *Producer) GetProducerOptions() (uint32, uint32, ipcresult.Result) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	return p.state.elementBytes, p.state.capacityBytes, ipcresult.OK
}

func (p *Producer) WriteData(data []byte, flags uint32) (int, ipcresult.Result) {
	if flags&FlagQuery != 0 && flags&FlagPeek != 0 {
		return 0, ipcresult.INVALID_ARGUMENT
	}
	p.state.mu.Lock()
	defer p.state.mu.Unlock()

	if p.state.producerTwoPhase {
		return 0, ipcresult.BUSY
	}
	if p.state.consumerClosed {
		return 0, ipcresult.FAILED_PRECONDITION
	}

	free := len(p.state.buf) - p.state.filled
	if flags&FlagQuery != 0 {
		return free, ipcresult.OK
	}
	n := len(data)
	if n > free {
		if flags&FlagAllOrNone != 0 {
			return 0, ipcresult.RESOURCE_EXHAUSTED
		}
		n = free
	}
	if n == 0 {
		return 0, ipcresult.SHOULD_WAIT
	}
	p.writeLocked(data[:n])
	p.state.notifyLocked()
	return n, ipcresult.OK
}

func (p *Producer) writeLocked(data []byte) {
	end := (p.state.start + p.state.filled) % len(p.state.buf)
	for _, b := range data {
		p.state.buf[end] = b
		end = (end + 1) % len(p.state.buf)
	}
	p.state.filled += len(data)
}

func (p *Producer) BeginWriteData(flags uint32) ([]byte, ipcresult.Result) {
	if flags&FlagPeek != 0 {
		return nil, ipcresult.INVALID_ARGUMENT
	}
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	if p.state.producerTwoPhase {
		return nil, ipcresult.BUSY
	}
	if p.state.consumerClosed {
		return nil, ipcresult.FAILED_PRECONDITION
	}
	free := len(p.state.buf) - p.state.filled
	if free == 0 {
		return nil, ipcresult.SHOULD_WAIT
	}
	p.state.producerTwoPhase = true
	p.state.twoPhaseBuf = make([]byte, free)
	return p.state.twoPhaseBuf, ipcresult.OK
}

func (p *Producer) EndWriteData(numBytesWritten uint32) ipcresult.Result {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	if !p.state.producerTwoPhase {
		return ipcresult.FAILED_PRECONDITION
	}
	if int(numBytesWritten) > len(p.state.twoPhaseBuf) {
		return ipcresult.INVALID_ARGUMENT
	}
	p.writeLocked(p.state.twoPhaseBuf[:numBytesWritten])
	p.state.producerTwoPhase = false
	p.state.twoPhaseBuf = nil
	p.state.notifyLocked()
	return ipcresult.OK
}

func (p *Producer) AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result) {
	p.state.mu.Lock()
	current := p.state.producerSignalsLocked()
	p.state.mu.Unlock()
	res := p.state.awakableProducer.Add(a, context, signals, current)
	return current, res
}

func (p *Producer) RemoveAwakable(a awakable.Awakable) ipcsignals.State {
	p.state.awakableProducer.Remove(a)
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	return p.state.producerSignalsLocked()
}

func (p *Producer) GetHandleSignalsState() ipcsignals.State {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	return p.state.producerSignalsLocked()
}

func (p *Producer) BeginTransit() bool {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	if p.inTransit {
		return false
	}
	p.inTransit = true
	if p.state.producerTwoPhase {
		p.state.producerTwoPhase = false
		p.state.twoPhaseBuf = nil
	}
	return true
}

func (p *Producer) EndTransit() {
	p.state.mu.Lock()
	p.inTransit = false
	p.state.mu.Unlock()
}

func (p *Producer) CancelTransit() {
	p.state.mu.Lock()
	p.inTransit = false
	p.state.mu.Unlock()
}

// Consumer is the read end of a data pipe.
type Consumer struct {
	dispatcher.Base
	state *pipeState
	inTransit bool
}

var _ dispatcher.Dispatcher = (*Consumer)(nil)

func (c *Consumer) Kind() dispatcher.Kind { return dispatcher.KindDataPipeConsumer }

func (c *Consumer) SupportsEntrypointClass(cl dispatcher.EntrypointClass) bool {
	return cl == dispatcher.EntrypointNone || cl == dispatcher.EntrypointDataPipeConsumer
}

func (c *Consumer) Close() ipcresult.Result {
	c.state.mu.Lock()
	c.state.consumerClosed = true
	c.state.consumerTwoPhase = false
	awakables := &c.state.awakableConsumer
	c.state.notifyLocked()
	c.state.mu.Unlock()
	awakables.CancelAndRemoveAll(ipcsignals.State{})
	return ipcresult.OK
}

func (c *Consumer) CancelAllState() {
	c.state.mu.Lock()
	awakables := &c.state.awakableConsumer
	c.state.mu.Unlock()
	awakables.CancelAndRemoveAll(ipcsignals.State{})
}

func (c *Consumer) SetConsumerOptions(elementBytes uint32) ipcresult.Result {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.elementBytes = elementBytes
	return ipcresult.OK
}

func (c *Consumer) GetConsumerOptions() (uint32, uint32, ipcresult.Result) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.elementBytes, c.state.capacityBytes, ipcresult.OK
}

func (c *Consumer) ReadData(maxBytes int, flags uint32) ([]byte, ipcresult.Result) {
	if flags&FlagQuery != 0 && flags&FlagPeek != 0 {
		return nil, ipcresult.INVALID_ARGUMENT
	}
	if flags&FlagDiscard != 0 && flags&FlagPeek != 0 {
		return nil, ipcresult.INVALID_ARGUMENT
	}
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	if c.state.consumerTwoPhase {
		return nil, ipcresult.BUSY
	}
	if flags&FlagQuery != 0 {
		return nil, ipcresult.OK
	}
	n := maxBytes
	if n > c.state.filled {
		if flags&FlagAllOrNone != 0 {
			return nil, ipcresult.RESOURCE_EXHAUSTED
		}
		n = c.state.filled
	}
	if n == 0 {
		if c.state.producerClosed {
			return nil, ipcresult.FAILED_PRECONDITION
		}
		return nil, ipcresult.SHOULD_WAIT
	}
	out := c.peekLocked(n)
	if flags&FlagPeek == 0 {
		c.advanceLocked(n)
		c.state.notifyLocked()
		if flags&FlagDiscard != 0 {
			// DISCARD consumes the bytes without returning them.
			return nil, ipcresult.OK
		}
	}
	return out, ipcresult.OK
}

func (c *Consumer) peekLocked(n int) []byte {
	out := make([]byte, n)
	idx := c.state.start
	for i := 0; i < n; i++ {
		out[i] = c.state.buf[idx]
		idx = (idx + 1) % len(c.state.buf)
	}
	return out
}

func (c *Consumer) advanceLocked(n int) {
	c.state.start = (c.state.start + n) % len(c.state.buf)
	c.state.filled -= n
}

func (c *Consumer) BeginReadData(flags uint32) ([]byte, ipcresult.Result) {
	if flags&FlagPeek != 0 {
		return nil, ipcresult.INVALID_ARGUMENT
	}
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if c.state.consumerTwoPhase {
		return nil, ipcresult.BUSY
	}
	if c.state.filled == 0 {
		if c.state.producerClosed {
			return nil, ipcresult.FAILED_PRECONDITION
		}
		return nil, ipcresult.SHOULD_WAIT
	}
	c.state.consumerTwoPhase = true
	c.state.twoPhaseBuf = c.peekLocked(c.state.filled)
	return c.state.twoPhaseBuf, ipcresult.OK
}

func (c *Consumer) EndReadData(numBytesRead uint32) ipcresult.Result {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if !c.state.consumerTwoPhase {
		return ipcresult.FAILED_PRECONDITION
	}
	if int(numBytesRead) > len(c.state.twoPhaseBuf) {
		return ipcresult.INVALID_ARGUMENT
	}
	c.advanceLocked(int(numBytesRead))
	c.state.consumerTwoPhase = false
	c.state.twoPhaseBuf = nil
	c.state.notifyLocked()
	return ipcresult.OK
}

func (c *Consumer) AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result) {
	c.state.mu.Lock()
	current := c.state.consumerSignalsLocked()
	c.state.mu.Unlock()
	res := c.state.awakableConsumer.Add(a, context, signals, current)
	return current, res
}

func (c *Consumer) RemoveAwakable(a awakable.Awakable) ipcsignals.State {
	c.state.awakableConsumer.Remove(a)
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.consumerSignalsLocked()
}

func (c *Consumer) GetHandleSignalsState() ipcsignals.State {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.consumerSignalsLocked()
}

func (c *Consumer) BeginTransit() bool {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if c.inTransit {
		return false
	}
	c.inTransit = true
	if c.state.consumerTwoPhase {
		c.state.consumerTwoPhase = false
		c.state.twoPhaseBuf = nil
	}
	return true
}

func (c *Consumer) EndTransit() {
	c.state.mu.Lock()
	c.inTransit = false
	c.state.mu.Unlock()
}

func (c *Consumer) CancelTransit() {
	c.state.mu.Lock()
	c.inTransit = false
	c.state.mu.Unlock()
}
