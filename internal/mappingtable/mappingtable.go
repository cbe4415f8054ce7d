// Package mappingtable implements the table of active shared-buffer mappings
// that Core owns and serializes access to, analogous to the process virtual
// address space Mojo's MappingTable indexes by base address.
//
// Go code cannot hand out raw pointers to callers, so Token stands in for the
// base address: MapBuffer mints one and returns it alongside the mapped
// slice; UnmapBuffer takes it back. Like its C++ counterpart, MappingTable
// is NOT thread-safe — Core holds the lock.
package mappingtable

import "github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"

// Token identifies one active mapping, returned by Core.MapBuffer and
// consumed by Core.UnmapBuffer.
type Token uint64

// Record is the metadata kept per active mapping.
type Record struct {
	Bytes []byte
}

// MappingTable maps tokens to their backing mapping record.
type MappingTable struct {
	next    Token
	mapping map[Token]Record
}

// New returns an empty mapping table.
func New() *MappingTable {
	return &MappingTable{next: 1, mapping: make(map[Token]Record)}
}

// AddMapping registers bytes as a new active mapping and returns its token.
func (t *MappingTable) AddMapping(bytes []byte) Token {
	tok := t.next
	t.next++
	t.mapping[tok] = Record{Bytes: bytes}
	return tok
}

// RemoveMapping drops the mapping for tok. Fails with INVALID_ARGUMENT if no
// such mapping is active.
func (t *MappingTable) RemoveMapping(tok Token) ipcresult.Result {
	if _, ok := t.mapping[tok]; !ok {
		return ipcresult.INVALID_ARGUMENT
	}
	delete(t.mapping, tok)
	return ipcresult.OK
}

// Len reports the number of active mappings.
func (t *MappingTable) Len() int { return len(t.mapping) }
