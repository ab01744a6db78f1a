package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

// Memory reads from a guest's linear memory with bounds checks. The host
// never writes into guest memory: results travel through read_byte instead.
type Memory struct {
	mem api.Memory
}

// NewMemory wraps the memory of module. It returns nil if the module
// exports no memory.
func NewMemory(module api.Module) *Memory {
	mem := module.Memory()
	if mem == nil {
		return nil
	}
	return &Memory{mem: mem}
}

// ReadString reads length bytes at ptr as a string, stopping early at a NUL.
func (m *Memory) ReadString(ptr uint32, length uint32) (string, error) {
	buf, err := m.ReadBytes(ptr, length)
	if err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// ReadBytes returns a copy of length bytes at ptr.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: length}
	}
	return append([]byte(nil), buf...), nil
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}
