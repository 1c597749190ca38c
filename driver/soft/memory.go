// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"sync"

	"github.com/gogpu/dispatch/driver"
)

// memory is one soft allocation. Map hands out the backing slice directly;
// writes land in place, so Unmap only clears the mapped flag.
type memory struct {
	device *device
	data   []byte
	va     uint64
	heap   driver.GpuHeap

	mu        sync.Mutex
	mapped    bool
	destroyed bool
}

// Destroy releases the allocation and frees its address range for reuse
// by lookup (addresses themselves are never reissued).
func (m *memory) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.mu.Unlock()
	m.device.releaseMemory(m.va)
}

// Size returns the allocation size in bytes.
func (m *memory) Size() uint64 { return uint64(len(m.data)) }

// GpuVirtAddr returns the synthetic device virtual address.
func (m *memory) GpuVirtAddr() uint64 { return m.va }

// Map returns the host-visible contents. Mapping twice fails.
func (m *memory) Map() ([]byte, driver.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || m.mapped {
		return nil, driver.ErrorMapFailed
	}
	m.mapped = true
	return m.data, driver.Success
}

// Unmap ends a mapping. Unmapping an unmapped allocation fails.
func (m *memory) Unmap() driver.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || !m.mapped {
		return driver.ErrorMapFailed
	}
	m.mapped = false
	return driver.Success
}
