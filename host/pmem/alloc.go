// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pmem

import (
	"bytes"
	"io"
	"io/ioutil"
	"reflect"
	"sync"
	"unsafe"
)

const pageSize = 4096

// PageSize is the MMU page size this package allocates and resolves
// addresses in units of.
const PageSize = pageSize

// Mem represents a section of memory that is usable by the DMA controller.
//
// Since this is physically allocated memory, that could potentially have been
// allocated in spite of OS consent, for example by asking the GPU directly, it
// is important to call Close() before process exit.
type Mem interface {
	io.Closer
	// Bytes returns the user space memory mapped buffer address as a slice of
	// bytes.
	//
	// It is the raw view of the memory from this process.
	Bytes() []byte
	// AsPOD initializes a pointer to a POD (plain old data) to point to the
	// memory mapped region.
	//
	// pp must be a pointer to:
	//
	// - pointer to a base size type (uint8, int64, float32, etc)
	// - struct
	// - array of the above
	// - slice of the above
	//
	// and the value must be nil. Returns an error otherwise.
	//
	// If a pointer to a slice is passed in, it is initialized to the length and
	// capacity set to the maximum number of elements this slice can represent.
	//
	// The pointer initialized points to the same address as Bytes().
	AsPOD(pp interface{}) error
	// PhysAddr is the physical address. It can be either 32 bits or 64 bits,
	// depending on the bitness of the OS kernel, not on the user mode build,
	// e.g. you could have compiled on a 32 bits Go toolchain but running on a
	// 64 bits kernel.
	PhysAddr() uint64
}

// MemAlloc represents contiguous physically locked memory that was allocated.
//
// The memory is mapped in user space.
//
// MemAlloc implements Mem.
type MemAlloc struct {
	View
}

// Close unmaps the physical memory allocation.
func (m *MemAlloc) Close() error {
	if err := munlock(m.orig); err != nil {
		return err
	}
	return munmap(m.orig)
}

// Alloc allocates a page-locked chunk of virtual memory, one or more pages
// long.
//
// Size must be rounded to 4Kb. The kernel does not guarantee that a
// multi-page allocation is backed by contiguous physical frames; Alloc
// resolves each page's physical address and fails when the frames are not
// contiguous. Callers that address memory one page at a time (DMA
// control-block programs) should use AllocPages, which accepts scattered
// frames.
//
// The allocated memory is uncached.
func Alloc(size int) (*MemAlloc, error) {
	if size == 0 || size&(pageSize-1) != 0 {
		return nil, wrapf("allocated memory must be rounded to %d bytes", pageSize)
	}
	if isLinux && !isWSL() {
		return allocLinux(size)
	}
	return nil, wrapf("memory allocation is not supported on this platform")
}

//

var (
	wslOnce    sync.Once
	isWSLValue bool
)

// uallocMemLocked allocates user space memory and requests the OS to have the
// chunk to be locked into physical memory.
func uallocMemLocked(size int) ([]byte, error) {
	// It is important to write to the memory so it is forced to be present.
	b, err := uallocMem(size)
	if err == nil {
		for i := range b {
			b[i] = 0
		}
		if err := mlock(b); err != nil {
			// Ignore the unmap error.
			_ = munmap(b)
			return nil, wrapf("locking %d bytes failed: %v", size, err)
		}
	}
	return b, err
}

// allocLinux allocates physical memory and returns a user view to it.
//
// It rejects the request if the underlying pages are not physically
// contiguous; callers that can tolerate a scattered physical layout (e.g. a
// DMA program builder that resolves each page independently) should use
// AllocPages instead.
func allocLinux(size int) (*MemAlloc, error) {
	b, pages, err := uallocPagesLocked(size)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(pages); i++ {
		if pages[i] != pages[i-1]+pageSize {
			return nil, wrapf("failed to allocate %d bytes of contiguous physical memory; page %d=0x%x; page %d=0x%x", size, i, pages[i], i-1, pages[i-1])
		}
	}
	return &MemAlloc{View{Slice: b, phys: pages[0], orig: b}}, nil
}

// Pages is a page-locked virtual arena whose physical backing may be
// scattered across non-contiguous frames. Each page's physical address is
// resolved independently through the pagemap, matching how a DMA control
// block program addresses one page at a time.
type Pages struct {
	View
	pagePhys []uint64
}

// AllocPages allocates a page-locked arena of size/4096 pages without
// requiring the underlying physical frames to be contiguous. This backs
// multi-page DMA channel arenas, which may span many pages worth of sample
// array and control-block program.
func AllocPages(size int) (*Pages, error) {
	if size == 0 || size&(pageSize-1) != 0 {
		return nil, wrapf("allocated memory must be rounded to %d bytes", pageSize)
	}
	if !isLinux || isWSL() {
		return nil, wrapf("memory allocation is not supported on this platform")
	}
	b, pages, err := uallocPagesLocked(size)
	if err != nil {
		return nil, err
	}
	return &Pages{View: View{Slice: b, phys: pages[0], orig: b}, pagePhys: pages}, nil
}

// PhysAddrOfPage returns the physical address of the page-th 4096-byte page
// within the arena.
func (p *Pages) PhysAddrOfPage(page int) uint64 {
	return p.pagePhys[page]
}

// NumPages returns the number of 4096-byte pages backing the arena.
func (p *Pages) NumPages() int {
	return len(p.pagePhys)
}

func uallocPagesLocked(size int) ([]byte, []uint64, error) {
	b, err := uallocMemLocked(size)
	if err != nil {
		return nil, nil, err
	}
	pages := make([]uint64, (size+pageSize-1)/pageSize)
	for i := range pages {
		pages[i], err = virtToPhys(toRaw(b[pageSize*i:]))
		if err != nil {
			return nil, nil, err
		}
		if pages[i] == 0 {
			return nil, nil, wrapf("failed to read page %d", i)
		}
	}
	return b, pages, nil
}

// presentMask and presentValue encode the /proc/self/pagemap "page present"
// condition this driver checks for. The documented kernel encoding uses bit
// 63 alone as the present flag (see linux Documentation/vm/pagemap.txt); the
// mask used here instead matches what the original RPIO C sources tested,
// bits historically observed to also be set by the VideoCore firmware's
// CMA allocator on these boards. This is carried forward unchanged rather
// than "corrected" against the documented kernel semantics -- see the open
// question on this exact mismatch in DESIGN.md before touching it.
const (
	presentMask  = 0x1bf << 55
	presentValue = 0x10c << 55
)

// virtToPhys returns the physical memory address backing a virtual
// memory address.
func virtToPhys(virt uintptr) (uint64, error) {
	physPage, err := ReadPageMap(virt)
	if err != nil {
		return 0, err
	}
	if physPage&presentMask != presentValue {
		return 0, wrapf("0x%08x: page not present (pagemap entry 0x%016x)", virt, physPage)
	}
	// Strip flags. See linux documentation on kernel.org for more details.
	physPage &^= 0x1FF << 55
	return physPage * pageSize, nil
}

func toRaw(b []byte) uintptr {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&b))
	return header.Data
}

// isWSL returns true if running under Windows Subsystem for Linux.
func isWSL() bool {
	wslOnce.Do(func() {
		if c, err := ioutil.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			isWSLValue = bytes.Contains(c, []byte("Microsoft"))
		}
	})
	return isWSLValue
}

var _ Mem = &MemAlloc{}
