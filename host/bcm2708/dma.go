// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The DMA controller is used to stream prepared GPIO set/clear bit masks at a
// fixed tick rate, paced by the PWM or PCM peripheral's DREQ line. This is
// what makes software PWM on arbitrary pins possible without burning a CPU
// core spinning on a timer.
//
// References
//
// Page 7:
// " Software accessing RAM directly must use physical addresses (based at
// 0x00000000). Software accessing RAM using the DMA engines must use bus
// addresses (based at 0xC0000000) " ... to skip the L1 cache.
//
// " The BCM2835 DMA Controller provides a total of 16 DMA channels. Each
// channel operates independently from the others and is internally arbitrated
// onto one of the 3 system buses. "
//
// The CPU has 16 DMA channels but only the first 7 (#0 to #6) can do strides;
// #7 to #14 are "lite" channels with half the bandwidth; #15 is reserved by
// the GPU firmware on most boards and is not used here.
package bcm2708

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// dmaResetSettle is the post-reset delay init_ctrl_data's udelay(10) gives the
// channel before the status flags are cleared.
const dmaResetSettle = 10 * time.Microsecond

// Pages 47-50
type dmaStatus uint32

const (
	dmaReset                    dmaStatus = 1 << 31 // RESET
	dmaAbort                    dmaStatus = 1 << 30 // ABORT
	dmaDisableDebug             dmaStatus = 1 << 29 // DISDEBUG
	dmaWaitForOutstandingWrites dmaStatus = 1 << 28 // WAIT_FOR_OUTSTANDING_WRITES
	// 27:24 reserved
	dmaPanicPriorityShift = 20
	dmaPanicPriorityMask  = 0xF << dmaPanicPriorityShift
	dmaPriorityShift      = 16
	dmaPriorityMask       = 0xF << dmaPriorityShift
	// 15:9 reserved
	dmaErrorStatus dmaStatus = 1 << 8 // ERROR; must be cleared manually.
	// 7 reserved
	dmaWaitingForOutstandingWrites dmaStatus = 1 << 6 // WAITING_FOR_OUTSTANDING_WRITES
	dmaDreqStopsDMA                dmaStatus = 1 << 5 // DREQ_STOPS_DMA
	dmaPaused                      dmaStatus = 1 << 4 // PAUSED
	dmaDreq                        dmaStatus = 1 << 3 // DREQ
	dmaInterrupt                   dmaStatus = 1 << 2 // INT; write 1 to clear.
	dmaEnd                         dmaStatus = 1 << 1 // END; write 1 to clear.
	dmaActive                      dmaStatus = 1 << 0 // ACTIVE
)

var dmaStatusMap = []struct {
	v dmaStatus
	s string
}{
	{dmaReset, "Reset"},
	{dmaAbort, "Abort"},
	{dmaDisableDebug, "DisableDebug"},
	{dmaWaitForOutstandingWrites, "WaitForOutstandingWrites"},
	{dmaErrorStatus, "ErrorStatus"},
	{dmaWaitingForOutstandingWrites, "WaitingForOutstandingWrites"},
	{dmaDreqStopsDMA, "DreqStopsDMA"},
	{dmaPaused, "Paused"},
	{dmaDreq, "Dreq"},
	{dmaInterrupt, "Interrupt"},
	{dmaEnd, "End"},
	{dmaActive, "Active"},
}

func (d dmaStatus) String() string {
	var out []string
	for _, l := range dmaStatusMap {
		if d&l.v != 0 {
			d &^= l.v
			out = append(out, l.s)
		}
	}
	if v := d & dmaPanicPriorityMask; v != 0 {
		out = append(out, fmt.Sprintf("pp%d", v>>dmaPanicPriorityShift))
		d &^= dmaPanicPriorityMask
	}
	if v := d & dmaPriorityMask; v != 0 {
		out = append(out, fmt.Sprintf("p%d", v>>dmaPriorityShift))
		d &^= dmaPriorityMask
	}
	if d != 0 {
		out = append(out, fmt.Sprintf("dmaStatus(0x%x)", uint32(d)))
	}
	if len(out) == 0 {
		return "0"
	}
	return strings.Join(out, "|")
}

// Pages 50-52
type dmaTransferInfo uint32

const (
	dmaNoWideBursts dmaTransferInfo = 1 << 26 // NO_WIDE_BURSTS
	// 25:21 additional dummy cycles burnt after each read or write.
	dmaWaitCyclesShift                 = 21
	dmaWaitcyclesMax                   = 0x1F
	dmaWaitCyclesMask  dmaTransferInfo = dmaWaitcyclesMax << dmaWaitCyclesShift
	// 20:16 Peripheral mapping (1-31) whose DREQ paces the transfer; 0 means
	// continuous, unpaced transfer.
	dmaPerMapShift                = 16
	dmaPerMapMask  dmaTransferInfo = 31 << dmaPerMapShift
	dmaFire        dmaTransferInfo = 0 << dmaPerMapShift // PERMAP; continuous trigger
	dmaDSI         dmaTransferInfo = 1 << dmaPerMapShift
	dmaPCMTX       dmaTransferInfo = 2 << dmaPerMapShift
	dmaPCMRX       dmaTransferInfo = 3 << dmaPerMapShift
	dmaSMI         dmaTransferInfo = 4 << dmaPerMapShift
	dmaPWM         dmaTransferInfo = 5 << dmaPerMapShift

	dmaBurstLengthShift                 = 12
	dmaBurstLengthMask  dmaTransferInfo = 0xF << dmaBurstLengthShift
	dmaSrcIgnore        dmaTransferInfo = 1 << 11 // source won't be read, zeros are written.
	dmaSrcDReq          dmaTransferInfo = 1 << 10
	dmaSrcInc           dmaTransferInfo = 1 << 8 // increment read pointer after each read.
	dmaDstIgnore        dmaTransferInfo = 1 << 7 // do not write.
	dmaDstDReq          dmaTransferInfo = 1 << 6
	dmaDstInc           dmaTransferInfo = 1 << 4 // increment write pointer after each write.
	dmaWaitResp         dmaTransferInfo = 1 << 3 // wait for the AXI write response.
	dmaTransfer2DMode   dmaTransferInfo = 1 << 1 // TDMODE; channels 0-6 only.
	dmaInterruptEnable  dmaTransferInfo = 1 << 0 // INTEN
)

var dmaTransferInfoMap = []struct {
	v dmaTransferInfo
	s string
}{
	{dmaNoWideBursts, "NoWideBursts"},
	{dmaSrcIgnore, "SrcIgnore"},
	{dmaSrcDReq, "SrcDReq"},
	{dmaSrcInc, "SrcInc"},
	{dmaDstIgnore, "DstIgnore"},
	{dmaDstDReq, "DstDReq"},
	{dmaDstInc, "DstInc"},
	{dmaWaitResp, "WaitResp"},
	{dmaTransfer2DMode, "Transfer2DMode"},
	{dmaInterruptEnable, "InterruptEnable"},
}

var dmaPerMapNames = map[dmaTransferInfo]string{
	dmaFire:  "Fire",
	dmaDSI:   "DSI",
	dmaPCMTX: "PCMTX",
	dmaPCMRX: "PCMRX",
	dmaSMI:   "SMI",
	dmaPWM:   "PWM",
}

func (d dmaTransferInfo) String() string {
	var out []string
	for _, l := range dmaTransferInfoMap {
		if d&l.v != 0 {
			d &^= l.v
			out = append(out, l.s)
		}
	}
	if v := d & dmaWaitCyclesMask; v != 0 {
		out = append(out, fmt.Sprintf("waits=%d", v>>dmaWaitCyclesShift))
		d &^= dmaWaitCyclesMask
	}
	if v := d & dmaBurstLengthMask; v != 0 {
		out = append(out, fmt.Sprintf("burst=%d", v>>dmaBurstLengthShift))
		d &^= dmaBurstLengthMask
	}
	if name, ok := dmaPerMapNames[d&dmaPerMapMask]; ok {
		out = append(out, name)
	}
	d &^= dmaPerMapMask
	if d != 0 {
		out = append(out, fmt.Sprintf("dmaTransferInfo(0x%x)", uint32(d)))
	}
	return strings.Join(out, "|")
}

// Page 55
type dmaDebug uint32

const (
	dmaLite                dmaDebug = 1 << 28
	dmaReadError           dmaDebug = 1 << 2 // slave read error; clear by writing 1.
	dmaFIFOError           dmaDebug = 1 << 1 // clear by writing 1.
	dmaReadLastNotSetError dmaDebug = 1 << 0
)

var dmaDebugMap = []struct {
	v dmaDebug
	s string
}{
	{dmaLite, "Lite"},
	{dmaReadError, "ReadError"},
	{dmaFIFOError, "FIFOError"},
	{dmaReadLastNotSetError, "ReadLastNotSetError"},
}

func (d dmaDebug) String() string {
	var out []string
	for _, l := range dmaDebugMap {
		if d&l.v != 0 {
			d &^= l.v
			out = append(out, l.s)
		}
	}
	if d != 0 {
		out = append(out, fmt.Sprintf("dmaDebug(0x%x)", uint32(d)))
	}
	if len(out) == 0 {
		return "0"
	}
	return strings.Join(out, "|")
}

// 31:30 0; 29:16 yLength (channels #0-#6 only); 15:0 xLength
type dmaTransferLen uint32

// 31:16 dstStride; 15:0 srcStride, both applied at end of row in 2D mode.
type dmaStride uint32

// controlBlock is a single 256-bit (32-byte) DMA descriptor.
//
// https://www.raspberrypi.org/wp-content/uploads/2012/02/BCM2835-ARM-Peripherals.pdf
// Page 40.
type controlBlock struct {
	transferInfo dmaTransferInfo // 0x00 TI
	srcAddr      uint32          // 0x04 SOURCE_AD, bus address
	dstAddr      uint32          // 0x08 DEST_AD, bus address
	txLen        dmaTransferLen  // 0x0C TXFR_LEN in bytes
	stride       dmaStride       // 0x10 STRIDE
	nextCB       uint32          // 0x14 NEXTCONBK, 32-byte aligned, 0 stops
	reserved     [2]uint32       // 0x18, 0x1C
}

func (c *controlBlock) GoString() string {
	return fmt.Sprintf(
		"{\n  transferInfo: %s,\n  srcAddr:      0x%x,\n  dstAddr:      0x%x,\n  txLen:        %d,\n  stride:       0x%x,\n  nextCB:       0x%x,\n}",
		c.transferInfo, c.srcAddr, c.dstAddr, c.txLen, uint32(c.stride), c.nextCB)
}

// DMAChannel is the memory mapped register bank for one DMA channel.
//
// Page 39.
type DMAChannel struct {
	cs           dmaStatus                  // 0x00 CS
	cbAddr       uint32                     // 0x04 CONBLK_AD, bus address, 32-byte aligned
	transferInfo dmaTransferInfo            // 0x08 TI (RO, loaded from CB on start)
	srcAddr      uint32                     // 0x0C SOURCE_AD (RO)
	dstAddr      uint32                     // 0x10 DEST_AD (RO)
	txLen        dmaTransferLen             // 0x14 TXFR_LEN (RO)
	stride       dmaStride                  // 0x18 STRIDE (RO)
	nextCB       uint32                     // 0x1C NEXTCONBK
	debug        dmaDebug                   // 0x20 DEBUG
	reserved     [(0x100 - 0x24) / 4]uint32 // 0x24
}

// IsAvailable reports whether the channel is currently idle.
func (d *DMAChannel) IsAvailable() bool {
	return (d.cs&^dmaDreq) == 0 && d.cbAddr == 0
}

// Halt resets the channel so it stops consuming control blocks, then waits
// the settle time init_ctrl_data's udelay(10) gives the reset before the
// status flags are cleared, and clears the sticky INT/END flags left over
// from the reset. It doesn't clear the cached controlBlock contents in the
// backing arena.
func (d *DMAChannel) Halt() {
	d.cs = dmaReset
	time.Sleep(dmaResetSettle)
	d.cs = dmaInterrupt | dmaEnd
}

// Start begins consuming the cyclic control-block program at cbAddr (a bus
// address), mid priority, waiting for outstanding AXI writes on completion.
// It clears any error flags the DEBUG register latched from a prior owner
// (the kernel's own dmaengine driver, or a previous run of this program)
// before setting the channel active, mirroring init_ctrl_data's write order.
func (d *DMAChannel) Start(cbAddr uint32) {
	d.cbAddr = cbAddr
	d.debug = dmaReadError | dmaFIFOError | dmaReadLastNotSetError
	d.cs = dmaWaitForOutstandingWrites | 8<<dmaPanicPriorityShift | 8<<dmaPriorityShift | dmaActive
}

// HasError reports any sticky error flag latched in the DEBUG register.
func (d *DMAChannel) HasError() error {
	if d.debug&dmaReadError != 0 {
		return fmt.Errorf("dma: read error")
	}
	if d.debug&dmaFIFOError != 0 {
		return fmt.Errorf("dma: fifo error")
	}
	if d.debug&dmaReadLastNotSetError != 0 {
		return fmt.Errorf("dma: read-last-not-set error")
	}
	return nil
}

func (d *DMAChannel) GoString() string {
	return fmt.Sprintf(
		"{\n  cs:           %s,\n  cbAddr:       0x%x,\n  transferInfo: %s,\n  srcAddr:      0x%x,\n  dstAddr:      0x%x,\n  txLen:        %d,\n  stride:       0x%x,\n  nextCB:       0x%x,\n  debug:        %s,\n}",
		d.cs, d.cbAddr, d.transferInfo, d.srcAddr, d.dstAddr, d.txLen, uint32(d.stride), d.nextCB, d.debug)
}

// dmaMap is the block for the first 15 channels and the shared control
// registers. Channel #15 lives at a different, non-adjacent base address and
// is intentionally not modeled here; the engine never allocates it.
//
// Note this mutates DMA channels the kernel's own dmaengine driver believes
// it owns exclusively. That is the nature of direct /dev/mem access.
//
// Page 40.
type dmaMap struct {
	channels  [15]DMAChannel
	padding0  [0xE0]byte
	intStatus uint32    // 0xFE0 INT_STATUS, bits 15:0 map to controllers #15-#0
	padding1  [0xC]byte
	enable    uint32 // 0xFF0 ENABLE, bits 14:0 map to controllers #14-#0
}

var dmaMemory *dmaMap

// MapDMA mmaps the DMA controller's first 15 channels (Component A) and
// initializes the package-level register handle used by Channel.
func MapDMA() error {
	return mapPeripheral(dmaBase, 0x1000, &dmaMemory)
}

// Channel returns the register bank for DMA engine index 0-14, or nil if out
// of range. It is Component G's only access path to the hardware; channel
// arena allocation and ownership live in the engine.
func Channel(index int) *DMAChannel {
	if dmaMemory == nil || index < 0 || index >= len(dmaMemory.channels) {
		return nil
	}
	return &dmaMemory.channels[index]
}

// ControlBlockSize is the fixed size in bytes of one DMA control block.
const ControlBlockSize = 32

// Exported transfer-info flags and bus addresses needed to build a control
// block program (Component G) from outside this package, without exposing
// the unexported controlBlock/dmaTransferInfo types themselves.
const (
	CBNoWideBursts uint32 = 1 << 26
	CBWaitResp     uint32 = 1 << 3
	CBDstDReq      uint32 = 1 << 6
	cbPerMapShift         = 16
	CBPerMapPWM    uint32 = 5 << cbPerMapShift
	CBPerMapPCM    uint32 = 2 << cbPerMapShift

	BusGPIOSet0 = busGPIOSet0
	BusGPIOClr0 = busGPIOClr0
	BusPWMFIFO  = busPWMFIFO
	BusPCMFIFO  = busPCMFIFO

	// BusUncachedAlias is OR-ed into every physical address handed to the DMA
	// engine so it bypasses the ARM L1/L2 cache and sees coherent memory.
	BusUncachedAlias = 0x40000000
)

// EncodeControlBlock writes one 32-byte DMA control block into dst (which
// must be at least ControlBlockSize bytes long), using bus-view addresses
// for srcAddr, dstAddr and nextCB.
func EncodeControlBlock(dst []byte, transferInfo, srcAddr, dstAddr, txLen, stride, nextCB uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], transferInfo)
	binary.LittleEndian.PutUint32(dst[4:8], srcAddr)
	binary.LittleEndian.PutUint32(dst[8:12], dstAddr)
	binary.LittleEndian.PutUint32(dst[12:16], txLen)
	binary.LittleEndian.PutUint32(dst[16:20], stride)
	binary.LittleEndian.PutUint32(dst[20:24], nextCB)
	binary.LittleEndian.PutUint32(dst[24:28], 0)
	binary.LittleEndian.PutUint32(dst[28:32], 0)
}

// ControlBlockDest returns the 32-bit destination word (offset 8) encoded in
// an already-written control block, so the pulse editor (Component H) can
// read a sample tick's current SET/CLR destination before flipping it.
func ControlBlockDest(cb []byte) uint32 {
	return binary.LittleEndian.Uint32(cb[8:12])
}

// SetControlBlockDest rewrites the destination word (offset 8) of an
// already-written control block in place, used by the pulse editor
// (Component H) to flip a tick between SET0 and CLR0 without re-encoding
// the rest of the block.
func SetControlBlockDest(cb []byte, dstAddr uint32) {
	binary.LittleEndian.PutUint32(cb[8:12], dstAddr)
}
