package engine

import (
	"encoding/binary"

	"rpio.dev/x/rpio/conn/gpio"
	"rpio.dev/x/rpio/host/bcm2708"
	"rpio.dev/x/rpio/host/pmem"
)

const pageSize = pmem.PageSize

// Channel is one live DMA engine channel: its sample array and cyclic
// control-block program (Component F/G), and the set of GPIOs currently
// multiplexed onto it (for PrintChannel's diagnostic dump).
type Channel struct {
	index      int
	numSamples int
	tickUs     int
	arena      *pmem.Pages
	cbOffset   int
	gpios      map[int]bool
}

// busAddr resolves a byte offset within the arena to its DMA bus-view
// physical address, OR-ed with the uncached alias bit.
func (c *Channel) busAddr(virtOffset int) uint32 {
	page := virtOffset / pageSize
	off := uint32(virtOffset % pageSize)
	return (uint32(c.arena.PhysAddrOfPage(page)) + off) | bcm2708.BusUncachedAlias
}

func (c *Channel) cbAddr(cbIndex int) uint32 {
	return c.busAddr(c.cbOffset + cbIndex*bcm2708.ControlBlockSize)
}

func (c *Channel) sampleBytes() []byte {
	return c.arena.Bytes()[:4*c.numSamples]
}

func (c *Channel) cbAt(cbIndex int) []byte {
	off := c.cbOffset + cbIndex*bcm2708.ControlBlockSize
	return c.arena.Bytes()[off : off+bcm2708.ControlBlockSize]
}

func (c *Channel) sampleWord(i int) uint32 {
	return binary.LittleEndian.Uint32(c.sampleBytes()[i*4:])
}

func (c *Channel) setSampleWord(i int, v uint32) {
	binary.LittleEndian.PutUint32(c.sampleBytes()[i*4:], v)
}

// build lays out the cyclic pair-of-CBs-per-sample program described in §3
// and §4.G: every even CB starts out pointed at CLR0 so an all-zero sample
// array produces a steady low output, and the program forms a closed cycle
// back to CB0.
func (c *Channel) build(pacer Pacer) {
	fifoAddr := uint32(bcm2708.BusPWMFIFO)
	perMap := bcm2708.CBPerMapPWM
	if pacer == PacerPCM {
		fifoAddr = bcm2708.BusPCMFIFO
		perMap = bcm2708.CBPerMapPCM
	}
	n := c.numSamples
	for i := 0; i < n; i++ {
		sampleAddr := c.busAddr(i * 4)
		bcm2708.EncodeControlBlock(c.cbAt(2*i),
			bcm2708.CBNoWideBursts|bcm2708.CBWaitResp,
			sampleAddr, bcm2708.BusGPIOClr0, 4, 0, c.cbAddr(2*i+1))
		next := (i + 1) % n
		bcm2708.EncodeControlBlock(c.cbAt(2*i+1),
			bcm2708.CBNoWideBursts|bcm2708.CBWaitResp|bcm2708.CBDstDReq|perMap,
			c.busAddr(0), fifoAddr, 4, 0, c.cbAddr(2*next))
	}
}

// InitChannel allocates and brings online DMA engine index as a new PWM
// channel with the given subcycle length, per Component F and G.
func (e *Engine) InitChannel(index, subcycleUs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return Newf("init_channel", ChannelRange, "channel %d out of range", index)
	}
	if !e.pwmSetupDone {
		return Newf("init_channel", NotSetup, "call pwm Setup before init_channel")
	}
	if e.channels[index] != nil {
		return Newf("init_channel", ChannelAlreadyInit, "channel %d already initialized", index)
	}
	if subcycleUs < 3000 {
		return Newf("init_channel", SubcycleRange, "subcycle %dus below the 3000us minimum", subcycleUs)
	}
	numSamples := subcycleUs / e.tickUs
	if numSamples < 1 {
		return Newf("init_channel", SubcycleRange, "subcycle too short for a %dus tick", e.tickUs)
	}
	numCBs := 2 * numSamples
	arenaSize := numSamples*4 + numCBs*bcm2708.ControlBlockSize
	numPages := (arenaSize + pageSize - 1) / pageSize
	pages, err := pmem.AllocPages(numPages * pageSize)
	if err != nil {
		return Wrap("init_channel", Allocation, err)
	}
	ch := &Channel{
		index:      index,
		numSamples: numSamples,
		tickUs:     e.tickUs,
		arena:      pages,
		cbOffset:   numSamples * 4,
		gpios:      map[int]bool{},
	}
	ch.build(e.pacer)
	dmaCh := bcm2708.Channel(index)
	if dmaCh == nil {
		return Newf("init_channel", ChannelRange, "no DMA engine backing for channel %d", index)
	}
	dmaCh.Halt()
	dmaCh.Start(ch.cbAddr(0))
	e.channels[index] = ch
	return nil
}

// claimForPWM configures bcmLine as output, driven low, the first time the
// PWM engine touches it, per §4.H's "if gpio_setup bit is clear" preamble.
func (e *Engine) claimForPWM(ch *Channel, bcmLine int) error {
	if e.gpioSetup[bcmLine] {
		ch.gpios[bcmLine] = true
		return nil
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return err
	}
	pin := bcm2708.CPUPins(bcmLine)
	if pin == nil {
		return Newf("add_pulse", InvalidArg, "no CPU pin for BCM%d", bcmLine)
	}
	pin.SetLevel(gpio.Low)
	pin.SetFunction(false)
	e.gpioSetup[bcmLine] = true
	ch.gpios[bcmLine] = true
	return nil
}

// AddPulse mutates a running channel's sample array and CB destinations to
// add a single GPIO's pulse window, per Component H.
func (e *Engine) AddPulse(index, bcmLine, startTick, widthTicks int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return Newf("add_pulse", ChannelRange, "channel %d out of range", index)
	}
	ch := e.channels[index]
	if ch == nil {
		return Newf("add_pulse", ChannelNotInit, "channel %d not initialized", index)
	}
	if bcmLine < 0 || bcmLine >= 32 {
		return Newf("add_pulse", InvalidArg, "GPIO %d exceeds the 32-bit sample word", bcmLine)
	}
	end := startTick + widthTicks
	if startTick < 0 || end > ch.numSamples-1 {
		return Newf("add_pulse", WidthRange, "start %d width %d exceeds %d samples", startTick, widthTicks, ch.numSamples)
	}
	if err := e.claimForPWM(ch, bcmLine); err != nil {
		return err
	}
	mask := uint32(1) << uint(bcmLine)
	ch.setSampleWord(startTick, ch.sampleWord(startTick)|mask)
	bcm2708.SetControlBlockDest(ch.cbAt(2*startTick), bcm2708.BusGPIOSet0)
	for i := startTick + 1; i < end; i++ {
		ch.setSampleWord(i, ch.sampleWord(i)&^mask)
	}
	ch.setSampleWord(end, ch.sampleWord(end)|mask)
	// The falling edge's tick always becomes CLR0. If another pulse's rising
	// edge already set this tick to SET0, the last writer wins for that
	// undefined overlap (callers are told to keep pulses at least one tick
	// apart).
	bcm2708.SetControlBlockDest(ch.cbAt(2*end), bcm2708.BusGPIOClr0)
	return nil
}

// ClearChannel returns every CB destination to CLR0, waits one subcycle for
// the DMA engine to observe it, then zeros every sample.
func (e *Engine) ClearChannel(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return Newf("clear_channel", ChannelRange, "channel %d out of range", index)
	}
	ch := e.channels[index]
	if ch == nil {
		return Newf("clear_channel", ChannelNotInit, "channel %d not initialized", index)
	}
	for i := 0; i < ch.numSamples; i++ {
		bcm2708.SetControlBlockDest(ch.cbAt(2*i), bcm2708.BusGPIOClr0)
	}
	sleepSubcycle(ch)
	sb := ch.sampleBytes()
	for i := range sb {
		sb[i] = 0
	}
	ch.gpios = map[int]bool{}
	return nil
}

// ClearChannelGPIO masks bcmLine's bit out of every sample and drives the
// line low; other GPIOs' CB destinations are left untouched.
func (e *Engine) ClearChannelGPIO(index, bcmLine int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return Newf("clear_channel_gpio", ChannelRange, "channel %d out of range", index)
	}
	ch := e.channels[index]
	if ch == nil {
		return Newf("clear_channel_gpio", ChannelNotInit, "channel %d not initialized", index)
	}
	if !e.gpioSetup[bcmLine] {
		return Newf("clear_channel_gpio", GPIONotSetup, "BCM%d was never claimed by the PWM engine", bcmLine)
	}
	mask := uint32(1) << uint(bcmLine)
	for i := 0; i < ch.numSamples; i++ {
		ch.setSampleWord(i, ch.sampleWord(i)&^mask)
	}
	delete(ch.gpios, bcmLine)
	if pin := bcm2708.CPUPins(bcmLine); pin != nil {
		pin.SetLevel(gpio.Low)
	}
	return nil
}

// PrintChannel logs a structured diagnostic dump of a channel's bookkeeping
// (SUPPLEMENTED FEATURES), recovered from the original's struct channel
// fields.
func (e *Engine) PrintChannel(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return Newf("print_channel", ChannelRange, "channel %d out of range", index)
	}
	ch := e.channels[index]
	if ch == nil {
		return Newf("print_channel", ChannelNotInit, "channel %d not initialized", index)
	}
	gpios := make([]int, 0, len(ch.gpios))
	for g := range ch.gpios {
		gpios = append(gpios, g)
	}
	e.log.Infow("pwm channel",
		"channel", index,
		"subcycle_us", ch.numSamples*ch.tickUs,
		"num_samples", ch.numSamples,
		"num_pages", ch.arena.NumPages(),
		"gpios", gpios)
	return nil
}

// IsChannelInitialized reports whether index currently owns a live channel.
func (e *Engine) IsChannelInitialized(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return index >= 0 && index < len(e.channels) && e.channels[index] != nil
}

// GetChannelSubcycleTimeUs returns an initialized channel's actual subcycle
// length, which may differ slightly from the value passed to InitChannel
// due to integer tick rounding.
func (e *Engine) GetChannelSubcycleTimeUs(index int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) || e.channels[index] == nil {
		return 0, Newf("get_channel_subcycle_time_us", ChannelNotInit, "channel %d not initialized", index)
	}
	ch := e.channels[index]
	return ch.numSamples * ch.tickUs, nil
}
