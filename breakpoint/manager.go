package breakpoint

import (
	"context"
	"sync"

	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/registry"
	"github.com/PHTNCx64/vertex/verrors"
)

// Manager owns every breakpoint and watchpoint for one attached process:
// software INT3 patching through a plugin.MemoryReader, and hardware
// DR0-DR3 slot allocation applied to every live thread through a
// ThreadContext. One coarse mutex covers both halves (software and
// hardware state can be mutated from different debugger commands
// concurrently, e.g. a user setting a breakpoint while a watchpoint hit
// callback is re-enabling itself). Manager never calls ThreadContext
// while holding its own lock for longer than one apply pass, and never
// re-enters a Manager method from inside a ThreadContext call.
type Manager struct {
	mem   plugin.MemoryReader
	tc    ThreadContext
	cache ThreadHandleCache
	reg   *registry.Registry

	mu          sync.Mutex
	breakpoints map[uint32]*Breakpoint
	watchpoints map[uint32]*Watchpoint
	slotUsed    [registry.MaxHardwareBreakpointSlots]bool
	slotOwner   [registry.MaxHardwareBreakpointSlots]uint32 // breakpoint/watchpoint ID occupying the slot
	nextID      uint32
}

// NewManager creates a Manager for one attached process.
func NewManager(mem plugin.MemoryReader, tc ThreadContext, cache ThreadHandleCache, reg *registry.Registry) *Manager {
	return &Manager{
		mem:         mem,
		tc:          tc,
		cache:       cache,
		reg:         reg,
		breakpoints: make(map[uint32]*Breakpoint),
		watchpoints: make(map[uint32]*Watchpoint),
	}
}

func (m *Manager) allocSlot(owner uint32) (int, bool) {
	for i := 0; i < registry.MaxHardwareBreakpointSlots; i++ {
		if !m.slotUsed[i] {
			m.slotUsed[i] = true
			m.slotOwner[i] = owner
			return i, true
		}
	}
	return 0, false
}

func (m *Manager) freeSlot(i int) {
	m.slotUsed[i] = false
	m.slotOwner[i] = 0
}

// SetSoftwareBreakpoint patches the registry's breakpoint instruction over
// the original bytes at address.
func (m *Manager) SetSoftwareBreakpoint(ctx context.Context, address uint64) (uint32, error) {
	m.mu.Lock()
	for _, bp := range m.breakpoints {
		if bp.Address == address {
			m.mu.Unlock()
			return 0, verrors.New("breakpoint.SetSoftwareBreakpoint", verrors.AlreadyExists, "a breakpoint already exists at this address")
		}
	}
	m.mu.Unlock()

	instr := m.reg.BreakpointInstr
	original := make([]byte, len(instr))
	if err := m.mem.ReadMemory(ctx, address, original); err != nil {
		return 0, verrors.Wrap("breakpoint.SetSoftwareBreakpoint", verrors.IoFailed, err)
	}
	if err := m.mem.WriteMemory(ctx, address, instr); err != nil {
		return 0, verrors.Wrap("breakpoint.SetSoftwareBreakpoint", verrors.IoFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.breakpoints[id] = &Breakpoint{
		ID:            id,
		Address:       address,
		Kind:          plugin.Software,
		State:         Enabled,
		OriginalBytes: original,
	}
	return id, nil
}

// SetHardwareBreakpoint allocates a free DR slot for an execute
// breakpoint at address and applies it to every live thread.
func (m *Manager) SetHardwareBreakpoint(ctx context.Context, address uint64, size uint8) (uint32, error) {
	m.mu.Lock()
	slot, ok := m.allocSlot(0)
	if !ok {
		m.mu.Unlock()
		return 0, verrors.New("breakpoint.SetHardwareBreakpoint", verrors.LimitReached, "all hardware breakpoint slots are in use")
	}
	m.nextID++
	id := m.nextID
	m.slotOwner[slot] = id
	bp := &Breakpoint{ID: id, Address: address, Kind: plugin.Hardware, State: Enabled, RegisterIndex: slot}
	m.breakpoints[id] = bp
	m.mu.Unlock()

	if err := m.applyAllSlots(ctx); err != nil {
		m.mu.Lock()
		delete(m.breakpoints, id)
		m.freeSlot(slot)
		m.mu.Unlock()
		return 0, verrors.Wrap("breakpoint.SetHardwareBreakpoint", verrors.IoFailed, err)
	}
	return id, nil
}

// RemoveBreakpoint restores original bytes (software) or frees the DR
// slot (hardware) and forgets id.
func (m *Manager) RemoveBreakpoint(ctx context.Context, id uint32) error {
	m.mu.Lock()
	bp, ok := m.breakpoints[id]
	if !ok {
		m.mu.Unlock()
		return verrors.New("breakpoint.RemoveBreakpoint", verrors.NotFound, "no such breakpoint")
	}
	delete(m.breakpoints, id)
	if bp.Kind == plugin.Hardware {
		m.freeSlot(bp.RegisterIndex)
	}
	m.mu.Unlock()

	if bp.Kind == plugin.Software {
		if err := m.mem.WriteMemory(ctx, bp.Address, bp.OriginalBytes); err != nil {
			return verrors.Wrap("breakpoint.RemoveBreakpoint", verrors.IoFailed, err)
		}
		return nil
	}
	return m.applyAllSlots(ctx)
}

// EnableBreakpoint toggles a breakpoint without forgetting it: software
// breakpoints patch/restore their instruction bytes, hardware breakpoints
// toggle their DR7 local-enable bit across every thread.
func (m *Manager) EnableBreakpoint(ctx context.Context, id uint32, enabled bool) error {
	m.mu.Lock()
	bp, ok := m.breakpoints[id]
	if !ok {
		m.mu.Unlock()
		return verrors.New("breakpoint.EnableBreakpoint", verrors.NotFound, "no such breakpoint")
	}
	already := (bp.State == Enabled) == enabled
	newState := Disabled
	if enabled {
		newState = Enabled
	}
	bp.State = newState
	m.mu.Unlock()

	if already {
		return nil
	}
	if bp.Kind == plugin.Hardware {
		return m.applyAllSlots(ctx)
	}

	instr := m.reg.BreakpointInstr
	if enabled {
		return m.mem.WriteMemory(ctx, bp.Address, instr)
	}
	return m.mem.WriteMemory(ctx, bp.Address, bp.OriginalBytes)
}

// SetWatchpoint allocates a DR slot for spec and applies it to every live
// thread.
func (m *Manager) SetWatchpoint(ctx context.Context, spec plugin.WatchpointSpec) (uint32, error) {
	switch spec.Size {
	case 1, 2, 4, 8:
	default:
		return 0, verrors.New("breakpoint.SetWatchpoint", verrors.InvalidParameter, "watchpoint size must be 1, 2, 4, or 8 bytes")
	}
	if spec.Address&uint64(spec.Size-1) != 0 {
		return 0, verrors.New("breakpoint.SetWatchpoint", verrors.InvalidParameter, "watchpoint address is not aligned to its size")
	}

	m.mu.Lock()
	slot, ok := m.allocSlot(0)
	if !ok {
		m.mu.Unlock()
		return 0, verrors.New("breakpoint.SetWatchpoint", verrors.LimitReached, "all hardware breakpoint slots are in use")
	}
	m.nextID++
	id := m.nextID
	m.slotOwner[slot] = id
	wp := &Watchpoint{ID: id, Address: spec.Address, Size: spec.Size, Access: spec.Access, Enabled: true, RegisterIndex: slot}
	m.watchpoints[id] = wp
	m.mu.Unlock()

	if err := m.applyAllSlots(ctx); err != nil {
		m.mu.Lock()
		delete(m.watchpoints, id)
		m.freeSlot(slot)
		m.mu.Unlock()
		return 0, verrors.Wrap("breakpoint.SetWatchpoint", verrors.IoFailed, err)
	}
	return id, nil
}

// RemoveWatchpoint frees wp's DR slot and forgets it.
func (m *Manager) RemoveWatchpoint(ctx context.Context, id uint32) error {
	m.mu.Lock()
	wp, ok := m.watchpoints[id]
	if !ok {
		m.mu.Unlock()
		return verrors.New("breakpoint.RemoveWatchpoint", verrors.NotFound, "no such watchpoint")
	}
	delete(m.watchpoints, id)
	m.freeSlot(wp.RegisterIndex)
	m.mu.Unlock()
	return m.applyAllSlots(ctx)
}

// EnableWatchpoint toggles a watchpoint's persistent enabled flag.
func (m *Manager) EnableWatchpoint(ctx context.Context, id uint32, enabled bool) error {
	m.mu.Lock()
	wp, ok := m.watchpoints[id]
	if !ok {
		m.mu.Unlock()
		return verrors.New("breakpoint.EnableWatchpoint", verrors.NotFound, "no such watchpoint")
	}
	wp.Enabled = enabled
	m.mu.Unlock()
	return m.applyAllSlots(ctx)
}

// TemporarilyDisableWatchpoint masks id's DR7 local-enable bit without
// touching its condition/size fields or its persistent Enabled flag, used
// while a watchpoint's own hit callback runs so the debuggee doesn't
// immediately retrap on the instruction that services the hit.
func (m *Manager) TemporarilyDisableWatchpoint(ctx context.Context, id uint32) error {
	m.mu.Lock()
	wp, ok := m.watchpoints[id]
	if !ok {
		m.mu.Unlock()
		return verrors.New("breakpoint.TemporarilyDisableWatchpoint", verrors.NotFound, "no such watchpoint")
	}
	wp.TemporarilyDisabled = true
	m.mu.Unlock()
	return m.applyAllSlots(ctx)
}

// ReEnableWatchpoint clears the temporary mask set by
// TemporarilyDisableWatchpoint.
func (m *Manager) ReEnableWatchpoint(ctx context.Context, id uint32) error {
	m.mu.Lock()
	wp, ok := m.watchpoints[id]
	if !ok {
		m.mu.Unlock()
		return verrors.New("breakpoint.ReEnableWatchpoint", verrors.NotFound, "no such watchpoint")
	}
	wp.TemporarilyDisabled = false
	m.mu.Unlock()
	return m.applyAllSlots(ctx)
}

// LookupByAddress finds an enabled software breakpoint at address, for
// the debug loop's INT3 classification.
func (m *Manager) LookupByAddress(address uint64) (Breakpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bp := range m.breakpoints {
		if bp.Kind == plugin.Software && bp.Address == address && bp.State == Enabled {
			return *bp, true
		}
	}
	return Breakpoint{}, false
}

// RecordHit bumps id's hit count without changing its installed state,
// for the debug loop to call once per confirmed stop at id's address.
func (m *Manager) RecordHit(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bp, ok := m.breakpoints[id]; ok {
		bp.HitCount++
	}
}

// StepOverBreakpoint restores id's original byte without forgetting the
// breakpoint, so the debug loop can single-step the real instruction
// underneath it; the next single-step exception re-inserts it via
// ReinstateBreakpoint.
func (m *Manager) StepOverBreakpoint(ctx context.Context, id uint32) error {
	m.mu.Lock()
	bp, ok := m.breakpoints[id]
	m.mu.Unlock()
	if !ok || bp.Kind != plugin.Software {
		return verrors.New("breakpoint.StepOverBreakpoint", verrors.NotFound, "no such software breakpoint")
	}
	if err := m.mem.WriteMemory(ctx, bp.Address, bp.OriginalBytes); err != nil {
		return verrors.Wrap("breakpoint.StepOverBreakpoint", verrors.IoFailed, err)
	}
	return nil
}

// ReinstateBreakpoint re-patches id's breakpoint instruction after a
// StepOverBreakpoint, completing the single-step-over protocol.
func (m *Manager) ReinstateBreakpoint(ctx context.Context, id uint32) error {
	m.mu.Lock()
	bp, ok := m.breakpoints[id]
	m.mu.Unlock()
	if !ok || bp.Kind != plugin.Software {
		return verrors.New("breakpoint.ReinstateBreakpoint", verrors.NotFound, "no such software breakpoint")
	}
	if bp.State != Enabled {
		return nil
	}
	if err := m.mem.WriteMemory(ctx, bp.Address, m.reg.BreakpointInstr); err != nil {
		return verrors.Wrap("breakpoint.ReinstateBreakpoint", verrors.IoFailed, err)
	}
	return nil
}

// WatchpointBySlot finds the watchpoint occupying a DR slot, for the
// debug loop to correlate a DR6-identified slot index against.
func (m *Manager) WatchpointBySlot(slot int) (Watchpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, wp := range m.watchpoints {
		if wp.RegisterIndex == slot {
			return *wp, true
		}
	}
	return Watchpoint{}, false
}

// RecordWatchpointHit increments a watchpoint's hit count and records the
// faulting instruction's address.
func (m *Manager) RecordWatchpointHit(id uint32, accessorAddress uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wp, ok := m.watchpoints[id]; ok {
		wp.HitCount++
		wp.LastAccessorAddress = accessorAddress
	}
}

// IsHardwareHit reports whether address matches an enabled hardware
// breakpoint, bumping its hit count if so.
func (m *Manager) IsHardwareHit(address uint64) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, bp := range m.breakpoints {
		if bp.Kind == plugin.Hardware && bp.Address == address && bp.State == Enabled {
			bp.HitCount++
			return id, true
		}
	}
	return 0, false
}

// Breakpoints returns a snapshot of every known breakpoint.
func (m *Manager) Breakpoints() []Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Breakpoint, 0, len(m.breakpoints))
	for _, bp := range m.breakpoints {
		out = append(out, *bp)
	}
	return out
}

// Watchpoints returns a snapshot of every known watchpoint.
func (m *Manager) Watchpoints() []Watchpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Watchpoint, 0, len(m.watchpoints))
	for _, wp := range m.watchpoints {
		out = append(out, *wp)
	}
	return out
}

// applyAllSlots recomputes DR0-DR3/DR7 from the current breakpoint and
// watchpoint tables and writes them to every thread in the cache,
// suspending and resuming each in turn, since a hardware slot applies
// process-wide rather than to just the thread that hit an event.
func (m *Manager) applyAllSlots(ctx context.Context) error {
	m.mu.Lock()
	var regs DebugRegisters
	for _, bp := range m.breakpoints {
		if bp.Kind != plugin.Hardware || bp.State != Enabled {
			continue
		}
		regs.DR[bp.RegisterIndex] = bp.Address
		regs.DR7 = setDR7Fields(regs.DR7, bp.RegisterIndex, plugin.WatchExecute, 1)
	}
	for _, wp := range m.watchpoints {
		if !wp.Enabled {
			continue
		}
		regs.DR[wp.RegisterIndex] = wp.Address
		regs.DR7 = setDR7Fields(regs.DR7, wp.RegisterIndex, wp.Access, wp.Size)
		if wp.TemporarilyDisabled {
			regs.DR7 = disableDR7Slot(regs.DR7, wp.RegisterIndex)
		}
	}
	m.mu.Unlock()

	for _, tid := range m.cache.ThreadIDs() {
		if err := m.tc.Suspend(ctx, tid); err != nil {
			continue
		}
		err := m.tc.WriteDebugRegisters(ctx, tid, regs)
		m.tc.Resume(ctx, tid)
		if err != nil {
			return verrors.Wrap("breakpoint.applyAllSlots", verrors.IoFailed, err)
		}
	}
	return nil
}
