package breakpoint

import "github.com/PHTNCx64/vertex/plugin"

// DR7 bit layout constants: each of the four debug address registers
// (DR0-DR3) has a one-bit local enable at bit slot*2, a two-bit break
// condition at 16+slot*4, and a two-bit access size at 18+slot*4.
const (
	dr7LocalEnableShift = 0
	dr7ConditionShift   = 16
	dr7SizeShift        = 18
	dr7BitsPerRegister  = 4

	dr7ConditionExecute   = 0b00
	dr7ConditionWrite     = 0b01
	dr7ConditionReadWrite = 0b11

	dr7Size1 = 0b00
	dr7Size2 = 0b01
	dr7Size8 = 0b10
	dr7Size4 = 0b11
)

// conditionFor maps a WatchAccess (or a plain execute breakpoint) to its
// DR7 condition encoding. x86 has no read-only watch condition; WatchRead
// is encoded the same as WatchReadWrite, matching the original's
// get_dr7_condition fallthrough.
func conditionFor(access plugin.WatchAccess) uint8 {
	switch access {
	case plugin.WatchWrite:
		return dr7ConditionWrite
	case plugin.WatchRead, plugin.WatchReadWrite:
		return dr7ConditionReadWrite
	default:
		return dr7ConditionExecute
	}
}

// sizeEncodingFor maps an access width in bytes to its DR7 size encoding.
// Unsupported widths fall back to 1 byte, matching the original's default
// case rather than erroring - callers validate width before this point.
func sizeEncodingFor(size uint8) uint8 {
	switch size {
	case 1:
		return dr7Size1
	case 2:
		return dr7Size2
	case 4:
		return dr7Size4
	case 8:
		return dr7Size8
	default:
		return dr7Size1
	}
}

// setDR7Fields returns dr7 with slot's local-enable, condition, and size
// fields set, leaving every other slot's fields untouched. slot must be in
// [0,4).
func setDR7Fields(dr7 uint64, slot int, access plugin.WatchAccess, size uint8) uint64 {
	localEnable := uint64(1) << (dr7LocalEnableShift + slot*2)
	conditionShift := uint(dr7ConditionShift + slot*dr7BitsPerRegister)
	sizeShift := uint(dr7SizeShift + slot*dr7BitsPerRegister)

	condition := uint64(conditionFor(access))
	sizeBits := uint64(sizeEncodingFor(size))

	dr7 |= localEnable
	dr7 &^= uint64(0b11) << conditionShift
	dr7 |= condition << conditionShift
	dr7 &^= uint64(0b11) << sizeShift
	dr7 |= sizeBits << sizeShift
	return dr7
}

// clearDR7Slot clears slot's local-enable, condition, and size fields,
// leaving every other slot's fields untouched.
func clearDR7Slot(dr7 uint64, slot int) uint64 {
	localEnable := uint64(1) << (dr7LocalEnableShift + slot*2)
	conditionShift := uint(dr7ConditionShift + slot*dr7BitsPerRegister)
	sizeShift := uint(dr7SizeShift + slot*dr7BitsPerRegister)

	dr7 &^= localEnable
	dr7 &^= uint64(0b11) << conditionShift
	dr7 &^= uint64(0b11) << sizeShift
	return dr7
}

// disableDR7Slot clears only slot's local-enable bit, leaving its
// condition/size fields intact - used by temporarily-disable/re-enable so
// a watchpoint can be transiently masked during its own callback without
// losing its configured access/size.
func disableDR7Slot(dr7 uint64, slot int) uint64 {
	return dr7 &^ (uint64(1) << (dr7LocalEnableShift + slot*2))
}

func enableDR7Slot(dr7 uint64, slot int) uint64 {
	return dr7 | (uint64(1) << (dr7LocalEnableShift + slot*2))
}
