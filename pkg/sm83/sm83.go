// Package sm83 fixes the target machine's memory map and the small set of
// assembly-text building blocks the code generator composes into RGBDS
// source. It carries no instruction-decoding logic (this compiler never
// reads Game Boy binaries) — only the address constants and mnemonic
// snippets spec.md §2 and §4.5 name, grounded the way the teacher's
// pkg/hack package fixes the Hack platform's own well-known addresses
// (hack.BuiltInTable) and register/jump encodings.
package sm83

// Memory map, spec.md §2. Every region boundary a compiled program may
// touch is named here.
const (
	ROM0Start uint16 = 0x0000
	ROM0End   uint16 = 0x7FFF

	VRAMStart uint16 = 0x8000
	VRAMEnd   uint16 = 0x9FFF

	WRAMStart uint16 = 0xC000
	WRAMEnd   uint16 = 0xDFFF

	OAMStart uint16 = 0xFE00
	OAMEnd   uint16 = 0xFE9F

	IOStart uint16 = 0xFF00
	IOEnd   uint16 = 0xFF7F

	// EntryPoint is where the boot ROM hands off execution (RGBDS fixes
	// the cartridge header at $100-$14F immediately afterward).
	EntryPoint uint16 = 0x0100

	// LCDC is the LCD control register control.LCDon/LCDoff toggle bit 7 of.
	LCDC uint16 = 0xFF40
	// JOYP is the joypad input register control.updateInput polls.
	JOYP uint16 = 0xFF00
)

// OAM slot layout, spec.md §2: 40 fixed-size object attribute records.
const (
	OAMSlotCount = 40
	OAMSlotSize  = 4 // bytes per slot

	OAMFieldY    = 0
	OAMFieldX    = 1
	OAMFieldTile = 2
	OAMFieldAttr = 3
)

// Reg16 names the CPU's 16-bit register pairs used as indirect-addressing
// vehicles.
type Reg16 string

const (
	HL Reg16 = "hl"
	BC Reg16 = "bc"
	DE Reg16 = "de"
	SP Reg16 = "sp"
)

// Reg8 names the 8-bit registers that byte-at-a-time sequences move
// 16-bit values through.
type Reg8 string

const (
	A Reg8 = "a"
	B Reg8 = "b"
	C Reg8 = "c"
	D Reg8 = "d"
	E Reg8 = "e"
	H Reg8 = "h"
	L Reg8 = "l"
)
