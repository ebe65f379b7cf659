// Package codegen lowers the three-address IR of pkg/ir into RGBDS-dialect
// Game Boy assembly text, per spec.md §4.5. Its shape — a generator struct
// that owns the program plus a resolution table and produces output
// line-by-line through a switch on instruction kind — is grounded on the
// teacher's pkg/hack.CodeGenerator (itself translating a closed instruction
// family to its target's text/binary form one instruction at a time).
package codegen

import (
	"fmt"

	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/ir"
	"github.com/penguin-lang/penguinc/pkg/sm83"
)

// Generator translates one ir.Program into assembly text. No register
// allocation is attempted beyond the trivial register-to-WRAM mapping
// spec.md §4.5 prescribes: A/B/C/D/E/H/L are scratch for a single
// instruction's lifetime only, never live across IR instructions.
type Generator struct {
	prog *ir.Program
	sink *diag.Sink

	// scratchBase is the first WRAM address not claimed by any source-level
	// symbol (sema.Info.NextWRAM); every procedure's virtual registers and
	// the shared return slot are carved out of this region. Each procedure
	// gets its own range (see assignRegisters), so a caller's registers keep
	// their values across a call.
	scratchBase uint16
	returnSlot  uint16

	regAddr map[ir.Reg]uint16 // reset per procedure by assignRegisters

	// paramAddrs maps every user procedure's label to its fixed WRAM
	// argument slots, so a Call site can deposit its argument registers
	// before `call`ing (spec.md §4.5's "no stack-based calling convention").
	paramAddrs map[string][]uint16

	// labelCounter makes every helper-internal branch label (compare, shift)
	// unique across the whole program, the same way lowering's newLabel
	// keeps IR block labels unique across a procedure.
	labelCounter int
}

// New returns a Generator for prog, whose virtual registers are mapped into
// WRAM starting at scratchBase (the analyzer's Info.NextWRAM).
func New(prog *ir.Program, scratchBase uint16, sink *diag.Sink) *Generator {
	return &Generator{
		prog:        prog,
		sink:        sink,
		scratchBase: scratchBase,
		returnSlot:  scratchBase,
	}
}

// Generate produces the complete assembly source text for the program.
func (g *Generator) Generate() string {
	g.paramAddrs = make(map[string][]uint16, len(g.prog.Procedures))
	for _, proc := range g.prog.Procedures {
		addrs := make([]uint16, len(proc.ParamAddrs))
		for i, a := range proc.ParamAddrs {
			addrs[i] = uint16(a)
		}
		g.paramAddrs[proc.Name] = addrs
	}

	e := sm83.NewEmitter()
	g.emitHeader(e)
	g.emitStartupStub(e)
	g.emitRuntimeHelpers(e)
	for _, proc := range g.prog.Procedures {
		g.emitProcedure(e, proc)
	}
	g.emitAssets(e)
	return e.String()
}

func (g *Generator) emitHeader(e *sm83.Emitter) {
	e.Section("Header", fmt.Sprintf("ROM0[$%04X]", sm83.EntryPoint))
	e.Inst("jp __startup")
	// Reserved header bytes (Nintendo logo, title, cartridge/ROM/RAM size,
	// checksum): left zeroed, finalized by the downstream rgbfix pass.
	e.Raw("\tds $150 - @, 0")
	e.Blank()
}

func (g *Generator) emitStartupStub(e *sm83.Emitter) {
	e.Section("Startup", "ROM0")
	e.Label("__startup")
	e.Inst("di")
	e.Inst("ld sp, $DFFF")

	e.Comment("zero every WRAM cell used by variables and virtual registers")
	e.Inst("ld hl, $%04X", sm83.WRAMStart)
	e.Inst("ld bc, $%04X", uint16(sm83.WRAMEnd-sm83.WRAMStart)+1)
	e.Label("__startup_zero_loop")
	e.Inst("xor a, a")
	e.Inst("ld [hl+], a")
	e.Inst("dec bc")
	e.Inst("ld a, b")
	e.Inst("or a, c")
	e.Inst("jp nz, __startup_zero_loop")

	e.Comment("LCD off while copying assets from ROM to VRAM")
	e.Inst("xor a, a")
	e.Inst("ld [$%04X], a", sm83.LCDC)
	for _, asset := range g.prog.Assets {
		e.Inst("ld de, %s", asset.Label)
		e.Inst("ld hl, %s", assetDestLabel(asset))
		e.Inst("ld bc, %s_End - %s", asset.Label, asset.Label)
		e.Inst("call PenguinMemCopy")
	}

	e.Inst("call __entry")
	e.Label("__startup_halt")
	e.Inst("halt")
	e.Inst("jp __startup_halt")
	e.Blank()
}

// assetDestLabel returns the fixed VRAM destination address an asset is
// copied to at startup: $9800 (the background tile map) for tilemaps and
// $8000 (tile data) for every other asset. The addresses are not
// configurable.
func assetDestLabel(a ir.AssetBinding) string {
	if a.Kind == "tilemap" {
		return "$9800"
	}
	return "$8000"
}

func (g *Generator) emitRuntimeHelpers(e *sm83.Emitter) {
	e.Section("RuntimeHelpers", "ROM0")

	e.Label("PenguinMemCopy")
	e.Comment("de = src, hl = dst, bc = length")
	e.Label("PenguinMemCopy_loop")
	e.Inst("ld a, [de]")
	e.Inst("ld [hl+], a")
	e.Inst("inc de")
	e.Inst("dec bc")
	e.Inst("ld a, b")
	e.Inst("or a, c")
	e.Inst("jp nz, PenguinMemCopy_loop")
	e.Inst("ret")
	e.Blank()

	e.Label("PenguinPush")
	e.Comment("pushes hl below the return address (clobbers de); paired 1:1 with PenguinPop on every path (spec.md §4.5)")
	e.Inst("pop de")
	e.Inst("push hl")
	e.Inst("push de")
	e.Inst("ret")
	e.Blank()

	e.Label("PenguinPop")
	e.Inst("pop de")
	e.Inst("pop hl")
	e.Inst("push de")
	e.Inst("ret")
	e.Blank()

	e.Label("__mul_u16")
	e.Comment("hl = bc * de, shift-and-add; the SM83 has no hardware multiply")
	e.Inst("ld hl, 0")
	e.Label("__mul_u16_loop")
	e.Inst("ld a, d")
	e.Inst("or a, e")
	e.Inst("jp z, __mul_u16_done")
	e.Inst("bit 0, e")
	e.Inst("jp z, __mul_u16_skip")
	e.Inst("add hl, bc")
	e.Label("__mul_u16_skip")
	e.Inst("sla c")
	e.Inst("rl b")
	e.Inst("srl d")
	e.Inst("rr e")
	e.Inst("jp __mul_u16_loop")
	e.Label("__mul_u16_done")
	e.Inst("ret")
	e.Blank()

	e.Label("waitVBlank")
	e.Label("waitVBlank_loop")
	e.Inst("ld a, [rLY]")
	e.Inst("cp a, 144")
	e.Inst("jp c, waitVBlank_loop")
	e.Inst("ret")
	e.Blank()

	e.Label("LCDon")
	e.Inst("ld a, [$%04X]", sm83.LCDC)
	e.Inst("set 7, a")
	e.Inst("ld [$%04X], a", sm83.LCDC)
	e.Inst("ret")
	e.Blank()

	e.Label("LCDoff")
	e.Inst("ld a, [$%04X]", sm83.LCDC)
	e.Inst("res 7, a")
	e.Inst("ld [$%04X], a", sm83.LCDC)
	e.Inst("ret")
	e.Blank()

	e.Label("updateInput")
	e.Comment("polls JOYP twice (d-pad select line, then buttons) and mirrors into WRAM")
	e.Inst("ld a, $20")
	e.Inst("ld [$%04X], a", sm83.JOYP)
	e.Inst("ld a, [$%04X]", sm83.JOYP)
	e.Inst("ld a, [$%04X]", sm83.JOYP)
	e.Inst("cpl")
	e.Inst("and a, $0F")
	e.Inst("ld [$%04X], a", uint16(sm83.WRAMStart)) // Right/Left/Up/Down mirror base
	e.Inst("ld a, $10")
	e.Inst("ld [$%04X], a", sm83.JOYP)
	e.Inst("ld a, [$%04X]", sm83.JOYP)
	e.Inst("ld a, [$%04X]", sm83.JOYP)
	e.Inst("cpl")
	e.Inst("and a, $0F")
	e.Inst("ld [$%04X], a", uint16(sm83.WRAMStart)+4) // A/B/Start/Select mirror base
	e.Inst("ld a, $30")
	e.Inst("ld [$%04X], a", sm83.JOYP)
	e.Inst("ret")
	e.Blank()
}

func (g *Generator) emitProcedure(e *sm83.Emitter, proc ir.Procedure) {
	g.assignRegisters(proc)

	e.Section(proc.Name, "ROM0")
	e.Label(proc.Name)
	for _, inst := range proc.Body {
		g.emitInstruction(e, inst)
	}
}

// assignRegisters maps every virtual register the procedure uses to a WRAM
// cell, sequentially starting after the registers of the procedures that
// precede it in the program (the first one starts at scratchBase+2;
// scratchBase itself is the shared return slot). Ranges of different
// procedures never overlap; a procedure that calls itself shares its own
// range across the nested calls.
func (g *Generator) assignRegisters(proc ir.Procedure) {
	g.regAddr = make(map[ir.Reg]uint16, proc.NumTemps)
	addr := g.scratchBase + 2
	for _, p := range g.prog.Procedures {
		if p.Name == proc.Name {
			break
		}
		addr += uint16(2 * p.NumTemps)
	}
	for i := 0; i < proc.NumTemps; i++ {
		g.regAddr[ir.Reg(i)] = addr
		addr += 2
	}
}

func (g *Generator) addrOf(r ir.Reg) uint16 {
	if a, ok := g.regAddr[r]; ok {
		return a
	}
	g.sink.Errorf(diag.ICE, diag.Span{}, "codegen: virtual register %d has no assigned address", r)
	return g.scratchBase
}

func (g *Generator) emitInstruction(e *sm83.Emitter, inst ir.Instruction) {
	switch inst.Op {
	case ir.OpConst:
		e.Inst("ld a, %d", inst.Imm)
		e.Inst("ld [$%04X], a", g.addrOf(inst.Dst))
		e.Inst("ld a, %d", inst.Imm>>8)
		e.Inst("ld [$%04X], a", g.addrOf(inst.Dst)+1)

	case ir.OpLoad:
		g.emitCopy16(e, uint16(inst.Addr), g.addrOf(inst.Dst))

	case ir.OpStore:
		g.emitCopy16(e, g.addrOf(inst.Src), uint16(inst.Addr))

	case ir.OpMove:
		g.emitCopy16(e, g.addrOf(inst.Src), g.addrOf(inst.Dst))

	case ir.OpBinOp:
		g.emitBinOp(e, inst)

	case ir.OpUnOp:
		g.emitUnOp(e, inst)

	case ir.OpLoadIndirect:
		g.emitLoadIndirect(e, inst)

	case ir.OpStoreIndirect:
		g.emitStoreIndirect(e, inst)

	case ir.OpCall:
		g.emitCall(e, inst)

	case ir.OpReturn:
		if inst.HasSrc {
			g.emitCopy16(e, g.addrOf(inst.Src), g.returnSlot)
		}
		e.Inst("ret")

	case ir.OpBranchIfZero:
		e.Inst("ld a, [$%04X]", g.addrOf(inst.Cond))
		e.Inst("ld b, a")
		e.Inst("ld a, [$%04X]", g.addrOf(inst.Cond)+1)
		e.Inst("or a, b")
		e.Inst("jp z, %s", inst.Target)

	case ir.OpJump:
		e.Inst("jp %s", inst.Target)

	case ir.OpLabel:
		e.Label(inst.Target)

	default:
		g.sink.Errorf(diag.ICE, diag.Span{}, "codegen: unhandled IR op %d", inst.Op)
	}
}

// emitCopy16 copies a 16-bit value between two absolute WRAM addresses via A.
func (g *Generator) emitCopy16(e *sm83.Emitter, src, dst uint16) {
	e.Inst("ld a, [$%04X]", src)
	e.Inst("ld [$%04X], a", dst)
	e.Inst("ld a, [$%04X]", src+1)
	e.Inst("ld [$%04X], a", dst+1)
}

// pairBytes returns the low/high 8-bit register names making up a 16-bit
// register pair.
func pairBytes(reg string) (lo, hi string) {
	switch reg {
	case "bc":
		return "c", "b"
	case "de":
		return "e", "d"
	default:
		return "l", "h"
	}
}

// loadPair loads the 16-bit value at the absolute WRAM address addr into
// reg ("hl", "bc" or "de"), byte by byte through A. The SM83 has no 16-bit
// load between a register pair and an absolute address — only `ld a,[n16]`.
func (g *Generator) loadPair(e *sm83.Emitter, reg string, addr uint16) {
	lo, hi := pairBytes(reg)
	e.Inst("ld a, [$%04X]", addr)
	e.Inst("ld %s, a", lo)
	e.Inst("ld a, [$%04X]", addr+1)
	e.Inst("ld %s, a", hi)
}

// storePair stores reg ("hl", "bc" or "de") to the absolute WRAM address
// addr, byte by byte through A.
func (g *Generator) storePair(e *sm83.Emitter, reg string, addr uint16) {
	lo, hi := pairBytes(reg)
	e.Inst("ld a, %s", lo)
	e.Inst("ld [$%04X], a", addr)
	e.Inst("ld a, %s", hi)
	e.Inst("ld [$%04X], a", addr+1)
}

// newLocalLabel returns a process-unique label built from prefix, so two
// emissions of the same helper (e.g. two comparisons in one procedure) never
// collide.
func (g *Generator) newLocalLabel(prefix string) string {
	g.labelCounter++
	return fmt.Sprintf("%s_%d", prefix, g.labelCounter)
}

// emit16bitSub computes hl -= bc on the 8-bit ALU (low-byte sub, high-byte
// sbc); the SM83 has no 16-bit subtract instruction (only `add hl, rr`).
func (g *Generator) emit16bitSub(e *sm83.Emitter) {
	e.Inst("ld a, l")
	e.Inst("sub a, c")
	e.Inst("ld l, a")
	e.Inst("ld a, h")
	e.Inst("sbc a, b")
	e.Inst("ld h, a")
}

func (g *Generator) emitBinOp(e *sm83.Emitter, inst ir.Instruction) {
	lhs, rhs, dst := g.addrOf(inst.Lhs), g.addrOf(inst.Rhs), g.addrOf(inst.Dst)
	g.loadPair(e, "hl", lhs)
	g.loadPair(e, "bc", rhs)

	switch inst.BinKind {
	case ir.Add:
		e.Inst("add hl, bc")
	case ir.Sub:
		g.emit16bitSub(e)
	case ir.BitAnd:
		g.emit8bitBitwise(e, "and")
	case ir.BitOr:
		g.emit8bitBitwise(e, "or")
	case ir.BitXor:
		g.emit8bitBitwise(e, "xor")
	case ir.Shl:
		g.emitShift(e, "sla l", "rl h")
	case ir.Shr:
		g.emitShift(e, "srl h", "rr l")
	case ir.Lt, ir.Gt, ir.Le, ir.Ge, ir.Eq, ir.Neq:
		g.emitCompare(e, inst.BinKind)
	case ir.Mul:
		g.sink.Errorf(diag.ICE, diag.Span{}, "codegen: multiplication must lower through __mul_u16, never as a raw BinOp")
	}
	g.storePair(e, "hl", dst)
}

// emit8bitBitwise applies a bitwise op to hl and bc one byte at a time
// (low byte, then high byte) since and/or/xor operate only on the 8-bit A
// register; the result in hl is the full 16-bit value.
func (g *Generator) emit8bitBitwise(e *sm83.Emitter, mnemonic string) {
	e.Inst("ld a, l")
	e.Inst("%s a, c", mnemonic)
	e.Inst("ld l, a")
	e.Inst("ld a, h")
	e.Inst("%s a, b", mnemonic)
	e.Inst("ld h, a")
}

// emitShift shifts hl by one bit per iteration with the instruction pair
// first, second: the byte the bits leave first is shifted, and the carry
// flows into the other byte.
func (g *Generator) emitShift(e *sm83.Emitter, first, second string) {
	checkLabel := g.newLocalLabel("__shift_amt_check")
	doneLabel := g.newLocalLabel("__shift_done")

	e.Comment("shift amount in bc's low byte, value in hl")
	e.Label(checkLabel)
	e.Inst("ld a, c")
	e.Inst("or a, a")
	e.Inst("jp z, %s", doneLabel)
	e.Inst("%s", first)
	e.Inst("%s", second)
	e.Inst("dec c")
	e.Inst("jp %s", checkLabel)
	e.Label(doneLabel)
}

func (g *Generator) emitCompare(e *sm83.Emitter, kind ir.BinOpKind) {
	falseLabel := g.newLocalLabel("__cmp_false")
	maybeEqualLabel := g.newLocalLabel("__cmp_maybe_equal")
	endLabel := g.newLocalLabel("__cmp_end")

	e.Comment("16-bit compare via subtraction; result normalized to 0/1 in hl")
	g.emit16bitSub(e)
	switch kind {
	case ir.Eq:
		e.Inst("ld a, h")
		e.Inst("or a, l")
		e.Inst("jp nz, %s", falseLabel)
	case ir.Neq:
		e.Inst("ld a, h")
		e.Inst("or a, l")
		e.Inst("jp z, %s", falseLabel)
	case ir.Lt:
		e.Inst("jp nc, %s", falseLabel)
	case ir.Ge:
		e.Inst("jp c, %s", falseLabel)
	case ir.Gt:
		// lhs > rhs: no borrow and a nonzero difference.
		e.Inst("jp c, %s", falseLabel)
		e.Inst("ld a, h")
		e.Inst("or a, l")
		e.Inst("jp z, %s", falseLabel)
	case ir.Le:
		// lhs <= rhs: a borrow, or a zero difference.
		e.Inst("jp c, %s", maybeEqualLabel)
		e.Inst("ld a, h")
		e.Inst("or a, l")
		e.Inst("jp nz, %s", falseLabel)
	}
	e.Inst("ld hl, 1")
	e.Inst("jp %s", endLabel)
	e.Label(maybeEqualLabel)
	if kind == ir.Gt {
		e.Inst("ld hl, 0")
		e.Inst("jp %s", endLabel)
	} else {
		e.Inst("ld hl, 1")
		e.Inst("jp %s", endLabel)
	}
	e.Label(falseLabel)
	e.Inst("ld hl, 0")
	e.Label(endLabel)
}

func (g *Generator) emitUnOp(e *sm83.Emitter, inst ir.Instruction) {
	src, dst := g.addrOf(inst.Src), g.addrOf(inst.Dst)
	g.loadPair(e, "hl", src)
	switch inst.UnKind {
	case ir.Neg:
		e.Inst("xor a, a")
		e.Inst("sub a, l")
		e.Inst("ld l, a")
		e.Inst("ld a, 0")
		e.Inst("sbc a, h")
		e.Inst("ld h, a")
	case ir.BitNot:
		e.Inst("ld a, l")
		e.Inst("cpl")
		e.Inst("ld l, a")
		e.Inst("ld a, h")
		e.Inst("cpl")
		e.Inst("ld h, a")
	}
	g.storePair(e, "hl", dst)
}

// emitLoadIndirect and emitStoreIndirect share the same address computation
// (base + index*stride); stride is always a power of two (2 for list
// elements, 4 for OAM slots) so scaling is a left shift, not a __mul_u16 call.
// List elements are 16-bit cells; OAM fields are single bytes, so an OAM
// access moves one byte (a load zero-extends it).
func (g *Generator) emitLoadIndirect(e *sm83.Emitter, inst ir.Instruction) {
	g.emitIndirectAddress(e, inst.Base, inst.Index, inst.Stride)
	e.Inst("ld a, [hl]")
	e.Inst("ld [$%04X], a", g.addrOf(inst.Dst))
	if inst.Stride == sm83.OAMSlotSize {
		e.Inst("xor a, a")
	} else {
		e.Inst("inc hl")
		e.Inst("ld a, [hl]")
	}
	e.Inst("ld [$%04X], a", g.addrOf(inst.Dst)+1)
}

func (g *Generator) emitStoreIndirect(e *sm83.Emitter, inst ir.Instruction) {
	g.emitIndirectAddress(e, inst.Base, inst.Index, inst.Stride)
	e.Inst("ld a, [$%04X]", g.addrOf(inst.Src))
	e.Inst("ld [hl], a")
	if inst.Stride == sm83.OAMSlotSize {
		return
	}
	e.Inst("inc hl")
	e.Inst("ld a, [$%04X]", g.addrOf(inst.Src)+1)
	e.Inst("ld [hl], a")
}

func (g *Generator) emitIndirectAddress(e *sm83.Emitter, base, index ir.Reg, stride int) {
	g.loadPair(e, "hl", g.addrOf(index))
	shift := 1
	if stride == 4 {
		shift = 2
	}
	for i := 0; i < shift; i++ {
		e.Inst("add hl, hl")
	}
	g.loadPair(e, "bc", g.addrOf(base))
	e.Inst("add hl, bc")
}

func (g *Generator) emitCall(e *sm83.Emitter, inst ir.Instruction) {
	// control.* builtin procedures and __mul_u16 take their arguments by
	// convention (none, or bc/de scratch loaded by the caller inline);
	// user procedures go through the fixed-WRAM-slot calling convention (no
	// stack-passed arguments, spec.md §4.5).
	if inst.Target == "__mul_u16" {
		g.loadPair(e, "bc", g.addrOf(inst.Args[0]))
		g.loadPair(e, "de", g.addrOf(inst.Args[1]))
		e.Inst("call __mul_u16")
		g.storePair(e, "hl", g.returnSlot)
		g.emitCopy16(e, g.returnSlot, g.addrOf(inst.Dst))
		return
	}

	if addrs, ok := g.paramAddrs[inst.Target]; ok {
		for i, arg := range inst.Args {
			if i < len(addrs) {
				g.emitCopy16(e, g.addrOf(arg), addrs[i])
			}
		}
	}
	e.Inst("call %s", inst.Target)
	if inst.HasDst {
		g.emitCopy16(e, g.returnSlot, g.addrOf(inst.Dst))
	}
}

func (g *Generator) emitAssets(e *sm83.Emitter) {
	if len(g.prog.Assets) == 0 {
		return
	}
	e.Section("Assets", "ROMX")
	for _, a := range g.prog.Assets {
		e.Label(a.Label)
		e.Raw(fmt.Sprintf("\tINCBIN \"%s\"", a.Path))
		e.Label(a.Label + "_End")
	}
}
