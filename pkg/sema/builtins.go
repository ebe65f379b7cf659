package sema

// BuiltinDescriptor fixes the target-level semantics of one member of the
// compiler-reserved display/input/control namespace: the hardware address
// or register it reads/writes, and (for OAM fields) the per-slot byte
// offset the code generator adds to the slot base address.
type BuiltinDescriptor struct {
	// Namespace is the root the member hangs off: "display", "input" or
	// "control".
	Namespace string
	// Member is the dotted path under the namespace, e.g. "tileset0",
	// "oam" (indexed), "Right".
	Member string
	// Addr is the fixed I/O or memory address this member reads/writes,
	// when it denotes a single location (e.g. input.Right's joypad-mirror
	// WRAM cell). Zero when not applicable (e.g. procedures).
	Addr uint16
	// OAMFieldOffset is the byte offset within a 4-byte OAM slot record for
	// display.oam[i].<field>; -1 when the member is not an OAM field.
	// Offsets: y=+0, x=+1, tile=+2, attr=+3.
	OAMFieldOffset int
	// IsProcedure marks control.* members that are procedure calls (Unit
	// return) rather than readable/assignable values.
	IsProcedure bool
}

const (
	oamBase      uint16 = 0xFE00
	joypadReg    uint16 = 0xFF00
	inputMirror  uint16 = 0xC000 // base WRAM cell for the 8 mirrored buttons; updateInput keeps these live
	lcdcReg      uint16 = 0xFF40
)

// Builtins returns the fixed set of Symbol bindings pre-populating the root
// scope: display, input and control are compiler-reserved roots (spec.md
// §9). They are bound here as BuiltinSymbol entries whose dotted members
// sema resolves via LookupMember. Declaring one of these names in the root
// scope is reported as a redeclaration; a declaration inside a procedure or
// block is not checked against them and shadows the root there.
func Builtins() map[string]Symbol {
	return map[string]Symbol{
		"display": {Name: "display", Kind: BuiltinSymbol, Type: Unit, Storage: Storage{Builtin: &BuiltinDescriptor{Namespace: "display", OAMFieldOffset: -1}}},
		"input":   {Name: "input", Kind: BuiltinSymbol, Type: Unit, Storage: Storage{Builtin: &BuiltinDescriptor{Namespace: "input", OAMFieldOffset: -1}}},
		"control": {Name: "control", Kind: BuiltinSymbol, Type: Unit, Storage: Storage{Builtin: &BuiltinDescriptor{Namespace: "control", OAMFieldOffset: -1}}},
	}
}

var inputButtons = map[string]uint16{
	"Right": inputMirror + 0, "Left": inputMirror + 1, "Up": inputMirror + 2, "Down": inputMirror + 3,
	"A": inputMirror + 4, "B": inputMirror + 5, "Start": inputMirror + 6, "Select": inputMirror + 7,
}

var controlProcedures = map[string]bool{
	"LCDon": true, "LCDoff": true, "waitVBlank": true, "updateInput": true,
}

var oamFieldOffsets = map[string]int{"y": 0, "x": 1, "tile": 2, "attr": 3}

// LookupMember resolves a dotted path rooted at one of display/input/control
// (e.g. "input.Right", "display.tileset0", "control.LCDon",
// "display.oam.x" for the field name alone after list-index stripping) to
// its BuiltinDescriptor and Type. ok is false for any path not in the fixed
// namespace.
func LookupMember(path string) (BuiltinDescriptor, Type, bool) {
	switch {
	case path == "display.tileset0":
		return BuiltinDescriptor{Namespace: "display", Member: "tileset0", OAMFieldOffset: -1}, Tileset, true
	case path == "display.tilemap0":
		return BuiltinDescriptor{Namespace: "display", Member: "tilemap0", OAMFieldOffset: -1}, Tilemap, true
	case path == "display.oam":
		return BuiltinDescriptor{Namespace: "display", Member: "oam", Addr: oamBase, OAMFieldOffset: -1}, List(Int), true
	}
	if field, ok := oamFieldOffsets[lastSegment(path)]; ok && firstTwoSegments(path) == "display.oam" {
		typ := Int
		if field == 2 { // tile
			typ = Sprite
		}
		return BuiltinDescriptor{Namespace: "display", Member: "oam", Addr: oamBase, OAMFieldOffset: field}, typ, true
	}
	if addr, ok := inputButtons[lastSegment(path)]; ok && firstSegment(path) == "input" {
		return BuiltinDescriptor{Namespace: "input", Member: lastSegment(path), Addr: addr, OAMFieldOffset: -1}, Int, true
	}
	if firstSegment(path) == "control" && controlProcedures[lastSegment(path)] {
		return BuiltinDescriptor{Namespace: "control", Member: lastSegment(path), OAMFieldOffset: -1, IsProcedure: true}, Unit, true
	}
	return BuiltinDescriptor{}, Type{}, false
}

func firstSegment(path string) string {
	for i, c := range path {
		if c == '.' {
			return path[:i]
		}
	}
	return path
}

func firstTwoSegments(path string) string {
	first := true
	for i, c := range path {
		if c == '.' {
			if first {
				first = false
				continue
			}
			return path[:i]
		}
	}
	return path
}

func lastSegment(path string) string {
	last := 0
	for i, c := range path {
		if c == '.' {
			last = i + 1
		}
	}
	return path[last:]
}
