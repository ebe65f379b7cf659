package sm83_test

import (
	"strings"
	"testing"

	"github.com/penguin-lang/penguinc/pkg/sm83"
)

func TestEmitterProducesIndentedInstructionLines(t *testing.T) {
	e := sm83.NewEmitter()
	e.Section("main", "ROM0[$100]")
	e.Label("entry")
	e.Inst("ld %s, %d", sm83.HL, 0xC000)
	e.Inst("jp entry")

	out := e.String()
	if !strings.Contains(out, "SECTION \"main\", ROM0[$100]") {
		t.Fatalf("missing section header, got: %s", out)
	}
	if !strings.Contains(out, "entry:") {
		t.Fatalf("missing label, got: %s", out)
	}
	if !strings.Contains(out, "\tld hl, 49152") {
		t.Fatalf("expected indented instruction line, got: %s", out)
	}
}

func TestMemoryMapBoundsAreOrdered(t *testing.T) {
	if sm83.WRAMStart >= sm83.WRAMEnd {
		t.Fatal("WRAM range must be non-empty")
	}
	if sm83.OAMSlotCount*sm83.OAMSlotSize != int(sm83.OAMEnd-sm83.OAMStart)+1 {
		t.Fatalf("OAM slot table must exactly cover $FE00-$FE9F, got %d slots * %d bytes", sm83.OAMSlotCount, sm83.OAMSlotSize)
	}
}
