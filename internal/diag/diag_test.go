package diag

import (
	"bytes"
	"testing"

	"github.com/sodigy-lang/sodigy/internal/span"
)

func TestBusHasErrorsOnlyCountsErrors(t *testing.T) {
	b := NewBus()
	b.Warnf(KindUnmatchablePattern, span.None, "unused binding")
	if b.HasErrors() {
		t.Error("a warning alone must not count as an error")
	}
	b.Errorf(KindUndefinedName, span.None, "undefined name %q", "x")
	if !b.HasErrors() {
		t.Error("an Errorf call must be reflected in HasErrors")
	}
}

func TestBusSortedOrdersWarningsBeforeErrorsBySpan(t *testing.T) {
	b := NewBus()
	late := span.Range(1, 10, 11)
	early := span.Range(1, 0, 1)
	b.Errorf(KindTypeMismatch, late, "late error")
	b.Errorf(KindTypeMismatch, early, "early error")
	b.Warnf(KindUnmatchablePattern, late, "late warning")

	sorted := b.Sorted()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(sorted))
	}
	if sorted[0].Severity != SeverityWarning {
		t.Error("warnings must precede errors")
	}
	if sorted[1].Message != "early error" || sorted[2].Message != "late error" {
		t.Error("errors must be sorted by primary span")
	}
}

func TestPromoteLintToError(t *testing.T) {
	b := NewBus()
	b.Lintf(KindUnmatchablePattern, span.None, "lint")
	if b.HasErrors() {
		t.Error("a silent lint must not be an error by default")
	}
	b.Promote(KindUnmatchablePattern, SeverityError)
	if !b.HasErrors() {
		t.Error("#[deny]-promoted lint must count as an error")
	}
}

func TestMergeAggregatesAtJoinPoint(t *testing.T) {
	a, other := NewBus(), NewBus()
	other.Errorf(KindUndefinedName, span.None, "oops")
	a.Merge(other)
	if !a.HasErrors() {
		t.Error("Merge must carry errors from the other bus")
	}
}

func TestRenderAllWritesTitleAndMessage(t *testing.T) {
	b := NewBus()
	b.Errorf(KindUndefinedName, span.None, "undefined name %q", "y")
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil)
	r.RenderAll(b.Sorted())
	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("e-0001")) {
		t.Errorf("expected error code e-0001 in output, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("undefined name \"y\"")) {
		t.Errorf("expected message in output, got %q", out)
	}
}
