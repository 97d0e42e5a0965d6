package buffer

import (
	"bytes"
	"testing"
)

func assertTerminated(t *testing.T, b *Buffer) {
	t.Helper()
	if got := b.At(b.Len()); got != 0 {
		t.Fatalf("expected 0x00 terminator after %d bytes, got %#02x", b.Len(), got)
	}
	term := b.Terminated()
	if len(term) != b.Len()+1 || term[len(term)-1] != 0 {
		t.Fatalf("terminated view mismatch: %v", term)
	}
}

func TestAppendAndNegativeIndex(t *testing.T) {
	b := New()
	b.AppendString("hello").AppendByte(' ').Append([]byte("world"))
	if b.String() != "hello world" {
		t.Fatalf("unexpected content %q", b.String())
	}
	if b.At(-1) != 'd' || b.At(-5) != 'w' || b.At(0) != 'h' {
		t.Fatalf("negative index mismatch: %q %q %q", b.At(-1), b.At(-5), b.At(0))
	}
	assertTerminated(t, b)
}

func TestAppendRepeatNegativeTruncates(t *testing.T) {
	b := NewString("abcdef")
	b.AppendRepeat(' ', 3)
	if b.String() != "abcdef   " {
		t.Fatalf("unexpected padding %q", b.String())
	}
	b.AppendRepeat(0, -5)
	if b.String() != "abcd" {
		t.Fatalf("expected truncation to abcd, got %q", b.String())
	}
	assertTerminated(t, b)

	b.AppendRepeat(0, -100)
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer, got %q", b.String())
	}
	assertTerminated(t, b)
}

func TestRemoveFrontDoesNotReallocate(t *testing.T) {
	const n, k = 200, 73
	src := make([]byte, n)
	for i := range src {
		src[i] = byte(i + 1)
	}
	b := New()
	b.Append(src)
	before := &b.Bytes()[k]
	capBefore := b.Cap()

	b.RemoveFront(k)
	if b.Len() != n-k {
		t.Fatalf("expected len %d, got %d", n-k, b.Len())
	}
	if &b.Bytes()[0] != before {
		t.Fatalf("front removal moved memory")
	}
	if b.Cap() != capBefore {
		t.Fatalf("front removal changed capacity %d -> %d", capBefore, b.Cap())
	}
	if !bytes.Equal(b.Bytes(), src[k:]) {
		t.Fatalf("content after front removal mismatch")
	}
	assertTerminated(t, b)

	b.RemoveFront(10 * n)
	if b.Len() != 0 {
		t.Fatalf("expected clamp to empty, got len %d", b.Len())
	}
}

func TestGrowPreservesDataAfterConsumedPrefix(t *testing.T) {
	b := New()
	b.AppendString("0123456789")
	b.RemoveFront(4)
	for i := 0; i < 20; i++ {
		b.AppendString("abcdefghij")
	}
	if b.Len() != 206 {
		t.Fatalf("unexpected len %d", b.Len())
	}
	if string(b.Bytes()[:6]) != "456789" {
		t.Fatalf("prefix lost after grow: %q", b.Bytes()[:6])
	}
	if b.Cap() < b.Len() {
		t.Fatalf("capacity %d below length %d", b.Cap(), b.Len())
	}
	assertTerminated(t, b)
}

func TestCapacityNeverShrinks(t *testing.T) {
	b := New()
	b.AppendRepeat('x', 500)
	capBefore := b.Cap()
	b.Clear()
	b.AppendString("y")
	b.Truncate(0)
	if b.Cap() < capBefore {
		t.Fatalf("capacity shrank %d -> %d", capBefore, b.Cap())
	}
}

func TestReplaceInsertRemove(t *testing.T) {
	b := NewString("hello world")
	b.Replace(0, 5, []byte("HOWDY"))
	if b.String() != "HOWDY world" {
		t.Fatalf("replace same length: %q", b.String())
	}
	b.Replace(-5, 5, []byte("there, friend"))
	if b.String() != "HOWDY there, friend" {
		t.Fatalf("replace longer: %q", b.String())
	}
	b.Insert(5, []byte(","))
	if b.String() != "HOWDY, there, friend" {
		t.Fatalf("insert: %q", b.String())
	}
	b.Remove(6, 7)
	if b.String() != "HOWDY, friend" {
		t.Fatalf("remove: %q", b.String())
	}
	b.Remove(-8, 100)
	if b.String() != "HOWDY" {
		t.Fatalf("remove clamps to end: %q", b.String())
	}
	assertTerminated(t, b)
}

func TestReplaceWithAliasedInput(t *testing.T) {
	b := NewString("abcdef")
	b.Insert(0, b.Bytes()[3:])
	if b.String() != "defabcdef" {
		t.Fatalf("aliased insert: %q", b.String())
	}
}

func TestReplaceGrowsPastInlineRegion(t *testing.T) {
	b := NewString("head|tail")
	big := bytes.Repeat([]byte{'z'}, 300)
	b.Replace(4, 1, big)
	if b.Len() != 8+300 {
		t.Fatalf("unexpected len %d", b.Len())
	}
	if b.String()[:4] != "head" || b.String()[304:] != "tail" {
		t.Fatalf("content mismatch around insert")
	}
	assertTerminated(t, b)
}

func TestFind(t *testing.T) {
	b := NewString("a=1;b=22;c=333")
	if i := b.Find([]byte("b="), 0); i != 4 {
		t.Fatalf("find b=: got %d", i)
	}
	if i := b.FindByte(';', 4); i != 8 {
		t.Fatalf("find ; from 4: got %d", i)
	}
	if i := b.FindByte('=', -4); i != 10 {
		t.Fatalf("find = from end: got %d", i)
	}
	if i := b.Find([]byte("zz"), 0); i != -1 {
		t.Fatalf("expected not found, got %d", i)
	}
	b.RemoveFront(4)
	if i := b.FindByte('=', 0); i != 1 {
		t.Fatalf("find after front removal: got %d", i)
	}
}

func TestReserveAndClear(t *testing.T) {
	b := New()
	b.AppendString("xy")
	p := b.Reserve(4)
	copy(p, "1234")
	if b.String() != "xy1234" {
		t.Fatalf("reserve: %q", b.String())
	}
	b.Clear()
	if !b.Empty() {
		t.Fatalf("expected empty after clear")
	}
	assertTerminated(t, b)
	b.Printf("%03d|%s", 7, "ok")
	if b.String() != "007|ok" {
		t.Fatalf("printf after clear: %q", b.String())
	}
}

func TestZeroValueIsUsable(t *testing.T) {
	var b Buffer
	if b.Len() != 0 || len(b.Bytes()) != 0 {
		t.Fatalf("zero value not empty")
	}
	b.AppendByte('k')
	if b.String() != "k" {
		t.Fatalf("zero value append: %q", b.String())
	}
	assertTerminated(t, &b)
}

func TestExpand(t *testing.T) {
	b := NewBytes([]byte{0x02, 'o', 'k', '\r', '\n'})
	if got := b.Expand(0, -1); got != "<02>ok<0d><0a>" {
		t.Fatalf("unexpected expand: %q", got)
	}
	if got := b.Expand(-2, 2); got != "<0d><0a>" {
		t.Fatalf("unexpected tail expand: %q", got)
	}
}
