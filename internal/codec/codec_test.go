package codec

import (
	"bytes"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 255, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, v := range cases {
		w := NewWriter(0)
		w.Varint(v)
		r := NewReader(w.Finish())
		got, err := r.Varint()
		if err != nil {
			t.Fatalf("Varint(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("Varint(%d) round trip = %d", v, got)
		}
		if r.Remaining() != 0 {
			t.Fatalf("Varint(%d): %d bytes left over", v, r.Remaining())
		}
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	w := NewWriter(0)
	w.Varint(42)
	w.Varint(7)
	r := NewReader(w.Finish())

	peeked, err := r.Peek()
	if err != nil || peeked != 42 {
		t.Fatalf("Peek() = %d, %v, want 42, nil", peeked, err)
	}
	first, _ := r.Varint()
	if first != 42 {
		t.Fatalf("Varint() after Peek() = %d, want 42", first)
	}
	second, _ := r.Varint()
	if second != 7 {
		t.Fatalf("second Varint() = %d, want 7", second)
	}
}

func TestKeyAndBytes(t *testing.T) {
	w := NewWriter(0)
	key := bytes.Repeat([]byte{0xAB}, 32)
	w.Key(key)
	w.Bytes([]byte("hello"))

	r := NewReader(w.Finish())
	gotKey, err := r.Key(32)
	if err != nil || !bytes.Equal(gotKey, key) {
		t.Fatalf("Key() = %x, %v", gotKey, err)
	}
	gotBlob, err := r.Bytes()
	if err != nil || string(gotBlob) != "hello" {
		t.Fatalf("Bytes() = %q, %v", gotBlob, err)
	}
}

func TestKeyVector(t *testing.T) {
	keys := [][]byte{
		bytes.Repeat([]byte{1}, 32),
		bytes.Repeat([]byte{2}, 32),
		bytes.Repeat([]byte{3}, 32),
	}
	w := NewWriter(0)
	w.KeyVector(keys)

	r := NewReader(w.Finish())
	got, err := r.KeyVector(32)
	if err != nil {
		t.Fatalf("KeyVector(): %v", err)
	}
	if len(got) != len(keys) {
		t.Fatalf("KeyVector() len = %d, want %d", len(got), len(keys))
	}
	for i := range keys {
		if !bytes.Equal(got[i], keys[i]) {
			t.Fatalf("KeyVector()[%d] = %x, want %x", i, got[i], keys[i])
		}
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{0x80})
	if _, err := r.Varint(); err != ErrTruncated {
		t.Fatalf("Varint() on truncated continuation = %v, want ErrTruncated", err)
	}

	r = NewReader([]byte{1, 2})
	if _, err := r.Key(5); err != ErrTruncated {
		t.Fatalf("Key(5) on 2-byte buffer = %v, want ErrTruncated", err)
	}
}
