package amf0

import "testing"

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		Number(2.0),
		Number(-1000.0),
		Bool(true),
		Bool(false),
		String("connect"),
		Null(),
		Undefined(),
	}

	for _, in := range cases {
		encoded := Encode(in)
		out, n, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode %v: %v", in, err)
		}
		if n != len(encoded) {
			t.Fatalf("decode consumed %d, want %d", n, len(encoded))
		}
		if out.Type != in.Type || out.Num != in.Num || out.Bool != in.Bool || out.Str != in.Str {
			t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
		}
	}
}

func TestRoundTripObject(t *testing.T) {
	obj := Object()
	obj.Set("app", String("live"))
	obj.Set("tcUrl", String("rtmp://host/app"))
	obj.Set("objectEncoding", Number(0))

	encoded := Encode(obj)
	out, n, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d of %d bytes", n, len(encoded))
	}
	if out.Get("app").Str != "live" {
		t.Fatalf("app = %q", out.Get("app").Str)
	}
	if out.Get("tcUrl").Str != "rtmp://host/app" {
		t.Fatalf("tcUrl = %q", out.Get("tcUrl").Str)
	}
	if out.Get("missing").Type != TypeUndefined {
		t.Fatalf("missing property should decode as undefined")
	}
}

func TestFindNested(t *testing.T) {
	inner := Object()
	inner.Set("duration", Number(42.5))

	outer := Object()
	outer.Set("metadata", inner)

	v, ok := Find(outer, "duration")
	if !ok {
		t.Fatal("expected to find nested duration")
	}
	if v.Num != 42.5 {
		t.Fatalf("duration = %v", v.Num)
	}

	if _, ok := Find(outer, "nonexistent"); ok {
		t.Fatal("did not expect to find nonexistent key")
	}
}

func TestDecodeTruncated(t *testing.T) {
	// A string marker promising 10 bytes but supplying none.
	buf := []byte{TypeString, 0x00, 0x0a}
	if _, _, err := Decode(buf); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
