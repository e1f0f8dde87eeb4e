package channels

import "testing"

func TestCountItemsArray(t *testing.T) {
	n := countItems([]byte(`[{"a":1},{"a":2},{"a":3}]`))
	if n != 3 {
		t.Fatalf("expected 3 items, got %d", n)
	}
}

func TestCountItemsObject(t *testing.T) {
	n := countItems([]byte(`{"items":[{},{}],"cursor":"x"}`))
	if n != 2 {
		t.Fatalf("expected 2 items, got %d", n)
	}
}

func TestCountItemsUnparseable(t *testing.T) {
	if n := countItems([]byte(`not json`)); n != 0 {
		t.Fatalf("expected 0 items, got %d", n)
	}
}
