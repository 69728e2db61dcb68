package borrow

import (
	"testing"
	"time"
)

func TestContext_PathTraversal(t *testing.T) {
	c := NewContext(time.Second)
	c.SetPath(Path{Elements: []PathElement{
		{Type: "a", Target: "https://example.com/start"},
		{Type: "b"},
		{Type: "c"},
	}})

	if got := c.RemainingElements(); got != 3 {
		t.Fatalf("%d remaining elements, want 3", got)
	}

	elem, ok := c.NextElement()
	if !ok || elem.Type != "a" {
		t.Fatalf("next element %+v %v, want a", elem, ok)
	}
	if got := c.CurrentURI(); got != "https://example.com/start" {
		t.Fatalf("current URI %q, target was not adopted", got)
	}
	if got := c.RemainingElements(); got != 2 {
		t.Fatalf("%d remaining elements after one hop, want 2", got)
	}

	if peek, ok := c.PeekElement(); !ok || peek.Type != "b" {
		t.Fatalf("peek %+v %v, want b", peek, ok)
	}
	if got := c.RemainingElements(); got != 2 {
		t.Fatal("peek consumed an element")
	}

	c.NextElement()
	c.NextElement()
	if got := c.RemainingElements(); got != 0 {
		t.Fatalf("%d remaining elements at the end, want 0", got)
	}
	if _, ok := c.NextElement(); ok {
		t.Fatal("NextElement returned an element past the end")
	}
}
