package ws

import (
	"errors"
	"testing"
)

func TestWSConnBackpressure(t *testing.T) {
	c := newWSConn(nil, 2)

	if err := c.TrySend([]byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.TrySend([]byte("b")); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if err := c.TrySend([]byte("c")); !errors.Is(err, ErrBackpressure) {
		t.Fatalf("got %v, want ErrBackpressure", err)
	}

	// Drain one slot and the sink accepts again.
	<-c.send
	if err := c.TrySend([]byte("d")); err != nil {
		t.Fatalf("send after drain: %v", err)
	}
}
