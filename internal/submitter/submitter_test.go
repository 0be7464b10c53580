package submitter

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/heyu-project/heyud/internal/protocol"
	"github.com/heyu-project/heyud/internal/transport"
)

func acceptAndReply(t *testing.T, ln net.Listener, reply *protocol.Message) {
	t.Helper()
	raw, err := ln.Accept()
	if err != nil {
		t.Errorf("Accept: %v", err)
		return
	}
	conn := transport.NewConn(1, raw)
	defer conn.Close()

	if _, err := conn.ReadFrame(); err != nil {
		t.Errorf("read notify: %v", err)
		return
	}
	frame, err := reply.Encode(protocol.CurrentVersion)
	if err != nil {
		t.Errorf("Encode: %v", err)
		return
	}
	if err := conn.WriteFrame(frame); err != nil {
		t.Errorf("WriteFrame: %v", err)
	}
}

func TestSubmitReturnsAcceptedID(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go acceptAndReply(t, ln, protocol.NewAccepted("the-id"))

	manager := transport.NewManager(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := Submit(ctx, manager, "tcp", ln.Addr().String(), protocol.NewNotify("app", "s", "b"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ID != "the-id" {
		t.Errorf("ID = %q, want %q", result.ID, "the-id")
	}
}

func TestSubmitReturnsErrorReason(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go acceptAndReply(t, ln, protocol.NewError("rejected"))

	manager := transport.NewManager(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := Submit(ctx, manager, "tcp", ln.Addr().String(), protocol.NewNotify("app", "s", "b"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ErrorReason != "rejected" {
		t.Errorf("ErrorReason = %q, want %q", result.ErrorReason, "rejected")
	}
}
