package main

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func newFramer(input string) *Framer {
	return NewFramer(bufio.NewReader(strings.NewReader(input)))
}

func TestFramerParsesGet(t *testing.T) {
	f := newFramer("get mykey\r\n")
	cmd, err := f.ReadCommand()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Kind != CmdGet || cmd.Key != "mykey" {
		t.Errorf("got %+v, want Get{mykey}", cmd)
	}
}

func TestFramerParsesSetAcrossTwoLines(t *testing.T) {
	f := newFramer("set mykey 0 5\r\nhello\r\n")
	cmd, err := f.ReadCommand()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Kind != CmdSet || cmd.Key != "mykey" || string(cmd.Data) != "hello" {
		t.Errorf("got %+v, want Set{mykey, hello}", cmd)
	}
}

func TestFramerRejectsBadDataSize(t *testing.T) {
	f := newFramer("set mykey 0 3\r\nhello\r\n")
	_, err := f.ReadCommand()
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("got err=%v, want ErrInvalidData", err)
	}
}

func TestFramerRejectsUnknownVerb(t *testing.T) {
	f := newFramer("frobnicate mykey\r\n")
	_, err := f.ReadCommand()
	if !errors.Is(err, ErrInvalidInstruction) {
		t.Errorf("got err=%v, want ErrInvalidInstruction", err)
	}
}

func TestFramerReportsConnClosed(t *testing.T) {
	f := newFramer("")
	_, err := f.ReadCommand()
	if !errors.Is(err, ErrConnClosedByClient) {
		t.Errorf("got err=%v, want ErrConnClosedByClient", err)
	}
}

func TestFramerHandlesMultipleCommandsInSequence(t *testing.T) {
	f := newFramer("set a 0 1\r\nx\r\nget a\r\n")

	first, err := f.ReadCommand()
	if err != nil {
		t.Fatalf("unexpected error on first command: %v", err)
	}
	if first.Kind != CmdSet {
		t.Fatalf("expected first command to be Set, got %v", first.Kind)
	}

	second, err := f.ReadCommand()
	if err != nil {
		t.Fatalf("unexpected error on second command: %v", err)
	}
	if second.Kind != CmdGet || second.Key != "a" {
		t.Errorf("got %+v, want Get{a}", second)
	}
}
