package main

import (
	"bufio"
	"strconv"
	"strings"
)

// Framer turns a byte stream into a sequence of Commands. Bytes read past
// the current command stay buffered in r for the next ReadCommand call; a
// parsed storage-command header is held in pending while ReadCommand waits
// for its data line.
type Framer struct {
	r       *bufio.Reader
	pending *pendingCommand
}

// NewFramer wraps r for command framing.
func NewFramer(r *bufio.Reader) *Framer {
	return &Framer{r: r}
}

// ReadCommand blocks until a full Command has been parsed, or an error
// occurs. ErrConnClosedByClient signals EOF, including EOF in the middle of
// a line or while a storage command's data line is still awaited;
// ErrInvalidInstruction/ErrInvalidData are protocol violations the caller
// should report back to the client before continuing to serve the
// connection.
func (f *Framer) ReadCommand() (Command, error) {
	for {
		line, err := f.readLine()
		if err != nil {
			return Command{}, err
		}

		if f.pending != nil {
			header := f.pending.header
			f.pending = nil

			if uint64(len(line)) != header.DataSize {
				return Command{}, ErrInvalidData
			}
			return completeCommand(header, []byte(line)), nil
		}

		cmd, pending, err := parseHeaderLine(line)
		if err != nil {
			return Command{}, err
		}
		if pending != nil {
			f.pending = pending
			continue
		}
		return cmd, nil
	}
}

// readLine reads a single LF-terminated line, stripping the LF and a CR
// directly before it, so both CRLF and bare LF end a line.
// An EOF with no bytes read yields ErrConnClosedByClient; an EOF with a
// partial line is treated the same, since a half-sent line can never be
// completed by this connection again.
func (f *Framer) readLine() (string, error) {
	raw, err := f.r.ReadString('\n')
	if err != nil {
		if len(raw) == 0 {
			return "", ErrConnClosedByClient
		}
		return "", ErrConnClosedByClient
	}
	line := strings.TrimSuffix(raw, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func parseHeaderLine(line string) (Command, *pendingCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil, ErrInvalidInstruction
	}

	verb := strings.ToLower(fields[0])

	if verb == "get" {
		if len(fields) != 2 {
			return Command{}, nil, ErrInvalidInstruction
		}
		return Command{Kind: CmdGet, Key: fields[1]}, nil, nil
	}

	kind, ok := storageKind(verb)
	if !ok {
		return Command{}, nil, ErrInvalidInstruction
	}

	if len(fields) != 4 {
		return Command{}, nil, ErrInvalidInstruction
	}

	key := fields[1]
	expirySecs, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Command{}, nil, ErrInvalidInstruction
	}
	dataSize, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Command{}, nil, ErrInvalidInstruction
	}

	header := Command{
		Kind:       kind,
		Key:        key,
		ExpirySecs: expirySecs,
		DataSize:   dataSize,
	}
	return Command{}, &pendingCommand{header: header}, nil
}

func storageKind(verb string) (CommandKind, bool) {
	switch verb {
	case "set":
		return CmdSet, true
	case "add":
		return CmdAdd, true
	case "replace":
		return CmdReplace, true
	case "append":
		return CmdAppend, true
	case "prepend":
		return CmdPrepend, true
	default:
		return 0, false
	}
}
