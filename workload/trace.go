package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/pagesim/mem/vm"
)

// OpKind tells if an operation reads or writes.
type OpKind int

// The kinds of trace operations.
const (
	OpWrite OpKind = iota
	OpRead
)

func (k OpKind) String() string {
	if k == OpRead {
		return "R"
	}

	return "W"
}

// An Op is one line of an access trace.
type Op struct {
	Line  int
	Kind  OpKind
	VAddr uint64

	// Value is the value to write, or the value a read must return when
	// Check is set.
	Value vm.Word
	Check bool
}

// ParseTrace reads an access trace. Each line is one of
//
//	W <addr> <value>
//	R <addr> [<expected>]
//
// Blank lines and lines starting with # are skipped. Numbers may be written
// in decimal or with a 0x, 0o or 0b prefix.
func ParseTrace(r io.Reader) ([]Op, error) {
	var ops []Op

	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, err := parseOp(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		op.Line = lineNum
		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	var op Op

	switch strings.ToUpper(fields[0]) {
	case "W":
		if len(fields) != 3 {
			return op, fmt.Errorf("write needs an address and a value")
		}

		op.Kind = OpWrite
	case "R":
		if len(fields) != 2 && len(fields) != 3 {
			return op, fmt.Errorf("read needs an address and an optional value")
		}

		op.Kind = OpRead
		op.Check = len(fields) == 3
	default:
		return op, fmt.Errorf("unknown operation %q", fields[0])
	}

	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return op, fmt.Errorf("bad address %q: %w", fields[1], err)
	}

	op.VAddr = addr

	if len(fields) == 3 {
		value, err := strconv.ParseInt(fields[2], 0, 64)
		if err != nil {
			return op, fmt.Errorf("bad value %q: %w", fields[2], err)
		}

		op.Value = vm.Word(value)
	}

	return op, nil
}

// ReplayResult summarizes a replayed trace.
type ReplayResult struct {
	Reads    int
	Writes   int
	Verified int

	// LastRead is the value returned by the last read.
	LastRead vm.Word
}

// Replay applies the operations in order. It stops at the first failing
// access or the first read that does not return its expected value.
func Replay(ops []Op, acc Accessor) (ReplayResult, error) {
	var res ReplayResult

	for _, op := range ops {
		switch op.Kind {
		case OpWrite:
			err := acc.Write(op.VAddr, op.Value)
			if err != nil {
				return res, fmt.Errorf("line %d: %w", op.Line, err)
			}

			res.Writes++
		case OpRead:
			value, err := acc.Read(op.VAddr)
			if err != nil {
				return res, fmt.Errorf("line %d: %w", op.Line, err)
			}

			res.Reads++
			res.LastRead = value

			if !op.Check {
				continue
			}

			if value != op.Value {
				return res, fmt.Errorf("line %d: %w", op.Line, &MismatchError{
					VAddr:    op.VAddr,
					Expected: op.Value,
					Actual:   value,
				})
			}

			res.Verified++
		}
	}

	return res, nil
}
