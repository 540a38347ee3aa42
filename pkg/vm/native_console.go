package vm

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/momodeve/mslvm/pkg/bigint"
	"github.com/momodeve/mslvm/pkg/object"
)

func (vm *VM) consoleWrite(s string) {
	if vm.Config.Output == nil {
		return
	}
	io.WriteString(vm.Config.Output, s)
}

func (vm *VM) nativeConsole(methodName string, args []object.Value) (object.Value, bool) {
	switch methodName {
	case "Print_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		vm.consoleWrite(vm.renderText(args[0]))
		return object.Null(), true

	case "PrintLine_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		vm.consoleWrite(vm.renderText(args[0]) + "\n")
		return object.Null(), true

	case "PrintLine_0":
		vm.consoleWrite("\n")
		return object.Null(), true

	case "Read_0":
		return vm.consoleReadRune()

	case "ReadLine_0":
		line, err := vm.consoleReader().ReadString('\n')
		if err != nil && line == "" {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return vm.newString(strings.TrimRight(line, "\r\n"))

	case "ReadInt_0":
		line, err := vm.consoleReader().ReadString('\n')
		if err != nil && line == "" {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		n, perr := bigint.Parse(strings.TrimSpace(line))
		if perr != nil {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return vm.newInt(n)

	case "ReadFloat_0":
		line, err := vm.consoleReader().ReadString('\n')
		if err != nil && line == "" {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if perr != nil {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return vm.newFloat(f)

	case "ReadBool_0":
		line, err := vm.consoleReader().ReadString('\n')
		if err != nil && line == "" {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return object.BoolValue(strings.TrimSpace(line) == "true"), true

	default:
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
}

// consoleReader lazily wraps Config.Input so repeated Read*_0 calls share
// buffering state (a fresh bufio.Reader per call would drop look-ahead
// bytes across calls).
func (vm *VM) consoleReader() *bufio.Reader {
	if vm.consoleIn == nil {
		in := vm.Config.Input
		if in == nil {
			in = strings.NewReader("")
		}
		vm.consoleIn = bufio.NewReader(in)
	}
	return vm.consoleIn
}

func (vm *VM) consoleReadRune() (object.Value, bool) {
	r, _, err := vm.consoleReader().ReadRune()
	if err != nil {
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	return vm.newString(string(r))
}
