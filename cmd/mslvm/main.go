// Command mslvm runs a compiled MSL assembly (spec §6 wire format). It
// contains no lexer, parser, or compiler — spec.md places those pipeline
// stages out of scope, so this driver only streams already-serialized
// bytecode into the loader and the VM.
package main

import (
	"fmt"
	"os"

	"github.com/momodeve/mslvm/pkg/bytecode"
	"github.com/momodeve/mslvm/pkg/config"
	"github.com/momodeve/mslvm/pkg/loader"
	"github.com/momodeve/mslvm/pkg/object"
	"github.com/momodeve/mslvm/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("mslvm version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no assembly file specified")
			printUsage()
			os.Exit(1)
		}
		runFiles(os.Args[2:])
	case "disassemble", "disasm":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no assembly file specified")
			printUsage()
			os.Exit(1)
		}
		disassembleFile(os.Args[2])
	default:
		runFiles(os.Args[1:])
	}
}

func printUsage() {
	fmt.Println("mslvm - MSL bytecode virtual machine")
	fmt.Println("\nUsage:")
	fmt.Println("  mslvm <file.mslb> [file2.mslb ...]   Load and run one or more assembly streams")
	fmt.Println("  mslvm run <file.mslb> [...]          Same as above")
	fmt.Println("  mslvm disassemble <file.mslb>        Print a human-readable instruction dump")
	fmt.Println("  mslvm version                        Show version")
	fmt.Println("  mslvm help                            Show this help")
}

// runFiles streams every named assembly file into one loader (spec §4.E
// merge semantics: namespaces must not collide across files, the entry
// point must be unique across the whole set), then runs the resulting
// entry-point method to completion.
func runFiles(filenames []string) {
	cfg := config.Default()
	machine := vm.New(cfg)
	ld := loader.New()
	asm := object.NewAssembly()

	for _, name := range filenames {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			os.Exit(1)
		}
		err = ld.Load(f, asm)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	machine.SetAssembly(asm)

	if err := machine.RunEntryPoint(ld.EntryPoint); err != nil {
		fmt.Fprintf(cfg.Errors, "%v\n", err)
		os.Exit(1)
	}

	code, err := machine.ExitCode()
	if err != nil {
		fmt.Fprintf(cfg.Errors, "%v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// disassembleFile prints every method body loaded from filename as a flat
// opcode-and-operand listing, naming opcodes via Opcode.String (see
// SPEC_FULL.md "SUPPLEMENTED FEATURES").
func disassembleFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", filename, err)
		os.Exit(1)
	}
	defer f.Close()

	ld := loader.New()
	asm := object.NewAssembly()
	if err := ld.Load(f, asm); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", filename, err)
		os.Exit(1)
	}

	fmt.Printf("=== Assembly Disassembly: %s ===\n\n", filename)
	for nsName, ns := range asm.Namespaces {
		fmt.Printf("namespace %s\n", nsName)
		for className, class := range ns.Classes {
			fmt.Printf("  class %s (modifiers=%08b)\n", className, class.Modifiers)
			for methodName, method := range class.Methods {
				entry := ""
				if method == ld.EntryPoint {
					entry = " [entry point]"
				}
				fmt.Printf("    method %s%s\n", methodName, entry)
				disassembleBody(method)
			}
		}
	}
}

func disassembleBody(method *object.MethodType) {
	body := method.Body
	ip := 0
	for ip < len(body) {
		op := bytecode.Opcode(body[ip])
		fmt.Printf("      %4d: %s", ip, op)
		ip++

		if op == bytecode.CALL_FUNCTION {
			if ip+9 <= len(body) {
				ordinal := readOperandU64(body, ip)
				arity := body[ip+8]
				name := "?"
				if int(ordinal) < len(method.Dependencies) {
					name = method.Dependencies[ordinal]
				}
				fmt.Printf(" %s/%d", name, arity)
				ip += 9
			}
			fmt.Println()
			continue
		}

		width := op.OperandWidth()
		if width > 0 && ip+width <= len(body) {
			switch width {
			case 8:
				ordinal := readOperandU64(body, ip)
				if int(ordinal) < len(method.Dependencies) {
					fmt.Printf(" %q", method.Dependencies[ordinal])
				} else {
					fmt.Printf(" #%d", ordinal)
				}
			case 2:
				fmt.Printf(" label=%d", int(body[ip])|int(body[ip+1])<<8)
			}
			ip += width
		}
		fmt.Println()
	}
}

func readOperandU64(body []byte, ip int) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(body[ip+i]) << (8 * i)
	}
	return v
}
