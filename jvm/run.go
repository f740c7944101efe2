/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jvm is the execution engine: a stack-machine interpreter that
// dispatches the integer bytecode subset over a parsed class. One frame
// is created per invocation; static calls recurse natively.
package jvm

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"javelin/classloader"
	"javelin/frames"
	"javelin/globals"
	"javelin/trace"
)

// The entry point every class must provide.
const (
	MainMethodName = "main"
	MainMethodDesc = "([Ljava/lang/String;)V"
)

var errDivideByZero = errors.New("division by zero")

// Interpreter runs methods of a single parsed class. The class is
// borrowed immutably; out receives the program's println output.
type Interpreter struct {
	class *classloader.ClassFile
	out   *bufio.Writer
	trace bool
}

// NewInterpreter creates an interpreter over a parsed class, writing
// program output to out.
func NewInterpreter(cl *classloader.ClassFile, out io.Writer) *Interpreter {
	return &Interpreter{
		class: cl,
		out:   bufio.NewWriter(out),
		trace: globals.GetGlobalRef().Options.TraceInst,
	}
}

// StartExec is where execution begins. It finds the main() method of the
// parsed class, builds its frame, and interprets until main returns.
// The operand stack is sized from each method's declared max_stack and
// accesses are not bounds-checked per instruction; a frame that lies
// about its limits surfaces here as an operand stack fault.
func StartExec(cl *classloader.ClassFile, out io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operand stack fault: %v", r)
		}
	}()

	mainMethod, err := cl.FetchMethod(MainMethodName, MainMethodDesc)
	if err != nil {
		return errors.New("class has no runnable main method: " + err.Error())
	}

	interp := NewInterpreter(cl, out)
	defer interp.out.Flush()

	// locals[0] would hold the String[] args reference; object references
	// are outside this VM's subset, so it stays zero.
	locals := make([]int32, mainMethod.MaxLocals)

	_, hasValue, err := interp.runMethod(mainMethod, locals)
	if err != nil {
		return err
	}
	if hasValue {
		return errors.New("main() should return void")
	}
	return nil
}

// runMethod executes one method invocation to completion. The caller
// prepares locals with parameter slots filled and the rest zero. The
// returned bool is false when the method returns void. Running off the
// end of the code returns void, matching well-formed fallthrough-free
// bytecode and permissive otherwise.
func (i *Interpreter) runMethod(m *classloader.Method, locals []int32) (int32, bool, error) {
	f := frames.CreateFrame(m.MaxStack, m.MaxLocals)
	f.MethName = m.Name
	f.Meth = m.Code
	copy(f.Locals, locals)

	for f.PC < len(f.Meth) {
		if i.trace {
			ev := trace.Logger.Trace().
				Str("meth", f.MethName).
				Int("pc", f.PC).
				Str("opcode", opcodeName(f.Meth[f.PC]))
			if f.TOS >= 0 {
				ev = ev.Int32("tos", f.OpStack[f.TOS])
			}
			ev.Msg("exec")
		}

		switch f.Meth[f.PC] { // cases listed in numerical order of opcode
		case ICONST_M1, ICONST_0, ICONST_1, ICONST_2, ICONST_3, ICONST_4, ICONST_5:
			push(f, int32(f.Meth[f.PC])-ICONST_0)
			f.PC += 1

		case BIPUSH: // push the following byte as a signed int
			push(f, int32(int8(f.Meth[f.PC+1])))
			f.PC += 2

		case SIPUSH: // push the next two bytes as a signed int
			push(f, int32(immediate16(f.Meth, f.PC)))
			f.PC += 3

		case LDC: // push constant from CP indexed by the next byte
			value, err := fetchIntConst(&i.class.CP, int(f.Meth[f.PC+1]))
			if err != nil {
				return 0, false, i.runtimeError(f, err.Error())
			}
			push(f, value)
			f.PC += 2

		case ILOAD: // push local variable indexed by the next byte
			push(f, f.Locals[f.Meth[f.PC+1]])
			f.PC += 2

		case ILOAD_0, ILOAD_1, ILOAD_2, ILOAD_3:
			push(f, f.Locals[f.Meth[f.PC]-ILOAD_0])
			f.PC += 1

		case ISTORE: // store popped top of stack into local indexed by the next byte
			f.Locals[f.Meth[f.PC+1]] = pop(f)
			f.PC += 2

		case ISTORE_0, ISTORE_1, ISTORE_2, ISTORE_3:
			f.Locals[f.Meth[f.PC]-ISTORE_0] = pop(f)
			f.PC += 1

		case IADD:
			op1 := pop(f)
			op2 := pop(f)
			push(f, op2+op1)
			f.PC += 1

		case ISUB:
			op1 := pop(f)
			op2 := pop(f)
			push(f, op2-op1)
			f.PC += 1

		case IMUL:
			op1 := pop(f)
			op2 := pop(f)
			push(f, op2*op1)
			f.PC += 1

		case IDIV:
			op1 := pop(f)
			op2 := pop(f)
			if op1 == 0 {
				return 0, false, i.runtimeError(f, errDivideByZero.Error())
			}
			push(f, op2/op1)
			f.PC += 1

		case IREM:
			op1 := pop(f)
			op2 := pop(f)
			if op1 == 0 {
				return 0, false, i.runtimeError(f, errDivideByZero.Error())
			}
			push(f, op2%op1)
			f.PC += 1

		case INEG:
			push(f, -pop(f))
			f.PC += 1

		case IINC: // increment local variable by a signed byte constant; no stack effect
			index := f.Meth[f.PC+1]
			delta := int32(int8(f.Meth[f.PC+2]))
			f.Locals[index] += delta
			f.PC += 3

		// The branch opcodes measure their signed 16-bit offset from the
		// address of the opcode itself: a taken branch lands the PC at
		// opcode address + offset.
		case IFEQ:
			if pop(f) == 0 {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IFNE:
			if pop(f) != 0 {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IFLT:
			if pop(f) < 0 {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IFGE:
			if pop(f) >= 0 {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IFGT:
			if pop(f) > 0 {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IFLE:
			if pop(f) <= 0 {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		// the binary comparisons pop b (the top) then a and test a OP b
		case IF_ICMPEQ:
			b := pop(f)
			a := pop(f)
			if a == b {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IF_ICMPNE:
			b := pop(f)
			a := pop(f)
			if a != b {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IF_ICMPLT:
			b := pop(f)
			a := pop(f)
			if a < b {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IF_ICMPGE:
			b := pop(f)
			a := pop(f)
			if a >= b {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IF_ICMPGT:
			b := pop(f)
			a := pop(f)
			if a > b {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case IF_ICMPLE:
			b := pop(f)
			a := pop(f)
			if a <= b {
				f.PC += int(immediate16(f.Meth, f.PC))
			} else {
				f.PC += 3
			}

		case GOTO: // branch always
			f.PC += int(immediate16(f.Meth, f.PC))

		case IRETURN: // return int from method
			return pop(f), true, nil

		case RETURN: // return void from method
			return 0, false, nil

		case GETSTATIC:
			// the referenced field is never used; the only field a program
			// in this subset touches is System.out, which invokevirtual
			// below stands in for
			f.PC += 3

		case INVOKEVIRTUAL:
			// stands in for System.out.println(int): prints the popped top
			// of stack; the called method identity is ignored
			fmt.Fprintf(i.out, "%d\n", pop(f))
			f.PC += 3

		case INVOKESTATIC:
			cpSlot := (int(f.Meth[f.PC+1]) * 256) + int(f.Meth[f.PC+2])
			name, desc, err := fetchMethodRefParts(&i.class.CP, cpSlot)
			if err != nil {
				return 0, false, i.runtimeError(f, err.Error())
			}
			callee, err := i.class.FetchMethod(name, desc)
			if err != nil {
				return 0, false, i.runtimeError(f, err.Error())
			}
			numParams, err := paramCount(desc)
			if err != nil {
				return 0, false, i.runtimeError(f, err.Error())
			}

			// parameters come off the stack in reverse order, one slot each
			calleeLocals := make([]int32, callee.MaxLocals)
			for k := numParams - 1; k >= 0; k-- {
				calleeLocals[k] = pop(f)
			}

			result, hasValue, err := i.runMethod(callee, calleeLocals)
			if err != nil {
				return 0, false, err
			}
			if hasValue {
				push(f, result)
			}
			f.PC += 3

		default:
			return 0, false, i.runtimeError(f,
				fmt.Sprintf("invalid bytecode found: %d", f.Meth[f.PC]))
		}
	}

	// ran off the end of the code without a return opcode
	return 0, false, nil
}

// runtimeError decorates an execution error with the frame position.
func (i *Interpreter) runtimeError(f *frames.Frame, msg string) error {
	errMsg := fmt.Sprintf("%s at location %d in method %s", msg, f.PC, f.MethName)
	trace.Error(errMsg)
	return errors.New(errMsg)
}

// immediate16 reads the signed 16-bit operand following the opcode at pc.
func immediate16(code []byte, pc int) int16 {
	return int16(uint16(code[pc+1])<<8 | uint16(code[pc+2]))
}

// push onto the operand stack
func push(f *frames.Frame, value int32) {
	f.TOS += 1
	f.OpStack[f.TOS] = value
}

// pop from the operand stack
func pop(f *frames.Frame) int32 {
	value := f.OpStack[f.TOS]
	f.TOS -= 1
	return value
}
