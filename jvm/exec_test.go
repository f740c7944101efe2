/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

// End-to-end scenarios: each test assembles a complete class image the
// way javac would lay it out, runs it through the parser and the
// engine, and checks what the program printed.

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"javelin/classloader"
)

// classBuilder assembles a class-file image. Constant-pool indexes are
// assigned in call order, starting at 1.
type classBuilder struct {
	cp        [][]byte
	methods   [][]byte
	codeIndex int // CP index of the "Code" UTF8, created on first use
}

func (b *classBuilder) addEntry(entry []byte) int {
	b.cp = append(b.cp, entry)
	return len(b.cp)
}

func (b *classBuilder) utf8(s string) int {
	entry := append([]byte{1, byte(len(s) >> 8), byte(len(s))}, s...)
	return b.addEntry(entry)
}

func (b *classBuilder) integer(v int32) int {
	u := uint32(v)
	return b.addEntry([]byte{3, byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)})
}

// methodRef builds the full chain a Methodref drags along: the name and
// descriptor UTF8s, their NameAndType, and the owning class.
func (b *classBuilder) methodRef(name, desc string) int {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)
	nat := b.addEntry([]byte{12, byte(nameIdx >> 8), byte(nameIdx), byte(descIdx >> 8), byte(descIdx)})
	clsName := b.utf8("Scenario")
	cls := b.addEntry([]byte{7, byte(clsName >> 8), byte(clsName)})
	return b.addEntry([]byte{10, byte(cls >> 8), byte(cls), byte(nat >> 8), byte(nat)})
}

func (b *classBuilder) method(name, desc string, maxStack, maxLocals int, code []byte) {
	if b.codeIndex == 0 {
		b.codeIndex = b.utf8("Code")
	}
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)

	attrLen := 12 + len(code) // frame sizes, code length, code, empty tables
	rec := []byte{
		0x00, 0x09, // access flags: public static
		byte(nameIdx >> 8), byte(nameIdx),
		byte(descIdx >> 8), byte(descIdx),
		0x00, 0x01, // one attribute
		byte(b.codeIndex >> 8), byte(b.codeIndex),
		byte(attrLen >> 24), byte(attrLen >> 16), byte(attrLen >> 8), byte(attrLen),
		byte(maxStack >> 8), byte(maxStack),
		byte(maxLocals >> 8), byte(maxLocals),
		byte(len(code) >> 24), byte(len(code) >> 16), byte(len(code) >> 8), byte(len(code)),
	}
	rec = append(rec, code...)
	rec = append(rec, 0x00, 0x00, 0x00, 0x00) // exception table, sub-attributes
	b.methods = append(b.methods, rec)
}

func (b *classBuilder) image() []byte {
	img := []byte{
		0xCA, 0xFE, 0xBA, 0xBE, // magic
		0x00, 0x00, 0x00, 0x34, // version
	}
	count := len(b.cp) + 1
	img = append(img, byte(count>>8), byte(count))
	for _, entry := range b.cp {
		img = append(img, entry...)
	}
	img = append(img,
		0x00, 0x21, // access flags
		0x00, 0x00, 0x00, 0x00, // this_class, super_class
		0x00, 0x00, 0x00, 0x00, // interfaces, fields
	)
	img = append(img, byte(len(b.methods)>>8), byte(len(b.methods)))
	for _, rec := range b.methods {
		img = append(img, rec...)
	}
	return img
}

// runScenario pushes the image through the whole pipeline and returns
// whatever the program printed.
func runScenario(t *testing.T, b *classBuilder) string {
	t.Helper()
	cl, err := classloader.ParseClass(b.image())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, StartExec(cl, &out))
	return out.String()
}

// static int f() { return 42; }  main: print f();
func TestScenarioConstantReturn(t *testing.T) {
	b := &classBuilder{}
	fRef := b.methodRef("f", "()I")

	b.method("f", "()I", 1, 0, []byte{
		BIPUSH, 42,
		IRETURN,
	})
	b.method("main", "([Ljava/lang/String;)V", 1, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		INVOKESTATIC, byte(fRef >> 8), byte(fRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	assert.Equal(t, "42\n", runScenario(t, b))
}

// static int fact(int n) { int r = 1; for (int i = 2; i <= n; i++) r *= i; return r; }
// main: print fact(5);
func TestScenarioIterativeFactorial(t *testing.T) {
	b := &classBuilder{}
	factRef := b.methodRef("fact", "(I)I")

	b.method("fact", "(I)I", 2, 3, []byte{
		ICONST_1,              //  0: r = 1
		ISTORE_1,              //  1
		ICONST_2,              //  2: i = 2
		ISTORE_2,              //  3
		ILOAD_2,               //  4: loop head
		ILOAD_0,               //  5
		IF_ICMPGT, 0x00, 0x0D, //  6: i > n -> 19
		ILOAD_1,               //  9
		ILOAD_2,               // 10
		IMUL,                  // 11
		ISTORE_1,              // 12: r *= i
		IINC, 0x02, 0x01,      // 13: i++
		GOTO, 0xFF, 0xF4,      // 16: -> 4
		ILOAD_1,               // 19
		IRETURN,               // 20
	})
	b.method("main", "([Ljava/lang/String;)V", 2, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		ICONST_5,
		INVOKESTATIC, byte(factRef >> 8), byte(factRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	assert.Equal(t, "120\n", runScenario(t, b))
}

// static int sum(int n) { return n == 0 ? 0 : n + sum(n - 1); }
// main: print sum(10);
func TestScenarioRecursiveSum(t *testing.T) {
	b := &classBuilder{}
	sumRef := b.methodRef("sum", "(I)I")

	b.method("sum", "(I)I", 3, 1, []byte{
		ILOAD_0,          //  0
		IFNE, 0x00, 0x05, //  1: n != 0 -> 6
		ICONST_0,         //  4
		IRETURN,          //  5
		ILOAD_0,          //  6
		ILOAD_0,          //  7
		ICONST_1,         //  8
		ISUB,             //  9
		INVOKESTATIC, byte(sumRef >> 8), byte(sumRef), // 10
		IADD,    // 13
		IRETURN, // 14
	})
	b.method("main", "([Ljava/lang/String;)V", 2, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		BIPUSH, 10,
		INVOKESTATIC, byte(sumRef >> 8), byte(sumRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	assert.Equal(t, "55\n", runScenario(t, b))
}

// static int g(int a, int b) { return a < b ? b - a : a - b; }
// main: print g(7, 3); print g(3, 7);
func TestScenarioBranchAndArithmeticMix(t *testing.T) {
	b := &classBuilder{}
	gRef := b.methodRef("g", "(II)I")

	b.method("g", "(II)I", 2, 2, []byte{
		ILOAD_0,               //  0
		ILOAD_1,               //  1
		IF_ICMPGE, 0x00, 0x07, //  2: a >= b -> 9
		ILOAD_1,               //  5
		ILOAD_0,               //  6
		ISUB,                  //  7: b - a
		IRETURN,               //  8
		ILOAD_0,               //  9
		ILOAD_1,               // 10
		ISUB,                  // 11: a - b
		IRETURN,               // 12
	})
	b.method("main", "([Ljava/lang/String;)V", 2, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		BIPUSH, 7,
		ICONST_3,
		INVOKESTATIC, byte(gRef >> 8), byte(gRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		GETSTATIC, 0x00, 0x00,
		ICONST_3,
		BIPUSH, 7,
		INVOKESTATIC, byte(gRef >> 8), byte(gRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	assert.Equal(t, "4\n4\n", runScenario(t, b))
}

// multiplying 65536 * 65536 wraps to 0 in 32-bit arithmetic
func TestScenarioOverflowWrapping(t *testing.T) {
	b := &classBuilder{}
	hRef := b.methodRef("h", "()I")
	bigInt := b.integer(65536)

	b.method("h", "()I", 2, 0, []byte{
		LDC, byte(bigInt),
		LDC, byte(bigInt),
		IMUL,
		IRETURN,
	})
	b.method("main", "([Ljava/lang/String;)V", 1, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		INVOKESTATIC, byte(hRef >> 8), byte(hRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	assert.Equal(t, "0\n", runScenario(t, b))
}

// static int inc(int x) { return x + 1; }
// static int twice(int x) { return inc(inc(x)); }
// main: print twice(10);
func TestScenarioNestedStaticCalls(t *testing.T) {
	b := &classBuilder{}
	incRef := b.methodRef("inc", "(I)I")
	twiceRef := b.methodRef("twice", "(I)I")

	b.method("inc", "(I)I", 2, 1, []byte{
		ILOAD_0,
		ICONST_1,
		IADD,
		IRETURN,
	})
	b.method("twice", "(I)I", 1, 1, []byte{
		ILOAD_0,
		INVOKESTATIC, byte(incRef >> 8), byte(incRef),
		INVOKESTATIC, byte(incRef >> 8), byte(incRef),
		IRETURN,
	})
	b.method("main", "([Ljava/lang/String;)V", 2, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		BIPUSH, 10,
		INVOKESTATIC, byte(twiceRef >> 8), byte(twiceRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	assert.Equal(t, "12\n", runScenario(t, b))
}

// the engine aborts cleanly on a division by zero deep in a call chain
func TestScenarioDivisionByZeroIsFatal(t *testing.T) {
	b := &classBuilder{}
	dRef := b.methodRef("d", "(I)I")

	b.method("d", "(I)I", 2, 1, []byte{
		ICONST_1,
		ILOAD_0,
		IDIV,
		IRETURN,
	})
	b.method("main", "([Ljava/lang/String;)V", 2, 1, []byte{
		GETSTATIC, 0x00, 0x00,
		ICONST_0,
		INVOKESTATIC, byte(dRef >> 8), byte(dRef),
		INVOKEVIRTUAL, 0x00, 0x00,
		RETURN,
	})

	cl, err := classloader.ParseClass(b.image())
	require.NoError(t, err)

	var out bytes.Buffer
	err = StartExec(cl, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
	assert.Empty(t, out.String())
}
