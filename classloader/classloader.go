/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package classloader decodes the JVM class-file container into the
// immutable program representation the execution engine runs. Only the
// subset this VM executes is accepted: an integer-flavored constant pool
// and static methods carrying a Code attribute. Anything else is
// rejected during parsing with a class format error.
package classloader

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"javelin/trace"
)

// CpEntry is the directory entry for one constant in the pool handed to
// the engine: the tag and the slot in the typed slice for that tag.
type CpEntry struct {
	Type int
	Slot int
}

// RefEntry holds a Fieldref or Methodref constant. The two tags share a
// layout and only the method form is consulted at run time.
type RefEntry struct {
	ClassIndex  int
	NameAndType int
}

// NameAndTypeEntry points at the UTF8 name and descriptor of a ref.
type NameAndTypeEntry struct {
	NameIndex int
	DescIndex int
}

// CPool is the runtime form of the constant pool. CpIndex is 1-indexed
// to match the file format; CpIndex[0] is a dummy entry.
type CPool struct {
	CpIndex      []CpEntry
	Utf8Refs     []string
	IntConsts    []int32
	ClassRefs    []int
	Refs         []RefEntry
	NameAndTypes []NameAndTypeEntry
}

// Method is one executable method of the class.
type Method struct {
	Name        string
	Descriptor  string
	AccessFlags int
	MaxStack    int
	MaxLocals   int
	Code        []byte
}

// ClassFile is the immutable parsed program. MethodTable is keyed by
// name+descriptor, because overloads share a name.
type ClassFile struct {
	CP          CPool
	Methods     []Method
	MethodTable map[string]*Method
}

// FetchMethod looks up a method by name and descriptor. Both must match.
func (cl *ClassFile) FetchMethod(name, descriptor string) (*Method, error) {
	m, ok := cl.MethodTable[name+descriptor]
	if !ok {
		return nil, errors.New("method not found: " + name + descriptor)
	}
	return m, nil
}

// LoadClassFromFile reads the indicated file and runs it through the
// parser and the format checker.
func LoadClassFromFile(fname string) (*ClassFile, error) {
	rawBytes, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.New("cannot read class file: " + fname)
	}
	trace.Fine("class file " + fname + " was read, " + strconv.Itoa(len(rawBytes)) + " bytes")

	return ParseClass(rawBytes)
}

// ParseClass parses a class presented as a slice of bytes and, if no
// errors occurred, converts it into its executable form.
func ParseClass(rawBytes []byte) (*ClassFile, error) {
	fullyParsedClass, err := parse(rawBytes)
	if err != nil {
		return nil, err
	}

	if err = formatCheckClass(&fullyParsedClass); err != nil {
		return nil, err
	}
	trace.Fine("class has been format-checked")

	classFile := convertToPostableClass(&fullyParsedClass)
	return &classFile, nil
}

// convertToPostableClass copies the working class into the immutable
// form the engine borrows. Indexes stay as they were in the file.
func convertToPostableClass(klass *parsedClass) ClassFile {
	cl := ClassFile{}

	for i := 0; i < len(klass.cpIndex); i++ {
		cl.CP.CpIndex = append(cl.CP.CpIndex,
			CpEntry{Type: klass.cpIndex[i].entryType, Slot: klass.cpIndex[i].slot})
	}
	cl.CP.Utf8Refs = append(cl.CP.Utf8Refs, klass.utf8Refs...)
	cl.CP.IntConsts = append(cl.CP.IntConsts, klass.intConsts...)
	cl.CP.ClassRefs = append(cl.CP.ClassRefs, klass.classRefs...)
	for i := 0; i < len(klass.refs); i++ {
		cl.CP.Refs = append(cl.CP.Refs,
			RefEntry{ClassIndex: klass.refs[i].classIndex, NameAndType: klass.refs[i].nameAndTypeIndex})
	}
	for i := 0; i < len(klass.nameAndTypes); i++ {
		cl.CP.NameAndTypes = append(cl.CP.NameAndTypes,
			NameAndTypeEntry{NameIndex: klass.nameAndTypes[i].nameIndex,
				DescIndex: klass.nameAndTypes[i].descriptorIndex})
	}

	cl.MethodTable = make(map[string]*Method)
	for i := 0; i < len(klass.methods); i++ {
		pm := &klass.methods[i]
		cl.Methods = append(cl.Methods, Method{
			Name:        pm.name,
			Descriptor:  pm.descriptor,
			AccessFlags: pm.accessFlags,
			MaxStack:    pm.codeAttr.maxStack,
			MaxLocals:   pm.codeAttr.maxLocals,
			Code:        pm.codeAttr.code,
		})
	}
	for i := range cl.Methods {
		m := &cl.Methods[i]
		cl.MethodTable[m.Name+m.Descriptor] = m
	}

	return cl
}

// cfe = class format error, which is the error returned by the parser for
// most of the errors arising from malformed bytecode. Records file and
// line# where the call to cfe() occurred.
func cfe(msg string) error {
	errMsg := "Class Format Error: " + msg

	// get the filename and line# of the function where the error occurred
	// implementation note: Caller(0) would be this function. (1) is the
	// previous function on the stack (so, the one calling this error routine)
	pc, _, _, ok := runtime.Caller(1)
	if ok {
		fn := runtime.FuncForPC(pc)
		fileName, fileLine := fn.FileLine(pc)
		errMsg = errMsg + "\n  detected by file: " + filepath.Base(fileName) +
			", line: " + strconv.Itoa(fileLine)
	}
	trace.Error(strings.ReplaceAll(errMsg, "\n", " "))
	return errors.New(errMsg)
}
