/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"strconv"

	"javelin/trace"
)

// AccStatic is the ACC_STATIC bit of the method access flags.
const AccStatic = 0x0008

// the methods of the class. Names and descriptors are resolved to their
// UTF8 content during parsing; the engine never needs the raw indexes.
type method struct {
	accessFlags int
	name        string
	descriptor  string
	codeAttr    codeAttrib
}

type codeAttrib struct {
	maxStack  int
	maxLocals int
	code      []byte
}

// the structure of an attribute record. The content is the raw bytes.
type attr struct {
	attrName    string
	attrSize    int
	attrContent []byte
}

// parseMethods reads the method records of the class file. On entry, loc
// points to the last byte of the method count. Every method must be
// static and must carry exactly one Code attribute.
func parseMethods(bytes []byte, loc int, klass *parsedClass) (int, error) {
	pos := loc

	for i := 0; i < klass.methodCount; i++ {
		meth := method{}

		accessFlags, err := intFrom2Bytes(bytes, pos+1)
		pos += 2
		if err != nil {
			return pos, cfe("invalid fetch of method access flags")
		}
		meth.accessFlags = accessFlags

		nameIndex, err := intFrom2Bytes(bytes, pos+1)
		pos += 2
		if err != nil {
			return pos, cfe("invalid fetch of method name index")
		}
		meth.name, err = fetchUTF8string(klass, nameIndex)
		if err != nil {
			return pos, err
		}

		descIndex, err := intFrom2Bytes(bytes, pos+1)
		pos += 2
		if err != nil {
			return pos, cfe("invalid fetch of method descriptor index")
		}
		meth.descriptor, err = fetchUTF8string(klass, descIndex)
		if err != nil {
			return pos, err
		}

		// this VM dispatches static methods only, so a method without the
		// static bit can never be run and is rejected up front
		if meth.accessFlags&AccStatic == 0 {
			return pos, cfe("only static methods are supported by this VM, method: " +
				meth.name + meth.descriptor)
		}

		attrCount, err := intFrom2Bytes(bytes, pos+1)
		pos += 2
		if err != nil {
			return pos, cfe("invalid fetch of method attribute count")
		}

		foundCode := false
		for j := 0; j < attrCount; j++ {
			attribute, newPos, err := fetchAttribute(klass, bytes, pos)
			pos = newPos
			if err != nil {
				return pos, err
			}

			if attribute.attrName == "Code" {
				if foundCode {
					return pos, cfe("duplicate Code attribute in method: " + meth.name)
				}
				foundCode = true
				if err = parseCodeAttribute(attribute, &meth, klass); err != nil {
					return pos, err
				}
			}
			// all other attributes (LineNumberTable, etc.) are skipped
		}

		if !foundCode {
			return pos, cfe("missing Code attribute in method: " + meth.name)
		}

		trace.Finest("parsed method: " + meth.name + meth.descriptor)
		klass.methods = append(klass.methods, meth)
	}

	return pos, nil
}

// parseCodeAttribute decodes the leading portion of a Code attribute:
// max_stack, max_locals, code_length and the bytecode itself. Whatever
// follows the bytecode (exception table, sub-attributes) is ignored.
func parseCodeAttribute(attribute attr, meth *method, klass *parsedClass) error {
	content := attribute.attrContent

	maxStack, err := intFrom2Bytes(content, 0)
	if err != nil {
		return cfe("invalid max_stack in Code attribute of method: " + meth.name)
	}

	maxLocals, err := intFrom2Bytes(content, 2)
	if err != nil {
		return cfe("invalid max_locals in Code attribute of method: " + meth.name)
	}

	codeLength, err := intFrom4Bytes(content, 4)
	if err != nil {
		return cfe("invalid code_length in Code attribute of method: " + meth.name)
	}

	if len(content) < 8+codeLength {
		return cfe("truncated bytecode in Code attribute of method: " + meth.name +
			", declared length: " + strconv.Itoa(codeLength))
	}

	meth.codeAttr = codeAttrib{
		maxStack:  maxStack,
		maxLocals: maxLocals,
		code:      content[8 : 8+codeLength],
	}
	return nil
}
