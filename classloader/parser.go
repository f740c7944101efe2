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

// parsedClass is the working form of a class while it is being decoded.
// When parsing and format-checking succeed it is converted into the
// immutable ClassFile handed to the execution engine.
type parsedClass struct {
	javaVersion int

	// ---- constant pool data items ----
	cpCount      int       // count of constant pool entries (1 greater than the real number)
	cpIndex      []cpEntry // the constant pool index to entries
	utf8Refs     []string
	intConsts    []int32
	classRefs    []int // each points to a CP entry holding the class name
	refs         []refEntry
	nameAndTypes []nameAndTypeEntry

	// ---- methods ----
	methodCount int
	methods     []method
}

// parse reads in the raw bytes of a class file, parses them, and fills in
// the fields of the working class. Some verification is performed here;
// cross-entry checks happen afterward in formatCheckClass.
func parse(rawBytes []byte) (parsedClass, error) {
	var klass = parsedClass{}

	err := parseMagicNumber(rawBytes)
	if err != nil {
		return klass, err
	}

	err = parseVersionNumber(rawBytes, &klass)
	if err != nil {
		return klass, err
	}

	err = getConstantPoolCount(rawBytes, &klass)
	if err != nil {
		return klass, err
	}

	pos, err := parseConstantPool(rawBytes, 9, &klass)
	if err != nil {
		return klass, err
	}

	pos, err = parseClassInfo(rawBytes, pos, &klass)
	if err != nil {
		return klass, err
	}

	pos, err = parseMethodCount(rawBytes, pos, &klass)
	if err != nil {
		return klass, err
	}

	_, err = parseMethods(rawBytes, pos, &klass)
	if err != nil {
		return klass, err
	}

	return klass, nil
}

// all class files start with 0xCAFEBABE (it was the 90s!)
// this checks for that.
func parseMagicNumber(bytes []byte) error {
	if len(bytes) < 4 {
		return cfe("invalid magic number")
	} else if (bytes[0] != 0xCA) || (bytes[1] != 0xFE) || (bytes[2] != 0xBA) || (bytes[3] != 0xBE) {
		return cfe("invalid magic number")
	}
	return nil
}

// record the Java version number used in creating this class file. The
// minor version (bytes 4-5) is skipped; no version constraint is applied.
func parseVersionNumber(bytes []byte, klass *parsedClass) error {
	version, err := intFrom2Bytes(bytes, 6)
	if err != nil {
		return cfe("invalid fetch of major version")
	}

	klass.javaVersion = version
	trace.Finest("class file major version: " + strconv.Itoa(version))
	return nil
}

// get the number of entries in the constant pool. Note that this number
// is technically 1 greater than the number of actual entries, because the
// first entry in the constant pool is an empty placeholder, rather than
// an actual entry.
func getConstantPoolCount(bytes []byte, klass *parsedClass) error {
	cpEntryCount, err := intFrom2Bytes(bytes, 8)
	if err != nil || cpEntryCount < 1 {
		return cfe("invalid number of entries in constant pool: " +
			strconv.Itoa(cpEntryCount))
	}

	klass.cpCount = cpEntryCount
	trace.Finest("number of CP entries: " + strconv.Itoa(cpEntryCount))
	return nil
}

// the class info section: access flags, this_class and super_class are
// read and discarded; this VM executes a single class, so their content
// never matters. The interface and field counts, however, must be zero —
// interfaces and fields are outside what this VM runs.
func parseClassInfo(bytes []byte, loc int, klass *parsedClass) (int, error) {
	pos := loc

	for _, section := range []string{"access flags", "this_class", "super_class"} {
		_, err := intFrom2Bytes(bytes, pos+1)
		pos += 2
		if err != nil {
			return pos, cfe("invalid fetch of " + section)
		}
	}

	interfaceCount, err := intFrom2Bytes(bytes, pos+1)
	pos += 2
	if err != nil {
		return pos, cfe("invalid fetch of interface count")
	}
	if interfaceCount != 0 {
		return pos, cfe("interfaces are not supported by this VM")
	}

	fieldCount, err := intFrom2Bytes(bytes, pos+1)
	pos += 2
	if err != nil {
		return pos, cfe("invalid fetch of field count")
	}
	if fieldCount != 0 {
		return pos, cfe("fields are not supported by this VM")
	}

	return pos, nil
}

// get the number of methods in this class
func parseMethodCount(bytes []byte, loc int, klass *parsedClass) (int, error) {
	pos := loc
	methodCount, err := intFrom2Bytes(bytes, pos+1)
	pos += 2
	if err != nil {
		return pos, cfe("invalid fetch of method count")
	}

	trace.Finest("method count: " + strconv.Itoa(methodCount))
	klass.methodCount = methodCount
	return pos, nil
}
