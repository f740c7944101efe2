/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"strconv"
	"unicode/utf8"

	"javelin/trace"
)

// The tags of the constant-pool entries this VM accepts. The values are
// the tag bytes from the class-file format. Anything else is a format error.
const (
	Dummy       = 0 // the unused entry at CP slot 0
	UTF8        = 1
	IntConst    = 3
	ClassRef    = 7
	FieldRef    = 9
	MethodRef   = 10
	NameAndType = 12
)

// cpEntry is the directory entry for one constant: its tag and the slot
// it occupies in the typed slice for that tag. The pool is 1-indexed, so
// cpIndex[0] is a dummy entry that is never consulted.
type cpEntry struct {
	entryType int
	slot      int
}

// field refs and method refs have identical layouts and only the method
// form is ever consulted at run time, so both tags land in refs.
type refEntry struct {
	classIndex       int
	nameAndTypeIndex int
}

type nameAndTypeEntry struct {
	nameIndex       int
	descriptorIndex int
}

// parseConstantPool processes the CP entries of the class file. On entry,
// loc points to the last byte of the CP count. It returns the location of
// the last byte it consumed.
func parseConstantPool(bytes []byte, loc int, klass *parsedClass) (int, error) {
	pos := loc
	klass.cpIndex = append(klass.cpIndex, cpEntry{Dummy, 0})

	for i := 1; i <= klass.cpCount-1; i++ {
		if len(bytes) < pos+2 {
			return pos, cfe("truncated constant pool at entry #" + strconv.Itoa(i))
		}
		tag := int(bytes[pos+1])
		pos += 1

		switch tag {
		case UTF8:
			length, err := intFrom2Bytes(bytes, pos+1)
			pos += 2
			if err != nil {
				return pos, cfe("error fetching UTF8 length in CP entry #" + strconv.Itoa(i))
			}
			if len(bytes) < pos+1+length {
				return pos, cfe("truncated UTF8 constant in CP entry #" + strconv.Itoa(i))
			}
			content := bytes[pos+1 : pos+1+length]
			pos += length
			if !utf8.Valid(content) {
				return pos, cfe("invalid UTF-8 in CP entry #" + strconv.Itoa(i))
			}
			klass.cpIndex = append(klass.cpIndex, cpEntry{UTF8, len(klass.utf8Refs)})
			klass.utf8Refs = append(klass.utf8Refs, string(content))

		case IntConst:
			value, err := intFrom4Bytes(bytes, pos+1)
			pos += 4
			if err != nil {
				return pos, cfe("error fetching int constant in CP entry #" + strconv.Itoa(i))
			}
			klass.cpIndex = append(klass.cpIndex, cpEntry{IntConst, len(klass.intConsts)})
			klass.intConsts = append(klass.intConsts, int32(value))

		case ClassRef:
			nameIndex, err := intFrom2Bytes(bytes, pos+1)
			pos += 2
			if err != nil {
				return pos, cfe("error fetching class ref in CP entry #" + strconv.Itoa(i))
			}
			klass.cpIndex = append(klass.cpIndex, cpEntry{ClassRef, len(klass.classRefs)})
			klass.classRefs = append(klass.classRefs, nameIndex)

		case FieldRef, MethodRef:
			classIndex, err := intFrom2Bytes(bytes, pos+1)
			pos += 2
			if err != nil {
				return pos, cfe("error fetching ref class index in CP entry #" + strconv.Itoa(i))
			}
			natIndex, err := intFrom2Bytes(bytes, pos+1)
			pos += 2
			if err != nil {
				return pos, cfe("error fetching ref nameAndType index in CP entry #" + strconv.Itoa(i))
			}
			klass.cpIndex = append(klass.cpIndex, cpEntry{tag, len(klass.refs)})
			klass.refs = append(klass.refs, refEntry{classIndex, natIndex})

		case NameAndType:
			nameIndex, err := intFrom2Bytes(bytes, pos+1)
			pos += 2
			if err != nil {
				return pos, cfe("error fetching nameAndType name index in CP entry #" + strconv.Itoa(i))
			}
			descIndex, err := intFrom2Bytes(bytes, pos+1)
			pos += 2
			if err != nil {
				return pos, cfe("error fetching nameAndType descriptor index in CP entry #" + strconv.Itoa(i))
			}
			klass.cpIndex = append(klass.cpIndex, cpEntry{NameAndType, len(klass.nameAndTypes)})
			klass.nameAndTypes = append(klass.nameAndTypes, nameAndTypeEntry{nameIndex, descIndex})

		default:
			return pos, cfe("unsupported constant pool tag: " + strconv.Itoa(tag) +
				" in CP entry #" + strconv.Itoa(i))
		}
	}

	trace.Finest("parsed " + strconv.Itoa(klass.cpCount-1) + " constant pool entries")
	return pos, nil
}
