/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import "strconv"

// formatCheckClass verifies the cross-entry invariants of a parsed class
// that the linear parse cannot see: every index stored inside a constant
// must land inside the pool and point at the expected variant. Run after
// parse() and before the class is converted for execution.
func formatCheckClass(klass *parsedClass) error {
	if err := checkConstantPool(klass); err != nil {
		return err
	}
	return checkMethods(klass)
}

func checkConstantPool(klass *parsedClass) error {
	for i := 1; i <= klass.cpCount-1; i++ {
		entry := klass.cpIndex[i]
		switch entry.entryType {
		case UTF8, IntConst:
			// self-contained, nothing to resolve

		case ClassRef:
			nameIndex := klass.classRefs[entry.slot]
			if _, err := fetchUTF8string(klass, nameIndex); err != nil {
				return cfe("class ref in CP entry #" + strconv.Itoa(i) +
					" does not resolve to a UTF8 name")
			}

		case FieldRef, MethodRef:
			ref := klass.refs[entry.slot]
			if !isEntryType(klass, ref.classIndex, ClassRef) {
				return cfe("ref in CP entry #" + strconv.Itoa(i) +
					" has an invalid class index: " + strconv.Itoa(ref.classIndex))
			}
			if !isEntryType(klass, ref.nameAndTypeIndex, NameAndType) {
				return cfe("ref in CP entry #" + strconv.Itoa(i) +
					" has an invalid nameAndType index: " + strconv.Itoa(ref.nameAndTypeIndex))
			}
			nat := klass.nameAndTypes[klass.cpIndex[ref.nameAndTypeIndex].slot]
			if _, err := fetchUTF8string(klass, nat.nameIndex); err != nil {
				return cfe("nameAndType behind CP entry #" + strconv.Itoa(i) +
					" has a non-UTF8 name")
			}
			if _, err := fetchUTF8string(klass, nat.descriptorIndex); err != nil {
				return cfe("nameAndType behind CP entry #" + strconv.Itoa(i) +
					" has a non-UTF8 descriptor")
			}

		case NameAndType:
			nat := klass.nameAndTypes[entry.slot]
			if !isEntryType(klass, nat.nameIndex, UTF8) {
				return cfe("nameAndType in CP entry #" + strconv.Itoa(i) +
					" has an invalid name index: " + strconv.Itoa(nat.nameIndex))
			}
			if !isEntryType(klass, nat.descriptorIndex, UTF8) {
				return cfe("nameAndType in CP entry #" + strconv.Itoa(i) +
					" has an invalid descriptor index: " + strconv.Itoa(nat.descriptorIndex))
			}

		default:
			return cfe("unexpected constant type in CP entry #" + strconv.Itoa(i) +
				": " + strconv.Itoa(entry.entryType))
		}
	}
	return nil
}

func checkMethods(klass *parsedClass) error {
	if len(klass.methods) != klass.methodCount {
		return cfe("declared method count " + strconv.Itoa(klass.methodCount) +
			" does not match parsed methods: " + strconv.Itoa(len(klass.methods)))
	}
	for i := range klass.methods {
		meth := &klass.methods[i]
		if meth.codeAttr.maxLocals < 0 || meth.codeAttr.maxStack < 0 {
			return cfe("negative frame sizes in method: " + meth.name)
		}
	}
	return nil
}

// isEntryType reports whether a 1-indexed CP index is in range and holds
// an entry of the wanted type.
func isEntryType(klass *parsedClass, index, wanted int) bool {
	if index < 1 || index > klass.cpCount-1 {
		return false
	}
	return klass.cpIndex[index].entryType == wanted
}
