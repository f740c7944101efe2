/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import "strconv"

// various utilities frequently used in parsing classfiles

// read two bytes in big endian order and convert to an int
func intFrom2Bytes(bytes []byte, pos int) (int, error) {
	if len(bytes) < pos+2 {
		return 0, cfe("invalid offset into file")
	}

	value := (uint16(bytes[pos]) << 8) + uint16(bytes[pos+1])
	return int(value), nil
}

// read four bytes in big endian order and convert to an int
func intFrom4Bytes(bytes []byte, pos int) (int, error) {
	if len(bytes) < pos+4 {
		return 0, cfe("invalid offset into file")
	}

	value1 := (uint32(bytes[pos]) << 8) + uint32(bytes[pos+1])
	value2 := (uint32(bytes[pos+2]) << 8) + uint32(bytes[pos+3])
	retVal := int(value1<<16) + int(value2)
	return retVal, nil
}

// finds and returns a UTF8 string when handed an index into the CP that points
// to a UTF8 entry. Does extensive checking of values.
func fetchUTF8string(klass *parsedClass, index int) (string, error) {
	if index < 1 || index > klass.cpCount-1 {
		return "", cfe("attempt to fetch invalid UTF8 at CP entry #" + strconv.Itoa(index))
	}

	if klass.cpIndex[index].entryType != UTF8 {
		return "", cfe("attempt to fetch UTF8 string from non-UTF8 CP entry #" + strconv.Itoa(index))
	}

	i := klass.cpIndex[index].slot
	if i < 0 || i > len(klass.utf8Refs)-1 {
		return "", cfe("invalid index into UTF8 array of CP: " + strconv.Itoa(i))
	}

	return klass.utf8Refs[i], nil
}

// fetches attribute info. Attributes are values associated with methods and
// code attributes. The general layout is:
// attribute_info {
//    u2 attribute_name_index;  // the name of the attribute
//    u4 attribute_length;
//    u1 info[attribute_length];
// }
// The name is resolved here; the payload is buffered raw and decoded by the
// caller only when the attribute is one we care about.
func fetchAttribute(klass *parsedClass, bytes []byte, loc int) (attr, int, error) {
	pos := loc
	attribute := attr{}
	nameIndex, err := intFrom2Bytes(bytes, pos+1)
	pos += 2
	if err != nil {
		return attribute, pos, cfe("error fetching method attribute name index")
	}

	attrName, err := fetchUTF8string(klass, nameIndex)
	if err != nil {
		return attribute, pos, cfe("error fetching name of method attribute")
	}
	attribute.attrName = attrName

	length, err := intFrom4Bytes(bytes, pos+1)
	pos += 4
	if err != nil {
		return attribute, pos, cfe("error fetching length of method attribute")
	}
	attribute.attrSize = length

	if len(bytes) < pos+1+length {
		return attribute, pos, cfe("truncated attribute " + attrName)
	}

	attribute.attrContent = make([]byte, length)
	copy(attribute.attrContent, bytes[pos+1:pos+1+length])

	return attribute, pos + length, nil
}
