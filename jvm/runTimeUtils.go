/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"errors"
	"strconv"
	"strings"

	"javelin/classloader"
)

// Utility routines for runtime resolution of constant-pool entries.

// fetchCPentry returns the directory entry at a 1-indexed CP index,
// checking that the index lands inside the pool.
func fetchCPentry(cp *classloader.CPool, index int) (classloader.CpEntry, error) {
	if index < 1 || index >= len(cp.CpIndex) {
		return classloader.CpEntry{}, errors.New(
			"CP index out of range: " + strconv.Itoa(index))
	}
	return cp.CpIndex[index], nil
}

// fetchUTF8 resolves a CP index that must hold a UTF8 constant.
func fetchUTF8(cp *classloader.CPool, index int) (string, error) {
	entry, err := fetchCPentry(cp, index)
	if err != nil {
		return "", err
	}
	if entry.Type != classloader.UTF8 {
		return "", errors.New("expected a UTF8 constant at CP entry #" + strconv.Itoa(index))
	}
	return cp.Utf8Refs[entry.Slot], nil
}

// fetchIntConst resolves a CP index that must hold an Integer constant.
// Used by LDC, whose operand may name only an Integer in this VM.
func fetchIntConst(cp *classloader.CPool, index int) (int32, error) {
	entry, err := fetchCPentry(cp, index)
	if err != nil {
		return 0, err
	}
	if entry.Type != classloader.IntConst {
		return 0, errors.New("expected an Integer constant at CP entry #" + strconv.Itoa(index))
	}
	return cp.IntConsts[entry.Slot], nil
}

// fetchMethodRefParts walks a ref constant down to the method name and
// descriptor it designates: Ref -> NameAndType -> (UTF8, UTF8).
func fetchMethodRefParts(cp *classloader.CPool, index int) (string, string, error) {
	entry, err := fetchCPentry(cp, index)
	if err != nil {
		return "", "", err
	}
	if entry.Type != classloader.MethodRef && entry.Type != classloader.FieldRef {
		return "", "", errors.New("expected a method ref at CP entry #" + strconv.Itoa(index))
	}
	ref := cp.Refs[entry.Slot]

	natEntry, err := fetchCPentry(cp, ref.NameAndType)
	if err != nil {
		return "", "", err
	}
	if natEntry.Type != classloader.NameAndType {
		return "", "", errors.New("expected a nameAndType at CP entry #" +
			strconv.Itoa(ref.NameAndType))
	}
	nat := cp.NameAndTypes[natEntry.Slot]

	name, err := fetchUTF8(cp, nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	desc, err := fetchUTF8(cp, nat.DescIndex)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// paramCount computes the number of parameter slots from a method
// descriptor by counting the characters between the parentheses. Every
// parameter this VM passes is a single-character int type, so one
// character is one slot.
func paramCount(descriptor string) (int, error) {
	open := strings.IndexByte(descriptor, '(')
	end := strings.IndexByte(descriptor, ')')
	if open != 0 || end < 0 {
		return 0, errors.New("malformed method descriptor: " + descriptor)
	}
	return end - open - 1, nil
}
