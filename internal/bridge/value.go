// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package bridge converts values between SQLite and the goja JavaScript runtime.
//
// SQLite values are tagged (integer, float, text, blob, null) while JavaScript
// has a single number type. The script->database direction recovers the
// integer/float split by inspecting the number itself: a value equal to its
// own floor becomes an integer, anything else stays a float.
package bridge

import (
	"errors"
	"math"

	"github.com/dop251/goja"
	"zombiezen.com/go/sqlite"
)

// ErrUnsupportedType is returned by ToDB when a script value has no SQLite
// equivalent (objects, arrays, functions, symbols, ...).
var ErrUnsupportedType = errors.New("Unsupported return type")

// ToScript converts a SQLite value into a goja value owned by vm.
//
// Integers within +-2^53 stay exact integers. Larger magnitudes reach the
// script as float numbers and lose precision on the way in; that boundary is
// accepted, not corrected. Text and blob bytes are copied.
func ToScript(vm *goja.Runtime, v sqlite.Value) goja.Value {
	switch v.Type() {
	case sqlite.TypeInteger:
		return vm.ToValue(v.Int64())
	case sqlite.TypeFloat:
		return vm.ToValue(v.Float())
	case sqlite.TypeText:
		return vm.ToValue(v.Text())
	case sqlite.TypeBlob:
		// Blob() returns a fresh slice, so the buffer never aliases SQLite memory
		return vm.ToValue(vm.NewArrayBuffer(v.Blob()))
	default:
		return goja.Null()
	}
}

// Args converts a row of SQLite arguments into a JavaScript array.
func Args(vm *goja.Runtime, values []sqlite.Value) goja.Value {
	items := make([]interface{}, len(values))
	for i, v := range values {
		items[i] = ToScript(vm, v)
	}
	return vm.NewArray(items...)
}

// ToDB converts a script value into a SQLite value.
// A nil value (nothing returned) is treated the same as undefined and null.
func ToDB(v goja.Value) (sqlite.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return sqlite.Value{}, nil
	}

	switch val := v.Export().(type) {
	case int64:
		return sqlite.IntegerValue(val), nil
	case float64:
		return numberToDB(val), nil
	case string:
		return sqlite.TextValue(val), nil
	case bool:
		if val {
			return sqlite.IntegerValue(1), nil
		}
		return sqlite.IntegerValue(0), nil
	case goja.ArrayBuffer:
		return sqlite.BlobValue(val.Bytes()), nil
	case []byte:
		return sqlite.BlobValue(val), nil
	default:
		return sqlite.Value{}, ErrUnsupportedType
	}
}

// int64 bounds as float64; 2^63 itself is out of range.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

// numberToDB applies the integer policy: n becomes an integer iff it equals
// its own floor and fits in int64. -0.0 becomes integer 0.
func numberToDB(n float64) sqlite.Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return sqlite.FloatValue(n)
	}
	if math.Floor(n) == n && n >= minInt64Float && n < maxInt64Float {
		return sqlite.IntegerValue(int64(n))
	}
	return sqlite.FloatValue(n)
}
