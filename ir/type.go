/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ir

import (
    `strings`
)

// Type is a set of runtime value representations, encoded as bit flags.
// UnknownType is the empty set and the bottom of the lattice.
type Type uint16

const (
    UnknownType   Type = 0
    MissingType   Type = 1 << 0
    UndefinedType Type = 1 << 1
    NullType      Type = 1 << 2
    BoolType      Type = 1 << 3
    SInt32Type    Type = 1 << 4
    UInt32Type    Type = 1 << 5
    DoubleType    Type = 1 << 6
    NumberType         = SInt32Type | UInt32Type | DoubleType
    StringType    Type = 1 << 7
    ObjectType    Type = 1 << 8
)

var typeNames = [...]string{
    "missing",
    "undefined",
    "null",
    "bool",
    "int32",
    "uint32",
    "double",
    "string",
    "object",
}

// IsNumber reports whether the type is a non-empty subset of NumberType.
func (self Type) IsNumber() bool {
    return self != UnknownType && self&^NumberType == 0
}

// IsSingle reports whether the type is either unknown or exactly one
// representation.
func (self Type) IsSingle() bool {
    return self&(self-1) == 0
}

// Has reports whether every bit of t is also present in self.
func (self Type) Has(t Type) bool {
    return self&t == t
}

func (self Type) String() string {
    if self == UnknownType {
        return "unknown"
    }

    /* the full number set has a shorter name */
    if self == NumberType {
        return "number"
    }

    var ret []string
    for i, name := range typeNames {
        if self&(1<<i) != 0 {
            ret = append(ret, name)
        }
    }
    return strings.Join(ret, "|")
}
