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
    `testing`

    `github.com/stretchr/testify/require`
)

func TestType_Lattice(t *testing.T) {
    require.True(t, SInt32Type.IsNumber())
    require.True(t, (SInt32Type | DoubleType).IsNumber())
    require.False(t, (SInt32Type | StringType).IsNumber())
    require.False(t, UnknownType.IsNumber())
    require.True(t, UnknownType.IsSingle())
    require.True(t, BoolType.IsSingle())
    require.False(t, NumberType.IsSingle())
    require.True(t, NumberType.Has(UInt32Type))
    require.Equal(t, "number", NumberType.String())
    require.Equal(t, "null|string", (NullType | StringType).String())
    require.Equal(t, "unknown", UnknownType.String())
}

func TestTempKey_Order(t *testing.T) {
    a := TempKey{Kind: Local, Index: 3}
    b := TempKey{Kind: VirtualRegister, Index: 0}
    c := TempKey{Kind: VirtualRegister, Index: 1}
    d := TempKey{Kind: VirtualRegister, Index: 0, Scope: 1}
    require.True(t, a.Less(b))
    require.True(t, b.Less(c))
    require.True(t, c.Less(d))
    require.False(t, c.Less(b))
    require.Equal(t, "$l3", a.String())
    require.Equal(t, "%0@1", d.String())
    require.True(t, NewTemp(VirtualRegister, 0, 1).Is(NewTemp(VirtualRegister, 0, 1)))
}

func TestWalkExpr_Order(t *testing.T) {
    var seen []string
    var e Expr = NewBinop(OpMul, NewTemp(VirtualRegister, 0, 0), NewCall(NewName("f"), NewNumber(2)))
    WalkExpr(&e, func(slot *Expr) { seen = append(seen, (*slot).String()) })
    require.Equal(t, []string{"%0", "f", "2", "f(2)", "(%0 * f(2))"}, seen)
}

func TestUsedTemps(t *testing.T) {
    x := NewTemp(VirtualRegister, 0, 0)
    y := NewTemp(VirtualRegister, 1, 0)
    mv := NewMove(NewTemp(VirtualRegister, 2, 0), NewBinop(OpAdd, x, x))
    require.Equal(t, []*Temp{x, x}, UsedTemps(mv))

    /* a member store reads its base */
    st := NewMove(NewMember(y, "p"), NewNumber(1))
    require.Equal(t, []*Temp{y}, UsedTemps(st))
    require.Nil(t, st.Def())
}
