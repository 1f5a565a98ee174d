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

package ssa

import (
    `errors`
    `math`
    `testing`

    `github.com/stretchr/testify/require`

    `github.com/cloudwego/vmopt/ir`
)

// mixed builds
//
//	L0: %0 = 1; %1 = 1.5; %2 = %0 + %1; return %2
func mixed() *ir.Function {
    fn := ir.NewFunction("mixed")
    b0 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    fn.TempCount = 3
    b0.AddMove(vr(0), num(1))
    b0.AddMove(vr(1), num(1.5))
    b0.AddMove(vr(2), ir.NewBinop(ir.OpAdd, vr(0), vr(1)))
    fn.AddRet(b0, vr(2))
    return fn
}

func inferTypes(t *testing.T, fn *ir.Function) *CFG {
    cfg := buildSSA(t, fn)
    require.NoError(t, TypeInference{}.Apply(cfg))
    return cfg
}

func typeOf(cfg *CFG, s ir.Stmt) ir.Type {
    return cfg.Types[s.Def().Key()]
}

func converts(fn *ir.Function) []*ir.Convert {
    var ret []*ir.Convert
    fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        ir.ForEachUse(s, func(slot *ir.Expr) {
            if c, ok := (*slot).(*ir.Convert); ok {
                ret = append(ret, c)
            }
        })
    })
    return ret
}

func TestTypeInference_Constants(t *testing.T) {
    ti := &_TypeInfer{}
    for _, tc := range []struct {
        c  *ir.Const
        ty ir.Type
    }{
        {num(0), ir.SInt32Type},
        {num(-1), ir.SInt32Type},
        {num(math.MaxInt32), ir.SInt32Type},
        {num(math.MaxInt32 + 1), ir.UInt32Type},
        {num(math.MaxUint32), ir.UInt32Type},
        {num(math.MaxUint32 + 1), ir.DoubleType},
        {num(math.Copysign(0, -1)), ir.DoubleType},
        {num(0.5), ir.DoubleType},
        {num(math.NaN()), ir.DoubleType},
        {ir.NewBool(true), ir.BoolType},
        {ir.NewNull(), ir.NullType},
        {ir.NewUndefined(), ir.UndefinedType},
    } {
        require.Equal(t, tc.ty, ti.constant(tc.c).ty, tc.c.String())
    }
}

func TestTypeInference_Mixed(t *testing.T) {
    cfg := inferTypes(t, mixed())
    stmts := cfg.Func.Entry().Stmts
    require.Equal(t, ir.SInt32Type, typeOf(cfg, stmts[0]))
    require.Equal(t, ir.DoubleType, typeOf(cfg, stmts[1]))
    require.Equal(t, ir.DoubleType, typeOf(cfg, stmts[2]))

    /* the nodes carry the types as well */
    add := stmts[2].(*ir.Move).Source.(*ir.Binop)
    require.Equal(t, ir.DoubleType, add.Ty)
    require.Equal(t, ir.SInt32Type, add.Left.Type())
    require.Equal(t, ir.DoubleType, add.Right.Type())
    require.Equal(t, ir.DoubleType, stmts[3].(*ir.Ret).Expr.Type())
}

func TestTypeInference_Operators(t *testing.T) {
    fn := ir.NewFunction("operators")
    b0 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    fn.TempCount = 8
    b0.AddMove(vr(0), ir.NewString("s"))
    b0.AddMove(vr(1), ir.NewBinop(ir.OpAdd, vr(0), num(1)))
    b0.AddMove(vr(2), ir.NewBinop(ir.OpAdd, ir.NewName("o"), num(1)))
    b0.AddMove(vr(3), ir.NewBinop(ir.OpURShift, num(-1), num(0)))
    b0.AddMove(vr(4), ir.NewBinop(ir.OpBitOr, vr(3), num(0)))
    b0.AddMove(vr(5), ir.NewUnop(ir.OpNot, vr(4)))
    b0.AddMove(vr(6), ir.NewUnop(ir.OpUMinus, vr(4)))
    b0.AddMove(vr(7), ir.NewCall(ir.NewName("f"), vr(6)))
    fn.AddRet(b0, vr(7))

    cfg := inferTypes(t, fn)
    want := []ir.Type{
        ir.StringType,
        ir.StringType,
        ir.ObjectType,
        ir.UInt32Type,
        ir.SInt32Type,
        ir.BoolType,
        ir.DoubleType,
        ir.ObjectType,
    }
    for i, ty := range want {
        require.Equal(t, ty, typeOf(cfg, b0.Stmts[i]), b0.Stmts[i].String())
    }
}

func TestTypeInference_Phi(t *testing.T) {
    for _, tc := range []struct {
        name string
        a, b ir.Expr
        ty   ir.Type
    }{
        {"same", num(1), num(2), ir.SInt32Type},
        {"numbers", num(1), num(2.5), ir.DoubleType},
        {"mixed", num(1), ir.NewString("s"), ir.ObjectType},
        {"bools", ir.NewBool(true), ir.NewBool(false), ir.BoolType},
    } {
        t.Run(tc.name, func(t *testing.T) {
            fn := diamond()
            fn.Block(1).Stmts[0].(*ir.Move).Source = tc.a
            fn.Block(2).Stmts[0].(*ir.Move).Source = tc.b
            cfg := inferTypes(t, fn)
            phi := cfg.Func.Block(3).Phis()[0]
            require.Equal(t, tc.ty, cfg.Types[phi.Target.Key()])
            require.Equal(t, tc.ty, phi.Target.Ty)
        })
    }
}

func TestTypeInference_Loop(t *testing.T) {
    cfg := inferTypes(t, counter())
    fn := cfg.Func
    phi := fn.Block(1).Phis()[0]

    /* int32 on entry, double after the increment */
    require.Equal(t, ir.DoubleType, cfg.Types[phi.Target.Key()])
    require.Equal(t, ir.DoubleType, typeOf(cfg, fn.Block(2).Stmts[0]))
    require.Equal(t, ir.SInt32Type, typeOf(cfg, fn.Block(0).Stmts[0]))
    require.Equal(t, ir.SInt32Type, typeOf(cfg, fn.Block(0).Stmts[1]))
}

func TestTypeInference_Unresolved(t *testing.T) {
    fn := ir.NewFunction("unresolved")
    b0 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    fn.TempCount = 2
    b0.AddMove(vr(0), vr(1))
    fn.AddRet(b0, vr(0))

    /* a read without definition is a boxed value */
    cfg := inferTypes(t, fn)
    require.Equal(t, ir.ObjectType, typeOf(cfg, b0.Stmts[0]))
    require.Equal(t, ir.ObjectType, b0.Stmts[0].(*ir.Move).Source.Type())
}

func TestTypeInference_Unsupported(t *testing.T) {
    fn := ir.NewFunction("increment")
    b0 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    fn.TempCount = 2
    b0.AddMove(vr(0), num(1))
    b0.AddMove(vr(1), ir.NewUnop(ir.OpIncrement, vr(0)))
    fn.AddRet(b0, vr(1))

    var ce CompileError
    err := TypeInference{}.Apply(buildSSA(t, fn))
    require.True(t, errors.As(err, &ce))
    require.Equal(t, UnsupportedConstruct, ce.Kind)
    require.Equal(t, "increment", ce.Func)
}

func TestTypeInference_Budget(t *testing.T) {
    cfg := buildSSA(t, counter())
    cfg.Opts.MaxInferenceRounds = 1

    var ce CompileError
    err := TypeInference{}.Apply(cfg)
    require.True(t, errors.As(err, &ce))
    require.Equal(t, FixpointBudgetExceeded, ce.Kind)
    require.Contains(t, ce.Error(), "1 rounds")
}

func TestTypePropagation_Mixed(t *testing.T) {
    cfg := inferTypes(t, mixed())
    require.NoError(t, TypePropagation{}.Apply(cfg))
    fn := cfg.Func
    stmts := fn.Entry().Stmts
    require.Len(t, stmts, 5)

    /* one conversion of the integer operand, ahead of the addition */
    cv := converts(fn)
    require.Len(t, cv, 1)
    require.Equal(t, ir.DoubleType, cv[0].Ty)
    require.Equal(t, stmts[0].Def().Key(), cv[0].Expr.(*ir.Temp).Key())
    conv := stmts[2].(*ir.Move)
    require.Same(t, cv[0], conv.Source)

    /* the addition reads the converted value */
    mv := stmts[3].(*ir.Move)
    add := mv.Source.(*ir.Binop)
    require.Equal(t, ir.DoubleType, add.Ty)
    require.Equal(t, conv.Def().Key(), add.Left.(*ir.Temp).Key())
    require.Equal(t, stmts[1].Def().Key(), add.Right.(*ir.Temp).Key())

    /* def-use chains follow */
    du := cfg.DefUses
    require.Equal(t, []ir.Stmt{conv}, du.Uses(stmts[0].Def().Key()))
    require.Equal(t, []ir.Stmt{mv}, du.Uses(conv.Def().Key()))
    require.Equal(t, ir.DoubleType, cfg.Types[conv.Def().Key()])
    require.NoError(t, fn.Verify())
}

func TestTypePropagation_FoldConstants(t *testing.T) {
    fn := ir.NewFunction("fold")
    b0 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    b1 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    b2 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    fn.TempCount = 2
    b0.AddMove(vr(0), ir.NewBinop(ir.OpURShift, num(-1.5), num(33)))
    b0.AddMove(vr(1), ir.NewBinop(ir.OpSub, ir.NewNull(), num(1)))
    fn.AddCJump(b0, num(2), b1, b2)
    fn.AddRet(b1, vr(0))
    fn.AddRet(b2, vr(1))

    cfg := inferTypes(t, fn)
    require.NoError(t, TypePropagation{}.Apply(cfg))
    require.Empty(t, converts(fn))

    /* shift operands become int32 */
    shr := b0.Stmts[0].(*ir.Move).Source.(*ir.Binop)
    require.Equal(t, ir.SInt32Type, shr.Left.Type())
    require.Equal(t, -1.0, shr.Left.(*ir.Const).Value)
    require.Equal(t, 33.0, shr.Right.(*ir.Const).Value)

    /* null is zero */
    sub := b0.Stmts[1].(*ir.Move).Source.(*ir.Binop)
    require.Equal(t, ir.DoubleType, sub.Left.Type())
    require.Equal(t, 0.0, sub.Left.(*ir.Const).Value)

    /* and the condition a boolean */
    cond := b0.Terminator().(*ir.CJump).Cond.(*ir.Const)
    require.Equal(t, ir.BoolType, cond.Ty)
    require.Equal(t, 1.0, cond.Value)
}

func TestTypePropagation_ConvertConst(t *testing.T) {
    for _, tc := range []struct {
        c  *ir.Const
        ty ir.Type
        v  float64
    }{
        {num(4294967297), ir.SInt32Type, 1},
        {num(2147483648), ir.SInt32Type, -2147483648},
        {num(-1), ir.UInt32Type, 4294967295},
        {num(math.Inf(1)), ir.SInt32Type, 0},
        {num(-3.7), ir.SInt32Type, -3},
        {ir.NewBool(true), ir.DoubleType, 1},
        {ir.NewUndefined(), ir.BoolType, 0},
        {num(0.1), ir.BoolType, 1},
    } {
        src := tc.c.String()
        require.True(t, convertConst(tc.c, tc.ty), src)
        require.Equal(t, tc.ty, tc.c.Ty, src)
        require.Equal(t, tc.v, tc.c.Value, src)
    }

    /* strings are never unboxed */
    require.False(t, convertConst(num(1), ir.StringType))
}

func TestTypePropagation_PhiOperand(t *testing.T) {
    fn := diamond()
    fn.Block(2).Stmts[0].(*ir.Move).Source = num(2.5)
    cfg := inferTypes(t, fn)
    require.NoError(t, TypePropagation{}.Apply(cfg))

    /* the conversion happens at the end of the predecessor */
    b1 := fn.Block(1)
    require.Len(t, b1.Stmts, 3)
    conv := b1.Stmts[1].(*ir.Move)
    require.Equal(t, b1.Stmts[0].Def().Key(), conv.Source.(*ir.Convert).Expr.(*ir.Temp).Key())
    require.IsType(t, &ir.Jump{}, b1.Stmts[2])

    /* and the phi reads the converted temp */
    phi := fn.Block(3).Phis()[0]
    require.Equal(t, conv.Def().Key(), phi.Incoming[0].(*ir.Temp).Key())
    require.Equal(t, ir.DoubleType, phi.Incoming[0].Type())
    require.Len(t, fn.Block(2).Stmts, 2)
    require.Same(t, b1, cfg.DefUses.Get(conv.Def().Key()).Block)
    require.Equal(t, []ir.Stmt{phi}, cfg.DefUses.Uses(conv.Def().Key()))
}

func TestTypePropagation_Hoist(t *testing.T) {
    fn := ir.NewFunction("hoist")
    b0 := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    fn.TempCount = 2
    b0.AddMove(vr(0), num(1))
    b0.AddMove(vr(1), ir.NewBinop(ir.OpMul, ir.NewBinop(ir.OpBitAnd, vr(0), num(3)), num(0.5)))
    fn.AddRet(b0, vr(1))

    cfg := inferTypes(t, fn)
    require.NoError(t, TypePropagation{}.Apply(cfg))
    require.Len(t, b0.Stmts, 4)

    /* the inner expression is computed into an int32 temp */
    hoist := b0.Stmts[1].(*ir.Move)
    require.Equal(t, ir.SInt32Type, hoist.Def().Ty)
    require.Equal(t, ir.OpBitAnd, hoist.Source.(*ir.Binop).Op)

    /* and converted where it is used */
    mul := b0.Stmts[2].(*ir.Move).Source.(*ir.Binop)
    cv := mul.Left.(*ir.Convert)
    require.Equal(t, ir.DoubleType, cv.Ty)
    require.Equal(t, hoist.Def().Key(), cv.Expr.(*ir.Temp).Key())

    /* the operand of the inner expression moved along */
    du := cfg.DefUses
    require.Equal(t, []ir.Stmt{hoist}, du.Uses(b0.Stmts[0].Def().Key()))
    require.Equal(t, []ir.Stmt{b0.Stmts[2]}, du.Uses(hoist.Def().Key()))
}
