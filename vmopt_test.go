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

package vmopt

import (
    `context`
    `errors`
    `fmt`
    `testing`

    `github.com/stretchr/testify/require`
    `go.uber.org/multierr`
    `go.uber.org/zap`
    `go.uber.org/zap/zapcore`
    `go.uber.org/zap/zaptest/observer`

    `github.com/cloudwego/vmopt/debug`
    `github.com/cloudwego/vmopt/diag`
    `github.com/cloudwego/vmopt/internal/irgen`
    `github.com/cloudwego/vmopt/internal/opts`
    `github.com/cloudwego/vmopt/ir`
)

func reg(i int) *ir.Temp {
    return ir.NewTemp(ir.VirtualRegister, i, 0)
}

func blocks(fn *ir.Function, n int) []*ir.BasicBlock {
    ret := make([]*ir.BasicBlock, n)
    for i := range ret {
        ret[i] = fn.NewBlock(ir.NoBlock, ir.NoBlock)
    }
    return ret
}

func phis(fn *ir.Function) (ret []*ir.Phi) {
    for _, bb := range fn.Blocks {
        ret = append(ret, bb.Phis()...)
    }
    return
}

// ifElse: x = input < 1 ? 1 : 2; return x
func ifElse() *ir.Function {
    fn := ir.NewFunction("ifElse")
    bb := blocks(fn, 4)
    fn.TempCount = 2
    bb[0].AddMove(reg(0), ir.NewName("input"))
    fn.AddCJump(bb[0], ir.NewBinop(ir.OpLt, reg(0), ir.NewNumber(1)), bb[1], bb[2])
    bb[1].AddMove(reg(1), ir.NewNumber(1))
    fn.AddJump(bb[1], bb[3])
    bb[2].AddMove(reg(1), ir.NewNumber(2))
    fn.AddJump(bb[2], bb[3])
    fn.AddRet(bb[3], reg(1))
    return fn
}

// loop: x = 0; n = 10; while (x < n) x = x + 1; return x
func loop() *ir.Function {
    fn := ir.NewFunction("loop")
    bb := blocks(fn, 4)
    bb[1].GroupStart = true
    bb[2].Group = bb[1].Index
    fn.TempCount = 2
    bb[0].AddMove(reg(0), ir.NewNumber(0))
    bb[0].AddMove(reg(1), ir.NewNumber(10))
    fn.AddJump(bb[0], bb[1])
    fn.AddCJump(bb[1], ir.NewBinop(ir.OpLt, reg(0), reg(1)), bb[2], bb[3])
    bb[2].AddMove(reg(0), ir.NewBinop(ir.OpAdd, reg(0), ir.NewNumber(1)))
    fn.AddJump(bb[2], bb[1])
    fn.AddRet(bb[3], reg(0))
    return fn
}

func broken(name string) *ir.Function {
    fn := ir.NewFunction(name)
    bb := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    bb.AddMove(reg(0), ir.NewNumber(1))
    return fn
}

func TestOptimize_Merge(t *testing.T) {
    fn := ifElse()
    opt := NewOptimizer(fn, WithKeepSSA(true), WithoutOptimization(true))
    require.NoError(t, opt.Run())
    require.True(t, opt.InSSA())
    require.Same(t, fn, opt.Function())

    /* a single phi in the merge block, fed by both arms */
    ps := phis(fn)
    require.Len(t, ps, 1)
    require.Equal(t, 1, fn.Block(3).PhiCount())
    require.Equal(t, fn.Block(1).Stmts[0].Def().Key(), ps[0].Incoming[0].(*ir.Temp).Key())
    require.Equal(t, fn.Block(2).Stmts[0].Def().Key(), ps[0].Incoming[1].(*ir.Temp).Key())
    require.Equal(t, ir.SInt32Type, opt.Types()[ps[0].Target.Key()])
}

func TestOptimize_MergeLiterals(t *testing.T) {
    fn := ifElse()
    opt := NewOptimizer(fn, WithKeepSSA(true))
    require.NoError(t, opt.Run())

    /* the arms are empty, the phi selects the literals */
    ps := phis(fn)
    require.Len(t, ps, 1)
    require.Equal(t, "1", ps[0].Incoming[0].String())
    require.Equal(t, "2", ps[0].Incoming[1].String())
    require.Len(t, fn.Block(1).Stmts, 1)
    require.Len(t, fn.Block(2).Stmts, 1)
    require.Equal(t, ir.SInt32Type, opt.Types()[ps[0].Target.Key()])
}

func TestOptimize_DeadAssignment(t *testing.T) {
    fn := ir.NewFunction("dead")
    bb := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    bb.AddMove(fn.NewTemp(), ir.NewNumber(1))
    fn.AddRet(bb, ir.NewUndefined())

    require.NoError(t, Optimize(fn))
    require.Len(t, fn.Entry().Stmts, 1)
    require.Equal(t, "return undefined", fn.Entry().Stmts[0].String())
}

func TestOptimize_Loop(t *testing.T) {
    fn := loop()
    opt := NewOptimizer(fn, WithKeepSSA(true), WithoutOptimization(true))
    require.NoError(t, opt.Run())
    require.Equal(t, map[ir.BlockID]ir.BlockID{1: 2}, opt.LoopEnds())
    require.Len(t, fn.Block(1).Phis(), 1)

    /* the bound is live up to the back edge */
    n := fn.Entry().Stmts[1].Def().Key()
    end := fn.Block(2).Terminator().ID()
    found := false
    for _, iv := range opt.LifeTimeIntervals() {
        if iv.Temp.Key() == n {
            found = true
            require.True(t, iv.Covers(end), iv.String())
        }
    }
    require.True(t, found)
}

func TestOptimize_Eval(t *testing.T) {
    fn := ifElse()
    fn.UsesEval = true
    opt := NewOptimizer(fn)
    require.NoError(t, opt.Run())
    require.False(t, opt.InSSA())
    require.Empty(t, opt.LifeTimeIntervals())

    /* same blocks and edges, no phis, no registers */
    require.Len(t, fn.Blocks, 4)
    require.Equal(t, []ir.BlockID{1, 2}, fn.Block(3).In)
    require.Empty(t, phis(fn))
    fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        for _, v := range ir.UsedTemps(s) {
            require.Equal(t, ir.StackSlot, v.Kind)
        }
    })
}

func TestOptimize_Conversion(t *testing.T) {
    fn := ir.NewFunction("mixed")
    bb := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    a, b, c := fn.NewTemp(), fn.NewTemp(), fn.NewTemp()
    bb.AddMove(a, ir.NewNumber(1))
    bb.AddMove(b, ir.NewNumber(1.5))
    bb.AddMove(c, ir.NewBinop(ir.OpAdd, ir.CloneExpr(a), ir.CloneExpr(b)))
    fn.AddRet(bb, ir.CloneExpr(c))

    opt := NewOptimizer(fn, WithKeepSSA(true), WithoutOptimization(true))
    require.NoError(t, opt.Run())

    /* one conversion, the sum is a double */
    nconv := 0
    var sum *ir.Move
    fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        if mv, ok := s.(*ir.Move); ok {
            if _, ok := mv.Source.(*ir.Convert); ok {
                nconv++
            } else if _, ok := mv.Source.(*ir.Binop); ok {
                sum = mv
            }
        }
    })
    require.Equal(t, 1, nconv)
    require.NotNil(t, sum)
    require.Equal(t, ir.DoubleType, sum.Source.Type())
    require.Equal(t, ir.DoubleType, opt.Types()[sum.Def().Key()])
}

func TestOptimize_Folding(t *testing.T) {
    fn := ir.NewFunction("mixed")
    bb := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    a, b, c := fn.NewTemp(), fn.NewTemp(), fn.NewTemp()
    bb.AddMove(a, ir.NewNumber(1))
    bb.AddMove(b, ir.NewNumber(1.5))
    bb.AddMove(c, ir.NewBinop(ir.OpAdd, ir.CloneExpr(a), ir.CloneExpr(b)))
    fn.AddRet(bb, ir.CloneExpr(c))

    /* everything folds into the returned value */
    before := debug.GetStats().Folded
    require.NoError(t, Optimize(fn))
    require.Greater(t, debug.GetStats().Folded, before)
    require.Len(t, fn.Entry().Stmts, 1)
    require.Equal(t, "return 2.5", fn.Entry().Stmts[0].String())
}

func TestOptimize_ConstantBranch(t *testing.T) {
    fn := ir.NewFunction("branch")
    bb := blocks(fn, 4)
    fn.TempCount = 2
    bb[0].AddMove(reg(0), ir.NewNumber(3))
    fn.AddCJump(bb[0], ir.NewBinop(ir.OpGt, reg(0), ir.NewNumber(2)), bb[1], bb[2])
    bb[1].AddMove(reg(1), ir.NewNumber(1))
    fn.AddJump(bb[1], bb[3])
    bb[2].AddMove(reg(1), ir.NewCall(ir.NewName("f")))
    fn.AddJump(bb[2], bb[3])
    fn.AddRet(bb[3], reg(1))

    /* the false arm is gone, along with the phi */
    opt := NewOptimizer(fn)
    before := debug.GetStats().Branches
    require.NoError(t, opt.Run())
    require.Greater(t, debug.GetStats().Branches, before)
    require.NoError(t, fn.Verify())
    require.Len(t, fn.Blocks, 3)
    require.True(t, fn.Block(2).Removed())
    require.Empty(t, phis(fn))
    require.Equal(t, "return 1", fn.Block(3).Terminator().(*ir.Ret).String())

    /* the blocks fall through one another */
    require.Equal(t, []*ir.BasicBlock{fn.Block(0), fn.Block(1), fn.Block(3)}, fn.Blocks)
    require.Len(t, opt.OptionalJumps(), 2)
    for _, b := range fn.Blocks[:2] {
        require.True(t, opt.OptionalJumps()[b.Terminator().(*ir.Jump)])
    }
}

func TestOptimize_CriticalEdge(t *testing.T) {
    fn := ir.NewFunction("critical")
    bb := blocks(fn, 3)
    fn.AddCJump(bb[0], ir.NewName("c"), bb[1], bb[2])
    fn.AddJump(bb[2], bb[1])
    fn.AddRet(bb[1], ir.NewUndefined())

    before := debug.GetStats().EdgesSplit
    require.NoError(t, Optimize(fn))
    require.Len(t, fn.Blocks, 4)
    require.Greater(t, debug.GetStats().EdgesSplit, before)
    for _, b := range fn.Blocks {
        if len(b.Out) > 1 {
            for _, id := range b.Out {
                require.Len(t, fn.Block(id).In, 1)
            }
        }
    }
}

func TestOptimize_Fallback(t *testing.T) {
    fn := loop()
    fn.Block(2).Stmts[0].(*ir.Move).Source = ir.NewUnop(ir.OpIncrement, reg(0))
    before := debug.GetStats().Fallbacks

    /* the error is reported, the function is still usable */
    var ce CompileError
    opt := NewOptimizer(fn)
    err := opt.Run()
    require.True(t, errors.As(err, &ce))
    require.Equal(t, UnsupportedConstruct, ce.Kind)
    require.Equal(t, "loop", ce.Func)
    require.Greater(t, debug.GetStats().Fallbacks, before)
    require.False(t, opt.InSSA())
    require.NoError(t, fn.Verify())
    require.Empty(t, phis(fn))
    require.Equal(t, "&0 = ++&0", fn.Block(2).Stmts[0].String())
}

func TestOptimize_Malformed(t *testing.T) {
    before := debug.GetStats().Fallbacks
    var ce CompileError
    err := Optimize(broken("broken"))
    require.True(t, errors.As(err, &ce))
    require.Equal(t, MalformedCfg, ce.Kind)
    require.Equal(t, before, debug.GetStats().Fallbacks)
}

func TestOptimize_Budget(t *testing.T) {
    fn := loop()
    opt := NewOptimizer(fn, WithMaxInferenceRounds(1))
    before := debug.GetStats().Fallbacks

    var ce CompileError
    require.True(t, errors.As(opt.Run(), &ce))
    require.Equal(t, FixpointBudgetExceeded, ce.Kind)

    /* the function is restored and lowered, no phi is left behind */
    require.Greater(t, debug.GetStats().Fallbacks, before)
    require.False(t, opt.InSSA())
    require.NoError(t, fn.Verify())
    require.Empty(t, phis(fn))
    require.Equal(t, "&0 = (&0 + 1)", fn.Block(2).Stmts[0].String())
}

func TestOptimize_NoOptimization(t *testing.T) {
    fn := ir.NewFunction("dead")
    bb := fn.NewBlock(ir.NoBlock, ir.NoBlock)
    bb.AddMove(fn.NewTemp(), ir.NewNumber(1))
    fn.AddRet(bb, ir.NewUndefined())

    /* the dead assignment survives */
    require.NoError(t, Optimize(fn, WithoutOptimization(true)))
    require.Len(t, fn.Entry().Stmts, 2)
}

func TestOptimize_WithoutSSA(t *testing.T) {
    fn := loop()
    opt := NewOptimizer(fn, WithoutSSA(true))
    require.NoError(t, opt.Run())
    require.False(t, opt.InSSA())
    require.Nil(t, opt.LifeTimeIntervals())
    require.Equal(t, "(&0 < &1)", fn.Block(1).Terminator().(*ir.CJump).Cond.String())
}

func TestOptimize_Diagnostics(t *testing.T) {
    core, logs := observer.New(zapcore.DebugLevel)
    sink := diag.NewZapSink(zap.New(core))
    require.NoError(t, Optimize(loop(), WithDiagnostics(sink)))

    require.NotZero(t, logs.FilterMessage(`loop: running pass "Type Inference"`).Len())
    require.NotZero(t, logs.FilterMessage("function dump").FilterField(zap.String("stage", "SSA")).Len())
    require.NotZero(t, logs.FilterMessage("value dump").FilterField(zap.String("label", "loop: temp types")).Len())
}

func TestOptimizer_Empty(t *testing.T) {
    opt := NewOptimizer(loop())
    require.False(t, opt.InSSA())
    require.Nil(t, opt.Types())
    require.Nil(t, opt.LoopEnds())
    require.Nil(t, opt.LifeTimeIntervals())
    require.Nil(t, opt.OptionalJumps())
}

func TestOptimizeAll(t *testing.T) {
    var fns []*ir.Function
    for seed := int64(0); seed < 64; seed++ {
        fns = append(fns, irgen.Random(seed))
    }
    fns = append(fns, broken("bad_1"), broken("bad_2"))

    /* every function is optimized, the failures are all reported */
    err := OptimizeAll(context.Background(), fns, WithWorkers(3))
    errs := multierr.Errors(err)
    require.Len(t, errs, 2)
    for _, e := range errs {
        var ce CompileError
        require.True(t, errors.As(e, &ce))
        require.Equal(t, MalformedCfg, ce.Kind)
    }
    for _, fn := range fns[:64] {
        require.NoError(t, fn.Verify(), fn.Name)
        require.Empty(t, phis(fn), fn.Name)
    }
}

func TestOptimizeAll_Unbounded(t *testing.T) {
    fns := []*ir.Function{ifElse(), loop()}
    require.NoError(t, OptimizeAll(context.Background(), fns, WithWorkers(0), WithKeepSSA(true)))
    require.Len(t, phis(fns[0]), 1)
    require.Len(t, phis(fns[1]), 1)
}

func TestOptimizeAll_Cancelled(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    /* nothing is touched */
    fn := loop()
    before := fn.String()
    err := OptimizeAll(ctx, []*ir.Function{fn})
    require.True(t, errors.Is(err, context.Canceled))
    require.Equal(t, before, fn.String())
}

func TestOptions(t *testing.T) {
    o := buildOptions([]Option{
        WithoutSSA(true),
        WithoutOptimization(true),
        WithKeepSSA(true),
        WithMaxInferenceRounds(7),
        WithWorkers(2),
        WithDiagnostics(nil),
    })
    require.True(t, o.NoSSA)
    require.True(t, o.NoOpt)
    require.True(t, o.KeepSSA)
    require.Equal(t, 7, o.MaxInferenceRounds)
    require.Equal(t, 2, o.Workers)
    require.Equal(t, diag.Nop{}, o.Sink)
    require.False(t, o.Trace())

    /* invalid values */
    require.PanicsWithValue(t, "vmopt: invalid inference round limit: 0", func() { WithMaxInferenceRounds(0) })
    require.PanicsWithValue(t, "vmopt: invalid worker count: -1", func() { WithWorkers(-1) })
}

func TestSetMaxInferenceRounds(t *testing.T) {
    old := SetMaxInferenceRounds(1)
    defer SetMaxInferenceRounds(old)
    require.Equal(t, 1, opts.MaxInferenceRounds)

    /* the new default applies to functions optimized from now on */
    var ce CompileError
    fn := loop()
    require.True(t, errors.As(Optimize(fn), &ce))
    require.Equal(t, FixpointBudgetExceeded, ce.Kind)
    require.Empty(t, phis(fn))
    require.Equal(t, 1, SetMaxInferenceRounds(old))
}

func TestCompileError_Message(t *testing.T) {
    err := Optimize(broken("f"))
    require.EqualError(t, err, fmt.Sprintf("malformed CFG in function %q: invalid control flow graph: L0: block is not terminated", "f"))
}
