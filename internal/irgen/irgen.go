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

// Package irgen generates random, structured functions for tests: a few
// virtual registers and locals, all initialized in the entry block,
// followed by nested sequences of assignments, branches and loops. Loop
// bodies may break out of or continue any enclosing loop.
package irgen

import (
    `fmt`
    `math/rand`

    `github.com/brianvoe/gofakeit/v6`

    `github.com/cloudwego/vmopt/ir`
)

// Config bounds the shape of the generated functions.
type Config struct {
    MaxVars   int
    MaxLocals int
    MaxDepth  int
    MaxSeq    int
}

var DefaultConfig = Config{
    MaxVars:   5,
    MaxLocals: 2,
    MaxDepth:  3,
    MaxSeq:    3,
}

type _Loop struct {
    header *ir.BasicBlock
    exit   *ir.BasicBlock
}

type _Generator struct {
    f       *gofakeit.Faker
    fn      *ir.Function
    cfg     Config
    nvars   int
    nlocals int
    loops   []_Loop
}

// Random generates a function from the seed with DefaultConfig.
func Random(seed int64) *ir.Function {
    return Generate(seed, DefaultConfig)
}

// Generate returns the same function for the same seed and config.
func Generate(seed int64, cfg Config) *ir.Function {
    g := &_Generator{
        f:   gofakeit.NewCustom(rand.NewSource(seed).(rand.Source64)),
        fn:  ir.NewFunction(fmt.Sprintf("random_%d", seed)),
        cfg: cfg,
    }
    g.nvars = g.f.Number(1, cfg.MaxVars)
    g.nlocals = g.f.Number(0, cfg.MaxLocals)
    g.fn.TempCount = g.nvars

    /* every variable starts with a value */
    entry := g.fn.NewBlock(ir.NoBlock, ir.NoBlock)
    for i := 0; i < g.nvars+g.nlocals; i++ {
        entry.AddMove(g.reg(i), ir.NewNumber(float64(g.f.Number(0, 100))))
    }

    /* then the body */
    bb := g.region(entry, ir.NoBlock, cfg.MaxDepth)
    g.fn.AddRet(bb, g.operand())
    return g.fn
}

// reg returns the i-th variable, virtual registers first, then locals.
func (self *_Generator) reg(i int) *ir.Temp {
    if i < self.nvars {
        return ir.NewTemp(ir.VirtualRegister, i, 0)
    } else {
        return ir.NewTemp(ir.Local, i-self.nvars, 0)
    }
}

func (self *_Generator) anyReg() *ir.Temp {
    return self.reg(self.f.Number(0, self.nvars+self.nlocals-1))
}

func (self *_Generator) operand() ir.Expr {
    if self.f.Number(0, 3) == 0 {
        return ir.NewNumber(float64(self.f.Number(-5, 5)))
    } else {
        return self.anyReg()
    }
}

func (self *_Generator) cond() ir.Expr {
    return ir.NewBinop(ir.OpLt, self.anyReg(), self.operand())
}

var binops = [...]ir.AluOp{
    ir.OpAdd,
    ir.OpSub,
    ir.OpMul,
    ir.OpBitAnd,
    ir.OpURShift,
}

func (self *_Generator) assign(bb *ir.BasicBlock) {
    for n := self.f.Number(0, 3); n > 0; n-- {
        if self.f.Bool() {
            bb.AddMove(self.anyReg(), self.operand())
        } else {
            op := binops[self.f.Number(0, len(binops)-1)]
            bb.AddMove(self.anyReg(), ir.NewBinop(op, self.operand(), self.operand()))
        }
    }
}

// escape leaves the current region conditionally, with a break or a
// continue of any of the enclosing loops.
func (self *_Generator) escape(bb *ir.BasicBlock, group ir.BlockID) *ir.BasicBlock {
    fn := self.fn
    lp := self.loops[self.f.Number(0, len(self.loops)-1)]
    tb := fn.NewBlock(group, ir.NoBlock)
    jb := fn.NewBlock(group, ir.NoBlock)
    fn.AddCJump(bb, self.cond(), tb, jb)
    self.assign(tb)

    /* break or continue */
    if self.f.Bool() {
        fn.AddJump(tb, lp.exit)
    } else {
        fn.AddJump(tb, lp.header)
    }
    return jb
}

// region appends a random sequence of constructs to bb and returns the
// block control continues in.
func (self *_Generator) region(bb *ir.BasicBlock, group ir.BlockID, depth int) *ir.BasicBlock {
    fn := self.fn
    for n := self.f.Number(1, self.cfg.MaxSeq); n > 0; n-- {
        self.assign(bb)
        if depth <= 0 {
            continue
        }

        switch self.f.Number(0, 4) {
        case 1:
            tb := fn.NewBlock(group, ir.NoBlock)
            eb := fn.NewBlock(group, ir.NoBlock)
            jb := fn.NewBlock(group, ir.NoBlock)
            fn.AddCJump(bb, self.cond(), tb, eb)
            fn.AddJump(self.region(tb, group, depth-1), jb)
            fn.AddJump(self.region(eb, group, depth-1), jb)
            bb = jb
        case 2:
            tb := fn.NewBlock(group, ir.NoBlock)
            jb := fn.NewBlock(group, ir.NoBlock)
            fn.AddCJump(bb, self.cond(), tb, jb)
            fn.AddJump(self.region(tb, group, depth-1), jb)
            bb = jb
        case 3:
            hb := fn.NewBlock(group, ir.NoBlock)
            hb.GroupStart = true
            body := fn.NewBlock(hb.Index, ir.NoBlock)
            xb := fn.NewBlock(group, ir.NoBlock)
            fn.AddJump(bb, hb)
            fn.AddCJump(hb, self.cond(), body, xb)
            self.loops = append(self.loops, _Loop{header: hb, exit: xb})
            fn.AddJump(self.region(body, hb.Index, depth-1), hb)
            self.loops = self.loops[:len(self.loops)-1]
            bb = xb
        case 4:
            if len(self.loops) != 0 {
                bb = self.escape(bb, group)
            }
        }
    }
    return bb
}
