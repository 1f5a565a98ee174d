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

package irgen

import (
    `testing`

    `github.com/stretchr/testify/require`

    `github.com/cloudwego/vmopt/ir`
)

func TestRandom_WellFormed(t *testing.T) {
    for seed := int64(0); seed < 100; seed++ {
        fn := Random(seed)
        require.NoError(t, fn.Verify(), "seed %d:\n%s", seed, fn)
    }
}

func TestRandom_Deterministic(t *testing.T) {
    for seed := int64(0); seed < 20; seed++ {
        require.Equal(t, Random(seed).String(), Random(seed).String())
    }
}

func TestGenerate_Flat(t *testing.T) {
    fn := Generate(7, Config{MaxVars: 2, MaxDepth: 0, MaxSeq: 2})
    require.Len(t, fn.Blocks, 1)
    require.LessOrEqual(t, fn.TempCount, 2)
    require.IsType(t, &ir.Ret{}, fn.Entry().Terminator())
}

func TestGenerate_Loops(t *testing.T) {
    loops := 0
    for seed := int64(0); seed < 50; seed++ {
        for _, bb := range Random(seed).Blocks {
            if bb.GroupStart {
                loops++
                require.GreaterOrEqual(t, len(bb.In), 2)
                require.Len(t, bb.Out, 2)
            }
        }
    }
    require.NotZero(t, loops)
}

func TestGenerate_Escapes(t *testing.T) {
    breaks, labeled, continues, locals := 0, 0, 0, 0
    for seed := int64(0); seed < 200; seed++ {
        fn := Random(seed)
        for _, bb := range fn.Blocks {
            if bb.GroupStart {
                continues += len(bb.In) - 2
                continue
            }

            /* edges coming from inside a loop the block is not part of */
            for _, id := range bb.In {
                p := fn.Block(id)
                if p.Group != bb.Group && p.Index != bb.Group {
                    breaks++
                    if p.Group != ir.NoBlock && fn.Block(p.Group).Group != bb.Group {
                        labeled++
                    }
                }
            }
        }
        fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
            if d := s.Def(); d != nil && d.Kind == ir.Local {
                locals++
            }
        })
    }
    require.NotZero(t, breaks)
    require.NotZero(t, labeled)
    require.NotZero(t, continues)
    require.NotZero(t, locals)
}

func TestGenerate_NoLocals(t *testing.T) {
    fn := Generate(3, Config{MaxVars: 3, MaxLocals: 0, MaxDepth: 2, MaxSeq: 2})
    fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        for _, v := range ir.UsedTemps(s) {
            require.Equal(t, ir.VirtualRegister, v.Kind)
        }
    })
}
