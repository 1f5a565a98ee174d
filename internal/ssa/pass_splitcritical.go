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
    `fmt`

    `github.com/cloudwego/vmopt/ir`
)

type _CrEdge struct {
    to    *ir.BasicBlock
    from  *ir.BasicBlock
    index int
}

// SplitCritical splits critical edges (those that go from a block with
// more than one outedge to a block with more than one inedge) by inserting
// an empty block.
//
// Out-of-SSA conversion needs a critical-edge-free CFG so the moves of a
// phi node can be placed at the end of the predecessors.
type SplitCritical struct{}

func (SplitCritical) Apply(cfg *CFG) error {
    var edges []_CrEdge
    fn := cfg.Func

    /* find all critical edges */
    for _, bb := range fn.Blocks {
        if len(bb.In) > 1 {
            for i, id := range bb.In {
                if p := fn.Block(id); len(p.Out) > 1 {
                    edges = append(edges, _CrEdge{
                        to:    bb,
                        from:  p,
                        index: i,
                    })
                }
            }
        }
    }

    /* insert empty block between the edges */
    for _, e := range edges {
        bb := fn.NewBlock(e.from.SuccessorGroup(), e.to.Catch)
        bb.Stmts = []ir.Stmt{&ir.Jump{Target: e.to.Index}}
        bb.In = []ir.BlockID{e.from.Index}
        bb.Out = []ir.BlockID{e.to.Index}

        /* update the successor, phi operands keep their slot */
        e.to.In[e.index] = bb.Index

        /* update the predecessor and its terminator */
        i := e.from.SuccIndex(e.to.Index)
        if i < 0 {
            panic(fmt.Sprintf("ssa: L%d is not a successor of L%d", e.to.Index, e.from.Index))
        }
        e.from.Out[i] = bb.Index
        e.from.Terminator().Retarget(e.to.Index, bb.Index)

        /* the new block is dominated by the source of the edge */
        cfg.UpdateImmediateDominator(bb.Index, e.from.Index)
    }

    statAdd(&EdgeSplitCount, len(edges))
    cfg.tracef("%s: split %d critical edges", fn.Name, len(edges))
    return nil
}

// CheckCritical fails when a critical edge is left in the CFG.
type CheckCritical struct{}

func (CheckCritical) Apply(cfg *CFG) error {
    for _, bb := range cfg.Func.Blocks {
        if len(bb.Out) > 1 {
            for _, id := range bb.Out {
                if len(cfg.Block(id).In) > 1 {
                    return errMalformed(cfg.Func.Name, nil, "critical edge between L%d and L%d", bb.Index, id)
                }
            }
        }
    }
    return nil
}
