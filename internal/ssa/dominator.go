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

/** This is an implementation of the Lengauer-Tarjan algorithm described in
 *  https://doi.org/10.1145%2F357062.357071, in the "semidominator with
 *  path compression" variant without balanced linking.
 */

package ssa

import (
    `fmt`
    `sort`

    `github.com/oleiade/lane`

    `github.com/cloudwego/vmopt/ir`
)

const _None = -1

// All the indices of a node refer to DFS numbers.
type _LtNode struct {
    node     *ir.BasicBlock
    parent   int
    semi     int
    idom     int
    samedom  int
    ancestor int
    best     int
    bucket   []int
}

type _LtEdge struct {
    to   *ir.BasicBlock
    from int
}

type _LengauerTarjan struct {
    fn     *ir.Function
    nodes  []_LtNode
    vertex map[ir.BlockID]int
}

func newLengauerTarjan(fn *ir.Function) *_LengauerTarjan {
    return &_LengauerTarjan{
        fn:     fn,
        vertex: make(map[ir.BlockID]int, len(fn.Blocks)),
    }
}

func (self *_LengauerTarjan) dfs(root *ir.BasicBlock) {
    s := lane.NewStack()
    s.Push(_LtEdge{to: root, from: _None})

    /* the pusher of an edge is always on the current DFS path when the
     * edge is popped, so it is the parent in the spanning tree */
    for !s.Empty() {
        e := s.Pop().(_LtEdge)
        if _, ok := self.vertex[e.to.Index]; ok {
            continue
        }

        /* number the node */
        i := len(self.nodes)
        self.vertex[e.to.Index] = i
        self.nodes = append(self.nodes, _LtNode{
            node:     e.to,
            parent:   e.from,
            semi:     _None,
            idom:     _None,
            samedom:  _None,
            ancestor: _None,
            best:     _None,
        })

        /* push in reverse so the first successor is visited first */
        for j := len(e.to.Out) - 1; j >= 0; j-- {
            if _, ok := self.vertex[e.to.Out[j]]; !ok {
                s.Push(_LtEdge{to: self.fn.Block(e.to.Out[j]), from: i})
            }
        }
    }
}

func (self *_LengauerTarjan) eval(v int) int {
    a := self.nodes[v].ancestor
    if self.nodes[a].ancestor != _None {
        b := self.eval(a)
        self.nodes[v].ancestor = self.nodes[a].ancestor
        if self.nodes[b].semi < self.nodes[self.nodes[v].best].semi {
            self.nodes[v].best = b
        }
    }
    return self.nodes[v].best
}

func (self *_LengauerTarjan) link(p int, n int) {
    self.nodes[n].ancestor = p
    self.nodes[n].best = n
}

func (self *_LengauerTarjan) compute() {
    for n := len(self.nodes) - 1; n > 0; n-- {
        p := self.nodes[n].parent
        s := p

        /* find the semidominator */
        for _, id := range self.nodes[n].node.In {
            var ss int
            v, ok := self.vertex[id]

            /* unreachable predecessors do not count */
            if !ok {
                continue
            }

            /* tree or forward edge, or a cross/back edge */
            if v <= n {
                ss = v
            } else {
                ss = self.nodes[self.eval(v)].semi
            }
            if ss < s {
                s = ss
            }
        }

        /* defer the dominator calculation until the path is linked */
        self.nodes[n].semi = s
        self.nodes[s].bucket = append(self.nodes[s].bucket, n)
        self.link(p, n)

        /* resolve the bucket of the parent */
        for _, v := range self.nodes[p].bucket {
            if y := self.eval(v); self.nodes[y].semi == self.nodes[v].semi {
                self.nodes[v].idom = p
            } else {
                self.nodes[v].samedom = y
            }
        }
        self.nodes[p].bucket = nil
    }

    /* deferred dominators, in DFS order */
    for n := 1; n < len(self.nodes); n++ {
        if sd := self.nodes[n].samedom; sd != _None {
            self.nodes[n].idom = self.nodes[sd].idom
        }
    }
}

type DominatorTree struct {
    Root              *ir.BasicBlock
    DominatedBy       map[ir.BlockID]ir.BlockID
    DominatorOf       map[ir.BlockID][]ir.BlockID
    DominanceFrontier map[ir.BlockID][]ir.BlockID
}

// BuildDominatorTree computes immediate dominators and dominance frontiers
// of every block. All blocks must be reachable from the entry block.
func BuildDominatorTree(fn *ir.Function) *DominatorTree {
    lt := newLengauerTarjan(fn)
    lt.dfs(fn.Entry())

    /* every block must have been numbered */
    for _, bb := range fn.Blocks {
        if _, ok := lt.vertex[bb.Index]; !ok {
            panic(fmt.Sprintf("ssa: block L%d is unreachable from the entry block", bb.Index))
        }
    }

    /* run the algorithm */
    lt.compute()
    ret := &DominatorTree{
        Root:              fn.Entry(),
        DominatedBy:       make(map[ir.BlockID]ir.BlockID, len(lt.nodes)),
        DominatorOf:       make(map[ir.BlockID][]ir.BlockID, len(lt.nodes)),
        DominanceFrontier: make(map[ir.BlockID][]ir.BlockID, len(lt.nodes)),
    }

    /* build the tree, children in DFS order */
    for _, p := range lt.nodes[1:] {
        idom := lt.nodes[p.idom].node.Index
        ret.DominatedBy[p.node.Index] = idom
        ret.DominatorOf[idom] = append(ret.DominatorOf[idom], p.node.Index)
    }

    /* compute the dominance frontiers */
    ret.computeFrontier(fn, ret.Root)
    return ret
}

func (self *DominatorTree) computeFrontier(fn *ir.Function, bb *ir.BasicBlock) {
    df := make(map[ir.BlockID]bool)

    /* DF-local: successors not immediately dominated by this block */
    for _, y := range bb.Out {
        if idom, ok := self.DominatedBy[y]; !ok || idom != bb.Index {
            df[y] = true
        }
    }

    /* DF-up: frontiers of the children that are not strictly dominated */
    for _, c := range self.DominatorOf[bb.Index] {
        self.computeFrontier(fn, fn.Block(c))
        for _, w := range self.DominanceFrontier[c] {
            if w == bb.Index || !self.Dominates(bb.Index, w) {
                df[w] = true
            }
        }
    }

    /* keep the frontier sorted */
    ret := make([]ir.BlockID, 0, len(df))
    for id := range df {
        ret = append(ret, id)
    }
    sort.Slice(ret, func(i int, j int) bool {
        return ret[i] < ret[j]
    })
    self.DominanceFrontier[bb.Index] = ret
}

// ImmediateDominator returns the immediate dominator of a block, the
// second result is false for the root.
func (self *DominatorTree) ImmediateDominator(id ir.BlockID) (ir.BlockID, bool) {
    idom, ok := self.DominatedBy[id]
    return idom, ok
}

// Dominates reports whether every path from the root to b goes through a.
// Every block dominates itself.
func (self *DominatorTree) Dominates(a ir.BlockID, b ir.BlockID) bool {
    for it, ok := b, true; ok; it, ok = self.DominatedBy[it] {
        if it == a {
            return true
        }
    }
    return false
}

// UpdateImmediateDominator makes idom the immediate dominator of a block
// created after the tree was built, or moves an existing block.
func (self *DominatorTree) UpdateImmediateDominator(id ir.BlockID, idom ir.BlockID) {
    if old, ok := self.DominatedBy[id]; ok {
        c := self.DominatorOf[old]
        for i, v := range c {
            if v == id {
                self.DominatorOf[old] = append(c[:i:i], c[i+1:]...)
                break
            }
        }
    }
    self.DominatedBy[id] = idom
    self.DominatorOf[idom] = append(self.DominatorOf[idom], id)
}
