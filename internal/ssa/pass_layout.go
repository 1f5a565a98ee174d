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
    `github.com/oleiade/lane`

    `github.com/cloudwego/vmopt/ir`
)

type _GroupWork struct {
    group     ir.BlockID
    postponed *lane.Stack
}

func newGroupWork(group ir.BlockID) _GroupWork {
    return _GroupWork{
        group:     group,
        postponed: lane.NewStack(),
    }
}

type _Scheduler struct {
    cfg     *CFG
    current _GroupWork
    groups  []_GroupWork
    seq     []*ir.BasicBlock
    emitted map[ir.BlockID]bool
    loops   map[ir.BlockID]ir.BlockID
    err     error
}

// candidate reports whether every predecessor of bb, back-edges aside, has
// been emitted. Loop headers open a new group.
func (self *_Scheduler) candidate(bb *ir.BasicBlock) bool {
    for _, id := range bb.In {
        if !self.emitted[id] && !self.cfg.Dominates(bb.Index, id) {
            return false
        }
    }

    /* postpone everything, and schedule the loop first */
    if bb.GroupStart {
        self.groups = append(self.groups, self.current)
        self.current = newGroupWork(bb.Index)
    }
    return true
}

func (self *_Scheduler) next() *ir.BasicBlock {
    for {
        for self.current.postponed.Empty() {
            n := len(self.groups)
            if n == 0 {
                return nil
            }

            /* the group is complete, record where the loop ends */
            if self.current.group != ir.NoBlock {
                self.loops[self.current.group] = self.seq[len(self.seq)-1].Index
            }
            self.current = self.groups[n-1]
            self.groups = self.groups[:n-1]
        }

        /* pick the most recently postponed block */
        bb := self.current.postponed.Pop().(*ir.BasicBlock)
        if !self.emitted[bb.Index] && self.candidate(bb) {
            return bb
        }
    }
}

// postpone puts the block into the work list of the group it belongs to,
// which may be an enclosing one for breaks and continues.
func (self *_Scheduler) postpone(bb *ir.BasicBlock) {
    if self.current.group == bb.Group {
        self.current.postponed.Push(bb)
        return
    }

    /* search the enclosing groups */
    for i := len(self.groups) - 1; i >= 0; i-- {
        if self.groups[i].group == bb.Group {
            self.groups[i].postponed.Push(bb)
            return
        }
    }

    /* the block is in a loop whose header was never scheduled */
    if self.err == nil {
        self.err = errMalformed(self.cfg.Func.Name, nil, "L%d belongs to group L%d, which is not being scheduled", bb.Index, bb.Group)
    }
}

func (self *_Scheduler) schedule(entry *ir.BasicBlock) {
    for bb := entry; bb != nil && self.err == nil; bb = self.next() {
        self.seq = append(self.seq, bb)
        self.emitted[bb.Index] = true

        /* postpone the successors, the first one ends up on top */
        for i := len(bb.Out) - 1; i >= 0; i-- {
            if !self.emitted[bb.Out[i]] {
                self.postpone(self.cfg.Block(bb.Out[i]))
            }
        }
    }
}

// Layout orders the blocks so that every block comes after its forward
// predecessors and the blocks of a loop are contiguous, with nested loops
// scheduled recursively the same way.
type Layout struct{}

func (self Layout) Apply(cfg *CFG) error {
    sc := &_Scheduler{
        cfg:     cfg,
        current: newGroupWork(ir.NoBlock),
        emitted: make(map[ir.BlockID]bool, len(cfg.Func.Blocks)),
        loops:   make(map[ir.BlockID]ir.BlockID),
    }

    /* schedule from the entry block */
    sc.schedule(cfg.Func.Entry())
    if sc.err != nil {
        return sc.err
    }

    /* every live block must have been emitted */
    if len(sc.seq) != len(cfg.Func.Blocks) {
        return errMalformed(cfg.Func.Name, nil, "scheduled %d out of %d blocks", len(sc.seq), len(cfg.Func.Blocks))
    }

    /* apply the new order */
    cfg.Func.SetSchedule(sc.seq)
    cfg.LoopEnds = sc.loops
    return nil
}
