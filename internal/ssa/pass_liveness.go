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
    `sort`

    `github.com/cloudwego/vmopt/ir`
)

type _LiveSet map[ir.TempKey]*ir.Temp

func (self _LiveSet) add(t *ir.Temp) {
    if _, ok := self[t.Key()]; !ok {
        self[t.Key()] = t
    }
}

func (self _LiveSet) keys() []ir.TempKey {
    ret := make([]ir.TempKey, 0, len(self))
    for k := range self {
        ret = append(ret, k)
    }
    sort.Slice(ret, func(i int, j int) bool {
        return ret[i].Less(ret[j])
    })
    return ret
}

type _LiveRanges struct {
    cfg       *CFG
    liveIn    map[ir.BlockID]_LiveSet
    intervals map[ir.TempKey]*ir.LifeTimeInterval
}

func (self *_LiveRanges) interval(t *ir.Temp) *ir.LifeTimeInterval {
    k := t.Key()
    if iv, ok := self.intervals[k]; ok {
        return iv
    }
    iv := ir.NewLifeTimeInterval(t)
    self.intervals[k] = iv
    return iv
}

// numberStatements assigns dense ids in schedule order. Phis share the id
// of the first statement that follows them.
func numberStatements(fn *ir.Function) {
    id := 0
    for _, bb := range fn.Blocks {
        for _, s := range bb.Stmts {
            if _, ok := s.(*ir.Phi); ok {
                s.SetID(id + 1)
            } else {
                id++
                s.SetID(id)
            }
        }
    }
}

func (self *_LiveRanges) block(bb *ir.BasicBlock, loopEnd *ir.BasicBlock) {
    live := make(_LiveSet)
    first := bb.Stmts[0].ID()
    last := bb.Stmts[len(bb.Stmts)-1].ID()

    /* live-out: the live-in of every successor, and the phi operands
     * flowing along this edge */
    for _, id := range bb.Out {
        succ := self.cfg.Block(id)
        for _, t := range self.liveIn[id] {
            live.add(t)
        }
        j := succ.PredIndex(bb.Index)
        for _, phi := range succ.Phis() {
            if t, ok := phi.Incoming[j].(*ir.Temp); ok && self.cfg.Collectable(t) {
                live.add(t)
            }
        }
    }

    /* everything live-out spans the whole block */
    for _, k := range live.keys() {
        self.interval(live[k]).AddRange(first, last)
    }

    /* walk the statements backwards */
    for i := len(bb.Stmts) - 1; i >= 0; i-- {
        s := bb.Stmts[i]
        if phi, ok := s.(*ir.Phi); ok {
            if _, ok := live[phi.Target.Key()]; ok {
                delete(live, phi.Target.Key())
            } else {
                self.interval(phi.Target).SetFrom(s.ID())
            }
            continue
        }

        /* outputs end the live range */
        if d := s.Def(); d != nil && self.cfg.Collectable(d) {
            self.interval(d).SetFrom(s.ID())
            delete(live, d.Key())
        }

        /* inputs are live from the beginning of the block */
        for _, t := range ir.UsedTemps(s) {
            if self.cfg.Collectable(t) {
                self.interval(t).AddRange(first, s.ID())
                live.add(t)
            }
        }
    }

    /* values live into a loop header stay live for the whole loop */
    if loopEnd != nil {
        end := loopEnd.Terminator().ID()
        for _, k := range live.keys() {
            self.interval(live[k]).AddRange(first, end)
        }
    }

    self.liveIn[bb.Index] = live
}

// LiveIntervals computes the life-time interval of every SSA temp over the
// scheduled block order.
type LiveIntervals struct{}

func (self LiveIntervals) Apply(cfg *CFG) error {
    fn := cfg.Func
    lr := &_LiveRanges{
        cfg:       cfg,
        liveIn:    make(map[ir.BlockID]_LiveSet, len(fn.Blocks)),
        intervals: make(map[ir.TempKey]*ir.LifeTimeInterval),
    }

    /* number the statements, then go through the blocks backwards */
    numberStatements(fn)
    for i := len(fn.Blocks) - 1; i >= 0; i-- {
        var end *ir.BasicBlock
        bb := fn.Blocks[i]

        /* loop headers know where their loop ends */
        if id, ok := cfg.LoopEnds[bb.Index]; ok {
            end = cfg.Block(id)
        }
        lr.block(bb, end)
    }

    /* sort the intervals */
    cfg.Intervals = make([]*ir.LifeTimeInterval, 0, len(lr.intervals))
    for _, iv := range lr.intervals {
        cfg.Intervals = append(cfg.Intervals, iv)
    }
    sort.Slice(cfg.Intervals, func(i int, j int) bool {
        return ir.IntervalLess(cfg.Intervals[i], cfg.Intervals[j])
    })

    /* dump the intervals if needed */
    if cfg.Opts.Trace() {
        cfg.Opts.Sink.DumpValue(fn.Name+": life-time intervals", cfg.Intervals)
    }
    return nil
}
