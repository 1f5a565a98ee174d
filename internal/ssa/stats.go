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
    `sync/atomic`
)

// Process-wide counters, read by the debug package.
var (
    FuncCount      uint64
    SkipCount      uint64
    FallbackCount  uint64
    PhiCount       uint64
    PhiRemoved     uint64
    StmtRemoved    uint64
    ConvertCount   uint64
    EdgeSplitCount uint64
    NarrowCount    uint64
    FoldCount      uint64
    BranchCount    uint64
    CopyCount      uint64
)

func statAdd(p *uint64, n int) {
    if n > 0 {
        atomic.AddUint64(p, uint64(n))
    }
}

func statLoad(p *uint64) int {
    return int(atomic.LoadUint64(p))
}

// Stats is a snapshot of the counters.
type Stats struct {
    Functions    int
    Skipped      int
    Fallbacks    int
    PhisInserted int
    PhisRemoved  int
    StmtsRemoved int
    Conversions  int
    EdgesSplit   int
    Narrowed     int
    Folded       int
    Branches     int
    Copies       int
}

func GetStats() Stats {
    return Stats{
        Functions:    statLoad(&FuncCount),
        Skipped:      statLoad(&SkipCount),
        Fallbacks:    statLoad(&FallbackCount),
        PhisInserted: statLoad(&PhiCount),
        PhisRemoved:  statLoad(&PhiRemoved),
        StmtsRemoved: statLoad(&StmtRemoved),
        Conversions:  statLoad(&ConvertCount),
        EdgesSplit:   statLoad(&EdgeSplitCount),
        Narrowed:     statLoad(&NarrowCount),
        Folded:       statLoad(&FoldCount),
        Branches:     statLoad(&BranchCount),
        Copies:       statLoad(&CopyCount),
    }
}
