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

package debug

import (
    `github.com/cloudwego/vmopt/internal/ssa`
)

// A Stats records statistics about the optimizer.
type Stats struct {
    Functions   int
    Skipped     int
    Fallbacks   int
    Phis        PhiStats
    Eliminated  int
    Conversions int
    EdgesSplit  int
    Narrowed    int
    Folded      int
    Branches    int
    Copies      int
}

// A PhiStats records how many phi nodes were placed and how many of them
// turned out to be useless.
type PhiStats struct {
    Inserted int
    Removed  int
}

// GetStats returns statistics of the optimizer since the process started.
func GetStats() Stats {
    s := ssa.GetStats()
    return Stats{
        Functions: s.Functions,
        Skipped:   s.Skipped,
        Fallbacks: s.Fallbacks,
        Phis: PhiStats{
            Inserted: s.PhisInserted,
            Removed:  s.PhisRemoved,
        },
        Eliminated:  s.StmtsRemoved,
        Conversions: s.Conversions,
        EdgesSplit:  s.EdgesSplit,
        Narrowed:    s.Narrowed,
        Folded:      s.Folded,
        Branches:    s.Branches,
        Copies:      s.Copies,
    }
}
