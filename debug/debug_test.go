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
    `testing`

    `github.com/stretchr/testify/require`

    `github.com/cloudwego/vmopt/internal/irgen`
    `github.com/cloudwego/vmopt/internal/opts`
    `github.com/cloudwego/vmopt/internal/ssa`
)

func TestGetStats(t *testing.T) {
    o := opts.GetDefaultOptions()
    o.NoSSA = false
    o.MaxInferenceRounds = 10000
    before := GetStats()
    for i := int64(0); i < 8; i++ {
        _, err := ssa.Compile(irgen.Random(i), &o)
        require.NoError(t, err)
    }
    after := GetStats()
    require.Equal(t, before.Functions+8, after.Functions)
    require.Equal(t, before.Skipped, after.Skipped)
    require.Equal(t, before.Fallbacks, after.Fallbacks)
    require.GreaterOrEqual(t, after.Phis.Inserted, after.Phis.Removed)
    require.Greater(t, after.Folded, before.Folded)
}

func TestGetStats_Mirror(t *testing.T) {
    s := ssa.GetStats()
    d := GetStats()
    require.Equal(t, s.Functions, d.Functions)
    require.Equal(t, s.PhisInserted, d.Phis.Inserted)
    require.Equal(t, s.PhisRemoved, d.Phis.Removed)
    require.Equal(t, s.StmtsRemoved, d.Eliminated)
    require.Equal(t, s.Conversions, d.Conversions)
    require.Equal(t, s.EdgesSplit, d.EdgesSplit)
    require.Equal(t, s.Narrowed, d.Narrowed)
    require.Equal(t, s.Folded, d.Folded)
    require.Equal(t, s.Branches, d.Branches)
    require.Equal(t, s.Copies, d.Copies)
}
