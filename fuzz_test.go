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
    `testing`

    `github.com/stretchr/testify/require`

    `github.com/cloudwego/vmopt/internal/irgen`
)

func FuzzOptimize(f *testing.F) {
    for seed := int64(0); seed < 32; seed++ {
        f.Add(seed, seed%2 == 0)
    }
    f.Fuzz(func(t *testing.T, seed int64, keep bool) {
        fn := irgen.Random(seed)
        require.NoError(t, Optimize(fn, WithKeepSSA(keep)), "seed %d:\n%s", seed, fn)
        require.NoError(t, fn.Verify(), "seed %d:\n%s", seed, fn)
        if !keep {
            require.Empty(t, phis(fn))
        }
    })
}
