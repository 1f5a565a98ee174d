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

package opts

import (
    `os`
    `strconv`
)

const (
    _DefaultMaxInferenceRounds = 10000 // a round re-types every statement that changed
    _DefaultWorkers            = 4     // functions optimized concurrently by OptimizeAll
)

var (
    NoSSA              = parseBool("VMOPT_NO_SSA")
    NoOpt              = parseBool("VMOPT_NO_OPT")
    KeepSSA            = parseBool("VMOPT_KEEP_SSA")
    MaxInferenceRounds = parseOrDefault("VMOPT_MAX_INFERENCE_ROUNDS", _DefaultMaxInferenceRounds, 1)
    Workers            = parseOrDefault("VMOPT_WORKERS", _DefaultWorkers, 0)
)

func parseOrDefault(key string, def int, min int) int {
    if env := os.Getenv(key); env == "" {
        return def
    } else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
        panic("vmopt: invalid value for " + key)
    } else if ret := int(val); ret < min {
        panic("vmopt: value too small for " + key)
    } else {
        return ret
    }
}

func parseBool(key string) bool {
    if env := os.Getenv(key); env == "" {
        return false
    } else if val, err := strconv.ParseBool(env); err != nil {
        panic("vmopt: invalid value for " + key)
    } else {
        return val
    }
}
