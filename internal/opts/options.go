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
    `github.com/cloudwego/vmopt/diag`
)

type Options struct {
    NoSSA              bool
    NoOpt              bool
    KeepSSA            bool
    MaxInferenceRounds int
    Workers            int
    Sink               diag.Sink
}

// Trace reports whether the sink wants anything at all.
func (self *Options) Trace() bool {
    return self.Sink != nil && self.Sink.Enabled()
}

func (self *Options) Tracef(format string, args ...interface{}) {
    if self.Trace() {
        self.Sink.Tracef(format, args...)
    }
}

func GetDefaultOptions() Options {
    return Options{
        NoSSA:              NoSSA,
        NoOpt:              NoOpt,
        KeepSSA:            KeepSSA,
        MaxInferenceRounds: MaxInferenceRounds,
        Workers:            Workers,
        Sink:               diag.Nop{},
    }
}
