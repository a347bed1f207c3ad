// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package answer

import "github.com/poiesic/gleaner/core"

// Monitor observes the stages of answering one question.
// Implementations must be cheap; they run inline.
type Monitor interface {
	Start(query string)
	AfterRetrieval(hits []core.SearchHit)
	BeforeCompletion(prompt string)
	Finish(answer *Answer)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                    {}
func (n *noopMonitor) AfterRetrieval(_ []core.SearchHit) {}
func (n *noopMonitor) BeforeCompletion(_ string)         {}
func (n *noopMonitor) Finish(_ *Answer)                  {}
