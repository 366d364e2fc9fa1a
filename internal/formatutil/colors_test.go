// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package formatutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColor(t *testing.T) {
	saved := Enabled
	defer func() { Enabled = saved }()

	Enabled = false
	assert.Equal(t, "bb0[1]", Cyan("bb0[1]"))
	Enabled = true
	assert.Equal(t, "\033[1;36mbb0[1]\033[0m", Cyan("bb0", "[1]"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `a\nb`, Sanitize("a\nb"))
	assert.Equal(t, `\x1b[1m`, Sanitize("\033[1m"))
}
