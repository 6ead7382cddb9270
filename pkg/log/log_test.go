/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(buf, "warning")
	defer Init(os.Stderr, "info")

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warning("shown %d", 3)
	Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, LogPrefix)
	assert.Contains(t, out, WarningPrefix+"shown 3")
	assert.Contains(t, out, ErrorPrefix+"shown 4")
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	err := SetLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), HelpLevels)
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcmmio.log")
	buf := &bytes.Buffer{}
	InitFile(buf, path, "debug")
	defer Init(os.Stderr, "info")

	Debug("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), DebugPrefix+"to file")
	assert.Contains(t, buf.String(), DebugPrefix+"to file")
}
