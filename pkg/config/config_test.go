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

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ConfigFile)
	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	cfg.Devices = append(cfg.Devices, &Device{Name: "pcmmio_wsb", IO: 0x340, IRQ: 0, UIO: "/dev/uio1"})
	require.NoError(t, cfg.Persist(false))

	err := cfg.Persist(false)
	assert.IsType(t, ErrConfigFileExists{}, err)
	require.NoError(t, cfg.Persist(true))

	loaded := &Config{}
	loaded.SetPath(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, cfg.IP, loaded.IP)
	assert.Equal(t, cfg.ApiPort, loaded.ApiPort)
	require.Len(t, loaded.Devices, 2)
	assert.Equal(t, uint16(0x340), loaded.Devices[1].IO)
	assert.Equal(t, "/dev/uio1", loaded.Devices[1].UIO)
}

func TestLoadMissingKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetPath(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultIP, cfg.IP)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"bad backend", func(c *Config) { c.Backend = "pci" }, true},
		{"duplicate io", func(c *Config) {
			c.Devices = append(c.Devices, &Device{Name: "b", IO: DefaultDeviceIO})
		}, true},
		{"duplicate name", func(c *Config) {
			c.Devices = append(c.Devices, &Device{Name: DefaultDeviceName, IO: 0x340})
		}, true},
		{"too many", func(c *Config) {
			for i := 0; i < MaxDevices; i++ {
				c.Devices = append(c.Devices, &Device{Name: string(rune('b' + i)), IO: uint16(0x400 + i*0x20)})
			}
		}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
