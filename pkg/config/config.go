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
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// Device describes one PCM-MIO-G card. IRQ 0 means the card is polled.
type Device struct {
	Name string `json:"name"`
	IO   uint16 `json:"io"`
	IRQ  uint16 `json:"irq"`
	// UIO is the uio device node delivering the card's interrupt line,
	// only used by the devport backend
	UIO string `json:"uio,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

type Config struct {
	IP       string    `json:"ip"`
	ApiPort  int       `json:"apiPort"`
	DBPath   string    `json:"dbPath"`
	Backend  string    `json:"backend"`
	LockDir  string    `json:"lockDir,omitempty"`
	// PollRate is the number of register polls per second for cards without IRQ
	PollRate int       `json:"pollRate"`
	Journal  bool      `json:"journal"`
	Log      LogConfig `json:"log"`
	Devices  []*Device `json:"devices"`
	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Load reads the config file if there is one and keeps defaults otherwise
func (c *Config) Load() error {
	if _, err := os.Stat(c.filepath); os.IsNotExist(err) {
		return nil
	}
	return c.LoadConfig()
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Path() string {
	return c.filepath
}

// Validate checks the card list the way the driver will use it
func (c *Config) Validate() error {
	if len(c.Devices) > MaxDevices {
		return ErrInvalidConfig{What: fmt.Sprintf("at most %d devices supported, got %d", MaxDevices, len(c.Devices))}
	}
	switch c.Backend {
	case BackendDevPort, BackendSim:
	default:
		return ErrInvalidConfig{What: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	names := map[string]bool{}
	ios := map[uint16]bool{}
	for _, d := range c.Devices {
		if d.Name == "" {
			return ErrInvalidConfig{What: "device name is empty"}
		}
		if names[d.Name] {
			return ErrInvalidConfig{What: fmt.Sprintf("duplicate device name %s", d.Name)}
		}
		names[d.Name] = true
		if d.IO != 0 && ios[d.IO] {
			return ErrInvalidConfig{What: fmt.Sprintf("duplicate io address 0x%04x", d.IO)}
		}
		ios[d.IO] = true
	}
	return nil
}

func (c *Config) GetDeviceByName(name string) (*Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Config{
		IP:       DefaultIP,
		ApiPort:  DefaultApiPort,
		DBPath:   filepath.Join(home, ConfigDir, DefaultDBFile),
		Backend:  BackendSim,
		LockDir:  DefaultLockDir,
		PollRate: DefaultPollRate,
		Journal:  true,
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Devices: []*Device{
			{
				Name: DefaultDeviceName,
				IO:   DefaultDeviceIO,
				IRQ:  DefaultDeviceIRQ,
			},
		},
		filepath: DefaultConfigPath(),
	}
}
