/**
 * Copyright 2025 The PermafrostDB Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config defines the configuration settings for a permafrost graph store.
type Config struct {
	// LogLevel is the logrus level applied when the store is created.
	LogLevel string `yaml:"logLevel"`

	// CompactionInterval is the number of successful commits between two
	// automatic compaction passes. 0 disables automatic compaction;
	// Compact can still be invoked manually.
	CompactionInterval uint64 `yaml:"compactionInterval"`
}

// NewDefaultConfig returns a new default graph store configuration.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		CompactionInterval: 0,
	}
}

// Validate validates a Config and returns an error if it's invalid.
func (conf *Config) Validate() error {
	if conf.LogLevel != "" {
		if _, err := log.ParseLevel(conf.LogLevel); err != nil {
			return fmt.Errorf("invalid log level %q provided in config", conf.LogLevel)
		}
	}
	return nil
}

// LoadFromFile loads the config from the file. It assumes that config already has the defaults.
// In the case of an error, it leaves the config untouched.
func (conf *Config) LoadFromFile(path string) {
	log.Info(fmt.Sprintf("common::config::LoadFromFile; loading config from file %s", path))
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error(fmt.Sprintf("common::config::LoadFromFile; error reading config from file %s, error %s", path, err))
		return
	}
	fconf := Config{}
	err = yaml.Unmarshal(data, &fconf)
	if err != nil {
		log.Error(fmt.Sprintf("common::config::LoadFromFile; error unmarshalling config from file %s, error %s", path, err))
		return
	}

	log.WithFields(log.Fields{"config": fconf}).Debug("common::config::LoadFromFile; read contents from the file")

	// populate fields
	if fconf.LogLevel != "" {
		conf.LogLevel = fconf.LogLevel
	}
	if fconf.CompactionInterval != 0 {
		conf.CompactionInterval = fconf.CompactionInterval
	}
}
