/*
 Licensed to the Apache Software Foundation (ASF) under one
 or more contributor license agreements.  See the NOTICE file
 distributed with this work for additional information
 regarding copyright ownership.  The ASF licenses this file
 to you under the Apache License, Version 2.0 (the
 "License"); you may not use this file except in compliance
 with the License.  You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var once sync.Once
var logger *zap.Logger
var config *zap.Config
var aLevel *zap.AtomicLevel

// LoggerHandle names a subsystem logger. Levels can be set per handle name,
// a dotted name inherits the level of its parent when not set itself.
type LoggerHandle struct {
	id   int
	name string
}

func (h *LoggerHandle) String() string {
	return h.name
}

// Predefined loggers: when adding a handle also add it to the handles slice.
var (
	Core         = &LoggerHandle{id: 0, name: "core"}
	Test         = &LoggerHandle{id: 1, name: "test"}
	Config       = &LoggerHandle{id: 2, name: "core.config"}
	Stack        = &LoggerHandle{id: 3, name: "core.stack"}
	Rules        = &LoggerHandle{id: 4, name: "core.rules"}
	RCO          = &LoggerHandle{id: 5, name: "core.rco"}
	StagePlanner = &LoggerHandle{id: 6, name: "core.stageplanner"}
	Orchestrator = &LoggerHandle{id: 7, name: "core.orchestrator"}
	Metrics      = &LoggerHandle{id: 8, name: "core.metrics"}
	Tracing      = &LoggerHandle{id: 9, name: "core.tracing"}
	Entrypoint   = &LoggerHandle{id: 10, name: "core.entrypoint"}
	Diagnostics  = &LoggerHandle{id: 11, name: "core.diagnostics"}
)

var handles = []*LoggerHandle{
	Core, Test, Config, Stack, Rules, RCO, StagePlanner, Orchestrator, Metrics, Tracing, Entrypoint, Diagnostics,
}

var handleLock sync.RWMutex
var handleLoggers = make([]*zap.Logger, len(handles))
var handleLevels = make(map[string]zapcore.Level)

// Logger returns the root logger. A global zap logger set by an embedding
// process is reused, otherwise a console logger is created.
func Logger() *zap.Logger {
	once.Do(func() {
		if logger = zap.L(); isNopLogger(logger) {
			config = createConfig()
			var err error
			logger, err = config.Build()
			// this should really not happen so just write to stdout and set a Nop logger
			if err != nil {
				fmt.Printf("Logging disabled, logger init failed with error: %v\n", err)
				logger = zap.NewNop()
			}
		}
	})
	return logger
}

// Log returns the logger for the subsystem handle.
func Log(handle *LoggerHandle) *zap.Logger {
	if handle == nil {
		return Logger()
	}
	handleLock.RLock()
	l := handleLoggers[handle.id]
	handleLock.RUnlock()
	if l != nil {
		return l
	}
	base := Logger()
	handleLock.Lock()
	defer handleLock.Unlock()
	if l = handleLoggers[handle.id]; l != nil {
		return l
	}
	level := levelFor(handle.name)
	l = base.WithOptions(zap.WrapCore(func(inner zapcore.Core) zapcore.Core {
		return filteredCore{level: level, inner: inner}
	})).Named(handle.name)
	handleLoggers[handle.id] = l
	return l
}

// SetLevels replaces the per handle levels. Keys are handle names ("core.rco"),
// values any level name zap understands ("debug", "INFO", ...).
func SetLevels(levels map[string]string) error {
	parsed := make(map[string]zapcore.Level, len(levels))
	for name, value := range levels {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(value))); err != nil {
			return fmt.Errorf("invalid log level %q for logger %q: %w", value, name, err)
		}
		parsed[strings.ToLower(name)] = level
	}
	handleLock.Lock()
	defer handleLock.Unlock()
	handleLevels = parsed
	handleLoggers = make([]*zap.Logger, len(handles))
	return nil
}

// must be called with the handle lock held
func levelFor(name string) zapcore.Level {
	for n := name; n != ""; {
		if level, ok := handleLevels[n]; ok {
			return level
		}
		idx := strings.LastIndex(n, ".")
		if idx < 0 {
			break
		}
		n = n[:idx]
	}
	return zapcore.DebugLevel
}

// InitializeLogger sets the root logger from an embedding process.
// Only the first call before any logging takes effect.
func InitializeLogger(log *zap.Logger, zapConfig *zap.Config) {
	once.Do(func() {
		logger = log
		config = zapConfig
	})
	handleLock.Lock()
	defer handleLock.Unlock()
	handleLoggers = make([]*zap.Logger, len(handles))
}

func IsDebugEnabled() bool {
	if logger == nil {
		// when under development mode
		return true
	}
	return logger.Core().Enabled(zapcore.DebugLevel)
}

// Returns true if the logger is a noop.
// Logger is a noop means the logger has not been initialized yet.
// This usually means a global logger is not set in the given context,
// see more at zap.ReplaceGlobals(). If an embedding process presets a
// global logger it is simply reused.
func isNopLogger(logger *zap.Logger) bool {
	return reflect.DeepEqual(zap.NewNop(), logger)
}

// Visible by tests
func InitAndSetLevel(level zapcore.Level) {
	if config == nil {
		Logger()
	}
	if config != nil {
		config.Level.SetLevel(level)
	}
}

func GetAtomicLevel() *zap.AtomicLevel {
	return aLevel
}

// Create a log config to keep full control over
// LogLevel set to DEBUG, Encodes for console, Writes to stderr,
// Enables development mode (DPanicLevel),
// Print stack traces for messages at WarnLevel and above
func createConfig() *zap.Config {
	atomicLevel := zap.NewAtomicLevelAt(zap.DebugLevel)
	aLevel = &atomicLevel

	return &zap.Config{
		Level:       atomicLevel,
		Development: true,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "time",
			NameKey:       "name",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			LineEnding:    zapcore.DefaultLineEnding,
			// note: https://godoc.org/go.uber.org/zap/zapcore#EncoderConfig
			// only EncodeName is optional all others must be set
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
}
