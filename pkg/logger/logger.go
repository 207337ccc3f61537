/*
 * Copyright The Kmesh Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at:
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger log constructor
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logSubsys = "subsys"

	// DefaultLoggerName names the logger every scope shares unless it was
	// given its own level.
	DefaultLoggerName = "default"
)

var (
	defaultLogLevel = logrus.InfoLevel
	defaultLogFile  = "/var/run/cgmesh/daemon.log"

	defaultLogFormat = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: false,
	}

	mu            sync.RWMutex
	defaultLogger = InitializeDefaultLogger(false)
	loggerMap     = map[string]*logrus.Logger{
		DefaultLoggerName: defaultLogger,
	}
)

// InitializeDefaultLogger return a initialized logger. When toFile is set the
// output is also written to a size rotated file under /var/run/cgmesh.
func InitializeDefaultLogger(toFile bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(defaultLogFormat)
	logger.SetLevel(defaultLogLevel)
	logger.SetOutput(os.Stdout)

	if !toFile {
		return logger
	}

	path, _ := filepath.Split(defaultLogFile)
	if err := os.MkdirAll(path, 0750); err != nil {
		logger.Warnf("failed to create log directory %s: %v", path, err)
		return logger
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   defaultLogFile,
		MaxSize:    100, // MB
		MaxBackups: 12,
		Compress:   true,
	}))
	return logger
}

// EnableFileOutput makes the default logger also write to the rotated log
// file. The daemon calls it once at startup; tools keep stdout only.
func EnableFileOutput() {
	l := InitializeDefaultLogger(true)
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.SetOutput(l.Out)
}

// NewLoggerScope allocates a new log entry and adds a field to it.
func NewLoggerScope(pkgSubsys string) *logrus.Entry {
	return defaultLogger.WithField(logSubsys, pkgSubsys)
}

// NewLoggerField is kept for callers that predate NewLoggerScope.
func NewLoggerField(pkgSubsys string) *logrus.Entry {
	return NewLoggerScope(pkgSubsys)
}

func GetLoggerNames() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(loggerMap))
	for name := range loggerMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetLoggerLevel(name string) (logrus.Level, error) {
	mu.RLock()
	defer mu.RUnlock()

	l, ok := loggerMap[name]
	if !ok {
		return 0, fmt.Errorf("logger %s does not exist", name)
	}
	return l.GetLevel(), nil
}

func SetLoggerLevel(name string, level string) error {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	l, ok := loggerMap[name]
	if !ok {
		return fmt.Errorf("logger %s does not exist", name)
	}
	l.SetLevel(lv)
	return nil
}
