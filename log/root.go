// Copyright 2022-2026 The N42 Authors
// This file is part of the N42 library.
//
// The N42 library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The N42 library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the N42 library. If not, see <http://www.gnu.org/licenses/>.

// Package log is meplangc's leveled logger, wrapping logrus.
package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	terminal = logrus.New()
	root     = &logger{ctx: []interface{}{}}
)

type Lvl int

const skipLevel = 3

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) logrusLevel() logrus.Level {
	switch l {
	case LvlCrit:
		return logrus.FatalLevel
	case LvlError:
		return logrus.ErrorLevel
	case LvlWarn:
		return logrus.WarnLevel
	case LvlInfo:
		return logrus.InfoLevel
	case LvlDebug:
		return logrus.DebugLevel
	case LvlTrace:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// Init configures the console formatter and level. meplangc has no
// config file and no log rotation: it is a one-shot CLI, not a daemon.
func Init(levelName string, jsonFormat bool) {
	if jsonFormat {
		formatter := new(logrus.JSONFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		terminal.SetFormatter(formatter)
	} else {
		formatter := new(logrus.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		terminal.SetFormatter(formatter)
	}
	terminal.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(levelName)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	terminal.SetLevel(lvl)
}

// logger implements Logger by accumulating a context prefix and
// forwarding to the shared logrus instance.
type logger struct {
	ctx []interface{}
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{ctx: append(append([]interface{}{}, l.ctx...), ctx...)}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(msg, LvlTrace, ctx, skipLevel) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(msg, LvlDebug, ctx, skipLevel) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(msg, LvlInfo, ctx, skipLevel) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(msg, LvlWarn, ctx, skipLevel) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(msg, LvlError, ctx, skipLevel) }
func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(msg, LvlCrit, ctx, skipLevel)
	os.Exit(1)
}

func (l *logger) write(msg string, lvl Lvl, ctx []interface{}, _ int) {
	fields := logrus.Fields{}
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		key, ok := all[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", all[i])
		}
		fields[key] = all[i+1]
	}
	terminal.WithFields(fields).Log(lvl.logrusLevel(), msg)
}

// New returns a new logger with the given context. New is a
// convenient alias for Root().New.
func New(ctx ...interface{}) Logger {
	return root.New(ctx...)
}

// Root returns the root logger.
func Root() Logger {
	return root
}

func Trace(msg string, ctx ...interface{}) { root.write(msg, LvlTrace, ctx, skipLevel) }
func Debug(msg string, ctx ...interface{}) { root.write(msg, LvlDebug, ctx, skipLevel) }
func Info(msg string, ctx ...interface{})  { root.write(msg, LvlInfo, ctx, skipLevel) }
func Warn(msg string, ctx ...interface{})  { root.write(msg, LvlWarn, ctx, skipLevel) }
func Error(msg string, ctx ...interface{}) { root.write(msg, LvlError, ctx, skipLevel) }

func Tracef(format string, args ...interface{}) { root.write(fmt.Sprintf(format, args...), LvlTrace, nil, skipLevel) }
func Debugf(format string, args ...interface{}) { root.write(fmt.Sprintf(format, args...), LvlDebug, nil, skipLevel) }
func Infof(format string, args ...interface{})  { root.write(fmt.Sprintf(format, args...), LvlInfo, nil, skipLevel) }
func Warnf(format string, args ...interface{})  { root.write(fmt.Sprintf(format, args...), LvlWarn, nil, skipLevel) }
func Errorf(format string, args ...interface{}) { root.write(fmt.Sprintf(format, args...), LvlError, nil, skipLevel) }

// Crit logs at LvlCrit and terminates the process, mirroring geth/N42
// style "fatal" logging used for unrecoverable CLI errors.
func Crit(msg string, ctx ...interface{}) {
	root.write(msg, LvlCrit, ctx, skipLevel)
	os.Exit(1)
}

func Critf(format string, args ...interface{}) {
	root.write(fmt.Sprintf(format, args...), LvlCrit, nil, skipLevel)
	os.Exit(1)
}

// A Logger writes key/value pairs through a leveled interface.
type Logger interface {
	// New returns a new Logger that has this logger's context plus the given context.
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

var _ Logger = (*logger)(nil)
