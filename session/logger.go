// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"log"
	"os"
)

// Logger receives one line per resolve/schedule/event decision the session
// makes. No third-party logging dependency in the retrieved pack was
// load-bearing enough to justify pulling in over the standard library's
// log package for this minimal a surface (see DESIGN.md).
type Logger interface {
	Logf(format string, args ...any)
}

// stdLogger writes through log.Logger, the default when a Builder is not
// given one explicitly.
type stdLogger struct{ l *log.Logger }

func newStdLogger() *stdLogger {
	return &stdLogger{l: log.New(os.Stderr, "fsession: ", log.LstdFlags)}
}

func (s *stdLogger) Logf(format string, args ...any) { s.l.Printf(format, args...) }

// NopLogger discards every message; useful for tests and embedders that
// wire their own observability.
type NopLogger struct{}

func (NopLogger) Logf(string, ...any) {}
