// Package svnlog is a minimal leveled logger used throughout svnup.
//
// It follows the shape of rclone's fs.Debugf/fs.Infof/fs.Errorf family:
// package level functions taking an arbitrary subject plus a Printf style
// format, gated by a single process wide verbosity level. There is no
// dependency on a logging framework - none of the retrieved example repos
// reach for one, and a CLI tool with a single -v flag has no use for
// structured/leveled-output routing beyond what this gives it.
package svnlog

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Level controls which of Debugf/Infof/Errorf actually print.
type Level int32

const (
	// Quiet suppresses everything except Errorf.
	Quiet Level = 0
	// Normal prints Infof and Errorf. This is the default (-v 1).
	Normal Level = 1
	// Debug additionally prints Debugf (-v 2 and above).
	Debug Level = 2
)

var level int32 = int32(Normal)

// SetLevel sets the process wide verbosity. Called once from cmd/svn after
// flags are parsed.
func SetLevel(l Level) {
	atomic.StoreInt32(&level, int32(l))
}

func current() Level {
	return Level(atomic.LoadInt32(&level))
}

func subjectPrefix(subject interface{}) string {
	if subject == nil {
		return ""
	}
	return fmt.Sprintf("%v: ", subject)
}

// Debugf logs a debug-level message about subject (which may be nil).
// Only printed when the verbosity level is Debug or higher.
func Debugf(subject interface{}, format string, args ...interface{}) {
	if current() < Debug {
		return
	}
	fmt.Fprintf(os.Stderr, subjectPrefix(subject)+format+"\n", args...)
}

// Infof logs an informational message about subject.
// Printed at Normal verbosity and above.
func Infof(subject interface{}, format string, args ...interface{}) {
	if current() < Normal {
		return
	}
	fmt.Fprintf(os.Stderr, subjectPrefix(subject)+format+"\n", args...)
}

// Errorf always logs, regardless of verbosity.
func Errorf(subject interface{}, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, subjectPrefix(subject)+format+"\n", args...)
}
