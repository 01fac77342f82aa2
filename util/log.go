package util

import "github.com/hauke96/sigolo/v2"

func LogFatalBug(format string, args ...interface{}) {
	sigolo.Fatalb(1, format+" - This is a bug in the index builder or query engine, the index data is inconsistent", args...)
}
