package tools

import (
	"os"
	"runtime"
)

func interruptSignal() os.Signal {
	if runtime.GOOS == "windows" {
		return os.Kill
	}
	return os.Interrupt
}
