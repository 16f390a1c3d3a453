// Logs

package rtmp

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var logMutex = sync.Mutex{}

func logLine(line string) {
	tm := time.Now()
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Printf("[%s] %s\n", tm.Format("2006-01-02 15:04:05"), line)
}

func logWarning(line string) {
	logLine("[WARNING] " + line)
}

func logInfo(line string) {
	logLine("[INFO] " + line)
}

func logError(err error) {
	logLine("[ERROR] " + err.Error())
}

var debugLoggingEnabled = (os.Getenv("RTMP_CLIENT_LOG_DEBUG") == "YES")

func logDebug(line string) {
	if debugLoggingEnabled {
		logLine("[DEBUG] " + line)
	}
}

func logDebugConn(connID uint64, line string) {
	if debugLoggingEnabled {
		logLine(fmt.Sprintf("[DEBUG] #%d %s", connID, line))
	}
}
