package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// stampLayout timestamps every file the extension writes next to its log.
const stampLayout = "20060102_150405"

// LogFilePath returns <logsDir>/<name>.<stamp>.log for the process start time.
func LogFilePath(logsDir, extensionName string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", extensionName, start.Format(stampLayout)))
}

// SidecarPath returns <logsDir>/<name>_<kind>_<stamp><ext>, used for files
// such as the InfluxDB line-protocol backup that share the log's lifetime.
func SidecarPath(logsDir, extensionName, kind, ext string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s_%s_%s%s", extensionName, kind, start.Format(stampLayout), ext))
}
