package utils

import (
	"runtime"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

const mib = 1024 * 1024

// LogMemoryUsage logs the current heap and OS memory usage at debug level
func LogMemoryUsage(logger log.FieldLogger, stage string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	logger.WithFields(log.Fields{
		"stage":           stage,
		"alloc_mib":       m.Alloc / mib,
		"total_alloc_mib": m.TotalAlloc / mib,
		"sys_mib":         m.Sys / mib,
		"heap_inuse_mib":  m.HeapInuse / mib,
		"heap_objects":    m.HeapObjects,
		"num_gc":          m.NumGC,
	}).Debug("memory usage")
}

// FreeMemory forces garbage collection and returns memory to OS
func FreeMemory() {
	runtime.GC()
	debug.FreeOSMemory()
}
