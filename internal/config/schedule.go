package config

import "fmt"

// CronSpec returns the cron expression used to schedule polling for
// this source: an explicit Cron string if set, otherwise an
// "@every <interval>" built from globalIntervalMs.
func (s *FileSource) CronSpec(globalIntervalMs int) string {
	return cronSpec(s.Cron, globalIntervalMs)
}

func (s *RemoteFileSource) CronSpec(globalIntervalMs int) string {
	return cronSpec(s.Cron, globalIntervalMs)
}

func cronSpec(explicit string, globalIntervalMs int) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("@every %dms", globalIntervalMs)
}
