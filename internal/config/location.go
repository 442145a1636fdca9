package config

import "time"

// Location returns the daemon's scheduling timezone.
func (d DaemonConfig) Location() (*time.Location, error) {
	if d.Timezone == "" || d.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}
