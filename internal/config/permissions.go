package config

import (
	"os"
	"runtime"
)

// worldReadable reports whether group or others may read path. Windows
// ACLs do not map to mode bits, so it is always false there.
func worldReadable(path string) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o077 != 0
}

func (c *Config) hasPasswords() bool {
	for _, conn := range c.Connections {
		if conn.Password != "" {
			return true
		}
	}
	return false
}
