package wire

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// identity carries the audit attributes streamed to the server during
// session setup. The values are snapshotted once at driver construction so a
// handshake is deterministic regardless of environment changes mid-flight.
type identity struct {
	os       string
	hostname string
	osUser   string
	pid      int
	appName  string
}

func newIdentity(appName string) identity {
	if appName == "" {
		appName = filepath.Base(os.Args[0])
	}

	hostname, _ := os.Hostname()

	var osUser string
	if current, err := user.Current(); err == nil {
		osUser = current.Username
	}

	return identity{
		os:       runtime.GOOS,
		hostname: hostname,
		osUser:   osUser,
		pid:      os.Getpid(),
		appName:  appName,
	}
}
