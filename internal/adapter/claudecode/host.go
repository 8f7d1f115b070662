package claudecode

import "os"

// remoteIndicatorEnvVars is the fixed set of environment variables whose
// presence marks a session as running on a remote/cloud host rather than
// the developer's own machine (spec.md §3's SessionStart.is_remote).
var remoteIndicatorEnvVars = []string{
	"SSH_CONNECTION",
	"SSH_TTY",
	"CODESPACES",
	"GITPOD_WORKSPACE_ID",
	"REMOTE_CONTAINERS",
	"DEVCONTAINER",
}

func detectIsRemote() bool {
	for _, name := range remoteIndicatorEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

func detectHostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown-host"
}

func detectDeviceName() string {
	if name := os.Getenv("TRACER_DEVICE_NAME"); name != "" {
		return name
	}
	return detectHostname()
}
