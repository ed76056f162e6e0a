package instance

import (
	"os"
	"strings"
)

// lookupOrder lists the environment variables consulted by ID, most specific first.
var lookupOrder = []string{"BILLINGSYNC_INSTANCE_ID", "DYNO", "HOSTNAME"}

// ID returns the identifier of the running process, used to tell replicas
// apart in logs.
func ID() string {
	for _, key := range lookupOrder {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
