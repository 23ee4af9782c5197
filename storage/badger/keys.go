package badger

import (
	"fmt"

	"github.com/poiesic/docmill/core"
)

// Key prefixes for different data types
const (
	jobRecordPrefix = "jobrec"
	jobActivePrefix = "jobact"
)

// makeJobKey generates a key for a job record by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobRecordPrefix, id))
}

// makeJobActiveKey generates a key for the active-job index. The entry
// exists exactly while the job is in a non-terminal state, so the reclaim
// sweep can scan candidates without touching finished jobs.
func makeJobActiveKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobActivePrefix, id))
}
