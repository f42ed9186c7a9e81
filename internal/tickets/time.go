package tickets

import "time"

// timeNow is replaced in tests to pin timestamps.
var timeNow = time.Now

func timestamp() string {
	return timeNow().UTC().Format(time.RFC3339)
}
