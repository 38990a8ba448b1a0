package utils

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// TimeTrack logs the time elapsed since start. Use with defer.
func TimeTrack(start time.Time, name string) {
	log.Debugf("%s took %s", name, time.Since(start))
}

// Plural returns the word with an "s" appended unless n is 1.
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
