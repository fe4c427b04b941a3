package eventstore

import (
	"strconv"
	"time"
)

func nowRFC3339() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
