package main

import "time"

func afterSleep() <-chan time.Time {
	return time.After(10 * time.Second)
}
