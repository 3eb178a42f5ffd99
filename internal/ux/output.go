package ux

import (
	"fmt"
	"time"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// TaskHeader prints a timestamped task header.
func TaskHeader(pos, total int, taskID, title, layer string) {
	fmt.Printf("\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	fmt.Printf("%s[%s]%s  %sTask %d/%d: %s (%s) — %s%s\n",
		Dim, timestamp(), Reset, Bold, pos, total, taskID, layer, title, Reset)
	fmt.Printf("%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// TaskComplete prints a task completion message.
func TaskComplete(taskID, duration string) {
	if duration == "" {
		fmt.Printf("%s[%s]%s  %s✓ %s complete%s\n",
			Dim, timestamp(), Reset, Green, taskID, Reset)
		return
	}
	fmt.Printf("%s[%s]%s  %s✓ %s complete (%s)%s\n",
		Dim, timestamp(), Reset, Green, taskID, duration, Reset)
}

// TaskFail prints a task failure message.
func TaskFail(taskID, reason string) {
	fmt.Printf("%s[%s]%s  %s✗ %s failed: %s%s\n",
		Dim, timestamp(), Reset, Red, taskID, reason, Reset)
}

// ReviseNotice prints a re-dispatch message after a revision request.
func ReviseNotice(taskID string, attempt, max int) {
	fmt.Printf("%s[%s]%s  %s↺ Revising %s (attempt %d/%d)%s\n",
		Dim, timestamp(), Reset, Yellow, taskID, attempt, max, Reset)
}

// GateRetry prints a gate retry message.
func GateRetry(taskID, gate string, attempt, max int) {
	fmt.Printf("%s[%s]%s  %s↺ Gate %q failed on %s. Retrying (attempt %d/%d)%s\n",
		Dim, timestamp(), Reset, Yellow, gate, taskID, attempt, max, Reset)
}

// GateOverride prints a gate override notice.
func GateOverride(taskID, gate string) {
	fmt.Printf("%s[%s]%s  %s⚠ Gate %q overridden on %s%s\n",
		Dim, timestamp(), Reset, Yellow, gate, taskID, Reset)
}

// Promoted prints a trigger promotion notice.
func Promoted(taskID, trigger string) {
	fmt.Printf("%s[%s]%s  %s⤴ %s reactivated (%s)%s\n",
		Dim, timestamp(), Reset, Cyan, taskID, trigger, Reset)
}

// Blocked prints the pause banner with the recorded reason.
func Blocked(reason string) {
	fmt.Printf("\n%s[%s]%s  %s⏸ Pipeline paused: %s%s\n",
		Dim, timestamp(), Reset, Red, reason, Reset)
}

// ResumeHint prints a resume command hint.
func ResumeHint(request string) {
	fmt.Printf("\n%sResume:%s loom run %q\n", Yellow, Reset, request)
}

// Summary prints the final run summary.
func Summary(done, failed, deferred int) {
	color := Green
	if failed > 0 {
		color = Yellow
	}
	fmt.Printf("\n%s[%s]%s  %s%s══ %d done", Dim, timestamp(), Reset, Bold, color, done)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	if deferred > 0 {
		fmt.Printf(", %d deferred", deferred)
	}
	fmt.Printf(" ══%s\n\n", Reset)
}
