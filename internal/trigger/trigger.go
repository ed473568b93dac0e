package trigger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
)

// Event is the kind of occurrence that started a run. It carries no payload.
type Event string

const (
	Push     Event = "push"
	Schedule Event = "schedule"
	Manual   Event = "manual"
)

// DefaultCron fires every Monday at 09:00 UTC.
const DefaultCron = "0 9 * * MON"

var aliases = map[string]Event{
	"push":              Push,
	"schedule":          Schedule,
	"manual":            Manual,
	"workflow_dispatch": Manual,
}

// Parse maps an event name, including the hosted runner's names, to an Event.
func Parse(name string) (Event, error) {
	ev, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown trigger %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return ev, nil
}

// Names lists the accepted trigger names in sorted order.
func Names() []string {
	names := lo.Keys(aliases)
	slices.Sort(names)
	return names
}

// Detect reads the trigger from the hosted runner environment. Anything it
// does not recognise is treated as a manual invocation.
func Detect(getenv func(string) string) Event {
	ev, err := Parse(getenv("GITHUB_EVENT_NAME"))
	if err != nil {
		return Manual
	}
	return ev
}

// ShouldRun decides whether ev selects a run. Only pushes are filtered: they
// must target branch. An empty ref is accepted.
func ShouldRun(ev Event, ref, branch string) (bool, string) {
	if ev != Push || ref == "" {
		return true, ""
	}
	want := "refs/heads/" + branch
	if ref != want && ref != branch {
		return false, fmt.Sprintf("push to %s, runs only on %s", ref, want)
	}
	return true, ""
}

// ParseSchedule parses a standard five-field cron expression evaluated in UTC.
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard("CRON_TZ=UTC " + spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NextScheduled returns the first firing of spec strictly after now.
func NextScheduled(spec string, now time.Time) (time.Time, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}
