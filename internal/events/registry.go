package events

import (
	"fmt"
	"sort"
)

var allowedEvents = map[string]struct{}{
	// compile
	"compile.requested":  {},
	"compile.completed":  {},
	"compile.diagnostic": {},

	// bus
	"bus.connected":    {},
	"bus.disconnected": {},
	"bus.error":        {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}

// Names returns the allowed event names, sorted.
func Names() []string {
	out := make([]string, 0, len(allowedEvents))
	for name := range allowedEvents {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
