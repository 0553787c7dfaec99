package schedule

import "fmt"

// assertNonNegative panics when debug mode is on and value would drift
// negative before the defensive clamp applied by Execute, GarbageCollect,
// and Spill. Release builds clamp silently; debug mode surfaces the
// underlying bug loudly instead.
func (s *State) assertNonNegative(value int64, where string) {
	if s.debug && value < 0 {
		panic(fmt.Sprintf("schedule: invariant violated, %s went negative (%d)", where, value))
	}
}
