package controls

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// canonicalName NFC-normalizes an element name before it is embedded in a
// condition identity string. Element names come from external model files
// and may arrive in either Unicode normal form; two conditions referencing
// the same element must compare equal regardless.
func canonicalName(s string) string {
	return norm.NFC.String(s)
}

// secToHMS formats seconds as hh:mm:ss. Hours do not wrap at 24.
func secToHMS(value float64) string {
	sec := int(value)
	hours := sec / 3600
	sec -= hours * 3600
	mins := sec / 60
	sec -= mins * 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, mins, sec)
}

// secToClock formats seconds since midnight as a 12-hour clock time.
func secToClock(value float64) string {
	sec := int(value)
	hours := sec / 3600
	sec -= hours * 3600
	mins := sec / 60
	sec -= mins * 60
	period := "AM"
	switch {
	case hours >= 12:
		period = "PM"
		if hours > 12 {
			hours -= 12
		}
	case hours == 0:
		hours = 12
	}
	return fmt.Sprintf("%d:%02d:%02d %s", hours, mins, sec, period)
}
