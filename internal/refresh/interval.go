// Package refresh schedules periodic re-runs of a load at a user-selected interval.
package refresh

import (
	"fmt"
	"strings"
	"time"
)

// Interval is an auto-refresh period in seconds. Off disables refreshing.
type Interval int

const (
	Off      Interval = 0
	Every2s  Interval = 2
	Every5s  Interval = 5
	Every10s Interval = 10
	Every1m  Interval = 60
	Every10m Interval = 600
)

// Choices lists the selectable intervals in menu order.
var Choices = []Interval{Off, Every2s, Every5s, Every10s, Every1m, Every10m}

var labels = map[Interval]string{
	Off:      "None",
	Every2s:  "2 s",
	Every5s:  "5 s",
	Every10s: "10 s",
	Every1m:  "1 min",
	Every10m: "10 min",
}

// Duration converts the interval to a time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * time.Second
}

// String returns the menu label, e.g. "2 s" or "None".
func (i Interval) String() string {
	if l, ok := labels[i]; ok {
		return l
	}
	return fmt.Sprintf("%d s", int(i))
}

// ParseInterval accepts menu labels ("None", "2 s", "1 min"), "off", and Go
// durations ("2s", "1m", "600s"). Only the values in Choices are valid.
func ParseInterval(s string) (Interval, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "", "off", "none":
		return Off, nil
	}
	for iv, l := range labels {
		if strings.ToLower(l) == norm {
			return iv, nil
		}
	}
	d, err := time.ParseDuration(strings.ReplaceAll(norm, " ", ""))
	if err != nil {
		return Off, fmt.Errorf("invalid refresh interval %q", s)
	}
	for _, iv := range Choices {
		if iv != Off && iv.Duration() == d {
			return iv, nil
		}
	}
	return Off, fmt.Errorf("unsupported refresh interval %q (choose from off, 2s, 5s, 10s, 1m, 10m)", s)
}

// MarshalText encodes the interval as its menu label.
func (i Interval) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText parses any form accepted by ParseInterval.
func (i *Interval) UnmarshalText(b []byte) error {
	iv, err := ParseInterval(string(b))
	if err != nil {
		return err
	}
	*i = iv
	return nil
}

// Valid reports whether i is one of Choices.
func (i Interval) Valid() bool {
	for _, c := range Choices {
		if c == i {
			return true
		}
	}
	return false
}
