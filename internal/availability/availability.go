package availability

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a window's close minute
const MinutesPerDay = 24 * 60

// Window is a half-open opening interval [Open, Close) in minutes since midnight
type Window struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// WorkingTimes describes a caterer's weekly opening hours
type WorkingTimes struct {
	Days                   map[time.Weekday][]Window
	MinimumPreparationTime int
}

// PickupRequest is a requested pickup slot within the week
type PickupRequest struct {
	Weekday     time.Weekday
	MinuteOfDay int
}

// ParseError reports a malformed pickup request
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid pickup request %q: %s", e.Input, e.Reason)
}

var dayTokens = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

var dayNames = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// ParseWeekday accepts a three letter token ("mon") or a full English day name
func ParseWeekday(token string) (time.Weekday, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if day, ok := dayTokens[token]; ok {
		return day, true
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.ToLower(day.String()) == token {
			return day, true
		}
	}
	return 0, false
}

// DayToken returns the short token used in pickup strings
func DayToken(day time.Weekday) string {
	return dayNames[day]
}

// ParsePickupRequest parses "<day>-<HH:mm>", e.g. "mon-19:00"
func ParsePickupRequest(text string) (PickupRequest, error) {
	dayPart, timePart, ok := strings.Cut(strings.TrimSpace(text), "-")
	if !ok {
		return PickupRequest{}, &ParseError{Input: text, Reason: "expected <day>-<HH:mm>"}
	}

	day, ok := ParseWeekday(dayPart)
	if !ok {
		return PickupRequest{}, &ParseError{Input: text, Reason: fmt.Sprintf("unknown weekday %q", dayPart)}
	}

	hourPart, minutePart, ok := strings.Cut(timePart, ":")
	if !ok || len(minutePart) != 2 || len(hourPart) == 0 || len(hourPart) > 2 || !allDigits(hourPart) || !allDigits(minutePart) {
		return PickupRequest{}, &ParseError{Input: text, Reason: "expected time as HH:mm"}
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return PickupRequest{}, &ParseError{Input: text, Reason: "hour must be between 00 and 23"}
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return PickupRequest{}, &ParseError{Input: text, Reason: "minute must be between 00 and 59"}
	}

	return PickupRequest{Weekday: day, MinuteOfDay: hour*60 + minute}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the request in the same form ParsePickupRequest accepts
func (p PickupRequest) String() string {
	return fmt.Sprintf("%s-%02d:%02d", DayToken(p.Weekday), p.MinuteOfDay/60, p.MinuteOfDay%60)
}

func (p PickupRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PickupRequest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePickupRequest(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsAvailable reports whether the pickup falls inside one of the day's windows
// once the preparation time has been taken off the window start.
func IsAvailable(wt WorkingTimes, pickup PickupRequest) bool {
	for _, w := range wt.Days[pickup.Weekday] {
		if w.Open+wt.MinimumPreparationTime <= pickup.MinuteOfDay && pickup.MinuteOfDay < w.Close {
			return true
		}
	}
	return false
}

// Validate checks that every day's windows are in range, ordered and disjoint
func (wt WorkingTimes) Validate() error {
	if wt.MinimumPreparationTime < 0 {
		return fmt.Errorf("minimum preparation time must not be negative")
	}
	for day, windows := range wt.Days {
		prevClose := -1
		for _, w := range windows {
			if w.Open < 0 || w.Close > MinutesPerDay || w.Open >= w.Close {
				return fmt.Errorf("%s: invalid window %d-%d", DayToken(day), w.Open, w.Close)
			}
			if w.Open < prevClose {
				return fmt.Errorf("%s: windows overlap or are out of order", DayToken(day))
			}
			prevClose = w.Close
		}
	}
	return nil
}

type workingTimesJSON struct {
	Days                   map[string][]Window `json:"days"`
	MinimumPreparationTime int                 `json:"minimumPreparationTime"`
}

func (wt WorkingTimes) MarshalJSON() ([]byte, error) {
	out := workingTimesJSON{
		Days:                   make(map[string][]Window, len(wt.Days)),
		MinimumPreparationTime: wt.MinimumPreparationTime,
	}
	for day, windows := range wt.Days {
		out.Days[DayToken(day)] = windows
	}
	return json.Marshal(out)
}

func (wt *WorkingTimes) UnmarshalJSON(data []byte) error {
	var in workingTimesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	days := make(map[time.Weekday][]Window, len(in.Days))
	for token, windows := range in.Days {
		day, ok := ParseWeekday(token)
		if !ok {
			return fmt.Errorf("unknown weekday %q", token)
		}
		sorted := append([]Window(nil), windows...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Open < sorted[j].Open })
		days[day] = sorted
	}
	wt.Days = days
	wt.MinimumPreparationTime = in.MinimumPreparationTime
	return nil
}
