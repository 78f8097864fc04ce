package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrUnsupportedRRule indicates an iCalendar rule has no equivalent Kind.
var ErrUnsupportedRRule = errors.New("recurrence: unsupported rrule")

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// options returns the repeating part of the rule. Specific-date rules have
// none and report false.
func (r Rule) options() (rrule.ROption, bool) {
	switch r.Kind {
	case KindEveryday:
		return rrule.ROption{Freq: rrule.DAILY}, true
	case KindWeekdays:
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}}, true
	case KindWeekends:
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rrule.SA, rrule.SU}}, true
	case KindSpecificDays:
		days := make([]rrule.Weekday, 0, len(r.Weekdays))
		for _, wd := range r.Weekdays {
			days = append(days, rruleWeekdays[wd])
		}
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: days}, true
	default:
		return rrule.ROption{}, false
	}
}

// RRule renders the RFC 5545 RRULE value for repeating rules, e.g.
// "FREQ=WEEKLY;BYDAY=MO,FR". Specific-date rules report false.
func (r Rule) RRule() (string, bool) {
	opt, ok := r.options()
	if !ok {
		return "", false
	}
	return opt.RRuleString(), true
}

// ToRRuleSet expands the rule into an rrule.Set whose occurrences start at
// clock, beginning on the calendar day of anchor.
func ToRRuleSet(rule Rule, clock string, anchor time.Time) (*rrule.Set, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	start, err := StartOn(clock, anchor)
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	if opt, ok := rule.options(); ok {
		opt.Dtstart = start
		r, err := rrule.NewRRule(opt)
		if err != nil {
			return nil, fmt.Errorf("recurrence: build rrule: %w", err)
		}
		set.RRule(r)
		return set, nil
	}

	for _, d := range rule.Dates {
		day, err := time.ParseInLocation(DateLayout, d, anchor.Location())
		if err != nil {
			return nil, ErrInvalidDate
		}
		at, _ := StartOn(clock, day)
		set.RDate(at)
	}
	return set, nil
}

// Occurrences lists start instants of rule between from and to inclusive,
// in ascending order.
func Occurrences(rule Rule, clock string, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, nil
	}
	set, err := ToRRuleSet(rule, clock, from)
	if err != nil {
		return nil, err
	}
	times := set.Between(from, to, true)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

// FromRRule maps a parsed iCalendar RRULE onto a Kind. Only unbounded
// daily and weekly rules with an interval of one are representable.
func FromRRule(opt *rrule.ROption) (Rule, error) {
	if opt == nil {
		return Rule{}, ErrUnsupportedRRule
	}
	if opt.Interval > 1 || opt.Count > 0 || !opt.Until.IsZero() {
		return Rule{}, fmt.Errorf("%w: bounded or spaced repetition", ErrUnsupportedRRule)
	}

	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday) == 0 {
			return Rule{Kind: KindEveryday}, nil
		}
	case rrule.WEEKLY:
		if len(opt.Byweekday) == 0 {
			return Rule{}, fmt.Errorf("%w: weekly rule without BYDAY", ErrUnsupportedRRule)
		}
	default:
		return Rule{}, fmt.Errorf("%w: frequency %v", ErrUnsupportedRRule, opt.Freq)
	}

	set := make(map[time.Weekday]struct{}, len(opt.Byweekday))
	for i := range opt.Byweekday {
		if opt.Byweekday[i].N() != 0 {
			return Rule{}, fmt.Errorf("%w: positional BYDAY", ErrUnsupportedRRule)
		}
		set[time.Weekday((opt.Byweekday[i].Day()+1)%7)] = struct{}{}
	}
	return classifyWeekdays(set), nil
}

func classifyWeekdays(set map[time.Weekday]struct{}) Rule {
	has := func(days ...time.Weekday) bool {
		for _, d := range days {
			if _, ok := set[d]; !ok {
				return false
			}
		}
		return true
	}
	switch {
	case len(set) == 7:
		return Rule{Kind: KindEveryday}
	case len(set) == 5 && has(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday):
		return Rule{Kind: KindWeekdays}
	case len(set) == 2 && has(time.Saturday, time.Sunday):
		return Rule{Kind: KindWeekends}
	}
	days := make([]time.Weekday, 0, len(set))
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		if _, ok := set[wd]; ok {
			days = append(days, wd)
		}
	}
	if _, ok := set[time.Sunday]; ok {
		days = append(days, time.Sunday)
	}
	return Rule{Kind: KindSpecificDays, Weekdays: days}
}
