package queryparse

import (
	"reflect"
	"testing"
)

func TestResolveTimeGroupsEmpty(t *testing.T) {
	if got := ResolveTimeGroups("DAM prices for 14 Nov 2025"); len(got) != 0 {
		t.Fatalf("expected no time groups, got %v", got)
	}
}

func TestResolveTimeGroupsBareNumericHours(t *testing.T) {
	got := ResolveTimeGroups("6-8 and 12-14")
	if len(got) != 1 {
		t.Fatalf("expected one group, got %v", got)
	}
	if got[0].Granularity != GranularityHour {
		t.Fatalf("granularity = %s", got[0].Granularity)
	}
	want := []int{6, 7, 8, 12, 13, 14}
	if !reflect.DeepEqual(got[0].Hours, want) {
		t.Fatalf("hours = %v, want %v", got[0].Hours, want)
	}
}

func TestResolveTimeGroupsExplicitSlots(t *testing.T) {
	got := ResolveTimeGroups("20-50 slots")
	if len(got) != 1 || got[0].Granularity != GranularityQuarter {
		t.Fatalf("expected one quarter group, got %v", got)
	}
	if len(got[0].Slots) != 31 || got[0].Slots[0] != 20 || got[0].Slots[30] != 50 {
		t.Fatalf("slots = %v", got[0].Slots)
	}
}

// "6-8" is bare, but "slots" elsewhere in the text (and no hour word) makes it
// a slot selection.
func TestResolveTimeGroupsUnitWordOverride(t *testing.T) {
	got := ResolveTimeGroups("show slots for 6-8")
	if len(got) != 1 || got[0].Granularity != GranularityQuarter {
		t.Fatalf("expected quarter group, got %v", got)
	}
	if !reflect.DeepEqual(got[0].Slots, []int{6, 7, 8}) {
		t.Fatalf("slots = %v", got[0].Slots)
	}
}

func TestResolveTimeGroupsWordedHourRange(t *testing.T) {
	got := ResolveTimeGroups("6 to 8 hours")
	if len(got) != 1 || got[0].Granularity != GranularityHour {
		t.Fatalf("expected hour group, got %v", got)
	}
	// Hour label H denotes the block ending at H:00, and the bare numeric
	// strategy also contributes 6-8, so the union is 6,7,8.
	if !reflect.DeepEqual(got[0].Hours, []int{6, 7, 8}) {
		t.Fatalf("hours = %v", got[0].Hours)
	}
}

func TestResolveTimeGroupsClockRange(t *testing.T) {
	got := ResolveTimeGroups("06:00 to 08:00")
	if len(got) == 0 {
		t.Fatal("expected groups")
	}
	var hours []int
	for _, g := range got {
		if g.Granularity == GranularityHour {
			hours = g.Hours
		}
	}
	// 06:00 opens block 7, 08:00 closes block 8.
	if !reflect.DeepEqual(hours, []int{7, 8}) {
		t.Fatalf("hours = %v", hours)
	}
}

func TestResolveTimeGroupsClockRangeSlots(t *testing.T) {
	got := ResolveTimeGroups("06:15 to 08:30 slots")
	if len(got) != 1 || got[0].Granularity != GranularityQuarter {
		t.Fatalf("expected quarter group, got %v", got)
	}
	// 06:15 -> slot 26, 08:30 -> slot 34.
	if got[0].Slots[0] != 26 || got[0].Slots[len(got[0].Slots)-1] != 34 {
		t.Fatalf("slots = %v", got[0].Slots)
	}
}

func TestResolveTimeGroupsAmPm(t *testing.T) {
	got := ResolveTimeGroups("3pm to 5pm")
	if len(got) == 0 {
		t.Fatal("expected groups")
	}
	var hours []int
	for _, g := range got {
		if g.Granularity == GranularityHour {
			hours = g.Hours
		}
	}
	// 15:00 opens block 16, 17:00 closes block 17.
	if !reflect.DeepEqual(hours, []int{16, 17}) {
		t.Fatalf("hours = %v", hours)
	}
}

// A window shorter than one slot inverts under ceiling/floor rounding and
// must contribute nothing at quarter granularity.
func TestResolveTimeGroupsSubQuarterWindow(t *testing.T) {
	got := ResolveTimeGroups("08:05 to 08:10")
	for _, g := range got {
		if g.Granularity == GranularityQuarter && len(g.Slots) > 0 {
			t.Fatalf("sub-quarter window produced slots %v", g.Slots)
		}
	}
}

func TestResolveTimeGroupsIgnoresNumericDates(t *testing.T) {
	got := ResolveTimeGroups("prices on 31/10/2025")
	if len(got) != 0 {
		t.Fatalf("numeric date misread as time range: %v", got)
	}
}

func TestResolveTimeGroupsIgnoresDayMonthDates(t *testing.T) {
	got := ResolveTimeGroups("DAM for 6-8 and 12-14 from 25 Aug 2024")
	if len(got) != 1 || got[0].Granularity != GranularityHour {
		t.Fatalf("got %v", got)
	}
	want := []int{6, 7, 8, 12, 13, 14}
	if !reflect.DeepEqual(got[0].Hours, want) {
		t.Fatalf("hours = %v, want %v", got[0].Hours, want)
	}
}
