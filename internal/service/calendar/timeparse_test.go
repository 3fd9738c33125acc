package calendar

import (
	"strings"
	"testing"
	"time"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// A Tuesday morning.
	return time.Date(2025, time.March, 11, 9, 0, 0, 0, loc)
}

func TestParseEventTime(t *testing.T) {
	now := fixedNow(t)

	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"tomorrow with meridiem", "book me tomorrow at 2 PM", time.Date(2025, time.March, 12, 14, 0, 0, 0, now.Location())},
		{"compact meridiem", "schedule tomorrow 2:30pm", time.Date(2025, time.March, 12, 14, 30, 0, 0, now.Location())},
		{"24 hour clock", "tomorrow 14:30 works", time.Date(2025, time.March, 12, 14, 30, 0, 0, now.Location())},
		{"same day future", "call me at 11 am", time.Date(2025, time.March, 11, 11, 0, 0, 0, now.Location())},
		{"range takes the start", "tomorrow 2 to 3 pm", time.Date(2025, time.March, 12, 2, 0, 0, 0, now.Location())},
		{"noon stays noon", "tomorrow at 12 pm", time.Date(2025, time.March, 12, 12, 0, 0, 0, now.Location())},
		{"midnight", "tomorrow at 12 am", time.Date(2025, time.March, 12, 0, 0, 0, 0, now.Location())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEventTime(tc.raw, now)
			if err != nil {
				t.Fatalf("ParseEventTime(%q): %v", tc.raw, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("ParseEventTime(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseEventTimeRejections(t *testing.T) {
	now := fixedNow(t)

	if _, err := ParseEventTime("schedule a call sometime", now); err == nil {
		t.Fatal("expected error for a message without a time")
	}
	// 8 AM is in the past relative to the 9 AM reference.
	if _, err := ParseEventTime("today at 8 am", now); err == nil {
		t.Fatal("expected error for a past time")
	}
}

func TestFormatEventTime(t *testing.T) {
	now := fixedNow(t)
	got := FormatEventTime(time.Date(2025, time.March, 12, 14, 0, 0, 0, now.Location()))
	if got != "March 12, 2025 at 02:00 PM" {
		t.Fatalf("FormatEventTime = %q", got)
	}
}

func TestFreeSlotsBusinessHours(t *testing.T) {
	now := fixedNow(t)
	day := time.Date(2025, time.March, 12, 0, 0, 0, 0, now.Location())

	slots := freeSlots(day, now, nil)
	if len(slots) != 16 {
		t.Fatalf("got %d slots, want 16: %v", len(slots), slots)
	}
	if slots[0] != "09:00 AM" || slots[len(slots)-1] != "04:30 PM" {
		t.Fatalf("slot bounds: first=%s last=%s", slots[0], slots[len(slots)-1])
	}
}

func TestFreeSlotsExcludesBookedAndPast(t *testing.T) {
	now := fixedNow(t)
	day := time.Date(2025, time.March, 11, 0, 0, 0, 0, now.Location())

	booked := []interval{{
		start: time.Date(2025, time.March, 11, 10, 0, 0, 0, now.Location()),
		end:   time.Date(2025, time.March, 11, 11, 0, 0, 0, now.Location()),
	}}

	slots := freeSlots(day, now, booked)
	// 9:00 and 9:30 are not after 9:00 "now"? 9:30 is. The 10:00 hour is booked.
	for _, s := range slots {
		if s == "09:00 AM" {
			t.Fatal("past slot included")
		}
		if s == "10:00 AM" || s == "10:30 AM" {
			t.Fatalf("booked slot included: %v", slots)
		}
	}
	if slots[0] != "09:30 AM" {
		t.Fatalf("first slot = %s", slots[0])
	}
	if !containsSlot(slots, "11:00 AM") {
		t.Fatalf("expected 11:00 AM to be free: %v", slots)
	}
}

func containsSlot(slots []string, want string) bool {
	for _, s := range slots {
		if s == want {
			return true
		}
	}
	return false
}

func TestScheduleCallParseFailure(t *testing.T) {
	svc := &Service{
		location: fixedNow(t).Location(),
		now:      func() time.Time { return fixedNow(t) },
	}

	result := svc.ScheduleCall(t.Context(), "just book something whenever")
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil || !strings.Contains(result.Err.Error(), "could not parse") {
		t.Fatalf("err = %v", result.Err)
	}
}
