package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	slotDuration      = 30 * time.Minute
	businessHourStart = 9
	businessHourEnd   = 17

	eventSummary     = "NFL Insight Assistant Consultation Call"
	eventDescription = "A consultation call with the NFL Insight team to discuss " +
		"your questions about the assistant's analysis.\n\n" +
		"Note: all times are in New York (ET) timezone."
)

// Config carries the OAuth material and booking settings for the
// Google Calendar integration.
type Config struct {
	CredentialsFile string
	TokenFile       string
	CalendarID      string
	AttendeeEmail   string
	Timezone        string
}

// ScheduleResult reports the outcome of a booking attempt. Err is set when
// the attempt failed; EventTime carries the human readable start time on
// success.
type ScheduleResult struct {
	Success   bool
	EventTime string
	EventLink string
	EventID   string
	Err       error
}

// SlotList is the availability answer for a single calendar day.
type SlotList struct {
	Date  string
	Slots []string
}

// Service books consultation calls on a Google calendar.
type Service struct {
	api        *calendarapi.Service
	calendarID string
	attendee   string
	location   *time.Location
	now        func() time.Time
}

// NewService builds the calendar client from an OAuth credentials file and a
// previously stored token. There is no interactive flow here; the token is
// provisioned out of band.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timezone %q: %w", cfg.Timezone, err)
	}

	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(credentials, calendarapi.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar credentials: %w", err)
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	api, err := calendarapi.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &Service{
		api:        api,
		calendarID: calendarID,
		attendee:   cfg.AttendeeEmail,
		location:   location,
		now:        time.Now,
	}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("failed to parse calendar token: %w", err)
	}
	return &token, nil
}

// ScheduleCall books a 30 minute consultation at the time described in the
// message. Parse failures and API failures both come back as a failed
// result rather than an error so callers can fall through to a retry reply.
func (s *Service) ScheduleCall(ctx context.Context, message string) ScheduleResult {
	now := s.now().In(s.location)

	start, err := ParseEventTime(message, now)
	if err != nil {
		log.Printf("[calendar] could not parse request time: %v", err)
		return ScheduleResult{Err: err}
	}

	var attendees []*calendarapi.EventAttendee
	if s.attendee != "" {
		attendees = append(attendees, &calendarapi.EventAttendee{
			Email: s.attendee, ResponseStatus: "needsAction",
		})
	}

	return s.insertEvent(ctx, start, attendees)
}

// ScheduleConsultation books directly from the scheduling form, inviting the
// visitor's own email address alongside the team attendee.
func (s *Service) ScheduleConsultation(ctx context.Context, datetimeStr, email, name string) ScheduleResult {
	now := s.now().In(s.location)

	// The form submits an ISO local datetime; fall back to free-text parsing
	// for older clients.
	start, err := time.ParseInLocation("2006-01-02T15:04", strings.TrimSpace(datetimeStr), s.location)
	if err != nil {
		start, err = ParseEventTime(datetimeStr, now)
		if err != nil {
			return ScheduleResult{Err: err}
		}
	}
	if !start.After(now) {
		return ScheduleResult{Err: fmt.Errorf("cannot schedule a time in the past")}
	}

	var attendees []*calendarapi.EventAttendee
	if s.attendee != "" {
		attendees = append(attendees, &calendarapi.EventAttendee{
			Email: s.attendee, ResponseStatus: "needsAction",
		})
	}
	if email != "" {
		attendee := &calendarapi.EventAttendee{Email: email, ResponseStatus: "needsAction"}
		if name != "" {
			attendee.DisplayName = name
		}
		attendees = append(attendees, attendee)
	}

	return s.insertEvent(ctx, start, attendees)
}

func (s *Service) insertEvent(ctx context.Context, start time.Time, attendees []*calendarapi.EventAttendee) ScheduleResult {
	end := start.Add(slotDuration)

	event := &calendarapi.Event{
		Summary:     eventSummary,
		Description: eventDescription,
		Start: &calendarapi.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: s.location.String(),
		},
		End: &calendarapi.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: s.location.String(),
		},
		Attendees: attendees,
		Reminders: &calendarapi.EventReminders{
			UseDefault: false,
			Overrides: []*calendarapi.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "email", Minutes: 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		GuestsCanModify:       false,
		GuestsCanInviteOthers: googleapi.Bool(false),
	}

	created, err := s.api.Events.Insert(s.calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		log.Printf("[calendar] event insert failed: %v", err)
		return ScheduleResult{Err: fmt.Errorf("failed to create calendar event: %w", err)}
	}

	log.Printf("[calendar] scheduled consultation at %s", start.Format(time.RFC3339))
	return ScheduleResult{
		Success:   true,
		EventTime: FormatEventTime(start),
		EventLink: created.HtmlLink,
		EventID:   created.Id,
	}
}

// AvailableSlots lists the free 30 minute consultation slots within business
// hours for a date given as YYYY-MM-DD.
func (s *Service) AvailableSlots(ctx context.Context, dateStr string) (SlotList, error) {
	day, err := time.ParseInLocation("2006-01-02", dateStr, s.location)
	if err != nil {
		return SlotList{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dateStr)
	}

	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	if day.Before(today) {
		return SlotList{}, fmt.Errorf("cannot check availability for past dates")
	}

	dayEnd := day.Add(24 * time.Hour)
	events, err := s.api.Events.List(s.calendarID).
		TimeMin(day.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return SlotList{}, fmt.Errorf("failed to list calendar events: %w", err)
	}

	busy := make([]interval, 0, len(events.Items))
	for _, item := range events.Items {
		iv, ok := eventInterval(item, s.location)
		if ok {
			busy = append(busy, iv)
		}
	}

	return SlotList{
		Date:  day.Format("January 02, 2006"),
		Slots: freeSlots(day, now, busy),
	}, nil
}

type interval struct {
	start time.Time
	end   time.Time
}

func eventInterval(item *calendarapi.Event, loc *time.Location) (interval, bool) {
	parse := func(dt *calendarapi.EventDateTime) (time.Time, bool) {
		if dt == nil {
			return time.Time{}, false
		}
		if dt.DateTime != "" {
			t, err := time.Parse(time.RFC3339, dt.DateTime)
			if err != nil {
				return time.Time{}, false
			}
			return t.In(loc), true
		}
		if dt.Date != "" {
			t, err := time.ParseInLocation("2006-01-02", dt.Date, loc)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
		return time.Time{}, false
	}

	start, ok := parse(item.Start)
	if !ok {
		return interval{}, false
	}
	end, ok := parse(item.End)
	if !ok {
		return interval{}, false
	}
	return interval{start: start, end: end}, true
}

// freeSlots walks the business-hour grid for the day and keeps the slots
// that lie in the future and overlap no existing event.
func freeSlots(day, now time.Time, busy []interval) []string {
	slots := make([]string, 0, (businessHourEnd-businessHourStart)*2)

	slot := time.Date(day.Year(), day.Month(), day.Day(), businessHourStart, 0, 0, 0, day.Location())
	for slot.Hour() < businessHourEnd {
		slotEnd := slot.Add(slotDuration)
		if slot.After(now) && !overlapsAny(slot, slotEnd, busy) {
			slots = append(slots, slot.Format("03:04 PM"))
		}
		slot = slotEnd
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []interval) bool {
	for _, iv := range busy {
		if start.Before(iv.end) && end.After(iv.start) {
			return true
		}
	}
	return false
}
