package calendar

import (
	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/graph"

	gcal "google.golang.org/api/calendar/v3"
)

// colorAuto is the Graph sentinel for "let the client pick".
const colorAuto = "auto"

// FromGoogle converts a Google calendar list entry. A nil entry yields a
// calendar with only the provider set.
func FromGoogle(item *gcal.CalendarListEntry) Calendar {
	if item == nil {
		return Calendar{Provider: accounts.Google, Extra: map[string]Value{}}
	}

	extra := make(map[string]Value)
	if item.Location != "" {
		extra["location"] = String(item.Location)
	}
	if item.SummaryOverride != "" {
		extra["summaryOverride"] = String(item.SummaryOverride)
	}
	if item.ForegroundColor != "" {
		extra["foregroundColor"] = String(item.ForegroundColor)
	}
	if item.ColorId != "" {
		extra["colorId"] = String(item.ColorId)
	}
	if item.ConferenceProperties != nil {
		extra["conferenceProperties"] = Object(map[string]Value{
			"allowedConferenceSolutionTypes": Strings(item.ConferenceProperties.AllowedConferenceSolutionTypes),
		})
	}
	if item.NotificationSettings != nil {
		notifications := make([]Value, 0, len(item.NotificationSettings.Notifications))
		for _, n := range item.NotificationSettings.Notifications {
			if n == nil {
				continue
			}
			notifications = append(notifications, Object(map[string]Value{
				"method": String(n.Method),
				"type":   String(n.Type),
			}))
		}
		extra["notificationSettings"] = Object(map[string]Value{
			"notifications": Array(notifications...),
		})
	}
	if item.DataOwner != "" {
		extra["dataOwner"] = String(item.DataOwner)
	}
	if item.Etag != "" {
		extra["etag"] = String(item.Etag)
	}
	if item.Kind != "" {
		extra["kind"] = String(item.Kind)
	}

	reminders := make([]Value, 0, len(item.DefaultReminders))
	for _, r := range item.DefaultReminders {
		if r == nil {
			continue
		}
		reminders = append(reminders, Object(map[string]Value{
			"method":  String(r.Method),
			"minutes": Number(float64(r.Minutes)),
		}))
	}

	extra["deleted"] = Bool(item.Deleted)
	extra["hidden"] = Bool(item.Hidden)
	extra["selected"] = Bool(item.Selected)
	extra["primary"] = Bool(item.Primary)
	extra["defaultReminders"] = Array(reminders...)

	return Calendar{
		ID:          item.Id,
		Name:        item.Summary,
		Description: optional(item.Description),
		Timezone:    optional(item.TimeZone),
		Color:       optional(item.BackgroundColor),
		AccessRole:  googleAccessRole(item.AccessRole),
		Provider:    accounts.Google,
		Extra:       extra,
	}
}

// googleAccessRole keeps Google's role names, which are the shared
// vocabulary. An entry without a role is treated as read-only.
func googleAccessRole(role string) string {
	if role == "" {
		return AccessReader
	}
	return role
}

// FromMicrosoft converts a Microsoft Graph calendar record.
func FromMicrosoft(mc graph.Calendar) Calendar {
	extra := map[string]Value{
		"groupClassId":                  String(mc.GroupClassID),
		"changeKey":                     String(mc.ChangeKey),
		"isTallyingResponses":           Bool(mc.IsTallyingResponses),
		"isRemovable":                   Bool(mc.IsRemovable),
		"allowedOnlineMeetingProviders": Strings(mc.AllowedOnlineMeetingProviders),
		"defaultOnlineMeetingProvider":  String(mc.DefaultOnlineMeetingProvider),
		"hexColor":                      String(mc.HexColor),
		"isDefaultCalendar":             Bool(mc.IsDefaultCalendar),
		"canShare":                      Bool(mc.CanShare),
		"canViewPrivateItems":           Bool(mc.CanViewPrivateItems),
		"canEdit":                       Bool(mc.CanEdit),
		"owner": Object(map[string]Value{
			"name":    String(mc.Owner.Name),
			"address": String(mc.Owner.Address),
		}),
	}
	for k, v := range mc.Additional {
		if _, taken := extra[k]; !taken {
			extra[k] = FromAny(v)
		}
	}

	var color *string
	if mc.Color != colorAuto {
		color = optional(mc.Color)
	}

	role := AccessReader
	if mc.CanEdit {
		role = AccessOwner
	}

	return Calendar{
		ID:         mc.ID,
		Name:       mc.Name,
		Color:      color,
		AccessRole: role,
		Provider:   accounts.Microsoft,
		Extra:      extra,
	}
}
