// Package calendar is the provider-agnostic calendar model and the
// conversions into it from each provider's payload.
package calendar

import (
	"github.com/beekhof/calendar-hub/internal/accounts"
)

// Access roles shared by all providers.
const (
	AccessOwner          = "owner"
	AccessWriter         = "writer"
	AccessReader         = "reader"
	AccessFreeBusyReader = "freeBusyReader"
)

// Calendar is a calendar as seen by the user, whatever its provider.
type Calendar struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Timezone    *string           `json:"timezone,omitempty"`
	Color       *string           `json:"color,omitempty"`
	AccessRole  string            `json:"access_role"`
	Provider    accounts.Provider `json:"provider"`
	// Extra keeps provider fields without a canonical slot.
	Extra map[string]Value `json:"extra,omitempty"`
}

// DisplayName returns Name, or ID for calendars without a name.
func (c Calendar) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// optional maps the empty string to absent.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
