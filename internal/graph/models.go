// Package graph holds the Microsoft Graph payload shapes used by the
// calendar listing call.
package graph

import (
	"github.com/goccy/go-json"
)

// CalendarsResponse is the envelope returned by GET /me/calendars.
type CalendarsResponse struct {
	ODataContext  string     `json:"@odata.context"`
	ODataNextLink string     `json:"@odata.nextLink,omitempty"`
	Value         []Calendar `json:"value"`
}

// Calendar is one raw calendar record.
type Calendar struct {
	ID                            string   `json:"id"`
	Name                          string   `json:"name"`
	Color                         string   `json:"color"`
	HexColor                      string   `json:"hexColor"`
	GroupClassID                  string   `json:"groupClassId"`
	IsDefaultCalendar             bool     `json:"isDefaultCalendar"`
	ChangeKey                     string   `json:"changeKey"`
	CanShare                      bool     `json:"canShare"`
	CanViewPrivateItems           bool     `json:"canViewPrivateItems"`
	CanEdit                       bool     `json:"canEdit"`
	AllowedOnlineMeetingProviders []string `json:"allowedOnlineMeetingProviders"`
	DefaultOnlineMeetingProvider  string   `json:"defaultOnlineMeetingProvider"`
	IsTallyingResponses           bool     `json:"isTallyingResponses"`
	IsRemovable                   bool     `json:"isRemovable"`
	Owner                         Owner    `json:"owner"`

	// Additional holds members of the record not declared above, as decoded
	// JSON values.
	Additional map[string]any `json:"-"`
}

// Owner is the calendar owner's email address record.
type Owner struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

var knownMembers = map[string]bool{
	"id":                            true,
	"name":                          true,
	"color":                         true,
	"hexColor":                      true,
	"groupClassId":                  true,
	"isDefaultCalendar":             true,
	"changeKey":                     true,
	"canShare":                      true,
	"canViewPrivateItems":           true,
	"canEdit":                       true,
	"allowedOnlineMeetingProviders": true,
	"defaultOnlineMeetingProvider":  true,
	"isTallyingResponses":           true,
	"isRemovable":                   true,
	"owner":                         true,
}

// UnmarshalJSON decodes the declared members and keeps the rest in
// Additional.
func (c *Calendar) UnmarshalJSON(data []byte) error {
	type plain Calendar
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if knownMembers[k] {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		p.Additional = all
	}

	*c = Calendar(p)
	return nil
}
