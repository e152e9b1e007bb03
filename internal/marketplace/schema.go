package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Wire types for the JSON:API payloads. Every field is optional; the
// decoders below apply the defaulting rules instead of failing.

// listResponse keeps items raw so that one malformed item does not fail
// the whole page.
type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

// decodeItems decodes each list item on its own. Items that fail to decode
// or carry no id are dropped.
func decodeItems[T any](raw []json.RawMessage) []resource[T] {
	items := make([]resource[T], 0, len(raw))
	for _, b := range raw {
		var r resource[T]
		if err := json.Unmarshal(b, &r); err != nil || r.ID == "" {
			continue
		}
		items = append(items, r)
	}
	return items
}

type itemResponse[T any] struct {
	Data resource[T] `json:"data"`
}

type resource[T any] struct {
	ID         rawID `json:"id"`
	Attributes T     `json:"attributes"`
	Links      links `json:"links"`
}

type links struct {
	Self link `json:"self"`
}

// link accepts either {"href": "..."} or a bare string.
type link string

func (l *link) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*l = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = link(s)
	case b[0] == '{':
		var obj struct {
			Href string `json:"href"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*l = link(obj.Href)
	default:
		*l = ""
	}
	return nil
}

// rawID keeps the identifier text as supplied: strings unquoted, numbers verbatim.
type rawID string

func (id *rawID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = rawID(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*id = rawID(b)
	default:
		return fmt.Errorf("unsupported id %s", b)
	}
	return nil
}

// number decodes JSON numbers and numeric strings; anything else is 0.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = number(v)
	return nil
}

type money struct {
	Amount   number `json:"amount"`
	Currency string `json:"currency"`
}

// UnmarshalJSON maps anything but an object (PHP encodes an empty one as
// []) to the zero value.
func (m *money) UnmarshalJSON(b []byte) error {
	type plain money
	var v plain
	decodeObject(b, &v)
	*m = money(v)
	return nil
}

type person struct {
	Login        string `json:"login"`
	Rating       number `json:"rating"`
	ReviewsCount number `json:"reviews_count"`
}

func (p *person) UnmarshalJSON(b []byte) error {
	type plain person
	var v plain
	decodeObject(b, &v)
	*p = person(v)
	return nil
}

// decodeObject decodes b into out when b is a well-formed object and
// leaves out untouched otherwise.
func decodeObject(b []byte, out any) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return
	}
	_ = json.Unmarshal(b, out)
}

type skill struct {
	ID   rawID  `json:"id"`
	Name string `json:"name"`
}

type projectAttributes struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Budget      *money  `json:"budget"`
	IsSafe      bool    `json:"is_safe"`
	Skills      []skill `json:"skills"`
	Employer    *person `json:"employer"`
}

// participants accepts a list of people or an object keyed by role
// ({"from": {...}, "to": {...}}); the sender is listed first.
type participants []person

func (p *participants) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = nil
		return nil
	}
	if b[0] == '[' {
		var list []person
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*p = list
		return nil
	}
	var byRole map[string]person
	if err := json.Unmarshal(b, &byRole); err != nil {
		return err
	}
	var out []person
	if from, ok := byRole["from"]; ok {
		out = append(out, from)
	}
	for role, v := range byRole {
		if role != "from" {
			out = append(out, v)
		}
	}
	*p = out
	return nil
}

type threadAttributes struct {
	Subject      string       `json:"subject"`
	UnreadCount  number       `json:"unread_count"`
	Participants participants `json:"participants"`
}

type feedAttributes struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

type profileAttributes struct {
	Login   string `json:"login"`
	Rating  number `json:"rating"`
	Balance *money `json:"balance"`
}
