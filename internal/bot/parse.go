package bot

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fhunt_bot/internal/model"
)

// maxCallbackData is the Telegram limit for inline button payloads, in bytes.
const maxCallbackData = 64

// ParseCommand splits "/cmd@botname arg..." into a lower-cased command and
// its trimmed argument. ok is false when text is not a command.
func ParseCommand(text string) (cmd, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(strings.TrimPrefix(head, "/"), "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// ParseBudget parses a budget floor. Fractions are truncated and values
// <= 0 become 0, which means "no floor".
func ParseBudget(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid budget %q, expected a number", s)
	}
	switch {
	case v <= 0:
		return 0, nil
	case v > math.MaxInt32:
		return 0, fmt.Errorf("budget %q is too large", s)
	}
	return int(v), nil
}

// ParseDigestTime parses a digest time. "0" disables the digest and yields
// an empty string.
func ParseDigestTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "0" {
		return "", nil
	}
	return model.ParseClock(s)
}

// ParseCallback splits callback data of the form "action:arg".
func ParseCallback(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

// ParseReminder parses the "<hours>:<project id>" argument of a remind
// callback.
func ParseReminder(arg string) (int, model.EntityID, error) {
	h, id, ok := strings.Cut(arg, ":")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("invalid reminder %q", arg)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 1 || hours > 168 {
		return 0, "", fmt.Errorf("invalid reminder delay %q", h)
	}
	return hours, model.EntityID(id), nil
}

// callbackData joins an action and argument. ok is false when the result
// would not fit into a button.
func callbackData(action, arg string) (string, bool) {
	data := action
	if arg != "" {
		data += ":" + arg
	}
	return data, len(data) <= maxCallbackData
}
