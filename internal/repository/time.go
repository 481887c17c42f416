package repository

import "time"

// timeLayout is RFC3339 with a fixed nine-digit fraction so stored
// timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatLocalTime keeps the offset so the local wall clock can be restored.
func formatLocalTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := parseLocalTime(raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseLocalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
