package domain

import "time"

// Window is a half-open time interval [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow creates a validated window
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start.UTC(), End: end.UTC()}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// TrailingWindow returns the window of the given length ending at now
func TrailingWindow(now time.Time, length time.Duration) Window {
	return Window{Start: now.Add(-length).UTC(), End: now.UTC()}
}

// Validate rejects empty and inverted windows
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() || !w.End.After(w.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether t lies in [Start, End)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
