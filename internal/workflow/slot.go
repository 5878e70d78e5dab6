package workflow

import "time"

// Slot validation is intentionally shallow: the engine checks shape and
// ordering only.  Capacity and conflict scheduling are out of scope.

func parseSlotDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, Validationf("slot_date must be YYYY-MM-DD")
	}
	return t, nil
}

func validateSlotTimes(start, end string) error {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return Validationf("slot_start must be HH:MM")
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return Validationf("slot_end must be HH:MM")
	}
	if !st.Before(et) {
		return Validationf("slot_start must be before slot_end")
	}
	return nil
}
