package util

import "time"

const dateLayout = "2006-01-02"

// DateRange widens date-only bounds into an inclusive datetime range:
// the from date becomes its start of day, the to date its end of day.
// Either side may be empty for an open-ended range.
func DateRange(dateFrom, dateTo string) (from, to *time.Time, err error) {
	if dateFrom != "" {
		d, perr := time.Parse(dateLayout, dateFrom)
		if perr != nil {
			return nil, nil, perr
		}
		from = &d
	}
	if dateTo != "" {
		d, perr := time.Parse(dateLayout, dateTo)
		if perr != nil {
			return nil, nil, perr
		}
		end := d.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, nil
}
