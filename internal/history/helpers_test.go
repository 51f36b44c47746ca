package history

import "time"

var testDay = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

func scanAt(offset time.Duration, item, material string, recyclable bool, source Source) Scan {
	return Scan{
		At:         testDay.Add(offset),
		Item:       item,
		Material:   material,
		Recyclable: recyclable,
		Bin:        "blue",
		Source:     source,
	}
}
