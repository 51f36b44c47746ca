package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/roach88/scanledger/internal/history"
)

// EntryView is the output shape of one log entry.
type EntryView struct {
	ID              string  `json:"id"`
	Day             string  `json:"day"`
	Date            string  `json:"date"`
	Item            string  `json:"item"`
	Material        string  `json:"material"`
	Bin             string  `json:"bin"`
	Recyclable      bool    `json:"recyclable"`
	Status          string  `json:"status"`
	ScanCount       int     `json:"scan_count"`
	CarbonSavedKg   float64 `json:"carbon_saved_kg"`
	Source          string  `json:"source"`
	LocalImagePath  string  `json:"local_image_path,omitempty"`
	RemoteImagePath string  `json:"remote_image_path,omitempty"`
}

func viewEntry(e history.Entry, loc *time.Location) EntryView {
	return EntryView{
		ID:              e.ID,
		Day:             e.DayKey(loc),
		Date:            e.Date.In(loc).Format(time.RFC3339),
		Item:            e.Item,
		Material:        e.Material,
		Bin:             e.Bin,
		Recyclable:      e.Recyclable,
		Status:          e.Status.String(),
		ScanCount:       e.ScanCount,
		CarbonSavedKg:   e.CarbonSavedKg,
		Source:          string(e.Source),
		LocalImagePath:  e.LocalImagePath,
		RemoteImagePath: e.RemoteImagePath,
	}
}

// EntryList is a rendered slice of entries.
type EntryList struct {
	Entries []EntryView `json:"entries"`
	Total   int         `json:"total"`
}

// RenderText prints the entries as a table.
func (l EntryList) RenderText(w io.Writer) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tITEM\tMATERIAL\tSTATUS\tSCANS\tCO2 KG\tID")
	for _, e := range l.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.3f\t%s\n",
			e.Day, e.Item, e.Material, e.Status, e.ScanCount, e.CarbonSavedKg, e.ID)
	}
	tw.Flush()
	if l.Total > len(l.Entries) {
		fmt.Fprintf(w, "(%d of %d entries)\n", len(l.Entries), l.Total)
	}
}
