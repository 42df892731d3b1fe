// Package optiondata carries the static DHCP option registry data file
// (code, name, length class, description) embedded at build time and parsed
// once at startup. The wire codec consults it for display names and for
// synthesizing keys for options it has no typed definition for.
package optiondata

import (
	"embed"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

//go:embed options.csv
var assets embed.FS

// Entry is one row of the options data file.
type Entry struct {
	Code        int
	Name        string
	Length      string // numeric length or a length-class note such as "N"
	Description string
	RFC         string
}

var table = mustLoad()

func mustLoad() map[int]Entry {
	f, err := assets.Open("options.csv")
	if err != nil {
		panic(fmt.Sprintf("optiondata: opening embedded options.csv: %v", err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	out := make(map[int]Entry)
	rows, err := r.ReadAll()
	if err != nil {
		panic(fmt.Sprintf("optiondata: parsing options.csv: %v", err))
	}
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		code, err := strconv.Atoi(row[0])
		if err != nil {
			// Header or section divider row
			continue
		}
		e := Entry{
			Code:        code,
			Name:        row[1],
			Length:      row[2],
			Description: row[3],
		}
		if len(row) > 4 {
			e.RFC = strings.TrimSpace(row[4])
		}
		out[code] = e
	}
	return out
}

// Lookup returns the data-file entry for an option code.
func Lookup(code int) (Entry, bool) {
	e, ok := table[code]
	return e, ok
}

// Name returns the registered option name, or "" if the code is not listed.
func Name(code int) string {
	return table[code].Name
}

// CompactName returns the option name with whitespace removed, suitable for
// use in synthesized semantic keys. Returns "" if the code is not listed.
func CompactName(code int) string {
	return strings.Join(strings.Fields(table[code].Name), "")
}

// Count returns the number of entries loaded from the data file.
func Count() int {
	return len(table)
}
