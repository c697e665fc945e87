package archive

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// ReadCalendar parses the calendar table emitted by the archive walk: a CSV
// with a year,month,links header where the links cell is a JSON-encoded
// array of snapshot URLs. Rows come back sorted by nominal year so a run
// processes whole years in order.
func ReadCalendar(r io.Reader) ([]Group, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read calendar header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"year", "month", "links"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("calendar header missing %q column", required)
		}
	}

	var groups []Group
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read calendar row %d: %w", line, err)
		}
		g, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("calendar row %d: %w", line, err)
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].NominalYear < groups[j].NominalYear
	})
	return groups, nil
}

// LoadCalendar reads the calendar table from a file on disk.
func LoadCalendar(path string) ([]Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calendar %s: %w", path, err)
	}
	defer f.Close()
	groups, err := ReadCalendar(f)
	if err != nil {
		return nil, fmt.Errorf("parse calendar %s: %w", path, err)
	}
	return groups, nil
}

func parseRow(record []string, cols map[string]int) (Group, error) {
	var g Group
	var err error
	if g.NominalYear, err = strconv.Atoi(record[cols["year"]]); err != nil {
		return Group{}, fmt.Errorf("bad year %q: %w", record[cols["year"]], err)
	}
	if g.NominalMonth, err = strconv.Atoi(record[cols["month"]]); err != nil {
		return Group{}, fmt.Errorf("bad month %q: %w", record[cols["month"]], err)
	}
	if err := json.Unmarshal([]byte(record[cols["links"]]), &g.Links); err != nil {
		return Group{}, fmt.Errorf("decode links array: %w", err)
	}
	return g, nil
}
