package importer

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/model"
)

// HolidayFile is the YAML holiday calendar:
//
//	holidays:
//	  - date: "2024-08-17"
//	    name: Hari Kemerdekaan
type HolidayFile struct {
	Holidays []struct {
		Date        string `yaml:"date"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"holidays"`
}

// DecodeHolidays reads and checks a holiday calendar. Dates must be unique.
func DecodeHolidays(r io.Reader) ([]model.HolidayRequest, error) {
	var f HolidayFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode holidays: %w", err)
	}

	seen := make(map[string]int, len(f.Holidays))
	out := make([]model.HolidayRequest, 0, len(f.Holidays))
	for i, h := range f.Holidays {
		date := strings.TrimSpace(h.Date)
		if !calendar.Valid(date) {
			return nil, fmt.Errorf("holidays[%d]: invalid date %q", i, h.Date)
		}
		name := strings.TrimSpace(h.Name)
		if name == "" {
			return nil, fmt.Errorf("holidays[%d]: name is required", i)
		}
		if j, dup := seen[date]; dup {
			return nil, fmt.Errorf("holidays[%d]: date %s already listed at holidays[%d]", i, date, j)
		}
		seen[date] = i
		out = append(out, model.HolidayRequest{
			Date:        date,
			Name:        name,
			Description: strings.TrimSpace(h.Description),
		})
	}
	return out, nil
}
