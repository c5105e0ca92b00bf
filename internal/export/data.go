package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/jjsim/internal/sim"
)

var ErrNoData = errors.New("export: result has no samples")

// Data is the JSON export layout.
type Data struct {
	Deck      string             `json:"deck,omitempty"`
	Mode      string             `json:"mode"`
	Step      float64            `json:"step"`
	Steps     int                `json:"steps"`
	Refactors int                `json:"refactors"`
	Times     []float64          `json:"times"`
	Traces    []sim.Series       `json:"traces"`
	Currents  []sim.Series       `json:"super_currents,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

func newData(deck string, r *sim.Result) Data {
	d := Data{
		Deck:      deck,
		Mode:      r.Mode,
		Step:      r.Step,
		Steps:     r.Steps,
		Refactors: r.Refactors,
		Times:     r.Times,
		Traces:    r.Traces,
		Currents:  r.SuperCurrents,
		Metrics:   r.Metrics,
	}
	for _, w := range r.Warnings {
		d.Warnings = append(d.Warnings, w.String())
	}
	return d
}

func WriteJSON(w io.Writer, deck string, r *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newData(deck, r))
}

func ExportJSON(path, deck string, r *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteJSON(f, deck, r)
}

// WriteCSV writes one row per step: the time, every trace, then every
// junction super-current.
func WriteCSV(w io.Writer, r *sim.Result) error {
	cw := csv.NewWriter(w)
	series := append(append([]sim.Series(nil), r.Traces...), r.SuperCurrents...)

	header := make([]string, 0, len(series)+1)
	header = append(header, "time")
	for _, s := range series {
		header = append(header, s.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, t := range r.Times {
		row[0] = strconv.FormatFloat(t, 'g', -1, 64)
		for k, s := range series {
			if i >= len(s.Values) {
				return fmt.Errorf("export: series %s has %d samples, want %d", s.Name, len(s.Values), len(r.Times))
			}
			row[k+1] = strconv.FormatFloat(s.Values[i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportCSV(path string, r *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteCSV(f, r)
}

// ReadCSV parses a file written by WriteCSV. Columns named Is(...) become
// super-current series.
func ReadCSV(rd io.Reader) (*sim.Result, error) {
	cr := csv.NewReader(rd)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return nil, fmt.Errorf("export: missing time header")
	}
	header := records[0][1:]
	rows := records[1:]

	r := &sim.Result{Times: make([]float64, len(rows))}
	series := make([]sim.Series, len(header))
	for k, name := range header {
		series[k] = sim.Series{Name: name, Values: make([]float64, len(rows))}
	}
	for i, rec := range rows {
		if len(rec) != len(header)+1 {
			return nil, fmt.Errorf("export: row %d has %d fields, want %d", i+1, len(rec), len(header)+1)
		}
		if r.Times[i], err = strconv.ParseFloat(rec[0], 64); err != nil {
			return nil, fmt.Errorf("export: row %d: %w", i+1, err)
		}
		for k := range header {
			if series[k].Values[i], err = strconv.ParseFloat(rec[k+1], 64); err != nil {
				return nil, fmt.Errorf("export: row %d, %s: %w", i+1, header[k], err)
			}
		}
	}
	for _, s := range series {
		if len(s.Name) > 3 && s.Name[:3] == "Is(" {
			r.SuperCurrents = append(r.SuperCurrents, s)
		} else {
			r.Traces = append(r.Traces, s)
		}
	}
	r.Steps = len(rows)
	if len(r.Times) > 1 {
		r.Step = r.Times[1] - r.Times[0]
	}
	return r, nil
}
