package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

type ExportData struct {
	Run    *RunMetadata `json:"run"`
	Header []string     `json:"columns"`
	Rows   [][]float64  `json:"rows"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func rows(tr *Trace) [][]float64 {
	out := make([][]float64, tr.Len())
	for i := range out {
		row := make([]float64, 0, len(Header))
		row = append(row, tr.Times[i])
		row = append(row, tr.States[i].Slice()...)
		row = append(row, tr.Torques[i], tr.Applied[i], tr.Costs[i])
		out[i] = row
	}
	return out
}

// WriteCSV writes the trace in the states.csv layout.
func WriteCSV(w io.Writer, tr *Trace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, row := range rows(tr) {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ExportJSON(w io.Writer, meta *RunMetadata, tr *Trace) error {
	data := ExportData{
		Run:    meta,
		Header: Header,
		Rows:   rows(tr),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
