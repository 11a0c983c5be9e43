package export

// Dataset is tabular content keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// record orders a row by the dataset headers. Missing columns are blank.
func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}
