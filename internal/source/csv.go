package source

import (
	"bufio"
	"encoding/csv"
	"os"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// readCSVFile reads a CSV export of a single sheet. CSV carries no fill
// information, so no cell is ever highlighted.
func readCSVFile(path, documentID string) (types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}
	defer file.Close()

	csvReader := csv.NewReader(bufio.NewReader(file))
	configureReader(csvReader)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}

	table := make(types.Table, len(allRows))
	for i, r := range allRows {
		table[i] = types.NewRow(r...)
	}
	return trimTable(table), nil
}

// configureReader sets the options submitted sheets need: ragged rows are
// kept as-is and loose quoting is tolerated.
func configureReader(reader *csv.Reader) {
	reader.Comma = ','
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}
