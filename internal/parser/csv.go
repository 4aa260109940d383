package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "ledgerlens/internal/errors"
)

// CSVParser parses one institution's CSV export using a column mapping from
// configuration. Malformed rows are skipped and counted, never fatal; only a
// header that lacks the required columns fails the whole file.
type CSVParser struct {
	cfg CSVConfig
}

// NewCSVParser validates the column mapping and returns a parser.
func NewCSVParser(cfg CSVConfig) (*CSVParser, error) {
	if cfg.DateColumn == "" || cfg.DescriptionColumn == "" {
		return nil, fmt.Errorf("csv config requires date_column and description_column")
	}
	if cfg.AmountColumn == "" && (cfg.DebitColumn == "" || cfg.CreditColumn == "") {
		return nil, fmt.Errorf("csv config requires amount_column or the debit_column/credit_column pair")
	}
	return &CSVParser{cfg: cfg}, nil
}

// Parse implements Parser.
func (p *CSVParser) Parse(data []byte) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrSchemaMismatch, "file has no header row")
	}

	cols, missing := p.resolveColumns(header)
	if len(missing) > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrSchemaMismatch,
			fmt.Sprintf("required columns absent: %s", strings.Join(missing, ", ")))
	}

	result := &Result{Fields: map[string]string{}}
	rowIndex := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowIndex++
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{
				Index:  rowIndex,
				Reason: err.Error(),
			})
			continue
		}

		line, rowErr := p.parseRecord(rowIndex, record, cols)
		if rowErr != nil {
			result.RowErrors = append(result.RowErrors, *rowErr)
			continue
		}
		result.Lines = append(result.Lines, line)
	}

	return result, nil
}

// columnIndexes holds resolved header positions; -1 means not configured.
type columnIndexes struct {
	date, description, amount, debit, credit, typ int
}

func (p *CSVParser) resolveColumns(header []string) (columnIndexes, []string) {
	find := func(name string) int {
		if name == "" {
			return -1
		}
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	cols := columnIndexes{
		date:        find(p.cfg.DateColumn),
		description: find(p.cfg.DescriptionColumn),
		amount:      find(p.cfg.AmountColumn),
		debit:       find(p.cfg.DebitColumn),
		credit:      find(p.cfg.CreditColumn),
		typ:         find(p.cfg.TypeColumn),
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, p.cfg.DateColumn)
	}
	if cols.description < 0 {
		missing = append(missing, p.cfg.DescriptionColumn)
	}
	if p.cfg.AmountColumn != "" && cols.amount < 0 {
		missing = append(missing, p.cfg.AmountColumn)
	}
	if p.cfg.AmountColumn == "" {
		if cols.debit < 0 {
			missing = append(missing, p.cfg.DebitColumn)
		}
		if cols.credit < 0 {
			missing = append(missing, p.cfg.CreditColumn)
		}
	}
	return cols, missing
}

func (p *CSVParser) parseRecord(index int, record []string, cols columnIndexes) (RawLine, *RowError) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date := field(cols.date)
	description := field(cols.description)
	if date == "" || description == "" {
		return RawLine{}, &RowError{
			Index:  index,
			Line:   strings.Join(record, ","),
			Reason: "missing date or description",
		}
	}

	line := RawLine{
		Index:       index,
		Date:        date,
		Description: description,
		TypeHint:    strings.ToLower(field(cols.typ)),
	}

	switch {
	case cols.amount >= 0:
		line.Amount = field(cols.amount)
	case field(cols.debit) != "":
		line.Amount = field(cols.debit)
		if line.TypeHint == "" {
			line.TypeHint = "debit"
		}
	case field(cols.credit) != "":
		line.Amount = field(cols.credit)
		if line.TypeHint == "" {
			line.TypeHint = "credit"
		}
	}

	if line.Amount == "" {
		return RawLine{}, &RowError{
			Index:  index,
			Line:   strings.Join(record, ","),
			Reason: "no amount in row",
		}
	}

	return line, nil
}
