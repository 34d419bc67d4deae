package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

// Required CSV columns. PassengerId, Name, Ticket and Cabin are read but do
// not become features.
var requiredColumns = []string{
	"PassengerId", "Survived", "Pclass", "Name", "Sex", "Age",
	"SibSp", "Parch", "Ticket", "Fare", "Cabin", "Embarked",
}

// Dataset is a labelled set of passenger records.
type Dataset struct {
	Records []*model.PassengerRecord
	Labels  []int
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Records) }

// Subset returns the rows at idx in order.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Records: make([]*model.PassengerRecord, len(idx)),
		Labels:  make([]int, len(idx)),
	}
	for i, j := range idx {
		out.Records[i] = d.Records[j]
		out.Labels[i] = d.Labels[j]
	}
	return out
}

// LoadCSV reads a Kaggle-format Titanic CSV file.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a Titanic CSV stream. Empty Age and Embarked cells become
// absent values for imputation.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	ds := &Dataset{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, label, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Records = append(ds.Records, rec)
		ds.Labels = append(ds.Labels, label)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

func parseRow(row []string, col map[string]int) (*model.PassengerRecord, int, error) {
	get := func(name string) string { return strings.TrimSpace(row[col[name]]) }

	label, err := strconv.Atoi(get("Survived"))
	if err != nil || (label != 0 && label != 1) {
		return nil, 0, fmt.Errorf("invalid Survived %q", get("Survived"))
	}

	var attrs model.PassengerAttributes
	if attrs.ID, err = strconv.ParseInt(get("PassengerId"), 10, 64); err != nil {
		return nil, 0, fmt.Errorf("invalid PassengerId: %w", err)
	}
	if attrs.Class, err = strconv.Atoi(get("Pclass")); err != nil {
		return nil, 0, fmt.Errorf("invalid Pclass: %w", err)
	}
	if attrs.SiblingsSpouses, err = strconv.Atoi(get("SibSp")); err != nil {
		return nil, 0, fmt.Errorf("invalid SibSp: %w", err)
	}
	if attrs.ParentsChildren, err = strconv.Atoi(get("Parch")); err != nil {
		return nil, 0, fmt.Errorf("invalid Parch: %w", err)
	}
	if attrs.Fare, err = strconv.ParseFloat(get("Fare"), 64); err != nil {
		return nil, 0, fmt.Errorf("invalid Fare: %w", err)
	}
	attrs.Name = get("Name")
	attrs.Sex = get("Sex")
	attrs.Ticket = get("Ticket")

	if s := get("Age"); s != "" {
		age, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid Age: %w", err)
		}
		attrs.Age = &age
	}
	if s := get("Cabin"); s != "" {
		attrs.Cabin = &s
	}
	if s := get("Embarked"); s != "" {
		attrs.EmbarkationPort = &s
	}

	rec, err := model.NewPassengerRecord(attrs)
	if err != nil {
		return nil, 0, err
	}
	return rec, label, nil
}
