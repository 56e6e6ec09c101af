package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zombor/driver-intake/internal/extraction"
)

var (
	// ErrUnreadable is returned when stored or extracted text is not a single JSON object
	ErrUnreadable = errors.New("extraction unreadable, please retry")

	// ErrFieldCount is returned when an edited row does not have one value per column
	ErrFieldCount = errors.New("wrong number of fields")
)

// Columns are the storage keys of an IdentityRecord in fixed display order
var Columns = []string{
	"صورة الوثيقة",
	"الاسم الأول",
	"الاسم الثاني",
	"الاسم الثالث",
	"الاسم الأخير",
	"رقم الهوية",
	"العمر",
	"القيود",
	"حالة سريان الرخصة",
	"النوع",
}

// IdentityRecord holds the fields read from one identity or licence document.
// All values are free text; nothing is validated for format.
type IdentityRecord struct {
	DocumentImageRef string `json:"صورة الوثيقة"`
	FirstName        string `json:"الاسم الأول"`
	SecondName       string `json:"الاسم الثاني"`
	ThirdName        string `json:"الاسم الثالث"`
	LastName         string `json:"الاسم الأخير"`
	NationalID       string `json:"رقم الهوية"`
	Age              string `json:"العمر"`
	Restrictions     string `json:"القيود"`
	LicenseStatus    string `json:"حالة سريان الرخصة"`
	VehicleType      string `json:"النوع"`
}

// columnValues returns pointers to the fields in Columns order
func (r *IdentityRecord) columnValues() []*string {
	return []*string{
		&r.DocumentImageRef,
		&r.FirstName,
		&r.SecondName,
		&r.ThirdName,
		&r.LastName,
		&r.NationalID,
		&r.Age,
		&r.Restrictions,
		&r.LicenseStatus,
		&r.VehicleType,
	}
}

// Fields returns the values in Columns order
func (r *IdentityRecord) Fields() []string {
	ptrs := r.columnValues()
	fields := make([]string, len(ptrs))
	for i, p := range ptrs {
		fields[i] = *p
	}
	return fields
}

// RecordFromFields builds a record from values given in Columns order
func RecordFromFields(fields []string) (*IdentityRecord, error) {
	if len(fields) != len(Columns) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrFieldCount, len(Columns), len(fields))
	}
	record := &IdentityRecord{}
	for i, p := range record.columnValues() {
		*p = fields[i]
	}
	return record, nil
}

// UnmarshalJSON accepts any JSON object. Missing keys and nulls become empty strings,
// other non-string values keep their literal JSON text.
func (r *IdentityRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("record is not a JSON object")
	}

	var record IdentityRecord
	for i, p := range record.columnValues() {
		text, err := scalarText(raw[Columns[i]])
		if err != nil {
			return fmt.Errorf("field %q: %w", Columns[i], err)
		}
		*p = text
	}
	*r = record
	return nil
}

func scalarText(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return "", nil
	}
	if value[0] == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(value), nil
}

// ParseRecord sanitizes model or stored text and decodes it as exactly one record
func ParseRecord(text string) (*IdentityRecord, error) {
	var record IdentityRecord
	if err := json.Unmarshal([]byte(extraction.Sanitize(text)), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return &record, nil
}

// Table is the editor's render shape: column labels and zero or one row
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// newTable renders record as a table; a nil record gives zero rows
func newTable(record *IdentityRecord) *Table {
	table := &Table{
		Columns: Columns,
		Rows:    [][]string{},
	}
	if record != nil {
		table.Rows = append(table.Rows, record.Fields())
	}
	return table
}
