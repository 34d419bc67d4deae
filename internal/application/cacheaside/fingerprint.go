package cacheaside

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

// KeyPrefix namespaces prediction entries in the shared store.
const KeyPrefix = "titanic:predict:"

var jsonNull = json.RawMessage("null")

// Canonicalize renders a record as JSON with sorted keys. Numbers go through
// decimal so that equal values always produce identical text, and absent
// optional fields render as null.
func Canonicalize(record *model.PassengerRecord) ([]byte, error) {
	fields := map[string]json.RawMessage{
		"PassengerId": number(decimal.NewFromInt(record.ID())),
		"Pclass":      number(decimal.NewFromInt(int64(record.Class()))),
		"SibSp":       number(decimal.NewFromInt(int64(record.SiblingsSpouses()))),
		"Parch":       number(decimal.NewFromInt(int64(record.ParentsChildren()))),
		"Fare":        number(decimal.NewFromFloat(record.Fare())),
		"Age":         jsonNull,
		"Cabin":       jsonNull,
		"Embarked":    jsonNull,
	}

	var err error
	if fields["Name"], err = json.Marshal(record.Name()); err != nil {
		return nil, fmt.Errorf("failed to encode name: %w", err)
	}
	if fields["Sex"], err = json.Marshal(record.Sex()); err != nil {
		return nil, fmt.Errorf("failed to encode sex: %w", err)
	}
	if fields["Ticket"], err = json.Marshal(record.Ticket()); err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	if age, ok := record.Age(); ok {
		fields["Age"] = number(decimal.NewFromFloat(age))
	}
	if cabin, ok := record.Cabin(); ok {
		if fields["Cabin"], err = json.Marshal(cabin); err != nil {
			return nil, fmt.Errorf("failed to encode cabin: %w", err)
		}
	}
	if port, ok := record.EmbarkationPort(); ok {
		if fields["Embarked"], err = json.Marshal(port); err != nil {
			return nil, fmt.Errorf("failed to encode embarked: %w", err)
		}
	}

	// encoding/json writes map keys in sorted order.
	return json.Marshal(fields)
}

func number(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.String())
}

// Fingerprint returns the SHA-256 hex digest of the record's canonical form.
func Fingerprint(record *model.PassengerRecord) (string, error) {
	canonical, err := Canonicalize(record)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Key returns the store key for a fingerprint.
func Key(fingerprint string) string {
	return KeyPrefix + fingerprint
}
