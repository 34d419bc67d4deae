package model

import "unicode/utf8"

// PassengerAttributes carries the raw inbound fields used to build a
// PassengerRecord. Nil pointers mark absent optional values.
type PassengerAttributes struct {
	Age             *float64
	Cabin           *string
	EmbarkationPort *string
	Name            string
	Sex             string
	Ticket          string
	ID              int64
	Fare            float64
	Class           int
	SiblingsSpouses int
	ParentsChildren int
}

// PassengerRecord is an immutable inbound passenger. Categorical values are
// kept verbatim; the feature transform decides whether they are supported.
type PassengerRecord struct {
	name            string
	sex             string
	ticket          string
	cabin           string
	embarkationPort string
	id              int64
	age             float64
	fare            float64
	class           int
	siblingsSpouses int
	parentsChildren int
	hasAge          bool
	hasCabin        bool
	hasPort         bool
}

// NewPassengerRecord validates the numeric invariants of a passenger and
// returns the immutable record.
func NewPassengerRecord(attrs PassengerAttributes) (*PassengerRecord, error) {
	var violations []FieldError

	if attrs.Class < 1 || attrs.Class > 3 {
		violations = append(violations, FieldError{Field: "Pclass", Reason: "must be 1, 2 or 3"})
	}
	if attrs.Age != nil && *attrs.Age < 0 {
		violations = append(violations, FieldError{Field: "Age", Reason: "must not be negative"})
	}
	if attrs.Fare < 0 {
		violations = append(violations, FieldError{Field: "Fare", Reason: "must not be negative"})
	}
	if attrs.SiblingsSpouses < 0 {
		violations = append(violations, FieldError{Field: "SibSp", Reason: "must not be negative"})
	}
	if attrs.ParentsChildren < 0 {
		violations = append(violations, FieldError{Field: "Parch", Reason: "must not be negative"})
	}
	// Text fields feed the cache fingerprint, which cannot represent
	// invalid UTF-8.
	if !utf8.ValidString(attrs.Name) {
		violations = append(violations, FieldError{Field: "Name", Reason: "must be valid UTF-8"})
	}
	if !utf8.ValidString(attrs.Ticket) {
		violations = append(violations, FieldError{Field: "Ticket", Reason: "must be valid UTF-8"})
	}
	if !utf8.ValidString(attrs.Sex) {
		violations = append(violations, FieldError{Field: "Sex", Reason: "must be valid UTF-8"})
	}
	if attrs.Cabin != nil && !utf8.ValidString(*attrs.Cabin) {
		violations = append(violations, FieldError{Field: "Cabin", Reason: "must be valid UTF-8"})
	}
	if attrs.EmbarkationPort != nil && !utf8.ValidString(*attrs.EmbarkationPort) {
		violations = append(violations, FieldError{Field: "Embarked", Reason: "must be valid UTF-8"})
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Fields: violations}
	}

	r := &PassengerRecord{
		id:              attrs.ID,
		name:            attrs.Name,
		class:           attrs.Class,
		sex:             attrs.Sex,
		siblingsSpouses: attrs.SiblingsSpouses,
		parentsChildren: attrs.ParentsChildren,
		ticket:          attrs.Ticket,
		fare:            attrs.Fare,
	}
	if attrs.Age != nil {
		r.age, r.hasAge = *attrs.Age, true
	}
	if attrs.Cabin != nil {
		r.cabin, r.hasCabin = *attrs.Cabin, true
	}
	if attrs.EmbarkationPort != nil {
		r.embarkationPort, r.hasPort = *attrs.EmbarkationPort, true
	}
	return r, nil
}

// --- Accessors ---

func (r *PassengerRecord) ID() int64            { return r.id }
func (r *PassengerRecord) Name() string         { return r.name }
func (r *PassengerRecord) Class() int           { return r.class }
func (r *PassengerRecord) Sex() string          { return r.sex }
func (r *PassengerRecord) SiblingsSpouses() int { return r.siblingsSpouses }
func (r *PassengerRecord) ParentsChildren() int { return r.parentsChildren }
func (r *PassengerRecord) Ticket() string       { return r.ticket }
func (r *PassengerRecord) Fare() float64        { return r.fare }

// Age returns the age and whether it was supplied.
func (r *PassengerRecord) Age() (float64, bool) { return r.age, r.hasAge }

// Cabin returns the cabin and whether it was supplied.
func (r *PassengerRecord) Cabin() (string, bool) { return r.cabin, r.hasCabin }

// EmbarkationPort returns the port code and whether it was supplied.
func (r *PassengerRecord) EmbarkationPort() (string, bool) { return r.embarkationPort, r.hasPort }

// Attributes returns a copy of the inbound attributes the record was built from.
func (r *PassengerRecord) Attributes() PassengerAttributes {
	attrs := PassengerAttributes{
		ID:              r.id,
		Name:            r.name,
		Class:           r.class,
		Sex:             r.sex,
		SiblingsSpouses: r.siblingsSpouses,
		ParentsChildren: r.parentsChildren,
		Ticket:          r.ticket,
		Fare:            r.fare,
	}
	if r.hasAge {
		age := r.age
		attrs.Age = &age
	}
	if r.hasCabin {
		cabin := r.cabin
		attrs.Cabin = &cabin
	}
	if r.hasPort {
		port := r.embarkationPort
		attrs.EmbarkationPort = &port
	}
	return attrs
}
