package feedback

import (
	"errors"
	"fmt"
)

// Field names as used by the form inputs and UpdateField.
const (
	FieldMatricula      = "matricula"
	FieldNome           = "nome"
	FieldFuncao         = "funcao"
	FieldLider          = "lider"
	FieldDuvidaProblema = "duvidaProblema"
	FieldData           = "data"
)

// DateLayout is the layout of the data field (HTML date input value).
const DateLayout = "2006-01-02"

// ErrUnknownField is returned when a field name is not one of the six record fields.
var ErrUnknownField = errors.New("unknown feedback field")

// InputKind tells a surface which kind of input to render for a field.
type InputKind string

const (
	InputText     InputKind = "text"
	InputTextArea InputKind = "textarea"
	InputDate     InputKind = "date"
)

// FieldSpec describes one record field: its form name, the key it is sent
// under to SharePoint and how it is presented.
type FieldSpec struct {
	Name    string
	WireKey string
	Label   string
	Kind    InputKind
}

// Fields lists the record fields in display order.
var Fields = []FieldSpec{
	{Name: FieldMatricula, WireKey: "matricula", Label: "Matrícula", Kind: InputText},
	{Name: FieldNome, WireKey: "nome", Label: "Nome", Kind: InputText},
	{Name: FieldFuncao, WireKey: "funcao", Label: "Função", Kind: InputText},
	{Name: FieldLider, WireKey: "lider", Label: "Líder", Kind: InputText},
	{Name: FieldDuvidaProblema, WireKey: "Dúvida/Problema", Label: "Dúvida/Problema", Kind: InputTextArea},
	{Name: FieldData, WireKey: "data", Label: "Data", Kind: InputDate},
}

// Record is a single feedback submission as entered by the user.
type Record struct {
	Matricula      string `json:"matricula"`
	Nome           string `json:"nome"`
	Funcao         string `json:"funcao"`
	Lider          string `json:"lider"`
	DuvidaProblema string `json:"duvidaProblema"`
	Data           string `json:"data"`
}

// Get returns the value of the named field.
func (r Record) Get(name string) (string, error) {
	p, err := r.ptr(name)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Set replaces the value of the named field, leaving the others untouched.
func (r *Record) Set(name, value string) error {
	p, err := r.ptr(name)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

func (r *Record) ptr(name string) (*string, error) {
	switch name {
	case FieldMatricula:
		return &r.Matricula, nil
	case FieldNome:
		return &r.Nome, nil
	case FieldFuncao:
		return &r.Funcao, nil
	case FieldLider:
		return &r.Lider, nil
	case FieldDuvidaProblema:
		return &r.DuvidaProblema, nil
	case FieldData:
		return &r.Data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// Values returns the record as a map keyed by form field name.
func (r Record) Values() map[string]string {
	values := make(map[string]string, len(Fields))
	for _, f := range Fields {
		values[f.Name], _ = r.Get(f.Name)
	}
	return values
}

// MissingFields returns the names of empty fields, in display order.
func (r Record) MissingFields() []string {
	var missing []string
	for _, f := range Fields {
		if v, _ := r.Get(f.Name); v == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// IsEmpty reports whether every field is empty.
func (r Record) IsEmpty() bool {
	return r == Record{}
}

// ListItem returns the SharePoint list item payload. duvidaProblema is
// renamed to "Dúvida/Problema" at this boundary.
func (r Record) ListItem() map[string]string {
	item := make(map[string]string, len(Fields))
	for _, f := range Fields {
		item[f.WireKey], _ = r.Get(f.Name)
	}
	return item
}

// LookupField returns the field definition for name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
