package feedback

import (
	"errors"
	"reflect"
	"testing"
)

func sampleRecord() Record {
	return Record{
		Matricula:      "123",
		Nome:           "Ana",
		Funcao:         "Analista",
		Lider:          "Bia",
		DuvidaProblema: "Férias",
		Data:           "2024-01-01",
	}
}

func TestRecordSet_LeavesOtherFieldsUntouched(t *testing.T) {
	r := sampleRecord()

	if err := r.Set(FieldNome, "Carla"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	want := sampleRecord()
	want.Nome = "Carla"
	if r != want {
		t.Errorf("record = %+v, want %+v", r, want)
	}
}

func TestRecordSet_UnknownField(t *testing.T) {
	var r Record

	err := r.Set("email", "x@y")
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("Set(email) error = %v, want ErrUnknownField", err)
	}
	if !r.IsEmpty() {
		t.Error("record should be unchanged after unknown field")
	}
}

func TestRecordGet(t *testing.T) {
	r := sampleRecord()

	for _, f := range Fields {
		got, err := r.Get(f.Name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", f.Name, err)
		}
		if got == "" {
			t.Errorf("Get(%s) returned empty value", f.Name)
		}
	}

	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownField", err)
	}
}

func TestRecordMissingFields(t *testing.T) {
	if got := sampleRecord().MissingFields(); len(got) != 0 {
		t.Errorf("MissingFields() = %v, want none", got)
	}

	r := sampleRecord()
	r.Lider = ""
	r.Data = ""
	want := []string{FieldLider, FieldData}
	if got := r.MissingFields(); !reflect.DeepEqual(got, want) {
		t.Errorf("MissingFields() = %v, want %v", got, want)
	}

	if got := (Record{}).MissingFields(); len(got) != len(Fields) {
		t.Errorf("empty record MissingFields() len = %d, want %d", len(got), len(Fields))
	}
}

func TestRecordListItem_RenamesDuvidaProblema(t *testing.T) {
	item := sampleRecord().ListItem()

	if item["Dúvida/Problema"] != "Férias" {
		t.Errorf("item[Dúvida/Problema] = %q, want Férias", item["Dúvida/Problema"])
	}
	if _, ok := item["duvidaProblema"]; ok {
		t.Error("item should not carry the form name duvidaProblema")
	}
	if len(item) != 6 {
		t.Errorf("item has %d keys, want 6", len(item))
	}
	if item["matricula"] != "123" || item["data"] != "2024-01-01" {
		t.Errorf("unexpected item %v", item)
	}
}

func TestLookupField(t *testing.T) {
	f, ok := LookupField(FieldDuvidaProblema)
	if !ok {
		t.Fatal("LookupField(duvidaProblema) not found")
	}
	if f.Kind != InputTextArea {
		t.Errorf("Kind = %s, want textarea", f.Kind)
	}

	if _, ok := LookupField("unknown"); ok {
		t.Error("LookupField(unknown) should not be found")
	}
}
