// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

var errTestReadFailed = errors.New("read failed")

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) {
	return 0, errTestReadFailed
}

func TestParseADISingleRecord(t *testing.T) {
	t.Parallel()

	text := "<CALL:4>W1AW<QSO_DATE:8>20230101<TIME_ON:4>1200<BAND:3>20m<MODE:3>SSB<LOTW_QSL_RCVD:1>Y<EOR>"

	records := ParseADI(text)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	want := []ADIField{
		{Tag: "CALL", Value: "W1AW"},
		{Tag: "QSO_DATE", Value: "20230101"},
		{Tag: "TIME_ON", Value: "1200"},
		{Tag: "BAND", Value: "20m"},
		{Tag: "MODE", Value: "SSB"},
		{Tag: "LOTW_QSL_RCVD", Value: "Y"},
	}

	if got := records[0].Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected fields:\n got %#v\nwant %#v", got, want)
	}
}

func TestParseADISkipsHeaderAndPreamble(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"ARRL Logbook of the World Status Report",
		"Generated at 2024-01-02 10:00:00",
		"<ADIF_VER:4>1.00",
		"<PROGRAMID:4>LoTW",
		"<APP_LoTW_NUMREC:1>2",
		"<eoh>",
		"",
		"<call:5>ab1cd",
		"<qso_date:8>20240102",
		"<eor>",
		"<CALL:5>K2DEF <QSO_DATE:8>20240103",
		"<EOR>",
	}, "\n")

	records := ParseADI(text)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Has("ADIF_VER") || records[0].Has("PROGRAMID") {
		t.Fatalf("expected header fields to be discarded, got %#v", records[0].Fields())
	}

	if got := records[0].Value("call"); got != "ab1cd" {
		t.Fatalf("expected lower-case tag lookup to find ab1cd, got %q", got)
	}

	if got := records[1].Value("CALL"); got != "K2DEF" {
		t.Fatalf("expected trimmed value K2DEF, got %q", got)
	}
}

func TestParseADIEmptyRecordsAreSkipped(t *testing.T) {
	t.Parallel()

	text := "<EOR><EOR><CALL:3>K1A<EOR><EOR>"

	records := ParseADI(text)
	if len(records) != 1 {
		t.Fatalf("expected stray EOR markers to be ignored, got %d records", len(records))
	}
}

func TestParseADIDeclaredLengthIsAuthoritative(t *testing.T) {
	t.Parallel()

	records := ParseADI("<CALL:2>W1AW<MODE:3>SSB<EOR>")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if got := records[0].Value("CALL"); got != "W1" {
		t.Fatalf("expected value truncated to W1, got %q", got)
	}
}

func TestParseADIShortValueDoesNotFail(t *testing.T) {
	t.Parallel()

	records := ParseADI("<CALL:5>W1A<MODE:3>SSB<EOR>")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if got := records[0].Value("CALL"); got != "W1A" {
		t.Fatalf("expected available text W1A, got %q", got)
	}

	if got := records[0].Value("MODE"); got != "SSB" {
		t.Fatalf("expected following field to survive, got %q", got)
	}
}

func TestParseADIDuplicateTagOverwrites(t *testing.T) {
	t.Parallel()

	records := ParseADI("<CALL:4>W1AW<BAND:3>40m<CALL:4>K1ZZ<EOR>")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	want := []ADIField{{Tag: "CALL", Value: "K1ZZ"}, {Tag: "BAND", Value: "40m"}}
	if got := records[0].Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected fields: %#v", got)
	}
}

func TestParseADIMalformedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "plain text", text: "not an adif document", want: 0},
		{name: "unterminated record", text: "<CALL:4>W1AW<MODE:2>CW", want: 0},
		{name: "missing length", text: "<CALL>W1AW<MODE:2>CW<EOR>", want: 1},
		{name: "non numeric length", text: "<CALL:x>W1AW<MODE:2>CW<EOR>", want: 1},
		{name: "overflowing length", text: "<CALL:999999999999999999999999>W1AW<MODE:2>CW<EOR>", want: 1},
		{name: "unclosed bracket", text: "<CALL:4 W1AW<MODE:2>CW<EOR>", want: 1},
		{name: "data type indicator", text: "<CALL:4:S>W1AW<EOR>", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			records := ParseADI(tt.text)
			if len(records) != tt.want {
				t.Fatalf("ParseADI(%q) returned %d records, want %d", tt.text, len(records), tt.want)
			}
		})
	}
}

func TestParseADIMultibyteTruncation(t *testing.T) {
	t.Parallel()

	records := ParseADI("<NAME:3>Jörgen<EOR>")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if got := records[0].Value("NAME"); got != "Jör" {
		t.Fatalf("expected character truncation to Jör, got %q", got)
	}
}

func TestParseADIReader(t *testing.T) {
	t.Parallel()

	records, err := ParseADIReader(strings.NewReader("<CALL:4>W1AW<EOR>"))
	if err != nil {
		t.Fatalf("ParseADIReader failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if _, err := ParseADIReader(errorReader{}); !errors.Is(err, errTestReadFailed) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestSerializeADI(t *testing.T) {
	t.Parallel()

	records := []*ADIRecord{
		NewADIRecordFromFields(
			ADIField{Tag: "call", Value: "W1AW"},
			ADIField{Tag: "qso_date", Value: "20230101"},
			ADIField{Tag: "notes", Value: ""},
			ADIField{Tag: "band", Value: "20m"},
		),
		NewADIRecordFromFields(ADIField{Tag: "CALL", Value: "K1ABC"}),
	}

	got := SerializeADI(records)

	lines := strings.Split(got, "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 5 header lines and 2 records, got %d lines:\n%s", len(lines), got)
	}

	if lines[1] != "<ADIF_VER:5>3.1.0" {
		t.Fatalf("unexpected ADIF_VER line: %q", lines[1])
	}

	if lines[2] != "<PROGRAMID:6>qsolog" || lines[3] != "<PROGRAMVERSION:5>1.0.0" || lines[4] != "<EOH>" {
		t.Fatalf("unexpected header: %q", lines[1:5])
	}

	if lines[5] != "<CALL:4>W1AW<QSO_DATE:8>20230101<BAND:3>20m<EOR>" {
		t.Fatalf("unexpected first record line: %q", lines[5])
	}

	if lines[6] != "<CALL:5>K1ABC<EOR>" {
		t.Fatalf("unexpected second record line: %q", lines[6])
	}
}

func TestSerializeADICountsCharacters(t *testing.T) {
	t.Parallel()

	got := SerializeADI([]*ADIRecord{NewADIRecordFromFields(ADIField{Tag: "NAME", Value: "Jörgen"})})
	if !strings.HasSuffix(got, "<NAME:6>Jörgen<EOR>") {
		t.Fatalf("expected character length 6, got %q", got)
	}
}

func TestADIRoundTrip(t *testing.T) {
	t.Parallel()

	records := []*ADIRecord{
		NewADIRecordFromFields(
			ADIField{Tag: "CALL", Value: "W1AW"},
			ADIField{Tag: "QSO_DATE", Value: "20230101"},
			ADIField{Tag: "TIME_ON", Value: "1200"},
			ADIField{Tag: "BAND", Value: "20m"},
			ADIField{Tag: "MODE", Value: "SSB"},
			ADIField{Tag: "COMMENT", Value: "Nice signal from Newington"},
		),
		NewADIRecordFromFields(
			ADIField{Tag: "CALL", Value: "JA1XYZ"},
			ADIField{Tag: "GRIDSQUARE", Value: "PM95"},
			ADIField{Tag: "DXCC", Value: "339"},
		),
	}

	parsed := ParseADI(SerializeADI(records))
	if len(parsed) != len(records) {
		t.Fatalf("expected %d records after round trip, got %d", len(records), len(parsed))
	}

	for i := range records {
		if !reflect.DeepEqual(parsed[i].Fields(), records[i].Fields()) {
			t.Fatalf("record %d changed:\n got %#v\nwant %#v", i, parsed[i].Fields(), records[i].Fields())
		}
	}
}

func TestADIRecordAccessors(t *testing.T) {
	t.Parallel()

	record := NewADIRecord()
	record.Set(" gridsquare ", "FN31")
	record.Set("STATE", "")

	if !record.Has("GRIDSQUARE") {
		t.Fatal("expected GRIDSQUARE to be present")
	}

	if !record.Has("state") {
		t.Fatal("expected empty STATE to still be present")
	}

	if _, ok := record.Get("DXCC"); ok {
		t.Fatal("expected DXCC to be absent")
	}

	if record.Len() != 2 {
		t.Fatalf("expected 2 fields, got %d", record.Len())
	}
}
