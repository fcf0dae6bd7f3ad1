/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package utils

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/elliotchance/orderedmap/v3"
)

// ADIF header values written by SerializeADI.
const (
	ADIFVersion    = "3.1.0"
	ProgramID      = "qsolog"
	ProgramVersion = "1.0.0"
)

const (
	adifEndOfRecord = "EOR"
	adifEndOfHeader = "EOH"
)

// adifFieldRegex matches <TAG:LEN>, <TAG:LEN:TYPE> and the bare <EOR>/<EOH>
// markers, capturing everything up to the next '<' as the raw value.
var adifFieldRegex = regexp.MustCompile(`(?is)<([^<>:]+)(?::([^:<>]*)(?::[^<>]*)?)?>([^<]*)`)

// ADIField is a single tag/value pair of an ADI record.
type ADIField struct {
	Tag   string
	Value string
}

// ADIRecord is an insertion-ordered mapping of upper-case ADIF tags to values.
type ADIRecord struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewADIRecord returns an empty record.
func NewADIRecord() *ADIRecord {
	return &ADIRecord{fields: orderedmap.NewOrderedMap[string, string]()}
}

// NewADIRecordFromFields builds a record from tag/value pairs, in order.
func NewADIRecordFromFields(fields ...ADIField) *ADIRecord {
	record := NewADIRecord()
	for _, field := range fields {
		record.Set(field.Tag, field.Value)
	}

	return record
}

// Set stores value under the upper-cased tag. Re-setting a tag keeps its
// original position.
func (r *ADIRecord) Set(tag, value string) {
	r.fields.Set(strings.ToUpper(strings.TrimSpace(tag)), value)
}

// Get returns the value stored for tag.
func (r *ADIRecord) Get(tag string) (string, bool) {
	return r.fields.Get(strings.ToUpper(tag))
}

// Value returns the value stored for tag, or "" when absent.
func (r *ADIRecord) Value(tag string) string {
	value, _ := r.Get(tag)
	return value
}

// Has reports whether tag is present, even with an empty value.
func (r *ADIRecord) Has(tag string) bool {
	return r.fields.Has(strings.ToUpper(tag))
}

// Len returns the number of fields in the record.
func (r *ADIRecord) Len() int {
	return r.fields.Len()
}

// Fields returns the fields in insertion order.
func (r *ADIRecord) Fields() []ADIField {
	fields := make([]ADIField, 0, r.fields.Len())
	for el := r.fields.Front(); el != nil; el = el.Next() {
		fields = append(fields, ADIField{Tag: el.Key, Value: el.Value})
	}

	return fields
}

// ParseADI scans text for ADIF fields and groups them into records.
//
// Parsing is tolerant: header text, anything that is not a field and fields
// with an unreadable length are skipped, and a value is cut to its declared
// length even when more text follows. ParseADI never fails.
func ParseADI(text string) []*ADIRecord {
	var records []*ADIRecord

	current := NewADIRecord()

	for _, match := range adifFieldRegex.FindAllStringSubmatch(text, -1) {
		tag := strings.ToUpper(strings.TrimSpace(match[1]))
		if tag == "" {
			continue
		}

		switch tag {
		case adifEndOfRecord:
			if current.Len() > 0 {
				records = append(records, current)
				current = NewADIRecord()
			}

			continue
		case adifEndOfHeader:
			current = NewADIRecord()
			continue
		}

		length, err := strconv.Atoi(strings.TrimSpace(match[2]))
		if err != nil || length < 0 {
			continue
		}

		current.Set(tag, truncateRunes(strings.TrimSpace(match[3]), length))
	}

	return records
}

// ParseADIReader reads r fully and parses it with ParseADI.
func ParseADIReader(r io.Reader) ([]*ADIRecord, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read ADIF content: %w", err)
	}

	return ParseADI(string(content)), nil
}

// SerializeADI renders records as an ADIF document with a fixed header.
// Fields with an empty value are omitted.
func SerializeADI(records []*ADIRecord) string {
	var b strings.Builder

	b.WriteString("Generated by " + ProgramID + "\n")
	writeADIField(&b, "ADIF_VER", ADIFVersion)
	b.WriteString("\n")
	writeADIField(&b, "PROGRAMID", ProgramID)
	b.WriteString("\n")
	writeADIField(&b, "PROGRAMVERSION", ProgramVersion)
	b.WriteString("\n<EOH>\n")

	lines := make([]string, 0, len(records))

	for _, record := range records {
		var line strings.Builder

		for _, field := range record.Fields() {
			if field.Value == "" {
				continue
			}

			writeADIField(&line, field.Tag, field.Value)
		}

		line.WriteString("<EOR>")
		lines = append(lines, line.String())
	}

	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

func writeADIField(b *strings.Builder, tag, value string) {
	fmt.Fprintf(b, "<%s:%d>%s", strings.ToUpper(tag), utf8.RuneCountInString(value), value)
}

func truncateRunes(value string, length int) string {
	if utf8.RuneCountInString(value) <= length {
		return value
	}

	return string([]rune(value)[:length])
}
