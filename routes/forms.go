/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/utils"
)

// qsoModes are the modes offered by the QSO form.
var qsoModes = []string{"SSB", "USB", "DSB", "CW", "FM", "SSTV", "FT8", "FT4", "DIGITAL"}

const (
	defaultQSOMode = "FM"
	maxPowerWatts  = 2000
)

type bandRange struct {
	name     string
	min, max float64
}

// amateurBands maps frequencies in MHz to ADIF band names.
var amateurBands = []bandRange{
	{"160m", 1.8, 2.0},
	{"80m", 3.5, 4.0},
	{"60m", 5.06, 5.45},
	{"40m", 7.0, 7.3},
	{"30m", 10.1, 10.15},
	{"20m", 14.0, 14.35},
	{"17m", 18.068, 18.168},
	{"15m", 21.0, 21.45},
	{"12m", 24.89, 24.99},
	{"10m", 28.0, 29.7},
	{"6m", 50, 54},
	{"2m", 144, 148},
	{"70cm", 420, 450},
}

type provinceRange struct {
	first, last byte
	code        string
}

// chineseProvinces maps the region digit and the first suffix letter of a
// B-prefix callsign to the ADIF subdivision code of the province.
var chineseProvinces = map[byte][]provinceRange{
	'1': {{'A', 'X', "BJ"}},
	'2': {{'A', 'H', "HL"}, {'I', 'P', "JL"}, {'Q', 'X', "LN"}},
	'3': {{'A', 'F', "TJ"}, {'G', 'L', "NM"}, {'M', 'R', "HE"}, {'S', 'X', "SX"}},
	'4': {{'A', 'H', "SH"}, {'I', 'P', "SD"}, {'Q', 'X', "JS"}},
	'5': {{'A', 'H', "ZJ"}, {'I', 'P', "JX"}, {'Q', 'X', "FJ"}},
	'6': {{'A', 'H', "AH"}, {'I', 'P', "HA"}, {'Q', 'X', "HB"}},
	'7': {{'A', 'H', "HN"}, {'I', 'P', "GD"}, {'Q', 'X', "GX"}, {'Y', 'Z', "HI"}},
	'8': {{'A', 'F', "SC"}, {'G', 'L', "CQ"}, {'M', 'R', "GZ"}, {'S', 'X', "YN"}},
	'9': {{'A', 'F', "SN"}, {'G', 'L', "GS"}, {'M', 'R', "NX"}, {'S', 'X', "QH"}},
	'0': {{'A', 'F', "XJ"}, {'G', 'L', "XZ"}},
}

// provinceForCallsign returns the province of a Chinese B-prefix callsign
// such as BA1AA or BG7XYZ, or "". callsign must already be upper case.
func provinceForCallsign(callsign string) string {
	if len(callsign) < 4 || callsign[0] != 'B' {
		return ""
	}

	for _, r := range chineseProvinces[callsign[2]] {
		if callsign[3] >= r.first && callsign[3] <= r.last {
			return r.code
		}
	}

	return ""
}

// fieldErrors maps form field names to a message.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// bandForFrequency returns the band containing freq, or "".
func bandForFrequency(freq float64) string {
	for _, band := range amateurBands {
		if freq >= band.min && freq <= band.max {
			return band.name
		}
	}

	return ""
}

// parseQSOForm reads the QSO form fields. Number fields that fail to parse
// are reported alongside the validation errors.
func parseQSOForm(form url.Values) (db.QSOInput, fieldErrors) {
	errs := fieldErrors{}

	input := db.QSOInput{
		Callsign:  form.Get("callsign"),
		QSODate:   form.Get("date"),
		TimeOn:    form.Get("time"),
		Band:      form.Get("band"),
		Mode:      form.Get("mode"),
		Equipment: optionalFormValue(form, "equipment"),
		Antenna:   optionalFormValue(form, "antenna"),
		Notes:     optionalFormValue(form, "notes"),
		DXCC:      optionalFormValue(form, "dxcc"),
		Grid:      optionalFormValue(form, "grid"),
		Province:  optionalFormValue(form, "province"),
	}

	if raw := strings.TrimSpace(form.Get("frequency")); raw != "" {
		freq, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs.add("frequency", "Frequency must be a number")
		} else {
			input.Frequency = &freq
		}
	}

	if raw := strings.TrimSpace(form.Get("power")); raw != "" {
		power, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs.add("power", "Power must be a number")
		} else {
			input.Power = &power
		}
	}

	if raw := strings.TrimSpace(form.Get("qslcard")); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			errs.add("qslcard", "Invalid QSL card status")
		} else {
			input.QSLCard = db.QSLCardStatus(status)
		}
	}

	for field, message := range validateQSOInput(&input) {
		errs.add(field, message)
	}

	return input, errs
}

// validateQSOInput normalizes input in place and returns any field errors.
func validateQSOInput(input *db.QSOInput) fieldErrors {
	errs := fieldErrors{}

	input.Callsign = strings.ToUpper(strings.TrimSpace(input.Callsign))
	if input.Callsign == "" {
		errs.add("callsign", "Callsign is required")
	}

	if input.Province == nil || strings.TrimSpace(*input.Province) == "" {
		if province := provinceForCallsign(input.Callsign); province != "" {
			input.Province = &province
		}
	}

	date, err := normalizeQSODate(input.QSODate)
	if err != nil {
		errs.add("date", "Date must be YYYY-MM-DD")
	}

	input.QSODate = date

	timeOn, err := normalizeTimeOn(input.TimeOn)
	if err != nil {
		errs.add("time", "Time must be HH:MM or HH:MM:SS (UTC)")
	}

	input.TimeOn = timeOn

	input.Mode = strings.ToUpper(strings.TrimSpace(input.Mode))
	if input.Mode == "" {
		errs.add("mode", "Mode is required")
	} else if !isKnownMode(input.Mode) {
		errs.add("mode", "Unknown mode "+input.Mode)
	}

	if input.Frequency != nil && *input.Frequency <= 0 {
		errs.add("frequency", "Frequency must be greater than zero")
	}

	input.Band = strings.ToLower(strings.TrimSpace(input.Band))
	if input.Band == "" && input.Frequency != nil {
		input.Band = bandForFrequency(*input.Frequency)
	}

	if input.Band == "" {
		errs.add("band", "Band is required")
	}

	if input.Power != nil && (*input.Power < 0 || *input.Power > maxPowerWatts) {
		errs.add("power", fmt.Sprintf("Power must be between 0 and %d W", maxPowerWatts))
	}

	if !input.QSLCard.Valid() {
		errs.add("qslcard", "Invalid QSL card status")
	}

	if input.Grid != nil {
		grid, err := utils.NormalizeGridSquare(*input.Grid)
		if err != nil {
			errs.add("grid", "Invalid grid square")
		} else {
			input.Grid = &grid
		}
	}

	return errs
}

func isKnownMode(mode string) bool {
	for _, known := range qsoModes {
		if mode == known {
			return true
		}
	}

	return false
}

// normalizeQSODate accepts YYYY-MM-DD or YYYYMMDD and returns the ADI form.
func normalizeQSODate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errMissingDate
	}

	for _, layout := range []string{"2006-01-02", "20060102"} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format("20060102"), nil
		}
	}

	return trimmed, fmt.Errorf("%w: %s", errInvalidDate, trimmed)
}

// normalizeTimeOn accepts HH:MM[:SS] or HHMM[SS] and returns the ADI form,
// keeping seconds only when given.
func normalizeTimeOn(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errMissingTime
	}

	digits := strings.ReplaceAll(trimmed, ":", "")
	if len(digits) != 4 && len(digits) != 6 {
		return trimmed, fmt.Errorf("%w: %s", errInvalidTime, trimmed)
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return trimmed, fmt.Errorf("%w: %s", errInvalidTime, trimmed)
		}
	}

	parts := make([]int, 0, 3)

	for i := 0; i < len(digits); i += 2 {
		parts = append(parts, int(digits[i]-'0')*10+int(digits[i+1]-'0'))
	}

	if parts[0] > 23 {
		return trimmed, errHourOutOfRange
	}

	if parts[1] > 59 {
		return trimmed, errMinuteOutOfRange
	}

	if len(parts) == 3 && parts[2] > 59 {
		return trimmed, errSecondOutOfRange
	}

	return digits, nil
}

func optionalFormValue(form url.Values, key string) *string {
	value := strings.TrimSpace(form.Get(key))
	if value == "" {
		return nil
	}

	return &value
}

// qsoFormValues turns a stored QSO back into form values for editing.
func qsoFormValues(qso *db.QSO) map[string]string {
	values := map[string]string{
		"callsign": qso.Callsign,
		"date":     qso.FormatDate(),
		"time":     qso.FormatTime(),
		"band":     qso.Band,
		"mode":     qso.Mode,
		"qslcard":  strconv.Itoa(int(qso.QSLCard)),
	}

	if len(qso.TimeOn) == 6 {
		values["time"] = qso.FormatTime() + ":" + qso.TimeOn[4:6]
	}

	if qso.Frequency != nil {
		values["frequency"] = strconv.FormatFloat(*qso.Frequency, 'f', -1, 64)
	}

	if qso.Power != nil {
		values["power"] = strconv.FormatFloat(*qso.Power, 'f', -1, 64)
	}

	optional := map[string]*string{
		"equipment": qso.Equipment,
		"antenna":   qso.Antenna,
		"notes":     qso.Notes,
		"dxcc":      qso.DXCC,
		"grid":      qso.Grid,
		"province":  qso.Province,
	}

	for key, value := range optional {
		if value != nil {
			values[key] = *value
		}
	}

	return values
}

// newQSOFormValues returns the defaults for a blank form.
func newQSOFormValues(now time.Time) map[string]string {
	return map[string]string{
		"date":    now.UTC().Format("2006-01-02"),
		"time":    now.UTC().Format("15:04"),
		"mode":    defaultQSOMode,
		"power":   "0",
		"qslcard": "0",
	}
}
