/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/gob"
	"fmt"

	"github.com/flamego/session"

	"github.com/humaidq/qsolog/lotw"
)

// FlashType selects how a flash message is styled.
type FlashType string

const (
	FlashError   FlashType = "error"
	FlashSuccess FlashType = "success"
	FlashInfo    FlashType = "info"
)

// FlashMessage is shown once on the next rendered page.
type FlashMessage struct {
	Type    FlashType
	Message string
}

func init() {
	// Sessions are gob-encoded in Postgres.
	gob.Register(FlashMessage{})
}

func setFlash(s session.Session, typ FlashType, message string) {
	s.SetFlash(FlashMessage{Type: typ, Message: message})
}

func SetErrorFlash(s session.Session, message string) {
	setFlash(s, FlashError, message)
}

func SetSuccessFlash(s session.Session, message string) {
	setFlash(s, FlashSuccess, message)
}

func SetInfoFlash(s session.Session, message string) {
	setFlash(s, FlashInfo, message)
}

// flashOutcome reports a LOTW operation. A reconciliation that changed
// nothing is informational rather than a success.
func flashOutcome(s session.Session, outcome lotw.Outcome) {
	message := outcome.Message
	if outcome.Reconciled {
		message = fmt.Sprintf("%s (%d added, %d updated)", message, outcome.Added, outcome.Updated)
	}

	switch {
	case !outcome.Success:
		SetErrorFlash(s, message)
	case outcome.Reconciled && outcome.Added == 0 && outcome.Updated == 0:
		SetInfoFlash(s, message)
	default:
		SetSuccessFlash(s, message)
	}
}
