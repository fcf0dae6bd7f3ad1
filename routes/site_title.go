/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"strings"

	"github.com/flamego/template"
)

const defaultSiteTitle = "QSO Log"

// SiteTitle injects the page title, naming the station when a LOTW login is
// configured.
func SiteTitle(svc *LOTWService) func(data template.Data) {
	title := defaultSiteTitle
	if svc != nil && svc.Client != nil {
		if user := strings.TrimSpace(svc.Client.Username()); user != "" {
			title = user + " " + defaultSiteTitle
		}
	}

	return func(data template.Data) {
		data["PageTitle"] = title
	}
}
