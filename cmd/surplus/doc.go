// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Surplus prints a renewable surplus report for an ENTSO-E bidding zone.

It fetches the day-ahead wind and solar generation forecast and the total load
forecast of the zone and reports the hour with the largest surplus, the first
10 hours of the series and the hours where the surplus exceeds 10% of
generation.

# Usage

	$ surplus [flags...]

The zone is an EIC area code or a country code, in which case the primary
zone of the country is used. Periods are in the ENTSO-E format YYYYMMDDHHMM,
in UTC. Without -start and -end the next 24 hours are reported.

# Environment

ENTSO-E API security token is read from ENTSOE_API_KEY. ENTSOE_BASE_URL
overrides the API endpoint.
*/
package main

import (
	_ "embed"

	"github.com/educk/educk/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
