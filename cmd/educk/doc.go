// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Educk serves pages rendered from a directory of templates together with an API
for renewable energy forecasts of European bidding zones.

Forecasts come from the ENTSO-E Transparency Platform: for each hour, the
day-ahead wind and solar generation forecast is matched with the day-ahead
total load forecast, and the difference is the renewable surplus.

# Usage

	$ educk [flags...]

# Pages

Every file under the templates directory is a template addressed by its
path. A request for /p is served by the first existing template of p,
p.html, p.md and p/index.html; / is served by index.html. Files whose name
starts with an underscore are partials used by the API and are never served
as pages. Unmatched paths, and /404.html itself, are answered with 404.html,
if present, and status 404. Files ending in .html, .htm or .tmpl are
HTML templates, .md files are rendered from Markdown, everything else is
plain text.

# API

	GET /health
	GET /api/v1/countries
	GET /api/v1/zones/{country}
	GET /api/v1/renewable-surplus/{country}/night
	GET /api/v1/renewable-surplus/{country}/next-6h
	GET /api/v1/renewable-surplus/{country}/next-24h
	GET /api/v1/renewable-surplus/{country}/next?hours=N
	GET /api/v1/renewable-surplus/{country}/plot?hours=N
	GET /api/v1/renewable-surplus/{country}/plot-json?hours=N
	GET /api/v1/renewable-surplus/{country}/summary?hours=N

The summary endpoint is available only with GEMINI_KEY set.

# Configuration

Flags take precedence over environment variables:

	PORT              port to listen on (default 3044)
	LOG_LEVEL         debug, info, warn or error (default info)
	TEMPLATES_DIR     templates directory (default templates)
	ENTSOE_API_KEY    ENTSO-E security token; without it the forecast API answers 503
	ENTSOE_BASE_URL   ENTSO-E API endpoint override
	CACHE_TTL         how long unused forecasts stay cached (default 15m, 0 disables)
	CACHE_PATH        SQLite database to cache forecasts in instead of memory
	GEMINI_KEY        Gemini API key for forecast summaries
	GEMINI_MODEL      Gemini model (default gemini-1.5-flash)
	SHUTDOWN_TIMEOUT  grace period for in-flight requests on shutdown (default 30s)
	DEBUG             serve debug pages at /debug/ (true or false)

Under systemd with Type=notify, readiness and shutdown are reported over
NOTIFY_SOCKET, and the watchdog is pinged when WatchdogSec is set.
*/
package main

import (
	_ "embed"

	"github.com/educk/educk/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
