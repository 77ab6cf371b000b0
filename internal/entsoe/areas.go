// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package entsoe

import (
	"fmt"
	"slices"
	"strings"
)

// Zone is an ENTSO-E bidding zone or control area.
type Zone struct {
	Code    string // EIC area code
	Country string // ISO 3166-1 alpha-2 country code
	Name    string
	TSO     string // transmission system operator, if the zone belongs to one
}

func (z Zone) String() string {
	if z.TSO != "" {
		return fmt.Sprintf("%s (%s) - %s", z.Name, z.Country, z.TSO)
	}
	return fmt.Sprintf("%s (%s)", z.Name, z.Country)
}

// zones lists all known bidding zones. Within a country the primary zone
// comes first.
var zones = []Zone{
	{"10YAL-KESH-----5", "AL", "Albania", ""},
	{"10YAT-APG------L", "AT", "Austria", ""},
	{"10Y1001A1001A51S", "BY", "Belarus", ""},
	{"10YBE----------2", "BE", "Belgium", ""},
	{"10YBA-JPCC-----D", "BA", "Bosnia and Herzegovina", ""},
	{"10YCA-BULGARIA-R", "BG", "Bulgaria", ""},
	{"10YHR-HEP------M", "HR", "Croatia", ""},
	{"10YCY-1001A0003J", "CY", "Cyprus", ""},
	{"10YCZ-CEPS-----N", "CZ", "Czech Republic", ""},
	{"10Y1001A1001A796", "DK", "Denmark", ""},
	{"10Y1001A1001A39I", "EE", "Estonia", ""},
	{"10YFI-1--------U", "FI", "Finland", ""},
	{"10YFR-RTE------C", "FR", "France", ""},
	{"10Y1001A1001A83F", "DE", "Germany", ""},
	{"10YDE-VE-------2", "DE", "Germany", "50Hertz"},
	{"10YDE-RWENET---I", "DE", "Germany", "Amprion"},
	{"10YDE-EON------1", "DE", "Germany", "TenneT"},
	{"10YDE-ENBW-----N", "DE", "Germany", "TransnetBW"},
	{"10YGR-HTSO-----Y", "GR", "Greece", ""},
	{"10YHU-MAVIR----U", "HU", "Hungary", ""},
	{"IS", "IS", "Iceland", ""},
	{"10YIE-1001A00010", "IE", "Ireland", ""},
	{"10Y1001A1001A016", "GB", "Northern Ireland", ""},
	{"10YIT-GRTN-----B", "IT", "Italy", ""},
	{"10Y1001A1001A885", "IT", "Italy", "Saco AC"},
	{"10Y1001A1001A893", "IT", "Italy", "Saco DC"},
	{"10Y1001A1001A50U", "RU", "Kaliningrad", ""},
	{"10YLV-1001A00074", "LV", "Latvia", ""},
	{"10YLT-1001A0008Q", "LT", "Lithuania", ""},
	{"10YLU-CEGEDEL-NQ", "LU", "Luxembourg", ""},
	{"10YMK-MEPSO----8", "MK", "North Macedonia", ""},
	{"10Y1001A1001A93C", "MT", "Malta", ""},
	{"10Y1001A1001A990", "MD", "Moldova", ""},
	{"10YCS-CG-TSO---S", "ME", "Montenegro", ""},
	{"10YNL----------L", "NL", "Netherlands", ""},
	{"10YNO-0--------C", "NO", "Norway", ""},
	{"10YPL-AREA-----S", "PL", "Poland", ""},
	{"10YPT-REN------W", "PT", "Portugal", ""},
	{"10YRO-TEL------P", "RO", "Romania", ""},
	{"10Y1001A1001A49F", "RU", "Russia", ""},
	{"10YCS-SERBIATSOV", "RS", "Serbia", ""},
	{"10YSK-SEPS-----K", "SK", "Slovakia", ""},
	{"10YSI-ELES-----O", "SI", "Slovenia", ""},
	{"10YES-REE------0", "ES", "Spain", ""},
	{"10YSE-1--------K", "SE", "Sweden", ""},
	{"10YCH-SWISSGRIDZ", "CH", "Switzerland", ""},
	{"10YTR-TEIAS----W", "TR", "Turkey", ""},
	{"10Y1001C--00003F", "UA", "Ukraine", ""},
}

var (
	zonesByCountry = func() map[string][]Zone {
		m := make(map[string][]Zone)
		for _, z := range zones {
			m[z.Country] = append(m[z.Country], z)
		}
		return m
	}()
	countries = func() []string {
		list := make([]string, 0, len(zonesByCountry))
		for c := range zonesByCountry {
			list = append(list, c)
		}
		slices.Sort(list)
		return list
	}()
)

// ZonesByCountry returns all bidding zones of a country. The country code
// is matched case-insensitively.
func ZonesByCountry(country string) ([]Zone, bool) {
	zs, ok := zonesByCountry[strings.ToUpper(strings.TrimSpace(country))]
	return slices.Clone(zs), ok
}

// ZoneByCode returns the bidding zone with an EIC code.
func ZoneByCode(code string) (Zone, bool) {
	i := slices.IndexFunc(zones, func(z Zone) bool { return z.Code == code })
	if i < 0 {
		return Zone{}, false
	}
	return zones[i], true
}

// PrimaryZone returns the first bidding zone of a country.
func PrimaryZone(country string) (Zone, bool) {
	zs, ok := zonesByCountry[strings.ToUpper(strings.TrimSpace(country))]
	if !ok || len(zs) == 0 {
		return Zone{}, false
	}
	return zs[0], true
}

// Countries returns the sorted list of country codes with at least one
// bidding zone.
func Countries() []string { return slices.Clone(countries) }

// LookupZone resolves s as an EIC code first and as a country code second.
func LookupZone(s string) (Zone, bool) {
	if z, ok := ZoneByCode(s); ok {
		return z, true
	}
	return PrimaryZone(s)
}
