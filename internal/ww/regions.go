package ww

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultRegion is used when an account does not specify a region code.
const DefaultRegion = "US"

// regionDomains maps a WW region code to the national domain suffix its
// auth./cmx. endpoints live under. AU and NZ share one instance.
var regionDomains = map[string]string{
	"AU": "weightwatchers.com.au",
	"NB": "weightwatchers.be",
	"FB": "fr.weightwatchers.be",
	"BR": "vigilantesdopeso.com.br",
	"CA": "weightwatchers.ca",
	"FC": "fr.weightwatchers.ca",
	"FR": "weightwatchers.fr",
	"DE": "weightwatchers.de",
	"NL": "weightwatchers.nl",
	"NZ": "weightwatchers.com.au",
	"SE": "viktvaktarna.se",
	"FS": "fr.weightwatchers.ch",
	"DS": "weightwatchers.ch",
	"UK": "weightwatchers.co.uk",
	"US": "weightwatchers.com",
}

// RegionDomain resolves a region code to its domain suffix.
func RegionDomain(code string) (string, error) {
	domain, ok := regionDomains[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("unknown WW region %q", code)
	}
	return domain, nil
}

// Regions returns the supported region codes in sorted order.
func Regions() []string {
	codes := make([]string, 0, len(regionDomains))
	for code := range regionDomains {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
