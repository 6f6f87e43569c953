// Package classify buckets download sources into infrastructure,
// on-site, and off-site hosts based on configured IP lists and
// address patterns.
package classify

import (
	"regexp"

	"github.com/rendinam/logparse/internal/config"
)

// Origin is the classification of a downloading host.
type Origin int

const (
	// External is an off-site host: no internal pattern matches.
	External Origin = iota
	// Internal is an on-site host that is not infrastructure.
	Internal
	// Infrastructure is internal tooling (mirrors, builders,
	// scanners) listed explicitly in the config.
	Infrastructure
)

// String returns the label used in reports and plot legends.
func (o Origin) String() string {
	switch o {
	case Internal:
		return "on-site"
	case Infrastructure:
		return "on-site infrastructure"
	default:
		return "off-site"
	}
}

// Classifier assigns an Origin to host addresses.
type Classifier struct {
	infra    map[string]struct{}
	internal []*regexp.Regexp
}

// New builds a Classifier from the configuration. Infrastructure IPs
// match exactly; internal host specs are matched as anchored prefixes.
func New(cfg *config.Config) (*Classifier, error) {
	patterns, err := cfg.InternalPatterns()
	if err != nil {
		return nil, err
	}

	infra := make(map[string]struct{}, len(cfg.InfrastructureHosts))
	for _, ip := range cfg.InfrastructureHosts {
		infra[ip] = struct{}{}
	}

	return &Classifier{infra: infra, internal: patterns}, nil
}

// Classify returns the Origin of the given IP address.
// Infrastructure wins over the internal patterns: infrastructure hosts
// are on-site by definition but are reported separately.
func (c *Classifier) Classify(ip string) Origin {
	if _, ok := c.infra[ip]; ok {
		return Infrastructure
	}
	for _, re := range c.internal {
		if re.MatchString(ip) {
			return Internal
		}
	}
	return External
}
