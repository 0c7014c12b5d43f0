package config

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// TLSVersion protocol version a fixture speaks ENUM(
// tls10
// tls11
// tls12
// tls13
// )
type TLSVersion int

// CertState certificate situation a fixture presents ENUM(
// valid // issued by the run's CA, currently valid
// expired // issued by the run's CA, already expired
// selfsigned // not issued by the CA at all
// wronghost // issued by the CA for a different hostname
// )
type CertState int

// OCSPMode stapling behavior of a fixture ENUM(
// none // no OCSP, certificate carries no responder URL
// good // staples a good response from the CA responder
// revoked // certificate is revoked, staples the revoked response
// broken // certificate names a responder that is unreachable
// )
type OCSPMode int

// TargetMatrix declares the TLS fixture hosts the suite runs against.
type TargetMatrix struct {
	Port     uint16    `yaml:"port" default:"443"`
	Fixtures []Fixture `yaml:"fixtures"`
}

// Fixture is one TLS endpoint with a declarative capability profile. The
// hostname is Name.Zone; certificate subject and DNS records always agree
// with it. A fixture with an image is container-backed, everything else is
// served in-process.
type Fixture struct {
	Name    string  `yaml:"name"`
	Zone    string  `yaml:"zone"`
	Image   string  `yaml:"image"`
	Profile Profile `yaml:"profile"`
}

// Profile is the capability profile of one fixture.
type Profile struct {
	Protocols     []TLSVersion `yaml:"protocols"`
	Ciphers       []string     `yaml:"ciphers"`
	CertState     CertState    `yaml:"certState" default:"valid"`
	OCSP          OCSPMode     `yaml:"ocsp" default:"none"`
	Renegotiation bool         `yaml:"renegotiation" default:"false"`
}

func (c *Fixture) setDefaults() {
	if len(c.Profile.Protocols) == 0 {
		c.Profile.Protocols = []TLSVersion{TLSVersionTls12, TLSVersionTls13}
	}
}

// Hostname returns the fully qualified host name of the fixture
func (c *Fixture) Hostname() string {
	return dnsFQDN(c.Name + "." + c.Zone)
}

//nolint:gocognit
func (c *TargetMatrix) validate(zones map[string]struct{}) error {
	var result *multierror.Error

	names := make(map[string]struct{}, len(c.Fixtures))

	for i := range c.Fixtures {
		f := &c.Fixtures[i]

		if f.Name == "" {
			result = multierror.Append(result, fmt.Errorf("targets: fixture %d has no name", i))

			continue
		}

		if _, ok := names[f.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("targets: duplicate fixture name '%s'", f.Name))
		}

		names[f.Name] = struct{}{}

		if f.Zone == "" {
			result = multierror.Append(result, fmt.Errorf("targets: fixture '%s' has no zone", f.Name))
		} else if _, ok := zones[dnsFQDN(f.Zone)]; !ok {
			result = multierror.Append(result,
				fmt.Errorf("targets: fixture '%s' references unknown zone '%s'", f.Name, f.Zone))
		}

		if !contiguousProtocols(f.Profile.Protocols) {
			result = multierror.Append(result,
				fmt.Errorf("targets: fixture '%s': protocol versions %v are not a contiguous range",
					f.Name, f.Profile.Protocols))
		}

		if f.Profile.Renegotiation && f.Image == "" {
			result = multierror.Append(result,
				fmt.Errorf("targets: fixture '%s': renegotiation needs a container-backed fixture image", f.Name))
		}

		if f.Profile.OCSP == OCSPModeRevoked && f.Profile.CertState == CertStateSelfsigned {
			result = multierror.Append(result,
				fmt.Errorf("targets: fixture '%s': a self-signed certificate can't be CA-revoked", f.Name))
		}
	}

	return result.ErrorOrNil()
}

// contiguousProtocols reports whether the version set leaves no hole.
// crypto/tls expresses enabled versions as a min/max range only, a gap
// would silently enable a version the fixture never declared.
func contiguousProtocols(protocols []TLSVersion) bool {
	if len(protocols) == 0 {
		return true
	}

	seen := make(map[TLSVersion]struct{}, len(protocols))
	lowest, highest := protocols[0], protocols[0]

	for _, version := range protocols {
		seen[version] = struct{}{}

		if version < lowest {
			lowest = version
		}

		if version > highest {
			highest = version
		}
	}

	return int(highest)-int(lowest)+1 == len(seen)
}

// IsEnabled implements `config.Configurable`.
func (c *TargetMatrix) IsEnabled() bool {
	return len(c.Fixtures) > 0
}

// LogConfig implements `config.Configurable`.
func (c *TargetMatrix) LogConfig(logger *logrus.Entry) {
	for i := range c.Fixtures {
		f := &c.Fixtures[i]
		logger.Infof("  %s: protocols=%v cert=%s ocsp=%s", f.Hostname(),
			f.Profile.Protocols, f.Profile.CertState, f.Profile.OCSP)
	}
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *TLSVersion) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *CertState) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *OCSPMode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}
