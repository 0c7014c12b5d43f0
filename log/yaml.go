package log

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *Level) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *FormatType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}
