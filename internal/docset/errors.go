package docset

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("docset: configuration error")

// ConfigurationError reports configuration that cannot be compiled into a
// descriptor: malformed path patterns, invalid regular expressions, unknown
// response method keys and reserved group names. Assembly stops at the first
// one and publishes nothing.
type ConfigurationError struct {
	Group   string // "" for the global layer
	Field   string // e.g. "docket-select.base-path[1]"
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Group != "" {
		msg = fmt.Sprintf("group %q: %s", e.Group, msg)
	}
	return "docset: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// inGroup attaches group context to a ConfigurationError raised by one of
// the compilers. Other errors pass through untouched.
func inGroup(err error, group, fieldPrefix string) error {
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		return err
	}
	out := *ce
	out.Group = group
	if fieldPrefix != "" {
		if out.Field != "" {
			out.Field = fieldPrefix + "." + out.Field
		} else {
			out.Field = fieldPrefix
		}
	}
	return &out
}
