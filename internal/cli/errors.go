package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/docsets/internal/catalog"
	"github.com/mark3labs/docsets/internal/config"
	"github.com/mark3labs/docsets/internal/docset"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// describeError maps structured errors from the library packages into
// friendly usage errors. Anything else is returned unchanged.
func describeError(err error) error {
	if err == nil {
		return nil
	}
	var ce *config.Error
	if errors.As(err, &ce) {
		return newUsageError(withDetails(tagged("config", ce.Message),
			"Location", ce.Location,
			"Field", ce.Field,
		))
	}
	var de *docset.ConfigurationError
	if errors.As(err, &de) {
		return newUsageError(withDetails(tagged("assemble", de.Message),
			"Group", de.Group,
			"Field", de.Field,
		))
	}
	var ke *catalog.Error
	if errors.As(err, &ke) {
		return newUsageError(withDetails(tagged("catalog", ke.Message),
			"Location", ke.Location,
			"Pointer", ke.Pointer,
		))
	}
	return err
}

func withDetails(msg string, kv ...string) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", kv[i], kv[i+1])
	}
	return b.String()
}

func tagged(tag, msg string) string {
	if strings.HasPrefix(msg, tag+":") {
		return msg
	}
	return tag + ": " + msg
}
