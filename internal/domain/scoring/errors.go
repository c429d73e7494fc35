package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package.
var (
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrRemote          = errors.New("remote scorer failed")
)

// SchemaMismatchError reports how a feature matrix differs from what a scorer
// declared. It matches ErrSchemaMismatch under errors.Is.
type SchemaMismatchError struct {
	ModelID    string
	Missing    []string
	Unexpected []string
	Reordered  bool
}

func (e *SchemaMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s: %s", e.ModelID, ErrSchemaMismatch)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "; missing %s", strings.Join(e.Missing, ","))
	}
	if len(e.Unexpected) > 0 {
		fmt.Fprintf(&b, "; unexpected %s", strings.Join(e.Unexpected, ","))
	}
	if e.Reordered {
		b.WriteString("; columns out of order")
	}
	return b.String()
}

// Is makes errors.Is(err, ErrSchemaMismatch) hold.
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}
