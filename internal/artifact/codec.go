// Package artifact implements the supported model weights formats behind the
// service.Artifact interface. The registry selects a decoder by the model
// family declared in metadata and never touches a concrete format itself.
package artifact

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"LinkSight/internal/domain/service"
)

// DecodeFunc materializes one artifact from its serialized weights.
type DecodeFunc func(r io.Reader) (service.Artifact, error)

var (
	codecMu sync.RWMutex
	codecs  = make(map[string]DecodeFunc)
)

// Register binds a model family name to its decoder. Called from init of
// each format variant; a duplicate family panics at startup.
func Register(family string, fn DecodeFunc) {
	codecMu.Lock()
	defer codecMu.Unlock()
	if _, dup := codecs[family]; dup {
		panic(fmt.Sprintf("artifact: duplicate codec for family %q", family))
	}
	codecs[family] = fn
}

// Decode loads the weights stream for the given family.
func Decode(family string, r io.Reader) (service.Artifact, error) {
	codecMu.RLock()
	fn, ok := codecs[family]
	codecMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("artifact: unsupported model family %q", family)
	}
	art, err := fn(r)
	if err != nil {
		return nil, fmt.Errorf("artifact: decode %s: %w", family, err)
	}
	return art, nil
}

// Families returns the registered family names, sorted.
func Families() []string {
	codecMu.RLock()
	defer codecMu.RUnlock()
	out := make([]string, 0, len(codecs))
	for f := range codecs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
