// Package validate checks snapshot documents against an embedded CUE schema
// before they replace any state.
package validate

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/taskcoin/internal/store"
)

//go:embed schema.cue
var schemaSource string

// cue.Context is not safe for concurrent use.
var (
	mu     sync.Mutex
	cctx   *cue.Context
	schema cue.Value
)

func compiled() (*cue.Context, cue.Value, error) {
	if cctx == nil {
		cctx = cuecontext.New()
		v := cctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			return nil, cue.Value{}, fmt.Errorf("compile snapshot schema: %w", err)
		}
		schema = v.LookupPath(cue.ParsePath("#Snapshot"))
	}
	return cctx, schema, nil
}

// Snapshot validates a JSON snapshot document. Problems are reported as one
// error wrapping store.ErrMalformed, listing every violation found.
func Snapshot(data []byte) error {
	mu.Lock()
	defer mu.Unlock()

	ctx, def, err := compiled()
	if err != nil {
		return err
	}

	doc := ctx.CompileBytes(data, cue.Filename("snapshot.json"))
	if err := doc.Err(); err != nil {
		return fmt.Errorf("%w: %s", store.ErrMalformed, describe(err))
	}
	if k := doc.Kind(); k != cue.StructKind {
		return fmt.Errorf("%w: document must be an object, got %s", store.ErrMalformed, k)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", store.ErrMalformed, describe(err))
	}
	return nil
}

// describe flattens a CUE error list into one line per violation.
func describe(err error) string {
	var msg string
	for i, e := range errors.Errors(err) {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	if msg == "" {
		msg = err.Error()
	}
	return msg
}
