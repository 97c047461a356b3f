// Package identity gives every birthday record a durable person id.
//
// Records carry no key of their own, so ids are attached to a fingerprint
// of the record (its bucket key) and, when several records share the same
// fingerprint, to their position among those duplicates. Adding or removing
// unrelated records therefore never reshuffles existing ids.
package identity

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// Buckets maps a bucket key to the ids assigned to its occurrences, in order.
type Buckets map[string][]string

// Resolution is the outcome of Resolve.
type Resolution struct {
	// IDs holds one id per input record, in input order.
	IDs []string

	// Buckets contains every id assigned during the call and nothing else.
	Buckets Buckets
}

// Resolver assigns ids. The zero value mints random UUIDs.
type Resolver struct {
	// NewID mints a fresh id. Defaults to uuid.NewString.
	NewID func() string
}

// NormalizeName lower-cases name and collapses whitespace runs.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// BucketKey returns the fingerprint shared by records describing the same person.
func BucketKey(rec engine.Record) string {
	year := config.BucketNoYear
	if rec.HasYear() {
		year = fmt.Sprintf("%d", rec.Year)
	}
	return fmt.Sprintf(config.FormatBucketKey, NormalizeName(rec.Name), rec.Month, rec.Day, year)
}

// Resolve walks records in order. The Nth record with a given bucket key
// reuses existing[key][N] when present, otherwise a new id is minted.
// existing is not modified.
func (r Resolver) Resolve(records []engine.Record, existing Buckets) Resolution {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	res := Resolution{
		IDs:     make([]string, 0, len(records)),
		Buckets: make(Buckets),
	}

	for _, rec := range records {
		key := BucketKey(rec)
		occurrence := len(res.Buckets[key])

		var id string
		if known := existing[key]; occurrence < len(known) {
			id = known[occurrence]
		} else {
			id = newID()
			slog.Debug(config.MsgIdentityMinted,
				config.LogKeyComponent, config.CompIdentity,
				config.LogKeyKey, key,
				config.LogKeyPerson, id,
			)
		}

		res.Buckets[key] = append(res.Buckets[key], id)
		res.IDs = append(res.IDs, id)
	}
	return res
}
