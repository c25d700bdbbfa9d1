// Package fixture generates the synthetic provider and patient identities
// used by a single scenario run.
//
// Uniqueness is best-effort: names and emails embed the current Unix time in
// milliseconds plus a small random component. Two runs started in the same
// millisecond can collide.
package fixture

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	contactPrefix = "98765"
	npiPrefix     = "12345"

	nameSuffixRange = 1000
	phoneSuffix     = 100000
)

// Fixture is the per-run test data. It is a value type; pass it by value.
type Fixture struct {
	FirstName     string `json:"firstName" yaml:"firstName"`
	LastName      string `json:"lastName" yaml:"lastName"`
	Email         string `json:"email" yaml:"email"`
	ContactNumber string `json:"contactNumber" yaml:"contactNumber"`
	NPINumber     string `json:"npiNumber" yaml:"npiNumber"`

	PatientFirstName string `json:"patientFirstName" yaml:"patientFirstName"`
	PatientLastName  string `json:"patientLastName" yaml:"patientLastName"`
	PatientEmail     string `json:"patientEmail" yaml:"patientEmail"`
}

// ProviderName is the text the UI shows for the created provider.
func (f Fixture) ProviderName() string {
	return f.FirstName + " " + f.LastName
}

// PatientName is the text the UI shows for the created patient.
func (f Fixture) PatientName() string {
	return f.PatientFirstName + " " + f.PatientLastName
}

// Generator produces fixtures from a clock and a pseudo-random source.
// It is safe for concurrent use.
type Generator struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand replaces the random source.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

// NewGenerator creates a generator seeded from the clock.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.rnd == nil {
		g.rnd = rand.New(rand.NewSource(g.now().UnixNano()))
	}
	return g
}

// Generate returns a fresh fixture. It never fails.
func (g *Generator) Generate() Fixture {
	ts := g.now().UnixMilli()

	g.mu.Lock()
	n := g.rnd.Intn(nameSuffixRange)
	contact := g.rnd.Intn(phoneSuffix)
	npi := g.rnd.Intn(phoneSuffix)
	g.mu.Unlock()

	return Fixture{
		FirstName:        fmt.Sprintf("TestUser%d", n),
		LastName:         fmt.Sprintf("LastName%d", ts),
		Email:            fmt.Sprintf("test%d@testmail.com", ts),
		ContactNumber:    fmt.Sprintf("%s%05d", contactPrefix, contact),
		NPINumber:        fmt.Sprintf("%s%05d", npiPrefix, npi),
		PatientFirstName: fmt.Sprintf("Patient%d", n),
		PatientLastName:  fmt.Sprintf("PatientLast%d", ts),
		PatientEmail:     fmt.Sprintf("patient%d@testmail.com", ts),
	}
}

var defaultGenerator = NewGenerator()

// Generate returns a fresh fixture from the process-wide generator.
func Generate() Fixture {
	return defaultGenerator.Generate()
}
