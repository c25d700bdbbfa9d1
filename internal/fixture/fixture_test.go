package fixture

import (
	"math/rand"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	contactPattern = regexp.MustCompile(`^98765[0-9]{5}$`)
	npiPattern     = regexp.MustCompile(`^12345[0-9]{5}$`)
	firstPattern   = regexp.MustCompile(`^TestUser[0-9]{1,3}$`)
	patientPattern = regexp.MustCompile(`^Patient[0-9]{1,3}$`)
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestGenerateFieldShapes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.Int64Range(0, 4102444800000).Draw(t, "unixMillis")
		seed := rapid.Int64().Draw(t, "seed")

		g := NewGenerator(WithClock(fixedClock(ms)), WithRand(rand.New(rand.NewSource(seed))))
		f := g.Generate()
		ts := strconv.FormatInt(ms, 10)

		for name, v := range map[string]string{
			"FirstName": f.FirstName, "LastName": f.LastName, "Email": f.Email,
			"ContactNumber": f.ContactNumber, "NPINumber": f.NPINumber,
			"PatientFirstName": f.PatientFirstName, "PatientLastName": f.PatientLastName,
			"PatientEmail": f.PatientEmail,
		} {
			if v == "" {
				t.Fatalf("%s is empty", name)
			}
		}

		if !contactPattern.MatchString(f.ContactNumber) {
			t.Fatalf("contact number %q is not 98765 + 5 digits", f.ContactNumber)
		}
		if !npiPattern.MatchString(f.NPINumber) {
			t.Fatalf("NPI number %q is not 12345 + 5 digits", f.NPINumber)
		}
		if !firstPattern.MatchString(f.FirstName) || !patientPattern.MatchString(f.PatientFirstName) {
			t.Fatalf("unexpected first names %q / %q", f.FirstName, f.PatientFirstName)
		}
		if f.LastName != "LastName"+ts || f.PatientLastName != "PatientLast"+ts {
			t.Fatalf("last names %q / %q do not embed %s", f.LastName, f.PatientLastName, ts)
		}
		if f.Email != "test"+ts+"@testmail.com" || f.PatientEmail != "patient"+ts+"@testmail.com" {
			t.Fatalf("emails %q / %q do not embed %s", f.Email, f.PatientEmail, ts)
		}
	})
}

func TestGenerateTimeDerivedFieldsDiffer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, 4102444800000).Draw(t, "a")
		delta := rapid.Int64Range(1, 1<<20).Draw(t, "delta")

		ms := a
		clock := func() time.Time { return time.UnixMilli(ms) }
		g := NewGenerator(WithClock(clock))

		first := g.Generate()
		ms = a + delta
		second := g.Generate()

		if first.LastName == second.LastName || first.Email == second.Email ||
			first.PatientLastName == second.PatientLastName || first.PatientEmail == second.PatientEmail {
			t.Fatalf("time-derived fields repeated: %+v vs %+v", first, second)
		}
	})
}

func TestFixtureNames(t *testing.T) {
	f := Fixture{
		FirstName:        "TestUser123",
		LastName:         "LastName1700000000000",
		PatientFirstName: "Patient123",
		PatientLastName:  "PatientLast1700000000000",
	}
	assert.Equal(t, "TestUser123 LastName1700000000000", f.ProviderName())
	assert.Equal(t, "Patient123 PatientLast1700000000000", f.PatientName())
}

func TestGenerateSharesNameSuffix(t *testing.T) {
	g := NewGenerator(WithClock(fixedClock(1700000000000)), WithRand(rand.New(rand.NewSource(42))))
	f := g.Generate()

	require.Equal(t, "LastName1700000000000", f.LastName)
	require.Equal(t, "PatientLast1700000000000", f.PatientLastName)
	assert.Equal(t, f.FirstName[len("TestUser"):], f.PatientFirstName[len("Patient"):])
}

func TestGeneratorConcurrentUse(t *testing.T) {
	g := NewGenerator()
	var wg sync.WaitGroup
	results := make([]Fixture, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Generate()
		}(i)
	}
	wg.Wait()

	for _, f := range results {
		assert.Regexp(t, contactPattern, f.ContactNumber)
		assert.Regexp(t, npiPattern, f.NPINumber)
	}
}

func TestPackageGenerate(t *testing.T) {
	f := Generate()
	assert.NotEmpty(t, f.ProviderName())
	assert.NotEmpty(t, f.PatientName())
}
