package blob

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_RoundTrip checks decode(encode(x)) == x for arbitrary arrays
// under both compression schemes.
func TestProperty_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	roundTrips := func(c Codec, a *Array) bool {
		b, err := c.Encode(a)
		if err != nil {
			return false
		}
		got, err := c.Decode(b)
		if err != nil {
			return false
		}
		return reflect.DeepEqual(got, a)
	}

	for _, c := range codecs {
		c := c
		properties.Property("int arrays round trip via "+c.Scheme(), prop.ForAll(
			func(v []int32) bool { return roundTrips(c, Ints32(v)) },
			gen.SliceOf(gen.Int32()),
		))
		properties.Property("float arrays round trip via "+c.Scheme(), prop.ForAll(
			func(v []float32) bool { return roundTrips(c, Floats32(v)) },
			gen.SliceOf(gen.Float32()),
		))
		properties.Property("genotype strings round trip via "+c.Scheme(), prop.ForAll(
			func(v []string) bool { return roundTrips(c, Strs(v)) },
			gen.SliceOf(gen.RegexMatch(`[ACGT./|]{1,6}`)),
		))
		properties.Property("bool arrays round trip via "+c.Scheme(), prop.ForAll(
			func(v []bool) bool { return roundTrips(c, Bools(v)) },
			gen.SliceOf(gen.Bool()),
		))
	}

	properties.TestingRun(t)
}
