package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeResourcesPermutations(t *testing.T) {
	a := []byte(`1 0 obj
<</Type /XObject /Resources <</Font <<>>/XObject <<>>/ColorSpace <<>>/ProcSet [/PDF /Text]>>>>
endobj`)
	b := []byte(`1 0 obj
<</Type /XObject /Resources <</ProcSet [/PDF /Text]/Font <<>>/XObject <<>>/ColorSpace <<>>>>>>
endobj`)

	ca, cb := canonicalizeResources(a), canonicalizeResources(b)
	assert.Equal(t, ca, cb, "permuted dictionaries must canonicalize identically")
	assert.Len(t, ca, len(a), "canonicalization must only permute bytes")
}

func TestCanonicalizeResourcesSortsNestedDicts(t *testing.T) {
	a := []byte(`/Resources <</Font <</F2 6 0 R /F1 5 0 R>>>>`)
	b := []byte(`/Resources <</Font <</F1 5 0 R /F2 6 0 R>>>>`)

	assert.Equal(t, canonicalizeResources(a), canonicalizeResources(b))
}

func TestCanonicalizeResourcesIdempotent(t *testing.T) {
	in := []byte(`/Resources <</XObject <</Im1 4 0 R>>/Font <<>>/ProcSet [/PDF]>>`)
	once := canonicalizeResources(in)
	assert.Equal(t, once, canonicalizeResources(once))
}

func TestCanonicalizeResourcesLeavesRestAlone(t *testing.T) {
	in := []byte(`%PDF-1.6
2 0 obj <</Length 11>> stream
BT (hi) ET
endstream
%%EOF`)
	assert.Equal(t, in, canonicalizeResources(in))

	// An indirect resource reference has no inline dictionary to sort.
	ref := []byte(`<</Resources 5 0 R /Type /Page>>`)
	assert.Equal(t, ref, canonicalizeResources(ref))
}

func TestCanonicalizeResourcesNameValues(t *testing.T) {
	// A name directly after a key is that key's value; sorting must keep the
	// pair together.
	in := []byte(`/Resources <</B /Zeta /A <<>>>>`)
	got := canonicalizeResources(in)
	assert.Equal(t, []byte(`/Resources <</A <<>>/B /Zeta >>`), got)
}

func TestSplitEntriesStringsAndArrays(t *testing.T) {
	prefix, entries := splitEntries([]byte(` /S (a/b\)c) /P [/X /Y] /N 3`))
	assert.Equal(t, []byte(" "), prefix)
	require.Len(t, entries, 3)
	assert.Equal(t, []byte("/S (a/b\\)c) "), entries[0])
	assert.Equal(t, []byte("/P [/X /Y] "), entries[1])
	assert.Equal(t, []byte("/N 3"), entries[2])
}
