package value

import "math/rand"

// pseudoRandomIndex picks a uniform index in [0, n). Used by SPOP/
// SRANDMEMBER-style operations; not required to be cryptographically
// random, matching Redis's own use of a non-cryptographic PRNG here.
func pseudoRandomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.Intn(n)
}
