package mergepq

import "math/rand"

// xorshiftMult64 and reduce give cyclicOrder cheap, decent-quality entropy
// without the division a naive modulo reduction would need. A bag scan
// can't just sample a handful of random indices per operation the way a
// relaxed queue's "choose d at random" picks its candidates -- IsEmpty's
// snapshot probe and mergePerElementInto's per-slot build-out both need
// every index visited exactly once -- so the mixing function here drives a
// coprime start/stride pair that walks the full width instead.
func xorshiftMult64(x uint64) uint64 {
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	return x * 2685821657736338717
}

// reduce maps x uniformly into [0, n) without a division.
// http://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/
func reduce(x uint32, n int) uint32 {
	return uint32((uint64(x) * uint64(n)) >> 32)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// cyclicOrder picks a uniformly random start index and a stride coprime to
// width, so visiting start, start+stride, start+2*stride, ... (mod width)
// touches every index in [0, width) exactly once. Entropy comes from
// math/rand's top-level source, run through xorshiftMult64 for
// the actual index draws.
func cyclicOrder(width int) (start, stride int) {
	if width <= 1 {
		return 0, 1
	}

	seed := xorshiftMult64(rand.Uint64() | 1)
	start = int(reduce(uint32(seed), width))

	seed = xorshiftMult64(seed)
	stride = int(reduce(uint32(seed), width-1)) + 1
	for gcd(stride, width) != 1 {
		stride++
		if stride >= width {
			stride = 1
		}
	}
	return start, stride
}
