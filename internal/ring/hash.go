package ring

import (
	"crypto/md5" //nolint:gosec // bit-compatible with the deployed ring; not used for anything security-sensitive
	"math/big"
	"strconv"
)

// hashKey returns the 128-bit ring position for s: the MD5 digest of its
// UTF-8 bytes, read as an unsigned big-endian integer. This must stay
// bit-exact with int(md5_hex(utf8(s)), 16) so a Go ring can interoperate
// with an existing deployment (§6 "Hash-on-the-wire compatibility").
func hashKey(s string) *big.Int {
	sum := md5.Sum([]byte(s))
	return new(big.Int).SetBytes(sum[:])
}

func virtualNodeName(server string, i int) string {
	return server + "-" + strconv.Itoa(i)
}
