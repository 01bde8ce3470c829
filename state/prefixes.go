package state

// Key namespaces for the shared storage root. Every module reads and writes
// through these builders; the prefixes are disjoint so new modules cannot
// collide with existing records.
var (
	accountPrefix      = []byte("account/")
	tokenBalancePrefix = []byte("token/balance/")
	tokenAllowPrefix   = []byte("token/allowance/")
	marketConfigKey    = []byte("admin/config")
	whitelistPrefix    = []byte("admin/whitelist/")
	rolePrefix         = []byte("role/")
	routeOpPrefix      = []byte("routes/op/")
	routeIndexKey      = []byte("routes/index")
	initGuardKey       = []byte("dispatch/init")
)

func joinKey(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
