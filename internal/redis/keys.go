package redis

import "strings"

// keyFamilies lists every key prefix this package writes.
var keyFamilies = []string{
	vehicleCachePrefix,
	listingCachePrefix,
	processedSessionPrefix,
	idempotencyPrefix,
}

// KeyFamily returns the family of key without its trailing colon, e.g.
// "cache:car" for "cache:car:7". Unknown keys report "other".
func KeyFamily(key string) string {
	for _, prefix := range keyFamilies {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimSuffix(prefix, ":")
		}
	}
	return "other"
}
