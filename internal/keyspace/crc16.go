package keyspace

// NumSlots is the fixed slot count spec.md §3/§4.2 partitions the keyspace
// into, matching Redis Cluster's own slot space.
const NumSlots = 16384

// crc16Table is the standard CRC16-XMODEM table (poly 0x1021, no reflect,
// init 0), the variant Redis Cluster uses for key hashing.
var crc16Table = func() [256]uint16 {
	var table [256]uint16
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// HashTag extracts the substring between the first '{' and the next '}'
// after it, if that substring is non-empty — the part of the key that
// actually participates in slot hashing (spec.md §3, GLOSSARY). Keys
// without a hash tag hash on their entire content.
func HashTag(key string) string {
	start := -1
	for i := 0; i < len(key); i++ {
		if key[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return key
	}
	end := -1
	for i := start + 1; i < len(key); i++ {
		if key[i] == '}' {
			end = i
			break
		}
	}
	if end == -1 || end == start+1 {
		return key
	}
	return key[start+1 : end]
}

// SlotOf applies Redis-compatible CRC16 (with hash-tag substring
// semantics) to determine which of the NumSlots logical shards owns key.
func SlotOf(key string) int {
	return int(crc16([]byte(HashTag(key))) % NumSlots)
}

// SameSlot reports whether every key in keys maps to the same slot —
// the precondition multi-key commands must check under cluster routing.
func SameSlot(keys []string) bool {
	if len(keys) < 2 {
		return true
	}
	first := SlotOf(keys[0])
	for _, k := range keys[1:] {
		if SlotOf(k) != first {
			return false
		}
	}
	return true
}
