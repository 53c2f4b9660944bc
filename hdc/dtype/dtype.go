// Package dtype implements the HDC DataTypeId encoding: a single byte whose
// upper nibble classifies the kind (unsigned int, signed int, float, UTF-8,
// binary, DTYPE-of-DTYPE) and whose lower nibble is the byte width, with
// 0x_F marking variable-width types.
package dtype

// ID is the wire byte identifying a property/argument/return data type.
type ID byte

const (
	UINT8  ID = 0x01
	UINT16 ID = 0x02
	UINT32 ID = 0x04
	INT8   ID = 0x11
	INT16  ID = 0x12
	INT32  ID = 0x14
	FLOAT  ID = 0x24
	DOUBLE ID = 0x28
	UTF8   ID = 0xAF
	BOOL   ID = 0xB1
	BLOB   ID = 0xBF
	DTYPE  ID = 0xD1
)

// Variable reports whether the lower nibble is 0xF, marking a variable-width
// (BLOB/UTF8) data type rather than a fixed-width scalar.
func (d ID) Variable() bool { return d&0x0F == 0x0F }

// FixedWidth returns the declared byte width for a fixed-width dtype. BOOL
// and DTYPE report their 1-byte wire width even though their lower nibble
// does not follow the "nibble == width" convention of the integer/float
// kinds. Variable-width dtypes return 0 — use Variable() first.
func (d ID) FixedWidth() int {
	switch d {
	case BOOL, DTYPE:
		return 1
	}
	if d.Variable() {
		return 0
	}
	return int(d & 0x0F)
}

// Name returns the uppercase mnemonic used in IDL-JSON.
func (d ID) Name() string {
	switch d {
	case UINT8:
		return "UINT8"
	case UINT16:
		return "UINT16"
	case UINT32:
		return "UINT32"
	case INT8:
		return "INT8"
	case INT16:
		return "INT16"
	case INT32:
		return "INT32"
	case FLOAT:
		return "FLOAT"
	case DOUBLE:
		return "DOUBLE"
	case UTF8:
		return "UTF8"
	case BOOL:
		return "BOOL"
	case BLOB:
		return "BLOB"
	case DTYPE:
		return "DTYPE"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether d is one of the twelve concrete dtypes.
func (d ID) Valid() bool {
	switch d {
	case UINT8, UINT16, UINT32, INT8, INT16, INT32, FLOAT, DOUBLE, UTF8, BOOL, BLOB, DTYPE:
		return true
	default:
		return false
	}
}
