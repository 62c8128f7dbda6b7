package wire

// Status is the single-byte status code carried in a Response sub-packet.
// Numeric values follow the reference ordering named in spec.md §6 so
// that peers speaking the historical wire protocol interoperate.
type Status byte

const (
	StatusOK                    Status = 0
	StatusGeneralError          Status = 1
	StatusNoDataFound           Status = 2
	StatusInvalidPacket         Status = 3
	StatusInvalidHashcash       Status = 4
	StatusInsufficientHashcash  Status = 5
	StatusNoDiskSpace           Status = 6
	StatusDuplicatedData        Status = 7
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusGeneralError:
		return "GENERAL_ERROR"
	case StatusNoDataFound:
		return "NO_DATA_FOUND"
	case StatusInvalidPacket:
		return "INVALID_PACKET"
	case StatusInvalidHashcash:
		return "INVALID_HASHCASH"
	case StatusInsufficientHashcash:
		return "INSUFFICIENT_HASHCASH"
	case StatusNoDiskSpace:
		return "NO_DISK_SPACE"
	case StatusDuplicatedData:
		return "DUPLICATED_DATA"
	default:
		return "UNKNOWN_STATUS"
	}
}
