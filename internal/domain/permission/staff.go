package permission

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// StaffPermission is the decoded membership of one staff member in a
// service. Derived per lookup from the service row's staff JSON; never
// cached beyond one check.
type StaffPermission struct {
	StaffID  uint
	Power    Power
	IsMember bool
}

// HasPermission reports whether the member carries any of the required bits.
func (s StaffPermission) HasPermission(required Power) bool {
	return s.IsMember && HasAny(s.Power, required)
}

// decodeStaff parses the staff JSON object: role name -> ["<id>:<power>", ...].
// A nil or empty document is an empty staff list.
func decodeStaff(staffJSON []byte) (map[string][]string, error) {
	if len(staffJSON) == 0 {
		return nil, nil
	}
	var roles map[string][]string
	if err := sonic.Unmarshal(staffJSON, &roles); err != nil {
		return nil, fmt.Errorf("malformed staff document: %w", err)
	}
	return roles, nil
}

// staffLookup scans the staff document for the given id. Empty string
// entries are treated as absent rather than erroring.
func staffLookup(staffJSON []byte, staffID uint) (StaffPermission, error) {
	roles, err := decodeStaff(staffJSON)
	if err != nil {
		return StaffPermission{}, err
	}

	for _, entries := range roles {
		for _, entry := range entries {
			if entry == "" {
				continue
			}
			id, power, err := parseStaffEntry(entry)
			if err != nil {
				return StaffPermission{}, err
			}
			if id == staffID {
				return StaffPermission{
					StaffID:  id,
					Power:    power,
					IsMember: true,
				}, nil
			}
		}
	}
	return StaffPermission{StaffID: staffID}, nil
}

func parseStaffEntry(entry string) (uint, Power, error) {
	idPart, powerPart, found := strings.Cut(entry, ":")
	if !found {
		return 0, 0, fmt.Errorf("malformed staff entry %q", entry)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed staff id in %q: %w", entry, err)
	}
	power, err := strconv.ParseUint(powerPart, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed staff power in %q: %w", entry, err)
	}
	return uint(id), Power(power), nil
}
