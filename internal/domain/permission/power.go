package permission

// Power is a capability bitmask attached to staff entries and accounts.
type Power uint32

const (
	PowerNone     Power = 0
	PowerUser     Power = 1
	PowerProvider Power = 2
	PowerRead     Power = 4
	PowerWrite    Power = 8
	PowerDelete   Power = 16
	PowerAdmin    Power = 32
	PowerOwner    Power = 64
	PowerSuper    Power = 128
)

// HasAny reports whether mask carries at least one of the required bits.
func HasAny(mask, required Power) bool {
	return mask&required != 0
}

// Combine folds masks together.
func Combine(masks ...Power) Power {
	var combined Power
	for _, mask := range masks {
		combined |= mask
	}
	return combined
}
