package protocol

import (
	"github.com/cornelk/hashmap"

	"github.com/srg/padctl/internal/uuidutil"
)

// FTMSServiceUUID is the Bluetooth-assigned short UUID for the Fitness
// Machine Service.
const FTMSServiceUUID = "1826"

// Registry detects which codec a device speaks from its discovered
// service UUIDs and memoizes one instance per variant, so every caller
// observing the same protocol shares the same codec reference.
type Registry struct {
	instances *hashmap.Map[Name, Codec]
}

// NewRegistry returns an empty, ready-to-use registry.
func NewRegistry() *Registry {
	return &Registry{instances: hashmap.New[Name, Codec]()}
}

// Detect chooses FTMS if any discovered service UUID's short form equals
// the FTMS identifier, otherwise standard, and returns the memoized codec
// for that variant.
func (r *Registry) Detect(serviceUUIDs []string) Codec {
	for _, uuid := range serviceUUIDs {
		if uuidutil.Match(uuid, FTMSServiceUUID) {
			return r.get(FTMS)
		}
	}
	return r.get(Standard)
}

func (r *Registry) get(name Name) Codec {
	if c, ok := r.instances.Get(name); ok {
		return c
	}
	var c Codec
	switch name {
	case FTMS:
		c = NewFTMS()
	default:
		c = NewStandard()
	}
	c, _ = r.instances.GetOrInsert(name, c)
	return c
}
