package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the protected machine ID to this application.
const AppID = "bytelink"

// MachineID returns an ID identifying this machine for AppID, falling back
// to the host name when the OS doesn't expose one.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

// ClientID derives a broker client ID from the machine ID. MQTT 3.1 brokers
// may reject IDs longer than 23 bytes, so room is left for a short suffix.
func ClientID() string {
	id := AppID + "-" + MachineID()
	if len(id) > 20 {
		id = id[:20]
	}
	return id
}
