// Package gatt walks a connected device's primary services and assigns
// the write/notify/control-point roles the controller needs, across the
// FTMS profile and two legacy proprietary service families.
package gatt

import (
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/padctl/internal/uuidutil"
)

const (
	ftmsServiceUUID        = "1826"
	ftmsTreadmillDataUUID  = "2acd"
	ftmsControlPointUUID   = "2ad9"
	legacyService1UUID     = "fe00"
	legacyService1WriteUUID = "fe01"
	legacyService1NotifyUUID = "fe02"
	legacyService2UUID     = "fff0"
	legacyService2WriteUUID = "fff2"
	legacyService2NotifyUUID = "fff1"
)

// Characteristic is the subset of GATT characteristic metadata discovery
// needs: its UUID and property bitmask.
type Characteristic struct {
	UUID       string
	Properties ble.Property
	Native     *ble.Characteristic
}

func (c Characteristic) canWrite() bool {
	return c.Properties&(ble.CharWrite|ble.CharWriteNR) != 0
}

func (c Characteristic) canNotify() bool {
	return c.Properties&ble.CharNotify != 0
}

func (c Characteristic) canIndicate() bool {
	return c.Properties&ble.CharIndicate != 0
}

// Service is a discovered primary service and its characteristics, in
// discovery order.
type Service struct {
	UUID            string
	Characteristics []Characteristic
}

// ErrRolesUnassigned is returned when scanning every discovered service
// leaves the write or notify role unfilled.
var ErrRolesUnassigned = errors.New("gatt: write or notify characteristic not found")

// Roles is the result of a successful discovery: the characteristics the
// connection orchestrator will write commands to and read status from.
type Roles struct {
	ServiceUUIDs          []string
	Write                 Characteristic
	Notify                Characteristic
	ControlPoint          *Characteristic
	ControlPointIndicates bool
}

// Discover assigns roles by walking services in order, preferring FTMS,
// then falling back to either legacy service family. Discovery fails if
// either the write or the notify role remains unassigned after every
// service has been scanned.
func Discover(services []Service) (Roles, error) {
	serviceUUIDs := orderedmap.New[string, struct{}]()
	for _, svc := range services {
		serviceUUIDs.Set(svc.UUID, struct{}{})
	}

	var roles Roles
	for pair := serviceUUIDs.Oldest(); pair != nil; pair = pair.Next() {
		roles.ServiceUUIDs = append(roles.ServiceUUIDs, pair.Key)
	}

	for _, svc := range services {
		switch {
		case uuidutil.Match(svc.UUID, ftmsServiceUUID):
			assignFTMS(&roles, svc)
		case uuidutil.Match(svc.UUID, legacyService1UUID) && (roles.Write.UUID == "" || roles.Notify.UUID == ""):
			assignLegacy(&roles, svc, legacyService1WriteUUID, legacyService1NotifyUUID)
		case uuidutil.Match(svc.UUID, legacyService2UUID) && (roles.Write.UUID == "" || roles.Notify.UUID == ""):
			assignLegacy(&roles, svc, legacyService2WriteUUID, legacyService2NotifyUUID)
		}
	}

	if roles.Write.UUID == "" || roles.Notify.UUID == "" {
		return Roles{}, fmt.Errorf("%w: services=%v", ErrRolesUnassigned, roles.ServiceUUIDs)
	}
	return roles, nil
}

func assignFTMS(roles *Roles, svc Service) {
	for _, ch := range svc.Characteristics {
		switch {
		case uuidutil.Match(ch.UUID, ftmsTreadmillDataUUID) && ch.canNotify():
			roles.Notify = ch
		case uuidutil.Match(ch.UUID, ftmsControlPointUUID) && ch.canWrite():
			ch := ch
			roles.Write = ch
			roles.ControlPoint = &ch
			if ch.canIndicate() {
				roles.ControlPointIndicates = true
			}
		}
	}
}

func assignLegacy(roles *Roles, svc Service, writeUUID, notifyUUID string) {
	for _, ch := range svc.Characteristics {
		switch {
		case uuidutil.Match(ch.UUID, writeUUID) && ch.canWrite() && roles.Write.UUID == "":
			roles.Write = ch
		case uuidutil.Match(ch.UUID, notifyUUID) && ch.canNotify() && roles.Notify.UUID == "":
			roles.Notify = ch
		}
	}
}
